package strformat

import (
	"math"
	"testing"

	"lua/internal/value"
)

func noCall(fn value.Value, args []value.Value) ([]value.Value, error) {
	return nil, nil
}

func TestFormatIntegers(t *testing.T) {
	tests := []struct {
		format string
		arg    value.Value
		want   string
	}{
		{"%d", value.Int(42), "42"},
		{"%5d", value.Int(42), "   42"},
		{"%-5d|", value.Int(42), "42   |"},
		{"%05d", value.Int(42), "00042"},
		{"%x", value.Int(255), "ff"},
		{"%#x", value.Int(255), "0xff"},
		{"%X", value.Int(255), "FF"},
		{"%+d", value.Int(7), "+7"},
		{"%o", value.Int(8), "10"},
	}
	for _, test := range tests {
		got, err := Format(noCall, test.format, []value.Value{test.arg})
		if err != nil {
			t.Fatalf("Format(%q): %v", test.format, err)
		}
		if got != test.want {
			t.Errorf("Format(%q) = %q, want %q", test.format, got, test.want)
		}
	}
}

func TestFormatStrings(t *testing.T) {
	got, err := Format(noCall, "[%10s]", []value.Value{value.NewString("hi")})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != "[        hi]" {
		t.Errorf("Format = %q, want right-justified width 10", got)
	}
}

func TestFormatPercentLiteral(t *testing.T) {
	got, err := Format(noCall, "100%%", nil)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != "100%" {
		t.Errorf("Format = %q, want %q", got, "100%")
	}
}

func TestFormatQRoundTrip(t *testing.T) {
	tests := []struct {
		v    value.Value
		want string
	}{
		{value.Int(math.MinInt64), "0x8000000000000000"},
		{value.Float(math.NaN()), "(0/0)"},
		{value.Float(math.Inf(1)), "1e9999"},
		{value.Float(math.Inf(-1)), "-1e9999"},
		{value.NewString("a\nb"), `"a\nb"`},
		{value.Nil{}, "nil"},
		{value.Bool(true), "true"},
	}
	for _, test := range tests {
		got, err := Format(noCall, "%q", []value.Value{test.v})
		if err != nil {
			t.Fatalf("Format(%%q, %v): %v", test.v, err)
		}
		if got != test.want {
			t.Errorf("Format(%%q, %v) = %q, want %q", test.v, got, test.want)
		}
	}
}

func TestFormatQRejectsModifiers(t *testing.T) {
	if _, err := Format(noCall, "%5q", []value.Value{value.NewString("x")}); err == nil {
		t.Error("expected error: %q cannot have modifiers")
	}
}

func TestFormatMissingArgument(t *testing.T) {
	if _, err := Format(noCall, "%d", nil); err == nil {
		t.Error("expected error for missing argument")
	}
}

func TestFormatWidthCap(t *testing.T) {
	big := "%" + repeat("9", 3) + "d"
	if _, err := Format(noCall, big, []value.Value{value.Int(1)}); err == nil {
		t.Error("expected error for over-long width specifier")
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
