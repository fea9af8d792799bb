package strlib

import (
	"testing"

	"lua/internal/value"
)

func newLib() *value.Table {
	lib := value.NewTable(0, 16)
	Register(lib, func(fn value.Value, args []value.Value) ([]value.Value, error) {
		f, ok := fn.(*value.Function)
		if !ok || f.Go == nil {
			return nil, nil
		}
		return f.Go(args)
	})
	return lib
}

func call(t *testing.T, lib *value.Table, name string, args ...value.Value) []value.Value {
	t.Helper()
	fn, ok := lib.RawGet(value.NewString(name)).(*value.Function)
	if !ok {
		t.Fatalf("string.%s not registered", name)
	}
	res, err := fn.Go(args)
	if err != nil {
		t.Fatalf("string.%s: %v", name, err)
	}
	return res
}

func asString(t *testing.T, v value.Value) string {
	t.Helper()
	b, ok := v.(*value.Bytes)
	if !ok {
		t.Fatalf("expected string, got %T", v)
	}
	return b.String()
}

func TestSub(t *testing.T) {
	lib := newLib()
	tests := []struct {
		s, want string
		i, j    int64
	}{
		{"hello world", "hello", 1, 5},
		{"hello world", "world", -5, -1},
		{"hello", "", 10, 20},
		{"hello", "hello", 1, -1},
	}
	for _, test := range tests {
		res := call(t, lib, "sub", value.NewString(test.s), value.Int(test.i), value.Int(test.j))
		if got := asString(t, res[0]); got != test.want {
			t.Errorf("sub(%q,%d,%d) = %q, want %q", test.s, test.i, test.j, got, test.want)
		}
	}
}

func TestUpperLowerReverse(t *testing.T) {
	lib := newLib()
	if got := asString(t, call(t, lib, "upper", value.NewString("AbC"))[0]); got != "ABC" {
		t.Errorf("upper = %q", got)
	}
	if got := asString(t, call(t, lib, "lower", value.NewString("AbC"))[0]); got != "abc" {
		t.Errorf("lower = %q", got)
	}
	if got := asString(t, call(t, lib, "reverse", value.NewString("abc"))[0]); got != "cba" {
		t.Errorf("reverse = %q", got)
	}
}

func TestRep(t *testing.T) {
	lib := newLib()
	got := asString(t, call(t, lib, "rep", value.NewString("ab"), value.Int(3), value.NewString("-"))[0])
	if got != "ab-ab-ab" {
		t.Errorf("rep = %q, want %q", got, "ab-ab-ab")
	}
}

func TestByteChar(t *testing.T) {
	lib := newLib()
	res := call(t, lib, "byte", value.NewString("ABC"), value.Int(1), value.Int(3))
	if len(res) != 3 {
		t.Fatalf("byte returned %d values, want 3", len(res))
	}
	want := []int64{65, 66, 67}
	for i, v := range res {
		if int64(v.(value.Int)) != want[i] {
			t.Errorf("byte[%d] = %v, want %d", i, v, want[i])
		}
	}
	got := asString(t, call(t, lib, "char", value.Int(72), value.Int(73))[0])
	if got != "HI" {
		t.Errorf("char = %q, want %q", got, "HI")
	}
}

func TestFindPlainAndPattern(t *testing.T) {
	lib := newLib()
	res := call(t, lib, "find", value.NewString("hello world"), value.NewString("world"))
	if len(res) != 2 || int64(res[0].(value.Int)) != 7 || int64(res[1].(value.Int)) != 11 {
		t.Errorf("find plain = %v, want [7 11]", res)
	}

	res = call(t, lib, "find", value.NewString("key=value"), value.NewString("(%a+)=(%a+)"))
	if len(res) != 4 {
		t.Fatalf("find pattern with captures returned %d values, want 4", len(res))
	}
	if asString(t, res[2]) != "key" || asString(t, res[3]) != "value" {
		t.Errorf("find captures = %v", res[2:])
	}
}

func TestMatch(t *testing.T) {
	lib := newLib()
	res := call(t, lib, "match", value.NewString("hello123world"), value.NewString("%d+"))
	if asString(t, res[0]) != "123" {
		t.Errorf("match = %v, want 123", res)
	}
}

func TestGmatch(t *testing.T) {
	lib := newLib()
	iterRes := call(t, lib, "gmatch", value.NewString("one two three"), value.NewString("%a+"))
	iter, ok := iterRes[0].(*value.Function)
	if !ok {
		t.Fatalf("gmatch did not return a function")
	}
	var words []string
	for {
		res, err := iter.Go(nil)
		if err != nil {
			t.Fatalf("gmatch iterator: %v", err)
		}
		if len(res) == 0 {
			break
		}
		words = append(words, asString(t, res[0]))
	}
	want := []string{"one", "two", "three"}
	if len(words) != len(want) {
		t.Fatalf("gmatch produced %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("gmatch[%d] = %q, want %q", i, words[i], want[i])
		}
	}
}

func TestGsubStringReplacement(t *testing.T) {
	lib := newLib()
	res := call(t, lib, "gsub", value.NewString("hello world"), value.NewString("o"), value.NewString("0"))
	if asString(t, res[0]) != "hell0 w0rld" {
		t.Errorf("gsub = %q", asString(t, res[0]))
	}
	if int64(res[1].(value.Int)) != 2 {
		t.Errorf("gsub count = %v, want 2", res[1])
	}
}

func TestGsubFunctionReplacement(t *testing.T) {
	lib := value.NewTable(0, 16)
	called := func(fn value.Value, args []value.Value) ([]value.Value, error) {
		f := fn.(*value.Function)
		return f.Go(args)
	}
	Register(lib, called)

	upper, _ := lib.RawGet(value.NewString("upper")).(*value.Function)
	replacer := value.NewGoFunc("replacer", func(args []value.Value) ([]value.Value, error) {
		return upper.Go(args)
	})
	gsub, _ := lib.RawGet(value.NewString("gsub")).(*value.Function)
	res, err := gsub.Go([]value.Value{value.NewString("abc"), value.NewString("%a"), replacer})
	if err != nil {
		t.Fatalf("gsub: %v", err)
	}
	if asString(t, res[0]) != "ABC" {
		t.Errorf("gsub with function replacer = %q, want %q", asString(t, res[0]), "ABC")
	}
}

func TestFormat(t *testing.T) {
	lib := newLib()
	res := call(t, lib, "format", value.NewString("%d-%s"), value.Int(5), value.NewString("x"))
	if asString(t, res[0]) != "5-x" {
		t.Errorf("format = %q, want %q", asString(t, res[0]), "5-x")
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	lib := newLib()
	packed := call(t, lib, "pack", value.NewString("i4"), value.Int(12345))
	unpacked := call(t, lib, "unpack", value.NewString("i4"), packed[0])
	if int64(unpacked[0].(value.Int)) != 12345 {
		t.Errorf("unpack = %v, want 12345", unpacked[0])
	}
}
