package binpack

import (
	"bytes"
	"testing"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format string
		vals   []Value
	}{
		{"byte", "b", []Value{{IsInt: true, Int: -12}}},
		{"unsigned short little", "<H", []Value{{IsInt: true, Int: 300}}},
		{"int big endian", ">i4", []Value{{IsInt: true, Int: -70000}}},
		{"two longs native", "jj", []Value{{IsInt: true, Int: 1}, {IsInt: true, Int: -1}}},
		{"fixed string", "c5", []Value{{Str: "abc", HasStr: true}}},
		{"prefixed string", "s1", []Value{{Str: "hello", HasStr: true}}},
		{"nul string", "z", []Value{{Str: "hello", HasStr: true}}},
		{"double", "d", []Value{{Float: 3.5}}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			packed, err := Pack(test.format, test.vals)
			if err != nil {
				t.Fatalf("Pack failed: %v", err)
			}
			got, n, err := Unpack(test.format, packed, 0)
			if err != nil {
				t.Fatalf("Unpack failed: %v", err)
			}
			if n != len(packed) {
				t.Errorf("Unpack consumed %d bytes, want %d", n, len(packed))
			}
			if len(got) != len(test.vals) {
				t.Fatalf("got %d values, want %d", len(got), len(test.vals))
			}
			for i, v := range got {
				want := test.vals[i]
				if want.HasStr {
					if v.Str != want.Str {
						t.Errorf("value %d: got %q, want %q", i, v.Str, want.Str)
					}
					continue
				}
				if want.IsInt {
					if !v.IsInt || v.Int != want.Int {
						t.Errorf("value %d: got %+v, want int %d", i, v, want.Int)
					}
				} else if v.Float != want.Float {
					t.Errorf("value %d: got %+v, want float %v", i, v, want.Float)
				}
			}
		})
	}
}

func TestPackEndianness(t *testing.T) {
	le, err := Pack("<I4", []Value{{IsInt: true, Int: 1}})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !bytes.Equal(le, []byte{1, 0, 0, 0}) {
		t.Errorf("little-endian pack = %v, want [1 0 0 0]", le)
	}

	be, err := Pack(">I4", []Value{{IsInt: true, Int: 1}})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !bytes.Equal(be, []byte{0, 0, 0, 1}) {
		t.Errorf("big-endian pack = %v, want [0 0 0 1]", be)
	}
}

func TestEncodeIntOverflow(t *testing.T) {
	if _, err := Pack("b", []Value{{IsInt: true, Int: 200}}); err == nil {
		t.Error("expected overflow error packing 200 into a signed byte")
	}
	if _, err := Pack("B", []Value{{IsInt: true, Int: -1}}); err == nil {
		t.Error("expected overflow error packing -1 into an unsigned byte")
	}
}

func TestPackSize(t *testing.T) {
	n, err := PackSize("<i4I4c3")
	if err != nil {
		t.Fatalf("PackSize: %v", err)
	}
	if n != 11 {
		t.Errorf("PackSize = %d, want 11", n)
	}

	if _, err := PackSize("s1"); err == nil {
		t.Error("expected error for variable-length format 's' in packsize")
	}
	if _, err := PackSize("z"); err == nil {
		t.Error("expected error for variable-length format 'z' in packsize")
	}
}

func TestAlignment(t *testing.T) {
	packed, err := Pack("!4bi4", []Value{{IsInt: true, Int: 1}, {IsInt: true, Int: 2}})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(packed) != 8 {
		t.Errorf("aligned pack length = %d, want 8 (1 byte + 3 pad + 4 byte int)", len(packed))
	}
}

func TestZStringRejectsEmbeddedNUL(t *testing.T) {
	if _, err := Pack("z", []Value{{Str: "a\x00b", HasStr: true}}); err == nil {
		t.Error("expected error packing a NUL-containing string with 'z'")
	}
}
