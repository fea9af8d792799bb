package value

import (
	"testing"

	"github.com/kr/pretty"
)

// TestRawSetRawGetRoundTrip checks spec.md 8's universal invariant:
// rawset(t,k,v) then rawget(t,k) == v for non-nil, non-NaN k, and
// rawset(t,k,nil) then rawget(t,k) == nil.
func TestRawSetRawGetRoundTrip(t *testing.T) {
	tbl := NewTable(0, 4)
	if err := tbl.RawSet(NewString("x"), Int(42)); err != nil {
		t.Fatal(err)
	}
	if got := tbl.RawGet(NewString("x")); got != Value(Int(42)) {
		t.Fatalf("RawGet after RawSet = %# v, want Int(42)", pretty.Formatter(got))
	}
	if err := tbl.RawSet(NewString("x"), Nil{}); err != nil {
		t.Fatal(err)
	}
	if got := tbl.RawGet(NewString("x")); !IsNil(got) {
		t.Fatalf("RawGet after deleting = %# v, want Nil", pretty.Formatter(got))
	}
}

// TestLenBorderWithoutHoles checks the dense-array border property:
// t[#t] != nil and t[#t+1] == nil.
func TestLenBorderWithoutHoles(t *testing.T) {
	tbl := NewTable(0, 0)
	for i := int64(1); i <= 5; i++ {
		if err := tbl.RawSet(Int(i), Int(i*10)); err != nil {
			t.Fatal(err)
		}
	}
	n := tbl.Len()
	if n != 5 {
		t.Fatalf("Len() = %d, want 5", n)
	}
	if IsNil(tbl.RawGet(Int(int64(n)))) {
		t.Fatalf("t[#t] is nil")
	}
	if !IsNil(tbl.RawGet(Int(int64(n) + 1))) {
		t.Fatalf("t[#t+1] is not nil")
	}
}

// TestNilKeyRejected checks that storing through a nil key is an error,
// not a silent no-op (spec.md 3: "non-nil, non-NaN Value keys").
func TestNilKeyRejected(t *testing.T) {
	tbl := NewTable(0, 0)
	if err := tbl.RawSet(Nil{}, Int(1)); err == nil {
		t.Fatalf("RawSet(nil, 1) should error, got diff: %s", pretty.Diff(err, nil))
	}
}

// TestFloatIntegerKeyAliasing checks that t[1] and t[1.0] address the
// same slot (spec.md 3: Int n equals Float n.0 when exactly
// representable).
func TestFloatIntegerKeyAliasing(t *testing.T) {
	tbl := NewTable(0, 0)
	if err := tbl.RawSet(Int(1), NewString("int-key")); err != nil {
		t.Fatal(err)
	}
	got := tbl.RawGet(Float(1.0))
	want := Value(NewString("int-key"))
	if !RawEqual(got, want) {
		t.Fatalf("table key aliasing mismatch:\n%s", pretty.Sprint(pretty.Diff(got, want)))
	}
}

// TestNextVisitsEveryEntryOnce walks next(t, k) to exhaustion and
// checks every stored entry is produced exactly once, independent of
// iteration order (spec.md 4.2).
func TestNextVisitsEveryEntryOnce(t *testing.T) {
	tbl := NewTable(0, 0)
	want := map[string]int64{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		if err := tbl.RawSet(NewString(k), Int(v)); err != nil {
			t.Fatal(err)
		}
	}

	seen := map[string]int64{}
	var k Value = Nil{}
	for {
		nk, nv, ok := tbl.Next(k)
		if !ok {
			break
		}
		b, ok := nk.(*Bytes)
		if !ok {
			t.Fatalf("unexpected key type %T", nk)
		}
		iv, ok := nv.(Int)
		if !ok {
			t.Fatalf("unexpected value type %T", nv)
		}
		seen[b.String()] = int64(iv)
		k = nk
	}
	if len(seen) != len(want) {
		t.Fatalf("Next visited %d entries, want %d; diff: %v", len(seen), len(want), pretty.Diff(seen, want))
	}
	for k, v := range want {
		if seen[k] != v {
			t.Fatalf("entry %q = %d, want %d", k, seen[k], v)
		}
	}
}
