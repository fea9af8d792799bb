package value

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Table is a hybrid array+hash map from non-nil, non-NaN Value keys to
// Values, with an optional metatable slot (spec.md 3).
//
// The teacher's runtime backs every object with a plain Go
// map[string]Value (sentra/internal/vm.EnhancedVM has no Table type at
// all — its "objects" are just maps keyed by identifier). Lua tables need
// an integer-keyed array part for #t / ipairs performance and a border
// algorithm the teacher has no equivalent of, so this type is grounded
// directly on spec.md 3/4.2 rather than on teacher code.
type Table struct {
	mu        sync.Mutex
	array     []Value         // array[i] holds key i+1; nil entries are holes
	hash      map[Value]Value // everything else (non-sequential ints, strings, tables, ...)
	metatable *Table
	weakKeys  bool
	weakVals  bool
}

func (*Table) valueTag() {}

// NewTable allocates an empty table, optionally pre-sizing the array and
// hash parts the way Lua's `table.new`/table constructors do.
func NewTable(arraySize, hashSize int) *Table {
	t := &Table{}
	if arraySize > 0 {
		t.array = make([]Value, 0, arraySize)
	}
	if hashSize > 0 {
		t.hash = make(map[Value]Value, hashSize)
	}
	return t
}

// Metatable returns the table's metatable, or nil.
func (t *Table) Metatable() *Table {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metatable
}

// SetMetatable installs mt as t's metatable. Callers are responsible for
// honoring a `__metatable` protection field before calling this (that's
// a setmetatable-builtin concern, not a raw-table concern).
func (t *Table) SetMetatable(mt *Table) {
	t.mu.Lock()
	t.metatable = mt
	t.mu.Unlock()
}

// SetWeakMode records the `__mode` flags; the finalizer package consults
// these when deciding whether an entry keeps its referent alive.
func (t *Table) SetWeakMode(keys, vals bool) {
	t.mu.Lock()
	t.weakKeys, t.weakVals = keys, vals
	t.mu.Unlock()
}

func (t *Table) WeakMode() (keys, vals bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.weakKeys, t.weakVals
}

// normalizeKey canonicalizes a Value so it can be used as a Go map key:
// Float keys that hold an exact integer are rewritten to Int (so `t[1]`
// and `t[1.0]` address the same slot, per spec.md 3), and Bytes keys are
// dereferenced to their content so equal byte strings compare equal.
func normalizeKey(k Value) (Value, bool) {
	switch x := k.(type) {
	case Nil, nil:
		return nil, false
	case Float:
		f := float64(x)
		if f != f { // NaN
			return nil, false
		}
		if i := int64(f); float64(i) == f {
			return Int(i), true
		}
		return x, true
	case *Bytes:
		return bytesKey(x), true
	default:
		return k, true
	}
}

// arrayIndex returns (index into t.array, true) if k is a positive
// integer key that addresses the array part (1-based Lua index -> 0-based
// Go index).
func arrayIndex(k Value) (int, bool) {
	i, ok := k.(Int)
	if !ok || i < 1 {
		return 0, false
	}
	return int(i) - 1, true
}

// RawGet looks up k without consulting any metatable. Returns Nil{} if
// absent, not stored, or k is an invalid key.
func (t *Table) RawGet(k Value) Value {
	key, ok := normalizeKey(k)
	if !ok {
		return Nil{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := arrayIndex(key); ok && idx < len(t.array) {
		if v := t.array[idx]; v != nil {
			return v
		}
		return Nil{}
	}
	if t.hash == nil {
		return Nil{}
	}
	if v, ok := t.hash[key]; ok {
		return v
	}
	return Nil{}
}

// RawSet stores v at k, bypassing metamethods. Storing Nil deletes the
// key (nil value == absent key, spec.md 3). Returns ErrInvalidKey, and
// stores nothing, if k is nil or NaN.
func (t *Table) RawSet(k, v Value) error {
	key, ok := normalizeKey(k)
	if !ok {
		return ErrInvalidKey
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	isNil := IsNil(v)
	if idx, ok := arrayIndex(key); ok {
		if idx < len(t.array) {
			if isNil {
				t.array[idx] = nil
			} else {
				t.array[idx] = v
			}
			return nil
		}
		if idx == len(t.array) && !isNil {
			t.array = append(t.array, v)
			t.migrateFromHashLocked()
			return nil
		}
	}
	if isNil {
		if t.hash != nil {
			delete(t.hash, key)
		}
		return nil
	}
	if t.hash == nil {
		t.hash = make(map[Value]Value)
	}
	t.hash[key] = v
	return nil
}

// migrateFromHashLocked pulls any now-contiguous integer keys out of the
// hash part and into the array part after an append grew the array's
// border. Caller holds t.mu.
func (t *Table) migrateFromHashLocked() {
	if t.hash == nil {
		return
	}
	for {
		next := Int(len(t.array) + 1)
		v, ok := t.hash[next]
		if !ok {
			return
		}
		t.array = append(t.array, v)
		delete(t.hash, next)
	}
}

var ErrInvalidKey = rawKeyError{}

type rawKeyError struct{}

func (rawKeyError) Error() string { return "table index is nil or NaN" }

// Len implements the raw `#t` border algorithm (spec.md 3/4.2): any
// border n such that t[n] != nil and t[n+1] == nil, picked
// deterministically via a binary search once a hole is known to exist.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.array)
	for n > 0 && t.array[n-1] == nil {
		n--
	}
	if n == len(t.array) {
		// Array part is dense; the border may continue into the hash
		// part if the constructor/rawset path put large indices there.
		if t.hash != nil {
			j := Int(n + 1)
			if _, ok := t.hash[j]; ok {
				return t.hashBorderLocked(n)
			}
		}
		return n
	}
	// Hole inside the array part: binary-search for a border within [0,n].
	lo, hi := 0, n
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if t.array[mid-1] == nil {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo
}

// hashBorderLocked extends the border search into the hash part by
// doubling, then binary search, matching the strategy C Lua's
// luaH_getn uses. Caller holds t.mu.
func (t *Table) hashBorderLocked(base int) int {
	i, j := base, base+1
	for {
		if _, ok := t.hash[Int(j+1)]; !ok {
			break
		}
		i = j
		if j > (1<<31)/2 {
			// Degenerate: linear scan rather than overflow.
			k := i + 1
			for {
				if _, ok := t.hash[Int(k+1)]; !ok {
					return k
				}
				k++
			}
		}
		j *= 2
	}
	for j-i > 1 {
		mid := (i + j) / 2
		if _, ok := t.hash[Int(mid+1)]; ok {
			i = mid
		} else {
			j = mid
		}
	}
	return i
}

// Next implements the raw `next(t, k)` iteration step: Nil key returns
// the first pair, any other key returns the pair that follows it in the
// table's (unordered but stable, per spec.md 4.2) iteration order.
// Returns ok=false when iteration is exhausted.
func (t *Table) Next(k Value) (key, val Value, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hashKeys := t.sortedHashKeysLocked()

	start := 0
	fromHash := false
	if !IsNil(k) {
		nk, normOK := normalizeKey(k)
		if !normOK {
			return nil, nil, false
		}
		if idx, isArr := arrayIndex(nk); isArr && idx < len(t.array) {
			start = idx + 1
		} else {
			fromHash = true
			pos := slices.Index(hashKeys, nk)
			if pos < 0 {
				return nil, nil, false
			}
			start = pos + 1
		}
	}

	if !fromHash {
		for i := start; i < len(t.array); i++ {
			if t.array[i] != nil {
				return Int(i + 1), t.array[i], true
			}
		}
		start = 0
	}
	if start < len(hashKeys) {
		hk := hashKeys[start]
		return denormalizeKey(hk), t.hash[hk], true
	}
	return nil, nil, false
}

// sortedHashKeysLocked returns a deterministic snapshot of the hash
// part's keys. Lua does not guarantee iteration order, but spec.md 4.2
// requires it be *stable* across an un-mutated table; a fresh sorted
// snapshot on every Next call trivially satisfies that at the cost of
// O(n log n) per step, which is acceptable for a tree-walking
// interpreter's reference implementation.
func (t *Table) sortedHashKeysLocked() []Value {
	if len(t.hash) == 0 {
		return nil
	}
	keys := maps.Keys(t.hash)
	slices.SortFunc(keys, func(a, b Value) int {
		return compareKeyOrder(a, b)
	})
	return keys
}

func denormalizeKey(k Value) Value {
	if bk, ok := k.(bytesKeyT); ok {
		return NewString(string(bk))
	}
	return k
}

// compareKeyOrder is an arbitrary but total and deterministic ordering
// over hashable key values, used only to make Next's iteration order
// stable, never exposed as Lua-observable comparison semantics.
func compareKeyOrder(a, b Value) int {
	ra, rb := keyRank(a), keyRank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case Int:
		bv := b.(Int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case Float:
		bv := b.(Float)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case bytesKeyT:
		bv := b.(bytesKeyT)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case Bool:
		if av == b.(Bool) {
			return 0
		} else if av {
			return 1
		}
		return -1
	default:
		pa, pb := fmt.Sprintf("%p", a), fmt.Sprintf("%p", b)
		if pa == pb {
			return 0
		} else if pa < pb {
			return -1
		}
		return 1
	}
}

func keyRank(v Value) int {
	switch v.(type) {
	case Int:
		return 0
	case Float:
		return 1
	case bytesKeyT:
		return 2
	case Bool:
		return 3
	default:
		return 4
	}
}
