package value

import "sync"

// Bytes is an immutable byte string (spec.md 3). Short strings (<=
// shortStringLimit bytes) are interned so identity-hash is stable and
// `==` on short strings is pointer-equality fast; long strings are not
// interned and compare by content.
type Bytes struct {
	b []byte
}

func (*Bytes) valueTag() {}

const shortStringLimit = 40

var internCache = struct {
	sync.Mutex
	m map[string]*Bytes
}{m: make(map[string]*Bytes, 1024)}

// NewBytes wraps b (which must not be mutated afterward by the caller)
// as a Bytes value, interning it if short.
func NewBytes(b []byte) *Bytes {
	return NewString(string(b))
}

// NewString is the common entry point: interns short strings out of a
// process-global cache (spec.md 3's "short-string interning cache"),
// returns a fresh Bytes for long ones.
func NewString(s string) *Bytes {
	if len(s) > shortStringLimit {
		return &Bytes{b: []byte(s)}
	}
	internCache.Lock()
	defer internCache.Unlock()
	if b, ok := internCache.m[s]; ok {
		return b
	}
	b := &Bytes{b: []byte(s)}
	internCache.m[s] = b
	return b
}

// Bytes returns the raw byte slice. Callers must treat it as read-only.
func (s *Bytes) Bytes() []byte { return s.b }

// String returns the Go string view (UTF-8 or arbitrary bytes — this is
// a byte-exact conversion, never a re-encoding, per spec.md 3).
func (s *Bytes) String() string { return string(s.b) }

func (s *Bytes) Len() int { return len(s.b) }

// bytesKeyT is the Table-internal key representation for *Bytes. Go maps
// key by value equality, and two distinct *Bytes with equal content but
// different identity are possible for the non-interned (>40-byte) case;
// normalizing through this plain-string-backed type gives content
// equality for table keys, matching spec.md 3's "__eq and hash are by
// byte content".
type bytesKeyT string

func (bytesKeyT) valueTag() {}

func bytesKey(b *Bytes) bytesKeyT { return bytesKeyT(b.String()) }

func compareBytes(a, b *Bytes) int {
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
