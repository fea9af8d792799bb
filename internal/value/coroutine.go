package value

// CoroutineStatus is the coroutine status machine (spec.md 3/4.5).
type CoroutineStatus int

const (
	StatusSuspended CoroutineStatus = iota
	StatusRunning
	StatusNormal
	StatusDead
)

func (s CoroutineStatus) String() string {
	switch s {
	case StatusSuspended:
		return "suspended"
	case StatusRunning:
		return "running"
	case StatusNormal:
		return "normal"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Coroutine is the Value-level handle for a cooperative task. The actual
// scheduling machinery (rendezvous channels, the goroutine body) lives in
// internal/coro; this struct is the Value arm plus the bits every caller
// needs without importing internal/coro (status is read constantly from
// stdlib's coroutine.status).
//
// Grounded on the teacher's channel-handle idiom
// (sentra/internal/vm/vm.go: `channels map[int]*Channel` plus
// `channelID atomic.Int32` for identity) — here a Coroutine carries its
// own identity instead of being looked up by an integer handle, since
// coroutine.create must return a first-class Value.
type Coroutine struct {
	ID int64
	Fn *Function

	// Status holds the value Impl had at creation time (StatusSuspended);
	// the live status lives on Impl itself and must be read through it
	// (stdlib's coroutine.status type-asserts Impl to *coro.Coroutine and
	// calls its Status() method) since Impl's internal mutex is the only
	// thing safe for concurrent reads while the coroutine's goroutine runs.
	Status CoroutineStatus

	// Impl is the *coro.Coroutine runtime state; `any` to avoid
	// internal/value depending on internal/coro.
	Impl any
}

func (*Coroutine) valueTag() {}
