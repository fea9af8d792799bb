// Package coro implements cooperative coroutines (spec.md 4.5): each
// Lua coroutine is backed by one goroutine, and resume/yield are a
// synchronous rendezvous over a pair of unbuffered channels so exactly
// one of the resumer and the coroutine body runs at a time (spec.md 1's
// "cooperative, not preemptive, single-threaded" requirement).
//
// Grounded on the teacher's worker/job channel-rendezvous idiom
// (sentra/internal/concurrency/concurrency.go: WorkerPool's per-worker
// jobs/results channels, and runWorker's blocking receive-loop shape);
// here the "job" a coroutine's goroutine blocks on is the next resume's
// argument list, and the "result" is either a yield or a final return.
package coro

import (
	"fmt"
	"sync"
	"sync/atomic"

	"lua/internal/value"
)

var nextID atomic.Int64

// NewValue builds the Value-level handle coroutine.create returns,
// wrapping a fresh Coroutine as its Impl (spec.md 3: Coroutine carries
// its own identity rather than being looked up by a host-side table).
// bodyFor receives the handle being built so the body closure can report
// it back to the interpreter as "the currently running coroutine"
// (coroutine.running) once it starts executing.
func NewValue(fn *value.Function, bodyFor func(co *value.Coroutine) Body) *value.Coroutine {
	co := &value.Coroutine{
		ID:     nextID.Add(1),
		Fn:     fn,
		Status: value.StatusSuspended,
	}
	co.Impl = New(bodyFor(co))
	return co
}

// YieldFunc is what a running coroutine body calls to suspend itself and
// hand control back to its resumer, receiving the next resume's
// arguments as its return value.
type YieldFunc func(args []value.Value) ([]value.Value, error)

// Body is the coroutine's entry point, invoked once per Coroutine on its
// first Resume. It receives a yield closure bound to this Coroutine
// instance (so internal/interp never needs a global "current coroutine"
// registry — a coroutine.yield() builtin called from inside this body's
// dynamic extent is wired to exactly this Body's yield parameter by the
// interpreter's call-frame setup).
type Body func(yield YieldFunc, args []value.Value) ([]value.Value, error)

type msgKind int

const (
	msgYield msgKind = iota
	msgReturn
	msgError
)

type message struct {
	kind msgKind
	vals []value.Value
	err  error
}

// Coroutine is one cooperative task. The zero value is not usable; build
// with New.
type Coroutine struct {
	mu       sync.Mutex
	status   value.CoroutineStatus
	resumeCh chan []value.Value
	msgCh    chan message
	started  bool
	body     Body
}

// New builds a Coroutine that will run body on its first Resume.
func New(body Body) *Coroutine {
	return &Coroutine{
		status:   value.StatusSuspended,
		resumeCh: make(chan []value.Value),
		msgCh:    make(chan message),
		body:     body,
	}
}

func (c *Coroutine) Status() value.CoroutineStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// MarkNormal/MarkRunning let internal/interp record that this coroutine
// is the one doing the resuming (status "normal", spec.md 4.5) while a
// resume of some other coroutine is in flight beneath it on the Go call
// stack, then restore it afterward.
func (c *Coroutine) MarkNormal() {
	c.mu.Lock()
	c.status = value.StatusNormal
	c.mu.Unlock()
}

func (c *Coroutine) MarkRunning() {
	c.mu.Lock()
	c.status = value.StatusRunning
	c.mu.Unlock()
}

// Resume hands args to the coroutine and blocks until it yields, returns,
// or errors. ok mirrors Lua's coroutine.resume boolean: false means err
// carries the raised error value; true means vals is either a yield's
// arguments or (once Status()==dead) the body's final return values.
func (c *Coroutine) Resume(args []value.Value) (vals []value.Value, ok bool, err error) {
	c.mu.Lock()
	switch c.status {
	case value.StatusDead:
		c.mu.Unlock()
		return nil, false, fmt.Errorf("cannot resume dead coroutine")
	case value.StatusRunning, value.StatusNormal:
		c.mu.Unlock()
		return nil, false, fmt.Errorf("cannot resume non-suspended coroutine")
	}
	c.status = value.StatusRunning
	started := c.started
	c.started = true
	c.mu.Unlock()

	if !started {
		go c.run(args)
	} else {
		c.resumeCh <- args
	}

	msg := <-c.msgCh
	switch msg.kind {
	case msgYield:
		c.mu.Lock()
		c.status = value.StatusSuspended
		c.mu.Unlock()
		return msg.vals, true, nil
	case msgReturn:
		c.mu.Lock()
		c.status = value.StatusDead
		c.mu.Unlock()
		return msg.vals, true, nil
	default: // msgError
		c.mu.Lock()
		c.status = value.StatusDead
		c.mu.Unlock()
		return nil, false, msg.err
	}
}

func (c *Coroutine) run(args []value.Value) {
	yield := func(yvals []value.Value) ([]value.Value, error) {
		c.msgCh <- message{kind: msgYield, vals: yvals}
		return <-c.resumeCh, nil
	}
	defer func() {
		if r := recover(); r != nil {
			c.msgCh <- message{kind: msgError, err: fmt.Errorf("%v", r)}
		}
	}()
	vals, err := c.body(yield, args)
	if err != nil {
		c.msgCh <- message{kind: msgError, err: err}
		return
	}
	c.msgCh <- message{kind: msgReturn, vals: vals}
}

// closeSignal is a sentinel resume value recognized by the yield loop a
// coroutine body installs (see internal/stdlib/coroutine.go): receiving
// it tells the suspended body to unwind its to-be-closed locals and
// return rather than continue, implementing coroutine.close on a
// suspended coroutine (spec.md 4.5/GLOSSARY).
type closeSignal struct{}

func (closeSignal) valueTag() {}

var closeMarker value.Value = closeSignal{}

// IsCloseSignal reports whether args is the sentinel Close sent to wake
// a suspended body for teardown, rather than an ordinary resume.
func IsCloseSignal(args []value.Value) bool {
	return len(args) == 1 && args[0] == closeMarker
}

// Close implements coroutine.close (spec.md 4.5): a dead coroutine is a
// no-op; a running/normal one errors; a suspended one is woken with the
// close sentinel so its body can run __close on any to-be-closed locals
// before the coroutine is marked dead.
func (c *Coroutine) Close() error {
	c.mu.Lock()
	status := c.status
	started := c.started
	c.mu.Unlock()

	switch status {
	case value.StatusDead:
		return nil
	case value.StatusRunning, value.StatusNormal:
		return fmt.Errorf("cannot close a %s coroutine", statusName(status))
	}
	if !started {
		c.mu.Lock()
		c.status = value.StatusDead
		c.mu.Unlock()
		return nil
	}

	c.resumeCh <- []value.Value{closeMarker}
	msg := <-c.msgCh
	c.mu.Lock()
	c.status = value.StatusDead
	c.mu.Unlock()
	if msg.kind == msgError {
		return msg.err
	}
	return nil
}

func statusName(s value.CoroutineStatus) string {
	switch s {
	case value.StatusRunning:
		return "running"
	case value.StatusNormal:
		return "normal"
	default:
		return "suspended"
	}
}

// Wrap implements coroutine.wrap: a GoFunc that resumes co each call and
// either returns its yielded/returned values or raises the coroutine's
// error as a Go error (spec.md 4.5: "wrap propagates errors via a plain
// Lua error rather than the (false, msg) pair resume uses").
func Wrap(co *Coroutine) value.GoFunc {
	return func(args []value.Value) ([]value.Value, error) {
		vals, ok, err := co.Resume(args)
		if !ok {
			return nil, err
		}
		return vals, nil
	}
}
