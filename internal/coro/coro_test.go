package coro

import (
	"errors"
	"testing"

	"lua/internal/value"
)

func TestResumeYieldRoundTrip(t *testing.T) {
	c := New(func(yield YieldFunc, args []value.Value) ([]value.Value, error) {
		x := args[0].(value.Int)
		resumed, err := yield([]value.Value{value.Int(x + 1)})
		if err != nil {
			return nil, err
		}
		y := resumed[0].(value.Int)
		return []value.Value{value.Int(y * 2)}, nil
	})

	vals, ok, err := c.Resume([]value.Value{value.Int(10)})
	if err != nil || !ok {
		t.Fatalf("first resume: ok=%v err=%v", ok, err)
	}
	if len(vals) != 1 || vals[0].(value.Int) != 11 {
		t.Fatalf("first resume vals = %v, want [11]", vals)
	}
	if c.Status() != value.StatusSuspended {
		t.Fatalf("status after yield = %v, want suspended", c.Status())
	}

	vals, ok, err = c.Resume([]value.Value{value.Int(5)})
	if err != nil || !ok {
		t.Fatalf("second resume: ok=%v err=%v", ok, err)
	}
	if len(vals) != 1 || vals[0].(value.Int) != 10 {
		t.Fatalf("second resume vals = %v, want [10]", vals)
	}
	if c.Status() != value.StatusDead {
		t.Fatalf("status after return = %v, want dead", c.Status())
	}
}

func TestResumeDeadCoroutineErrors(t *testing.T) {
	c := New(func(yield YieldFunc, args []value.Value) ([]value.Value, error) {
		return nil, nil
	})
	if _, _, err := c.Resume(nil); err != nil {
		t.Fatalf("first resume: %v", err)
	}
	_, ok, err := c.Resume(nil)
	if ok || err == nil {
		t.Fatal("expected resuming a dead coroutine to fail")
	}
}

func TestResumePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	c := New(func(yield YieldFunc, args []value.Value) ([]value.Value, error) {
		return nil, boom
	})
	_, ok, err := c.Resume(nil)
	if ok {
		t.Fatal("expected ok=false on body error")
	}
	if err != boom {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestWrapPropagatesAsGoError(t *testing.T) {
	boom := errors.New("boom")
	co := New(func(yield YieldFunc, args []value.Value) ([]value.Value, error) {
		return nil, boom
	})
	wrapped := Wrap(co)
	if _, err := wrapped(nil); err != boom {
		t.Fatalf("wrap err = %v, want %v", err, boom)
	}
}
