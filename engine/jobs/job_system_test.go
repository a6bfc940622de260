package jobs

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

func TestParallelVisitsEveryIndex(t *testing.T) {
	js := NewJobSystem(4)
	var seen [64]atomic.Int32
	err := js.Parallel(len(seen), func(i int) error {
		seen[i].Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Parallel failed:\n%v", err)
	}
	for i := range seen {
		if n := seen[i].Load(); n != 1 {
			t.Fatalf("Parallel failed:\nindex %d ran %d times", i, n)
		}
	}
}

func TestRunJoinsErrors(t *testing.T) {
	js := NewJobSystem(2)
	e1 := errors.New("first")
	e2 := errors.New("second")
	err := js.Run(
		func() error { return e1 },
		func() error { return nil },
		func() error { return e2 },
	)
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("Run failed:\n%v", err)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	js := NewJobSystem(2)
	err := js.Run(
		func() error { panic("boom") },
		func() error { return nil },
	)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Run failed:\n%v", err)
	}
}

func TestDefaultWorkers(t *testing.T) {
	if n := NewJobSystem(0).Workers(); n < 1 {
		t.Fatalf("Workers failed:\n%d", n)
	}
	if err := NewJobSystem(1).Run(); err != nil {
		t.Fatalf("Run failed:\n%v", err)
	}
}
