package resource

import (
	"errors"
	"testing"
)

func TestScopeCloseOrder(t *testing.T) {
	var s Scope
	var order []string
	for _, name := range []string{"camera", "view", "material"} {
		s.Own(name, func() error {
			order = append(order, name)
			return nil
		})
	}
	if s.Len() != 3 {
		t.Fatalf("Len failed:\n%d", s.Len())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed:\n%v", err)
	}
	want := []string{"material", "view", "camera"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Close failed:\nhave %v\nwant %v", order, want)
		}
	}
}

func TestScopeCloseIdempotent(t *testing.T) {
	var s Scope
	calls := 0
	s.Own("x", func() error { calls++; return nil })
	_ = s.Close()
	_ = s.Close()
	if calls != 1 || !s.Closed() {
		t.Fatalf("Close failed:\ncalls = %d", calls)
	}

	s.Own("late", func() error { calls++; return nil })
	if calls != 2 {
		t.Fatal("Own failed:\nrelease on a closed scope did not run immediately")
	}
}

func TestScopeCloseJoinsErrors(t *testing.T) {
	var s Scope
	e1 := errors.New("one")
	e2 := errors.New("two")
	ran := false
	s.Own("a", func() error { return e1 })
	s.Own("b", func() error { ran = true; return nil })
	s.Own("c", func() error { return e2 })

	err := s.Close()
	if !errors.Is(err, e1) || !errors.Is(err, e2) || !ran {
		t.Fatalf("Close failed:\n%v", err)
	}
}
