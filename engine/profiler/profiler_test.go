package profiler

import (
	"testing"
	"time"
)

func TestTickInterval(t *testing.T) {
	p := NewProfiler()
	if p.Tick(3) {
		t.Fatalf("Tick failed:\nlogged before the interval elapsed")
	}

	p.SetInterval(0)
	if !p.Tick(7) {
		t.Fatalf("Tick failed:\nzero interval did not log")
	}
	s := p.Last()
	if s.Resources != 7 || s.FPS <= 0 || s.FrameTime < 0 {
		t.Fatalf("Tick failed:\nhave %+v", s)
	}

	p.SetInterval(time.Hour)
	if p.Tick(1) {
		t.Fatalf("Tick failed:\nlogged before the interval elapsed")
	}
	if p.Last().Resources != 7 {
		t.Fatalf("Last failed:\nsample changed without logging")
	}
}
