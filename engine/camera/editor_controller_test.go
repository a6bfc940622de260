package camera

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/input"
	"github.com/go-gl/mathgl/mgl32"
)

func TestEditorControllerInitialPose(t *testing.T) {
	c := newTestCamera()
	NewEditorController(c, input.NewInputController(), WithRadius(20))
	if p := c.Position(); !p.ApproxEqual(mgl32.Vec3{0, 0, 20}) {
		t.Fatalf("NewEditorController failed:\ncamera at %v", p)
	}
	if tg := c.Target(); tg != (mgl32.Vec3{}) {
		t.Fatalf("NewEditorController failed:\ntarget %v", tg)
	}
}

func TestEditorControllerIdleFrameKeepsCamera(t *testing.T) {
	c := newTestCamera()
	ec := NewEditorController(c, input.NewInputController())
	before := c.ViewMatrix()
	ec.Animate(0)
	ec.Animate(16 * time.Millisecond)
	if after := c.ViewMatrix(); after != before {
		t.Fatalf("Animate failed:\nview changed without input\n%v\n%v", before, after)
	}
}

func TestEditorControllerKeyOrbitScalesWithTime(t *testing.T) {
	ic := input.NewInputController()
	c := newTestCamera()
	ec := NewEditorController(c, ic, WithOrbitSpeed(1))
	ic.KeyDown(common.KeyRight)

	last := ec.Azimuth()
	for i := 1; i <= 5; i++ {
		ec.Animate(time.Duration(i) * 10 * time.Millisecond)
		az := ec.Azimuth()
		if az <= last {
			t.Fatalf("Animate failed:\nazimuth did not increase at step %d: %v -> %v", i, last, az)
		}
		last = az
	}
	// 10+20+30+40+50 ms at 1 rad/s
	if !mgl32.FloatEqualThreshold(last, 0.15, 1e-4) {
		t.Fatalf("Animate failed:\nazimuth %v, want 0.15", last)
	}

	ic.KeyUp(common.KeyRight)
	ec.Animate(-time.Second)
	if ec.Azimuth() != last {
		t.Fatal("Animate failed:\nnegative dt moved the camera")
	}
}

func TestEditorControllerMouseOrbitAndZoom(t *testing.T) {
	ic := input.NewInputController()
	c := newTestCamera()
	ec := NewEditorController(c, ic, WithMouseSensitivity(0.01), WithRadiusLimits(1, 100), WithRadius(10))

	ic.ButtonDown(common.MouseButtonLeft, 100, 100)
	ic.MouseMove(90, 100)
	ec.Animate(0)
	if !mgl32.FloatEqualThreshold(ec.Azimuth(), 0.1, 1e-5) {
		t.Fatalf("Animate failed:\nazimuth %v", ec.Azimuth())
	}

	ic.Scroll(1000)
	ec.Animate(0)
	if ec.Radius() != 1 {
		t.Fatalf("Animate failed:\nzoom not clamped: %v", ec.Radius())
	}
}

func TestEditorControllerPanMovesTarget(t *testing.T) {
	ic := input.NewInputController()
	c := newTestCamera()
	ec := NewEditorController(c, ic, WithPanSpeed(2))

	ic.KeyDown(common.KeyD)
	ec.Animate(time.Second)
	if tg := ec.Target(); !tg.ApproxEqualThreshold(mgl32.Vec3{2, 0, 0}, 1e-4) {
		t.Fatalf("Animate failed:\ntarget %v", tg)
	}
	if ct := c.Target(); !ct.ApproxEqualThreshold(ec.Target(), 1e-6) {
		t.Fatalf("Animate failed:\ncamera target %v", ct)
	}

	ic.KeyUp(common.KeyD)
	ec.Home()
	if tg := ec.Target(); tg != (mgl32.Vec3{}) {
		t.Fatalf("Home failed:\ntarget %v", tg)
	}
}

func TestEditorControllerPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewEditorController failed:\nexpected panic")
		}
	}()
	NewEditorController(nil, input.NewInputController())
}
