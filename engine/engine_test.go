package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/jobs"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/light"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/window"
)

type app struct {
	buildErr error
	panicAt  int
	onFrame  func(frame int)

	built   bool
	frames  int
	resizes [][2]int
	dts     []time.Duration
}

func (a *app) Build() error {
	a.built = true
	return a.buildErr
}

func (a *app) Animate(dt time.Duration) {
	a.frames++
	a.dts = append(a.dts, dt)
	if a.onFrame != nil {
		a.onFrame(a.frames)
	}
	if a.frames == a.panicAt {
		panic("boom")
	}
}

func (a *app) Resize(width, height int) {
	a.resizes = append(a.resizes, [2]int{width, height})
}

func TestLightComponents(t *testing.T) {
	e := NewEngine(WithJobs(jobs.NewJobSystem(1)))
	ent := e.CreateEntity()
	l, err := e.CreateLight(ent, light.LightTypeSun)
	if err != nil {
		t.Fatalf("CreateLight failed:\n%v", err)
	}
	if _, err := e.CreateLight(ent, light.LightTypeDirectional); err == nil {
		t.Fatalf("CreateLight failed:\nsecond light on one entity was accepted")
	}
	if got, ok := e.Light(ent); !ok || got != l {
		t.Fatalf("Light failed:\ncomponent not found")
	}

	sc := e.CreateScene()
	sc.Add(ent)
	if lights := sc.Lights(); len(lights) != 1 || lights[0] != l {
		t.Fatalf("Lights failed:\nscene did not resolve the engine component")
	}

	if err := e.Destroy(l); err != nil {
		t.Fatalf("Destroy failed:\n%v", err)
	}
	if _, ok := e.Light(ent); ok {
		t.Fatalf("Destroy failed:\ncomponent still attached")
	}
	if err := e.Destroy(l); !errors.Is(err, resource.ErrStaleHandle) {
		t.Fatalf("Destroy failed:\nsecond call: have %v", err)
	}

	if err := e.DestroyEntity(ent); err != nil {
		t.Fatalf("DestroyEntity failed:\n%v", err)
	}
	if _, err := e.CreateLight(ent, light.LightTypeSun); !errors.Is(err, ErrDeadEntity) {
		t.Fatalf("CreateLight failed:\ndead entity: have %v", err)
	}
	if err := e.DestroyEntity(ent); !errors.Is(err, ErrDeadEntity) {
		t.Fatalf("DestroyEntity failed:\nsecond call: have %v", err)
	}

	if err := e.Destroy(sc); err != nil {
		t.Fatalf("Destroy failed:\n%v", err)
	}
	if n := e.Registry().Total(); n != 0 {
		t.Fatalf("Registry failed:\n%d live: %v", n, e.Registry().Leaks())
	}
}

func TestCreateIndirectLightRequiresReflections(t *testing.T) {
	e := NewEngine(WithJobs(jobs.NewJobSystem(1)))
	if _, err := e.CreateIndirectLight(nil); !errors.Is(err, light.ErrMissingReflections) {
		t.Fatalf("CreateIndirectLight failed:\nhave %v", err)
	}
	if n := e.Registry().Live(resource.KindIndirectLight); n != 0 {
		t.Fatalf("CreateIndirectLight failed:\nfailed construction left %d handles", n)
	}
}

func TestRun(t *testing.T) {
	win := window.NewHeadless(640, 480, 5)
	rec := gpu.NewRecorder()
	r, err := renderer.NewRenderer(renderer.BackendTypeRecorder, win, renderer.WithBackend(rec))
	if err != nil {
		t.Fatalf("NewRenderer failed:\n%v", err)
	}
	defer r.Close()

	e := NewEngine(WithWindow(win), WithRenderer(r), WithProfiling(true), WithJobs(jobs.NewJobSystem(1)))
	a := &app{onFrame: func(frame int) {
		if frame == 2 {
			win.EmitResize(320, 200)
		}
	}}
	if err := e.Run(a); err != nil {
		t.Fatalf("Run failed:\n%v", err)
	}
	if !a.built || a.frames != 5 || e.Frames() != 5 {
		t.Fatalf("Run failed:\nbuilt %v, %d frames", a.built, a.frames)
	}
	for _, dt := range a.dts {
		if dt < 0 {
			t.Fatalf("Run failed:\nnegative frame time %v", dt)
		}
	}
	if len(a.resizes) != 1 || a.resizes[0] != [2]int{320, 200} {
		t.Fatalf("Run failed:\nresizes %v", a.resizes)
	}
	if w, h := rec.Size(); w != 320 || h != 200 {
		t.Fatalf("Run failed:\nrenderer size %dx%d", w, h)
	}
}

func TestRunBuildFailure(t *testing.T) {
	e := NewEngine(WithWindow(window.NewHeadless(64, 64, 3)))
	a := &app{buildErr: errors.New("no scene")}
	if err := e.Run(a); err == nil || !errors.Is(err, a.buildErr) {
		t.Fatalf("Run failed:\nhave %v", err)
	}
	if a.frames != 0 {
		t.Fatalf("Run failed:\nanimated %d frames after a failed build", a.frames)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	win := window.NewHeadless(64, 64, 10)
	e := NewEngine(WithWindow(win), WithRenderFrameLimit(1000))
	a := &app{panicAt: 2}
	if err := e.Run(a); !errors.Is(err, ErrPanicked) {
		t.Fatalf("Run failed:\nhave %v, want ErrPanicked", err)
	}
	if a.frames != 2 || e.Frames() != 1 {
		t.Fatalf("Run failed:\n%d frames animated, %d completed", a.frames, e.Frames())
	}
	if win.IsRunning() {
		t.Fatalf("Run failed:\nwindow still running after a panic")
	}
}

func TestRunPanicsWithoutWindow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Run failed:\nexpected panic without a window")
		}
	}()
	NewEngine().Run(&app{})
}
