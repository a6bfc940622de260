package sandbox

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/ibl"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/input"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/jobs"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/window"
	"github.com/go-gl/mathgl/mgl32"
)

type harness struct {
	rec *gpu.Recorder
	r   renderer.Renderer
	ic  input.InputController
	eng engine.Engine

	buffers, textures, pipelines int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{rec: gpu.NewRecorder()}
	r, err := renderer.NewRenderer(renderer.BackendTypeRecorder, window.NewHeadless(640, 480, 1), renderer.WithBackend(h.rec))
	if err != nil {
		t.Fatalf("NewRenderer failed:\n%v", err)
	}
	t.Cleanup(func() { r.Close() })
	h.r = r
	h.ic = input.NewInputController(input.WithSize(640, 480))
	h.eng = engine.NewEngine(engine.WithRenderer(r), engine.WithJobs(jobs.NewJobSystem(2)))
	h.buffers = h.rec.LiveByKind(gpu.ObjectBuffer)
	h.textures = h.rec.LiveByKind(gpu.ObjectTexture)
	h.pipelines = h.rec.LiveByKind(gpu.ObjectRenderPipeline)
	return h
}

func smallGenerator() SceneBuilderOption {
	return WithGenerator(ibl.NewPrefilter(ibl.WithSize(4), ibl.WithLevels(2), ibl.WithSamples(4)))
}

func (h *harness) newScene(t *testing.T, options ...SceneBuilderOption) Scene {
	t.Helper()
	s, err := New(h.eng, h.r, h.ic, append([]SceneBuilderOption{smallGenerator()}, options...)...)
	if err != nil {
		t.Fatalf("New failed:\n%v", err)
	}
	return s
}

func TestNewBuildsEveryPart(t *testing.T) {
	h := newHarness(t)
	s := h.newScene(t)
	defer s.Destroy()

	if s.Camera() == nil || s.View() == nil || s.Graph() == nil || s.Renderable() == nil || s.EditorController() == nil ||
		s.Material() == nil || s.MaterialInstance() == nil || s.IndirectLight() == nil || s.Skybox() == nil {
		t.Fatalf("New failed:\nmissing part")
	}
	if s.Sun() != nil {
		t.Fatalf("New failed:\nsun created without WithSun")
	}
	if err := s.Build(); err != nil {
		t.Fatalf("Build failed:\n%v", err)
	}

	if vp := s.View().Viewport(); vp != (common.Viewport{Width: 640, Height: 480}) {
		t.Fatalf("New failed:\nviewport %+v", vp)
	}
	if s.View().PostProcessing() {
		t.Fatalf("New failed:\npost-processing enabled")
	}
	if !mgl32.FloatEqual(s.Camera().Aspect(), 640.0/480.0) {
		t.Fatalf("New failed:\naspect %v", s.Camera().Aspect())
	}
	if got := s.Skybox().Color(); got != (mgl32.Vec4{0.1, 0.125, 0.25, 1}) {
		t.Fatalf("New failed:\nskybox color %v", got)
	}
	if got := s.IndirectLight().Intensity(); got != 60000 {
		t.Fatalf("New failed:\nindirect intensity %v", got)
	}
	if s.Graph().IndirectLight() != s.IndirectLight() || s.Graph().Skybox() != s.Skybox() {
		t.Fatalf("New failed:\nlighting not attached to the scene")
	}
	if rds := s.Graph().Renderables(); len(rds) != 1 || rds[0] != s.Renderable() {
		t.Fatalf("New failed:\nscene renderables %v", rds)
	}
	if s.Renderable().Culling() {
		t.Fatalf("New failed:\nculling enabled")
	}
}

func TestAnimateRendersOneFrame(t *testing.T) {
	h := newHarness(t)
	s := h.newScene(t)
	defer s.Destroy()

	before := s.Camera().ViewMatrix()
	s.Animate(0)

	frames := h.rec.Frames()
	if len(frames) != 1 {
		t.Fatalf("Animate failed:\n%d frames submitted", len(frames))
	}
	if len(frames[0].Draws) != 1 {
		t.Fatalf("Animate failed:\n%d draws", len(frames[0].Draws))
	}
	if c := frames[0].Clear; !mgl32.FloatEqual(float32(c.R), 0.1) || !mgl32.FloatEqual(float32(c.B), 0.25) {
		t.Fatalf("Animate failed:\nclear color %+v", c)
	}
	if after := s.Camera().ViewMatrix(); !after.ApproxEqual(before) {
		t.Fatalf("Animate failed:\nidle frame moved the camera")
	}

	s.Animate(-time.Second)
	if n := len(h.rec.Frames()); n != 2 {
		t.Fatalf("Animate failed:\n%d frames after negative dt", n)
	}
}

func TestAnimateSkipsUnavailableFrame(t *testing.T) {
	h := newHarness(t)
	s := h.newScene(t)
	defer s.Destroy()

	h.rec.FailNextBegin(2)
	s.Animate(16 * time.Millisecond)
	s.Animate(16 * time.Millisecond)
	s.Animate(16 * time.Millisecond)
	if n := len(h.rec.Frames()); n != 1 {
		t.Fatalf("Animate failed:\n%d frames submitted, want 1", n)
	}
}

func TestHeldKeyOrbitsCamera(t *testing.T) {
	h := newHarness(t)
	s := h.newScene(t)
	defer s.Destroy()

	h.ic.KeyDown(common.KeyRight)
	last := s.EditorController().Azimuth()
	pos := s.Camera().Position()
	for i := 0; i < 5; i++ {
		s.Animate(100 * time.Millisecond)
		az := s.EditorController().Azimuth()
		if az <= last {
			t.Fatalf("Animate failed:\nframe %d azimuth %v after %v", i, az, last)
		}
		last = az
	}
	if p := s.Camera().Position(); p.ApproxEqual(pos) {
		t.Fatalf("Animate failed:\ncamera did not move")
	}
	if n := len(h.rec.Frames()); n != 5 {
		t.Fatalf("Animate failed:\n%d frames", n)
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	h := newHarness(t)
	s := h.newScene(t, WithSun(), WithEnvironmentSkybox(true))
	if s.Sun() == nil {
		t.Fatalf("New failed:\nWithSun created no light")
	}
	s.Animate(0)
	if n := h.eng.Registry().Total(); n == 0 {
		t.Fatalf("New failed:\nnothing registered")
	}

	s.Destroy()
	if n := h.eng.Registry().Total(); n != 0 {
		t.Fatalf("Destroy failed:\n%d live: %v", n, h.eng.Registry().Leaks())
	}
	if n := h.rec.LiveByKind(gpu.ObjectBuffer); n != h.buffers {
		t.Fatalf("Destroy failed:\n%d buffers, want %d", n, h.buffers)
	}
	if n := h.rec.LiveByKind(gpu.ObjectTexture); n != h.textures {
		t.Fatalf("Destroy failed:\n%d textures, want %d", n, h.textures)
	}
	if n := h.rec.LiveByKind(gpu.ObjectRenderPipeline); n != h.pipelines {
		t.Fatalf("Destroy failed:\n%d pipelines, want %d", n, h.pipelines)
	}

	s.Destroy()
	s.Animate(0)
	if n := len(h.rec.Frames()); n != 1 {
		t.Fatalf("Animate failed:\nrendered after Destroy")
	}
	if err := s.Build(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("Build failed:\nhave %v, want ErrDestroyed", err)
	}
}

func TestBuildDetectsStaleResource(t *testing.T) {
	h := newHarness(t)
	s := h.newScene(t)
	defer s.Destroy()

	if err := h.eng.Destroy(s.MaterialInstance()); err != nil {
		t.Fatalf("Destroy failed:\n%v", err)
	}
	if err := s.Build(); !errors.Is(err, resource.ErrStaleHandle) {
		t.Fatalf("Build failed:\nhave %v", err)
	}
}

func TestNewReleasesPartialScene(t *testing.T) {
	h := newHarness(t)
	_, err := New(h.eng, h.r, h.ic, smallGenerator(), WithEquirect(ibl.Equirect{}))
	if !errors.Is(err, ibl.ErrBadAspect) {
		t.Fatalf("New failed:\nhave %v, want ErrBadAspect", err)
	}
	if n := h.eng.Registry().Total(); n != 0 {
		t.Fatalf("New failed:\n%d live after a failed construction: %v", n, h.eng.Registry().Leaks())
	}
}

func TestNewWithDefaultEnvironment(t *testing.T) {
	h := newHarness(t)
	s, err := New(h.eng, h.r, h.ic)
	if err != nil {
		t.Fatalf("New failed:\n%v", err)
	}
	defer s.Destroy()
	if s.IndirectLight().Reflections() == nil {
		t.Fatalf("New failed:\nno reflections")
	}
}

func TestResize(t *testing.T) {
	h := newHarness(t)
	s := h.newScene(t)
	defer s.Destroy()

	s.Resize(300, 100)
	if vp := s.View().Viewport(); vp.Width != 300 || vp.Height != 100 {
		t.Fatalf("Resize failed:\nviewport %+v", vp)
	}
	if !mgl32.FloatEqual(s.Camera().Aspect(), 3) {
		t.Fatalf("Resize failed:\naspect %v", s.Camera().Aspect())
	}
}

func TestNewPanicsOnNil(t *testing.T) {
	h := newHarness(t)
	cases := map[string]func(){
		"engine":   func() { New(nil, h.r, h.ic) },
		"renderer": func() { New(h.eng, nil, h.ic) },
		"input":    func() { New(h.eng, h.r, nil) },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("New failed:\nnil %s accepted", name)
				}
			}()
			fn()
		})
	}
}
