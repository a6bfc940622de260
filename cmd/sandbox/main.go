package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Carmen-Shannon/oxy-sandbox/engine"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/ibl"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/input"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/loader"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/window"
	"github.com/Carmen-Shannon/oxy-sandbox/sandbox"
)

type options struct {
	width    int
	height   int
	vsync    bool
	msaa     uint
	profile  bool
	fps      float64
	equirect string
	model    string
	headless bool
	frames   int
	sun      bool
	software bool
	clear    string
}

func parseFlags() options {
	var o options
	flag.IntVar(&o.width, "width", 1280, "window width in pixels")
	flag.IntVar(&o.height, "height", 720, "window height in pixels")
	flag.BoolVar(&o.vsync, "vsync", true, "wait for vertical blank before presenting")
	flag.UintVar(&o.msaa, "msaa", 4, "MSAA sample count (1, 4, 8 or 16)")
	flag.BoolVar(&o.profile, "profile", false, "log frame and memory statistics every second")
	flag.Float64Var(&o.fps, "fps", 0, "render frame rate cap, 0 for uncapped")
	flag.StringVar(&o.equirect, "equirect", "", "PNG or JPEG panorama used for the indirect light and the skybox")
	flag.StringVar(&o.model, "model", "", "glTF or GLB file whose first primitive replaces the triangle")
	flag.BoolVar(&o.headless, "headless", false, "render into the in-memory recorder instead of a window")
	flag.IntVar(&o.frames, "frames", 120, "frames to run when headless")
	flag.BoolVar(&o.sun, "sun", false, "add a shadow casting sun light")
	flag.BoolVar(&o.software, "software", false, "force the fallback adapter")
	flag.StringVar(&o.clear, "clear", "", "r,g,b clear color used when no panorama is loaded")
	flag.Parse()
	return o
}

func main() {
	if err := run(parseFlags()); err != nil {
		log.Fatalf("[Sandbox] %v", err)
	}
}

func run(o options) error {
	// ── Window + Renderer ───────────────────────────────────────────────
	var (
		win     window.Window
		backend = renderer.BackendTypeWGPU
		rOpts   []renderer.RendererBuilderOption
	)
	if o.headless {
		win = window.NewHeadless(o.width, o.height, o.frames)
		backend = renderer.BackendTypeRecorder
		rOpts = append(rOpts, renderer.WithBackend(gpu.NewRecorder()))
	} else {
		win = window.NewWindow(
			window.WithTitle("oxy sandbox"),
			window.WithWidth(o.width),
			window.WithHeight(o.height),
		)
		mode := renderer.PresentModeVSync
		if !o.vsync {
			mode = renderer.PresentModeUncapped
		}
		rOpts = append(rOpts,
			renderer.WithPresentMode(mode),
			renderer.WithMSAA(renderer.MSAASampleCount(o.msaa)),
			renderer.WithForceSoftwareRenderer(o.software),
		)
	}

	if o.clear != "" {
		var red, green, blue float64
		if _, err := fmt.Sscanf(o.clear, "%g,%g,%g", &red, &green, &blue); err != nil {
			return fmt.Errorf("clear color %q: %w", o.clear, err)
		}
		rOpts = append(rOpts, renderer.WithClearColor(red, green, blue))
	}

	r, err := renderer.NewRenderer(backend, win, rOpts...)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("[Sandbox] closing renderer: %v", err)
		}
	}()

	// ── Engine ──────────────────────────────────────────────────────────
	ic := input.NewInputController(input.WithSize(win.Width(), win.Height()))
	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithInputController(ic),
		engine.WithProfiling(o.profile),
		engine.WithRenderFrameLimit(o.fps),
	)

	// ── Scene ───────────────────────────────────────────────────────────
	var sOpts []sandbox.SceneBuilderOption
	if o.equirect != "" {
		eq, err := loadEquirect(o.equirect)
		if err != nil {
			return err
		}
		sOpts = append(sOpts, sandbox.WithEquirect(eq), sandbox.WithEnvironmentSkybox(true))
	}
	if o.model != "" {
		g, err := loader.LoadGeometry(o.model)
		if err != nil {
			return err
		}
		sOpts = append(sOpts, sandbox.WithGeometry(g))
	}
	if o.sun {
		sOpts = append(sOpts, sandbox.WithSun())
	}

	s, err := sandbox.New(eng, r, ic, sOpts...)
	if err != nil {
		return err
	}
	defer s.Destroy()

	fmt.Println("╔══════════════════════════════════════════════════════╗")
	fmt.Println("║  Oxy Sandbox                                         ║")
	fmt.Println("╠══════════════════════════════════════════════════════╣")
	fmt.Println("║  Orbit: left drag, arrows   Pan: right drag, WASD QE ║")
	fmt.Println("║  Zoom: scroll               Home: R    Quit: Esc     ║")
	fmt.Println("╚══════════════════════════════════════════════════════╝")

	if err := eng.Run(s); err != nil {
		return err
	}
	log.Printf("[Sandbox] %d frames, %+v", eng.Frames(), r.Stats())
	return nil
}

func loadEquirect(path string) (ibl.Equirect, error) {
	f, err := os.Open(path)
	if err != nil {
		return ibl.Equirect{}, fmt.Errorf("equirect: %w", err)
	}
	defer f.Close()
	return ibl.DecodeEquirect(f)
}
