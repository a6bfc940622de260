package ibl

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/jobs"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

func TestNewEquirectAspect(t *testing.T) {
	if _, err := NewEquirect(texture.NewImage(4, 4)); !errors.Is(err, ErrBadAspect) {
		t.Fatalf("NewEquirect failed:\n%v", err)
	}
	if _, err := NewEquirect(texture.NewImage(8, 4)); err != nil {
		t.Fatalf("NewEquirect failed:\n%v", err)
	}
	if _, err := NewPrefilter().Generate(Equirect{}); !errors.Is(err, ErrBadAspect) {
		t.Fatalf("Generate failed:\n%v", err)
	}
}

func TestDecodeEquirect(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png.Encode failed:\n%v", err)
	}
	e, err := DecodeEquirect(&buf)
	if err != nil {
		t.Fatalf("DecodeEquirect failed:\n%v", err)
	}
	if c := e.Sample(mgl32.Vec3{0, 1, 0}); !c.ApproxEqualThreshold(mgl32.Vec3{1, 1, 1}, 1e-4) {
		t.Fatalf("Sample failed:\n%v", c)
	}
}

func TestCubeFaceRoundTrip(t *testing.T) {
	for face := 0; face < 6; face++ {
		for _, st := range [][2]float32{{0, 0}, {0.5, -0.25}, {-0.9, 0.9}} {
			d := faceDirection(face, st[0], st[1])
			f, s, tt := directionToFace(d)
			if f != face || !mgl32.FloatEqualThreshold(s, st[0], 1e-5) || !mgl32.FloatEqualThreshold(tt, st[1], 1e-5) {
				t.Fatalf("directionToFace failed:\nface %d %v -> face %d (%v, %v)", face, st, f, s, tt)
			}
		}
	}
}

func TestTexelSolidAngleCoversSphere(t *testing.T) {
	const size = 8
	var total float32
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			total += texelSolidAngle(x, y, size)
		}
	}
	total *= 6
	if !mgl32.FloatEqualThreshold(total, 4*3.14159265, 1e-3) {
		t.Fatalf("texelSolidAngle failed:\nsum %v", total)
	}
}

func TestPrefilterUniformEnvironment(t *testing.T) {
	radiance := mgl32.Vec3{0.1, 0.125, 0.25}
	gen := NewPrefilter(WithSize(8), WithSamples(16), WithJobs(jobs.NewJobSystem(2)))

	env, err := gen.Generate(Uniform(radiance, 16))
	if err != nil {
		t.Fatalf("Generate failed:\n%v", err)
	}
	if len(env.Reflections) != 4 || env.Reflections.Size() != 8 {
		t.Fatalf("Generate failed:\n%d levels of size %d", len(env.Reflections), env.Reflections.Size())
	}
	for level, faces := range env.Reflections {
		for face, img := range faces {
			if c := img.At(0, 0).Vec3(); !c.ApproxEqualThreshold(radiance, 1e-4) {
				t.Fatalf("Generate failed:\nlevel %d face %d = %v", level, face, c)
			}
		}
	}

	// the constant band alone reproduces the radiance, the others vanish
	if got := env.Irradiance[0].Mul(0.282095); !got.ApproxEqualThreshold(radiance, 1e-3) {
		t.Fatalf("Generate failed:\nirradiance %v", got)
	}
	for i := 1; i < 9; i++ {
		if env.Irradiance[i].Len() > 1e-3 {
			t.Fatalf("Generate failed:\nband %d = %v", i, env.Irradiance[i])
		}
	}

	tex, err := texture.NewTexture(resource.Handle{Kind: resource.KindTexture, ID: 1}, env.Descriptor("env"))
	if err != nil {
		t.Fatalf("NewTexture failed:\n%v", err)
	}
	if err := env.Upload(tex); err != nil || !tex.Valid() {
		t.Fatalf("Upload failed:\n%v", err)
	}
}

func TestIrradianceFavorsBrightHemisphere(t *testing.T) {
	img := texture.NewImage(16, 8)
	for y := 0; y < 4; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, mgl32.Vec4{1, 1, 1, 1})
		}
	}
	src, err := NewEquirect(img)
	if err != nil {
		t.Fatalf("NewEquirect failed:\n%v", err)
	}
	env, err := NewPrefilter(WithSize(8), WithLevels(1)).Generate(src)
	if err != nil {
		t.Fatalf("Generate failed:\n%v", err)
	}
	eval := func(n mgl32.Vec3) float32 {
		b := shBasis(n)
		var sum float32
		for i := range b {
			sum += env.Irradiance[i].X() * b[i]
		}
		return sum
	}
	if up, down := eval(mgl32.Vec3{0, 1, 0}), eval(mgl32.Vec3{0, -1, 0}); up <= down {
		t.Fatalf("projectIrradiance failed:\nup %v down %v", up, down)
	}
}
