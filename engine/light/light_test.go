package light

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/arche/ecs"
)

func solidCubemap(t *testing.T, c mgl32.Vec4, levels int) texture.Texture {
	t.Helper()
	tex, err := texture.NewTexture(resource.Handle{Kind: resource.KindTexture, ID: 1},
		texture.Descriptor{Label: "env", Type: texture.TypeCubemap, Width: 4, Height: 4, Levels: levels})
	if err != nil {
		t.Fatalf("NewTexture failed:\n%v", err)
	}
	for level := 0; level < levels; level++ {
		size := max(1, 4>>level)
		for face := 0; face < 6; face++ {
			if err := tex.SetImage(level, face, texture.Solid(size, size, c)); err != nil {
				t.Fatalf("SetImage failed:\n%v", err)
			}
		}
	}
	return tex
}

func TestIndirectLightRequiresReflections(t *testing.T) {
	h := resource.Handle{Kind: resource.KindIndirectLight, ID: 1}
	if _, err := NewIndirectLight(h, nil); !errors.Is(err, ErrMissingReflections) {
		t.Fatalf("NewIndirectLight failed:\n%v", err)
	}

	flat, _ := texture.NewTexture(resource.Handle{Kind: resource.KindTexture, ID: 2}, texture.Descriptor{Width: 2, Height: 2})
	_ = flat.SetImage(0, 0, texture.NewImage(2, 2))
	if _, err := NewIndirectLight(h, flat); !errors.Is(err, ErrMissingReflections) {
		t.Fatalf("NewIndirectLight failed:\n2D texture accepted: %v", err)
	}

	incomplete, _ := texture.NewTexture(resource.Handle{Kind: resource.KindTexture, ID: 3},
		texture.Descriptor{Type: texture.TypeCubemap, Width: 2, Height: 2})
	if _, err := NewIndirectLight(h, incomplete); !errors.Is(err, ErrMissingReflections) {
		t.Fatalf("NewIndirectLight failed:\nincomplete cubemap accepted: %v", err)
	}
}

func TestIndirectLightDefaultIrradiance(t *testing.T) {
	env := solidCubemap(t, mgl32.Vec4{0.2, 0.4, 0.8, 1}, 3)
	il, err := NewIndirectLight(resource.Handle{Kind: resource.KindIndirectLight, ID: 1}, env, WithIndirectIntensity(60000))
	if err != nil {
		t.Fatalf("NewIndirectLight failed:\n%v", err)
	}
	sh := il.Irradiance()
	// evaluating the constant band along any normal gives back the radiance
	if got := sh[0].Mul(shY00); !got.ApproxEqualThreshold(mgl32.Vec3{0.2, 0.4, 0.8}, 1e-5) {
		t.Fatalf("Irradiance failed:\n%v", got)
	}

	var u GPULighting
	il.Uniform(&u)
	if u.IBLIntensity != 60000 || u.IBLMaxLod != 2 {
		t.Fatalf("Uniform failed:\n%+v", u)
	}
}

func TestSkyboxRejectsFlatEnvironment(t *testing.T) {
	flat, _ := texture.NewTexture(resource.Handle{Kind: resource.KindTexture, ID: 2}, texture.Descriptor{Width: 2, Height: 2})
	if _, err := NewSkybox(resource.Handle{Kind: resource.KindSkybox, ID: 1}, WithEnvironment(flat)); err == nil {
		t.Fatal("NewSkybox failed:\n2D environment accepted")
	}
	sb, err := NewSkybox(resource.Handle{Kind: resource.KindSkybox, ID: 1}, WithSkyboxColor(mgl32.Vec4{0.1, 0.125, 0.25, 1}))
	if err != nil || sb.Environment() != nil || sb.Color() != (mgl32.Vec4{0.1, 0.125, 0.25, 1}) {
		t.Fatalf("NewSkybox failed:\n%v", err)
	}
}

func TestLightingMarshalLayout(t *testing.T) {
	sun := NewLight(resource.Handle{Kind: resource.KindLight, ID: 1}, ecs.Entity{}, LightTypeSun,
		WithIntensity(150000), WithDirection(mgl32.Vec3{0, 0, 5}), WithSunAngularRadius(1.9), WithCastsShadows(true))
	if d := sun.Direction(); d != (mgl32.Vec3{0, 0, 1}) {
		t.Fatalf("WithDirection failed:\n%v", d)
	}

	u := GPULighting{LightCount: 9, IBLRotation: mgl32.Ident3()}
	u.Lights[0] = sun.Uniform()
	buf := u.Marshal()
	if len(buf) != GPULightingSize {
		t.Fatalf("Marshal failed:\nlength %d", len(buf))
	}
	if n := binary.LittleEndian.Uint32(buf[152:]); n != MaxGPULights {
		t.Fatalf("Marshal failed:\nlight count %d not clamped", n)
	}
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	if f(160) != 1 || f(160+16+4) != 1 || f(160+32+8) != 1 {
		t.Fatal("Marshal failed:\nrotation columns misplaced")
	}
	if f(208+28) != 150000 || binary.LittleEndian.Uint32(buf[208+56:]) != 1 {
		t.Fatal("Marshal failed:\nfirst light misplaced")
	}
	if r := f(208 + 60); !mgl32.FloatEqualThreshold(r, mgl32.DegToRad(1.9), 1e-6) {
		t.Fatalf("Marshal failed:\nangular radius %v", r)
	}
}
