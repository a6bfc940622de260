package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.1), float32(100)
	p := Perspective(mgl32.DegToRad(45), 16.0/9.0, near, far)

	ndc := func(z float32) float32 {
		c := p.Mul4x1(mgl32.Vec4{0, 0, -z, 1})
		return c[2] / c[3]
	}
	if d := ndc(near); !mgl32.FloatEqualThreshold(d, 0, 1e-5) {
		t.Fatalf("Perspective failed:\nnear plane depth = %v, want 0", d)
	}
	if d := ndc(far); !mgl32.FloatEqualThreshold(d, 1, 1e-5) {
		t.Fatalf("Perspective failed:\nfar plane depth = %v, want 1", d)
	}
}

func TestLookAtDegenerate(t *testing.T) {
	eye := mgl32.Vec3{0, 0, 5}
	if m := LookAt(eye, eye, mgl32.Vec3{0, 1, 0}); m != mgl32.Ident4() {
		t.Fatalf("LookAt failed:\n%v", m)
	}
	m := LookAt(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	o := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !mgl32.FloatEqualThreshold(o[2], -5, 1e-5) {
		t.Fatalf("LookAt failed:\norigin in view space = %v", o)
	}
}

func TestFrustumIntersectsBox(t *testing.T) {
	proj := Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	view := LookAt(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustum(proj.Mul4(view))

	unit := Box{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	if !f.IntersectsBox(unit) {
		t.Fatal("IntersectsBox failed:\nbox at origin should be visible")
	}
	behind := Box{Min: mgl32.Vec3{-1, -1, 20}, Max: mgl32.Vec3{1, 1, 22}}
	if f.IntersectsBox(behind) {
		t.Fatal("IntersectsBox failed:\nbox behind the camera should be culled")
	}
	moved := unit.Transform(mgl32.Translate3D(500, 0, 0))
	if f.IntersectsBox(moved) {
		t.Fatalf("IntersectsBox failed:\nbox %v should be culled", moved)
	}
}

func TestSRGBToLinear(t *testing.T) {
	if v := SRGBToLinear(1); !mgl32.FloatEqual(v, 1) {
		t.Fatalf("SRGBToLinear(1) = %v", v)
	}
	if v := SRGBToLinear(0.5); !mgl32.FloatEqualThreshold(v, 0.214, 1e-3) {
		t.Fatalf("SRGBToLinear(0.5) = %v", v)
	}
}

func TestViewportAspect(t *testing.T) {
	if a := (Viewport{Width: 200, Height: 100}).Aspect(); a != 2 {
		t.Fatalf("Aspect failed:\n%v", a)
	}
	if a := (Viewport{}).Aspect(); a != 1 {
		t.Fatalf("Aspect failed:\n%v", a)
	}
}
