package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/arche/ecs"
)

func newTestCamera(options ...CameraBuilderOption) Camera {
	return NewCamera(resource.Handle{Kind: resource.KindCamera, ID: 1}, ecs.Entity{}, options...)
}

func TestCameraExposureDefaults(t *testing.T) {
	c := newTestCamera()
	// f/16, 1/125s, ISO 100 -> EV100 = log2(32000)
	want := float32(1.0 / (1.2 * 32000.0))
	if e := c.Exposure(); !mgl32.FloatEqualThreshold(e, want, 1e-9) {
		t.Fatalf("Exposure failed:\nhave %v\nwant %v", e, want)
	}
	c.SetExposure(0, 1, 1)
	if e := c.Exposure(); e != 1 {
		t.Fatalf("Exposure failed:\ninvalid settings should disable exposure, have %v", e)
	}
}

func TestCameraInverseViewProjection(t *testing.T) {
	c := newTestCamera(WithProjection(mgl32.DegToRad(60), 1.5, 0.1, 100))
	c.LookAt(mgl32.Vec3{3, 4, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})

	id := c.ViewProjectionMatrix().Mul4(c.InverseViewProjectionMatrix())
	if !id.ApproxEqualThreshold(mgl32.Ident4(), 1e-3) {
		t.Fatalf("InverseViewProjectionMatrix failed:\n%v", id)
	}
	if p := c.Position(); p != (mgl32.Vec3{3, 4, 10}) {
		t.Fatalf("Position failed:\n%v", p)
	}
}

func TestCameraSetAspect(t *testing.T) {
	c := newTestCamera()
	c.SetAspect(2)
	p := c.ProjectionMatrix()
	if !mgl32.FloatEqualThreshold(p[5]/p[0], 2, 1e-5) {
		t.Fatalf("SetAspect failed:\n%v", p)
	}
}

func TestCameraUniformMarshal(t *testing.T) {
	c := newTestCamera()
	u := c.Uniform()
	buf := u.Marshal()
	if len(buf) != GPUCameraUniformSize {
		t.Fatalf("Marshal failed:\nlength %d", len(buf))
	}
	z := math.Float32frombits(binary.LittleEndian.Uint32(buf[136:]))
	if z != 5 {
		t.Fatalf("Marshal failed:\nposition.z = %v", z)
	}
	e := math.Float32frombits(binary.LittleEndian.Uint32(buf[140:]))
	if e != c.Exposure() {
		t.Fatalf("Marshal failed:\nexposure = %v", e)
	}
}
