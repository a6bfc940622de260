package material

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/jobs"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

func compileSimple(t *testing.T) Package {
	t.Helper()
	pkg, err := Compile(Simple(), jobs.NewJobSystem(2))
	if err != nil {
		t.Fatalf("Compile failed:\n%v", err)
	}
	return pkg
}

func TestParamsLayout(t *testing.T) {
	l := NewParamsLayout(Simple().Parameters)
	want := map[string]uint32{"baseColor": 0, "metallic": 12, "roughness": 16, "reflectance": 20}
	for name, off := range want {
		p, ok := l.Find(name)
		if !ok || p.Offset != off {
			t.Fatalf("NewParamsLayout failed:\n%s at %d, want %d", name, p.Offset, off)
		}
	}
	if l.Size != 32 {
		t.Fatalf("NewParamsLayout failed:\nsize %d", l.Size)
	}
	if empty := NewParamsLayout(nil); empty.Size != 16 || !strings.Contains(empty.Source(), "_unused") {
		t.Fatalf("NewParamsLayout failed:\nempty layout %+v", empty)
	}
}

func TestCompileParseRoundTrip(t *testing.T) {
	pkg := compileSimple(t)
	prog, err := Parse(pkg)
	if err != nil {
		t.Fatalf("Parse failed:\n%v", err)
	}
	if prog.Name != "simple" || prog.Shading != ShadingLit || len(prog.Parameters) != 4 {
		t.Fatalf("Parse failed:\nhave %+v", prog)
	}
	if vs := prog.Variants(); len(vs) != 2 || vs[1] != VariantDirectional {
		t.Fatalf("Variants failed:\nhave %v", vs)
	}
	if !strings.Contains(prog.Sources[VariantDirectional], "lighting.light_count") {
		t.Fatalf("Compile failed:\ndirectional variant has no light loop")
	}
	if strings.Contains(prog.Sources[0], "lighting.light_count") {
		t.Fatalf("Compile failed:\nbase variant has a light loop")
	}
}

func TestParseRejectsCorruption(t *testing.T) {
	pkg := compileSimple(t)

	flipped := append(Package(nil), pkg...)
	flipped[len(flipped)/2] ^= 0xff
	truncated := pkg[:len(pkg)/2]
	wrongMagic := append(Package("NOPE"), pkg[4:]...)

	for name, p := range map[string]Package{"flipped": flipped, "truncated": truncated, "magic": wrongMagic, "empty": nil} {
		if _, err := Parse(p); !errors.Is(err, ErrBadPackage) {
			t.Fatalf("Parse failed:\n%s: have %v", name, err)
		}
	}
}

func TestCompileInvalidDefinition(t *testing.T) {
	defs := []Definition{
		NewDefinition(WithName("")),
		NewDefinition(WithParameter("baseColor", ParamFloat3), WithParameter("baseColor", ParamFloat)),
		NewDefinition(WithParameter("bad name", ParamFloat)),
		NewDefinition(WithParameter("x", ParamType(9))),
	}
	for i, d := range defs {
		if _, err := Compile(d, nil); err == nil {
			t.Fatalf("Compile failed:\ncase %d: expected an error", i)
		}
	}
}

func TestUnlitCompilesSingleVariant(t *testing.T) {
	pkg, err := Compile(NewDefinition(WithName("flat"), WithShading(ShadingUnlit), WithParameter("baseColor", ParamFloat4)), nil)
	if err != nil {
		t.Fatalf("Compile failed:\n%v", err)
	}
	m, err := NewMaterial(resource.Handle{Kind: resource.KindMaterial, ID: 1}, pkg)
	if err != nil {
		t.Fatalf("NewMaterial failed:\n%v", err)
	}
	if len(m.Variants()) != 1 || m.Shader(VariantDirectional) != m.Shader(0) {
		t.Fatalf("Shader failed:\nmissing variant should fall back to base")
	}
	if len(m.Shader(0).VertexInputs()) != 1 {
		t.Fatalf("VertexInputs failed:\nposition-only material declares %d inputs", len(m.Shader(0).VertexInputs()))
	}
}

func TestMaterialDefaultsAndInstances(t *testing.T) {
	m, err := NewMaterial(resource.Handle{Kind: resource.KindMaterial, ID: 1}, compileSimple(t),
		WithJobs(jobs.NewJobSystem(2)),
		WithDefaultRGB("baseColor", RGBLinear, mgl32.Vec3{0, 1, 0}),
		WithDefault("roughness", 0.4),
	)
	if err != nil {
		t.Fatalf("NewMaterial failed:\n%v", err)
	}
	if err := m.SetDefaultParameter("reflectance", 0.5); err != nil {
		t.Fatalf("SetDefaultParameter failed:\n%v", err)
	}
	if err := m.SetDefaultParameter("metallic", 0, 1); err == nil {
		t.Fatalf("SetDefaultParameter failed:\nwrong value count accepted")
	}
	if err := m.SetDefaultParameter("missing", 1); err == nil {
		t.Fatalf("SetDefaultParameter failed:\nunknown parameter accepted")
	}
	if req := m.Required(); len(req) != 2 || req[1] != mesh.AttributeTangents {
		t.Fatalf("Required failed:\nhave %v", req)
	}
	if g, b, ok := m.Shader(0).Binding(shader.AnnotationArgMaterialParams); !ok || g != 1 || b != 0 {
		t.Fatalf("Binding failed:\nmaterial params at %d/%d", g, b)
	}

	mi := m.CreateInstance(resource.Handle{Kind: resource.KindMaterialInstance, ID: 1})
	u := mi.Uniform()
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(u[off:])) }
	if len(u) != 32 || f(4) != 1 || f(16) != 0.4 || f(20) != 0.5 {
		t.Fatalf("Uniform failed:\nhave %v", u)
	}

	if err := mi.SetParameter("metallic", 1); err != nil {
		t.Fatalf("SetParameter failed:\n%v", err)
	}
	if mi.Version() != 2 {
		t.Fatalf("Version failed:\nhave %d", mi.Version())
	}
	if v, _ := m.DefaultParameter("metallic"); v[0] != 0 {
		t.Fatalf("SetParameter failed:\ninstance override leaked into defaults")
	}
}

func TestWithDefaultUnknownParameter(t *testing.T) {
	if _, err := NewMaterial(resource.Handle{Kind: resource.KindMaterial, ID: 1}, compileSimple(t), WithDefault("nope", 1)); err == nil {
		t.Fatalf("NewMaterial failed:\nunknown default accepted")
	}
}

func TestSRGBConversion(t *testing.T) {
	m, _ := NewMaterial(resource.Handle{Kind: resource.KindMaterial, ID: 1}, compileSimple(t))
	mi := m.CreateInstance(resource.Handle{Kind: resource.KindMaterialInstance, ID: 1})
	if err := mi.SetRGB("baseColor", RGBSRGB, mgl32.Vec3{0.5, 0.5, 0.5}); err != nil {
		t.Fatalf("SetRGB failed:\n%v", err)
	}
	v, _ := mi.Parameter("baseColor")
	if !mgl32.FloatEqualThreshold(v[0], 0.214, 1e-3) {
		t.Fatalf("SetRGB failed:\nhave %v", v)
	}
}
