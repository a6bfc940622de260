package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

const testSource = `//@oxy:include camera
//@oxy:include light
//@oxy:include lighting
//@oxy:include vertex
//@oxy:include object
//@oxy:include material_params
//@oxy:group 0 0 storage_uniform camera camera
//@oxy:group 0 1 storage_uniform lighting lighting
//@oxy:group 1 0 storage_uniform material material_params
//@oxy:provider 2 0 environment environment_texture
@group(2) @binding(0) var env_texture: texture_cube<f32>;
//@oxy:provider 2 1 environment environment_sampler
@group(2) @binding(1) var env_sampler: sampler;
//@oxy:group 3 0 storage_uniform object object

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) normal: vec3<f32>,
};

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = camera.view_proj * object.model * vec4<f32>(in.position, 1.0);
    out.normal = in.tangents.xyz;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(material.baseColor, 1.0);
}
`

func newTestPreProcessor() PreProcessor {
	pp := NewPreProcessor()
	pp.Register(AnnotationArgMaterialParams, "struct MaterialParams {\n    baseColor: vec3<f32>,\n    metallic: f32,\n};\n", "MaterialParams")
	return pp
}

func TestNewShader(t *testing.T) {
	s, err := NewShader("test", testSource, newTestPreProcessor())
	if err != nil {
		t.Fatalf("NewShader failed:\n%v", err)
	}
	if s.VertexEntryPoint() != "vs_main" || s.FragmentEntryPoint() != "fs_main" {
		t.Fatalf("entry points failed:\nhave %q, %q", s.VertexEntryPoint(), s.FragmentEntryPoint())
	}
	if !strings.Contains(s.Source(), "@group(0) @binding(1) var<uniform> lighting: Lighting;") {
		t.Fatalf("Process failed:\n%s", s.Source())
	}

	inputs := s.VertexInputs()
	if len(inputs) != 2 || inputs[0].Format != wgpu.VertexFormatFloat32x3 || inputs[1].Location != 1 {
		t.Fatalf("VertexInputs failed:\nhave %+v", inputs)
	}

	layouts := s.BindGroupLayoutDescriptors()
	if len(layouts) != 4 {
		t.Fatalf("BindGroupLayoutDescriptors failed:\nhave %d groups", len(layouts))
	}
	frame := layouts[0].Entries
	if frame[0].Buffer.MinBindingSize != 144 || frame[1].Buffer.MinBindingSize != 464 {
		t.Fatalf("MinBindingSize failed:\nhave %d, %d", frame[0].Buffer.MinBindingSize, frame[1].Buffer.MinBindingSize)
	}
	if got := layouts[3].Entries[0].Buffer.MinBindingSize; got != 112 {
		t.Fatalf("MinBindingSize failed:\nobject uniform %d", got)
	}
	env := layouts[2].Entries
	if env[0].Texture.ViewDimension != wgpu.TextureViewDimensionCube || env[1].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Fatalf("environment layout failed:\nhave %+v", env)
	}

	if g, b, ok := s.Binding(AnnotationArgEnvironmentSampler); !ok || g != 2 || b != 1 {
		t.Fatalf("Binding failed:\nhave %d/%d %v", g, b, ok)
	}
	if s.BindGroupVarName(1, 0) != "material" {
		t.Fatalf("BindGroupVarName failed:\nhave %q", s.BindGroupVarName(1, 0))
	}
}

func TestPreProcessorIncludesOnce(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:include camera\n//@oxy:include camera\n")
	if err != nil {
		t.Fatalf("Process failed:\n%v", err)
	}
	if n := strings.Count(out, "struct CameraUniform"); n != 1 {
		t.Fatalf("Process failed:\nCameraUniform included %d times", n)
	}
}

func TestPreProcessorErrors(t *testing.T) {
	cases := []string{
		"//@oxy:include nothing",
		"//@oxy:group 0 0 storage_uniform camera",
		"//@oxy:group x 0 storage_uniform camera camera",
		"//@oxy:provider 2 0 shadow",
		"//@oxy:bogus",
		// registered only per material
		"//@oxy:include material_params",
	}
	for _, src := range cases {
		if _, err := NewPreProcessor().Process(src); err == nil {
			t.Fatalf("Process failed:\n%q: expected an error", src)
		}
	}
}

func TestNewShaderMissingEntryPoint(t *testing.T) {
	if _, err := NewShader("vs_only", "@vertex fn main() -> @builtin(position) vec4<f32> { return vec4<f32>(); }", nil); err == nil {
		t.Fatalf("NewShader failed:\nmissing fragment entry accepted")
	}
}

func TestResolveTypeLayout(t *testing.T) {
	cases := map[string]wgslTypeLayout{
		"array<vec4<f32>, 9>": {144, 16},
		"mat3x3<f32>":         {48, 16},
		"array<f32>":          {4, 4},
	}
	for typ, want := range cases {
		got, ok := resolveTypeLayout(typ, nil)
		if !ok || got != want {
			t.Fatalf("resolveTypeLayout failed:\n%s: have %+v, want %+v", typ, got, want)
		}
	}
}
