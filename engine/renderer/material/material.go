package material

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/jobs"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// RGBType tells SetDefaultRGB and SetRGB how a color is encoded.
type RGBType uint8

const (
	RGBLinear RGBType = iota
	RGBSRGB
)

type material struct {
	mu       *sync.Mutex
	handle   resource.Handle
	program  Program
	layout   ParamsLayout
	shaders  map[Variant]shader.Shader
	defaults map[string][]float32
	js       jobs.JobSystem
	err      error
}

// Material is a compiled material ready to draw with. It owns per-parameter default values
// that new instances start from.
type Material interface {
	resource.Resource

	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	Shading() Shading
	DoubleSided() bool

	// Required returns the vertex attributes a renderable must provide.
	Required() []mesh.Attribute

	// Layout returns the uniform layout of the material's parameters.
	Layout() ParamsLayout

	// Variants returns the compiled variants.
	Variants() []Variant

	// Shader returns the reflected shader of a variant, or of the base variant when the
	// requested one was not compiled.
	//
	// Parameters:
	//   - v: the wanted variant
	//
	// Returns:
	//   - shader.Shader: the variant's shader
	Shader(v Variant) shader.Shader

	// SetDefaultParameter sets the value new instances start with.
	//
	// Parameters:
	//   - name: the parameter name
	//   - values: exactly as many floats as the parameter has components
	//
	// Returns:
	//   - error: if the parameter does not exist or the value count is wrong
	SetDefaultParameter(name string, values ...float32) error

	// SetDefaultRGB sets the default of a float3 or float4 color parameter, converting sRGB input to linear.
	// A float4 parameter gets alpha 1.
	SetDefaultRGB(name string, t RGBType, c mgl32.Vec3) error

	// DefaultParameter returns a copy of a parameter's default value.
	DefaultParameter(name string) ([]float32, bool)

	// CreateInstance creates an instance holding a copy of the current defaults.
	//
	// Parameters:
	//   - handle: the registry handle issued for the instance
	//
	// Returns:
	//   - MaterialInstance: the new instance
	CreateInstance(handle resource.Handle) MaterialInstance
}

var _ Material = &material{}

// NewMaterial decodes a package and reflects every variant.
//
// Parameters:
//   - handle: the registry handle issued for the material
//   - pkg: bytes produced by Compile
//   - options: functional options applied after decoding
//
// Returns:
//   - Material: the material
//   - error: wrapping ErrBadPackage for undecodable bytes, or a shader or option error
func NewMaterial(handle resource.Handle, pkg Package, options ...MaterialBuilderOption) (Material, error) {
	prog, err := Parse(pkg)
	if err != nil {
		return nil, err
	}
	m := &material{
		mu:       &sync.Mutex{},
		handle:   handle,
		program:  prog,
		layout:   prog.Layout(),
		shaders:  make(map[Variant]shader.Shader, len(prog.Sources)),
		defaults: make(map[string][]float32, len(prog.Parameters)),
	}
	for _, p := range m.layout.Params {
		m.defaults[p.Name] = make([]float32, p.Type.Components())
	}
	for _, opt := range options {
		opt(m)
	}
	if m.err != nil {
		return nil, m.err
	}

	variants := prog.Variants()
	shaders := make([]shader.Shader, len(variants))
	reflect := func(i int) (err error) {
		key := fmt.Sprintf("%s/%s", prog.Name, variants[i])
		shaders[i], err = shader.NewShader(key, prog.Sources[variants[i]], newPreProcessor(m.layout))
		return err
	}
	if m.js != nil {
		err = m.js.Parallel(len(variants), reflect)
	} else {
		for i := range variants {
			if err = reflect(i); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", prog.Name, err)
	}
	for i, v := range variants {
		m.shaders[v] = shaders[i]
	}
	return m, nil
}

func (m *material) Handle() resource.Handle { return m.handle }
func (m *material) Name() string            { return m.program.Name }
func (m *material) Shading() Shading        { return m.program.Shading }
func (m *material) DoubleSided() bool       { return m.program.DoubleSided }
func (m *material) Required() []mesh.Attribute {
	return append([]mesh.Attribute(nil), m.program.Required...)
}
func (m *material) Layout() ParamsLayout { return m.layout }
func (m *material) Variants() []Variant  { return m.program.Variants() }

func (m *material) Shader(v Variant) shader.Shader {
	if s, ok := m.shaders[v]; ok {
		return s
	}
	return m.shaders[0]
}

func (m *material) SetDefaultParameter(name string, values ...float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return setValue(m.layout, m.defaults, m.program.Name, name, values)
}

func (m *material) SetDefaultRGB(name string, t RGBType, c mgl32.Vec3) error {
	return m.SetDefaultParameter(name, rgbValues(m.layout, name, t, c)...)
}

func (m *material) DefaultParameter(name string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.defaults[name]
	return append([]float32(nil), v...), ok
}

func (m *material) CreateInstance(handle resource.Handle) MaterialInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	values := make(map[string][]float32, len(m.defaults))
	for k, v := range m.defaults {
		values[k] = append([]float32(nil), v...)
	}
	return &materialInstance{mu: &sync.Mutex{}, handle: handle, material: m, values: values, version: 1}
}

func setValue(layout ParamsLayout, dst map[string][]float32, material, name string, values []float32) error {
	p, ok := layout.Find(name)
	if !ok {
		return fmt.Errorf("material %s: unknown parameter %q", material, name)
	}
	if len(values) != p.Type.Components() {
		return fmt.Errorf("material %s: parameter %q takes %d values, got %d", material, name, p.Type.Components(), len(values))
	}
	dst[name] = append([]float32(nil), values...)
	return nil
}

func rgbValues(layout ParamsLayout, name string, t RGBType, c mgl32.Vec3) []float32 {
	if t == RGBSRGB {
		c = common.SRGBToLinearColor(c)
	}
	if p, ok := layout.Find(name); ok && p.Type == ParamFloat4 {
		return []float32{c[0], c[1], c[2], 1}
	}
	return c[:]
}
