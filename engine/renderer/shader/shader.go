package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

type shader struct {
	key                        string
	source                     string
	vertexEntry                string
	fragmentEntry              string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexInputs               []VertexInput
	declarations               []Annotation
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader is a pre-processed WGSL module holding one vertex and one fragment entry point,
// with the reflection data needed to build a render pipeline and its bind groups.
type Shader interface {
	// Key returns the unique identifier used for caching.
	Key() string

	// Source returns the pre-processed WGSL source.
	Source() string

	// VertexEntryPoint returns the name of the @vertex function.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the @fragment function.
	FragmentEntryPoint() string

	// BindGroupLayoutDescriptors returns the parsed bind group layouts keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName returns the variable bound at a group and binding, or an empty string.
	BindGroupVarName(group, binding int) string

	// VertexInputs returns the vertex stage inputs sorted by location.
	VertexInputs() []VertexInput

	// Declarations returns the group and provider annotations found during pre-processing.
	Declarations() []Annotation

	// Binding returns the group and binding of the declaration carrying a role.
	//
	// Parameters:
	//   - role: a struct type key for group annotations or a binding role for provider annotations
	//
	// Returns:
	//   - int: the group index
	//   - int: the binding index
	//   - bool: false if no declaration carries the role
	Binding(role AnnotationArg) (int, int, bool)

	// Module returns the shader module descriptor built from Source.
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects a WGSL module.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - source: WGSL source containing @oxy annotations
//   - pp: the pre-processor to expand annotations with, or nil for NewPreProcessor()
//
// Returns:
//   - Shader: the reflected shader
//   - error: if pre-processing fails or an entry point is missing
func NewShader(key, source string, pp PreProcessor) (Shader, error) {
	if pp == nil {
		pp = NewPreProcessor()
	}
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}

	s := &shader{
		key:           key,
		source:        processed,
		vertexEntry:   parseEntryPoint(processed, wgpu.ShaderStageVertex),
		fragmentEntry: parseEntryPoint(processed, wgpu.ShaderStageFragment),
		vertexInputs:  parseVertexInputs(processed),
		declarations:  append([]Annotation(nil), pp.Declarations()...),
		module: &wgpu.ShaderModuleDescriptor{
			Label:          key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: processed},
		},
	}
	if s.vertexEntry == "" || s.fragmentEntry == "" {
		return nil, fmt.Errorf("shader %s: missing @vertex or @fragment entry point", key)
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(processed, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)
	return s, nil
}

func (s *shader) Key() string                { return s.key }
func (s *shader) Source() string             { return s.source }
func (s *shader) VertexEntryPoint() string   { return s.vertexEntry }
func (s *shader) FragmentEntryPoint() string { return s.fragmentEntry }
func (s *shader) VertexInputs() []VertexInput {
	return s.vertexInputs
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

func (s *shader) Binding(role AnnotationArg) (int, int, bool) {
	for _, d := range s.declarations {
		if d.Role() == role {
			return *d.Group, *d.Binding, true
		}
	}
	return -1, -1, false
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}
