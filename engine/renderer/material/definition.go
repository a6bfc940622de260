// package material compiles small surface definitions into binary packages, and turns those
// packages into materials and material instances the renderer can draw with.
package material

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
)

// Shading selects the lighting model of a material.
type Shading uint8

const (
	ShadingLit Shading = iota
	ShadingUnlit
)

func (s Shading) String() string {
	if s == ShadingUnlit {
		return "unlit"
	}
	return "lit"
}

// Parameter is a named uniform value declared by a definition.
type Parameter struct {
	Name string
	Type ParamType
}

// Definition describes a material before compilation.
type Definition struct {
	Name        string
	Shading     Shading
	Parameters  []Parameter
	Required    []mesh.Attribute
	DoubleSided bool
}

// DefinitionOption configures a Definition.
type DefinitionOption func(*Definition)

// NewDefinition creates a lit, single-sided definition that requires positions only.
//
// Parameters:
//   - options: functional options applied in order
//
// Returns:
//   - Definition: the configured definition
func NewDefinition(options ...DefinitionOption) Definition {
	d := Definition{Name: "material", Shading: ShadingLit, Required: []mesh.Attribute{mesh.AttributePosition}}
	for _, opt := range options {
		opt(&d)
	}
	return d
}

// WithName sets the material name.
func WithName(name string) DefinitionOption {
	return func(d *Definition) {
		d.Name = name
	}
}

// WithShading sets the lighting model.
func WithShading(s Shading) DefinitionOption {
	return func(d *Definition) {
		d.Shading = s
	}
}

// WithParameter declares a uniform parameter. Parameters are laid out in declaration order.
//
// Parameters:
//   - name: the parameter name, also its WGSL field name
//   - t: the parameter type
//
// Returns:
//   - DefinitionOption: a function that appends the parameter
func WithParameter(name string, t ParamType) DefinitionOption {
	return func(d *Definition) {
		d.Parameters = append(d.Parameters, Parameter{Name: name, Type: t})
	}
}

// WithRequire declares vertex attributes every renderable using the material must provide.
func WithRequire(attrs ...mesh.Attribute) DefinitionOption {
	return func(d *Definition) {
		for _, a := range attrs {
			if !slices.Contains(d.Required, a) {
				d.Required = append(d.Required, a)
			}
		}
	}
}

// WithDoubleSided disables back-face culling for the material.
func WithDoubleSided(doubleSided bool) DefinitionOption {
	return func(d *Definition) {
		d.DoubleSided = doubleSided
	}
}

// Simple returns the lit definition used by the sandbox: a base color plus the three
// standard PBR scalars, shaded with the per-vertex tangent frame.
func Simple() Definition {
	return NewDefinition(
		WithName("simple"),
		WithShading(ShadingLit),
		WithParameter("baseColor", ParamFloat3),
		WithParameter("metallic", ParamFloat),
		WithParameter("roughness", ParamFloat),
		WithParameter("reflectance", ParamFloat),
		WithRequire(mesh.AttributeTangents),
	)
}

// Validate checks names and types.
//
// Returns:
//   - error: if the name is empty, a parameter name repeats or is not a WGSL identifier, or a type is unknown
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("material: definition has no name")
	}
	seen := make(map[string]bool, len(d.Parameters))
	for _, p := range d.Parameters {
		if !isIdentifier(p.Name) {
			return fmt.Errorf("material %s: invalid parameter name %q", d.Name, p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("material %s: parameter %q declared twice", d.Name, p.Name)
		}
		if p.Type.Components() == 0 {
			return fmt.Errorf("material %s: parameter %q has unknown type", d.Name, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" || s[0] == '_' && len(s) > 1 && s[1] == '_' {
		return false
	}
	for i, r := range s {
		letter := r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
		if !letter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}
