// pre_processor.go implements the WGSL shader pre-processor. It scans shader source for
// @oxy: annotations, replaces them with generated WGSL declarations or injected struct
// source, and collects the declarations the renderer uses to fill bind groups.
//
// The pre-processor keeps two registries:
//   - structRegistry: maps struct type keys to embedded WGSL struct sources and their type names.
//   - addressSpaceRegistry: maps address space keys to WGSL var<> syntax.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/camera"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/light"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
)

// registryEntry pairs a WGSL struct source with the type name emitted in @oxy:group declarations.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	declarations         []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Register adds or replaces a struct type in the registry.
	//
	// Parameters:
	//   - arg: the struct type key used by include and group annotations
	//   - source: the WGSL struct definition
	//   - typeName: the WGSL type name declared by source
	Register(arg AnnotationArg, source, typeName string)

	// Process replaces every annotation in source with its WGSL output. Struct types are
	// injected at most once per call, so repeated includes are harmless.
	//
	// Parameters:
	//   - source: WGSL source containing annotations
	//
	// Returns:
	//   - string: the processed source
	//   - error: if an annotation is malformed or references an unregistered type
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations collected by the last Process call, in source order.
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the engine's GPU structs registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera:   {Source: camera.GPUCameraUniformSource, Type: "CameraUniform"},
			AnnotationArgLight:    {Source: light.GPULightSource, Type: "Light"},
			AnnotationArgLighting: {Source: light.GPULightingSource, Type: "Lighting"},
			AnnotationArgVertex:   {Source: mesh.GPUVertexSource, Type: "VertexInput"},
			AnnotationArgObject:   {Source: mesh.GPUObjectUniformSource, Type: "ObjectUniform"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform: "var<uniform>",
			annotationArgStorageTypeRead:    "var<storage, read>",
		},
	}
}

func (p *preProcessor) Register(arg AnnotationArg, source, typeName string) {
	p.structRegistry[arg] = registryEntry{Source: source, Type: typeName}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil
	included := make(map[AnnotationArg]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: struct type %q is not registered", i+1, a.Args[0])
			}
			if !included[a.Args[0]] {
				out = append(out, strings.TrimRight(entry.Source, "\n"))
				included[a.Args[0]] = true
			}
		case AnnotationTypeBindingGroup:
			entry, ok := p.structRegistry[a.Args[2]]
			if !ok {
				return "", fmt.Errorf("line %d: struct type %q is not registered", i+1, a.Args[2])
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], entry.Type))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
