package loader

import "github.com/go-gl/mathgl/mgl32"

// LoaderBuilderOption is a functional option for configuring a geometry import.
type LoaderBuilderOption func(*geometryLoader)

// WithMesh selects the mesh to import by index. The default is 0.
func WithMesh(index int) LoaderBuilderOption {
	return func(l *geometryLoader) {
		l.mesh = index
	}
}

// WithPrimitive selects the primitive of the mesh to import by index. The default is 0.
func WithPrimitive(index int) LoaderBuilderOption {
	return func(l *geometryLoader) {
		l.primitive = index
	}
}

// WithLabel names the imported geometry and the buffers created from it.
//
// Parameters:
//   - label: the name, overriding the file or mesh name
//
// Returns:
//   - LoaderBuilderOption: option function to apply
func WithLabel(label string) LoaderBuilderOption {
	return func(l *geometryLoader) {
		l.label = label
	}
}

// WithTangentFrame sets the shared tangent frame of the imported vertices, as Euler angles in radians.
func WithTangentFrame(euler mgl32.Vec3) LoaderBuilderOption {
	return func(l *geometryLoader) {
		l.tangentFrame = euler
	}
}
