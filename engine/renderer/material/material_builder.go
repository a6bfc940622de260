package material

import (
	"github.com/Carmen-Shannon/oxy-sandbox/engine/jobs"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBuilderOption is a function that configures a material during construction.
type MaterialBuilderOption func(*material)

// WithJobs reflects the material's variants concurrently on a job system.
//
// Parameters:
//   - js: the job system to use
//
// Returns:
//   - MaterialBuilderOption: a function that applies the job system option to a material
func WithJobs(js jobs.JobSystem) MaterialBuilderOption {
	return func(m *material) {
		m.js = js
	}
}

// WithDefault sets a parameter default at construction. An unknown name or a wrong value count fails NewMaterial.
//
// Parameters:
//   - name: the parameter name
//   - values: the default value
//
// Returns:
//   - MaterialBuilderOption: a function that applies the default to a material
func WithDefault(name string, values ...float32) MaterialBuilderOption {
	return func(m *material) {
		if err := setValue(m.layout, m.defaults, m.program.Name, name, values); err != nil && m.err == nil {
			m.err = err
		}
	}
}

// WithDefaultRGB sets a color parameter default at construction, converting sRGB input to linear.
//
// Parameters:
//   - name: the parameter name
//   - t: the color encoding
//   - c: the color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the default to a material
func WithDefaultRGB(name string, t RGBType, c mgl32.Vec3) MaterialBuilderOption {
	return func(m *material) {
		WithDefault(name, rgbValues(m.layout, name, t, c)...)(m)
	}
}
