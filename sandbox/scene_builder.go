package sandbox

import (
	"github.com/Carmen-Shannon/oxy-sandbox/engine/camera"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/ibl"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

// SceneBuilderOption is a functional option applied to the sandbox scene before construction.
type SceneBuilderOption func(*sceneImpl)

// WithGeometry replaces the triangle with another indexed triangle list.
//
// Parameters:
//   - g: the geometry to upload
//
// Returns:
//   - SceneBuilderOption: a function that applies the geometry
func WithGeometry(g mesh.Geometry) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.geometry = g
	}
}

// WithMaterialParams sets the material defaults the instance starts from.
//
// Parameters:
//   - baseColor: linear RGB base color
//   - metallic, roughness, reflectance: the remaining surface parameters
//
// Returns:
//   - SceneBuilderOption: a function that applies the parameters
func WithMaterialParams(baseColor mgl32.Vec3, metallic, roughness, reflectance float32) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.baseColor = baseColor
		s.metallic, s.roughness, s.reflectance = metallic, roughness, reflectance
	}
}

// WithSkyboxColor sets the flat skybox color. The default environment is built from it too.
func WithSkyboxColor(c mgl32.Vec4) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.skyColor = c
	}
}

// WithIndirectLightIntensity sets the indirect light intensity in lux.
func WithIndirectLightIntensity(intensity float32) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.iblIntensity = intensity
	}
}

// WithEnvironment uses an existing prefiltered cubemap for the indirect light. The texture is borrowed:
// the caller keeps ownership and must keep it alive while the scene exists.
//
// Parameters:
//   - reflections: a complete cubemap
//
// Returns:
//   - SceneBuilderOption: a function that applies the environment
func WithEnvironment(reflections texture.Texture) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.environment = reflections
	}
}

// WithEquirect builds the environment from an equirectangular panorama instead of the skybox color.
//
// Parameters:
//   - eq: the panorama, twice as wide as it is high
//
// Returns:
//   - SceneBuilderOption: a function that applies the panorama
func WithEquirect(eq ibl.Equirect) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.equirect = &eq
	}
}

// WithGenerator sets the generator that turns the panorama into reflections and irradiance.
// The default is ibl.NewPrefilter running on the engine's job system.
func WithGenerator(g ibl.Generator) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.generator = g
	}
}

// WithEnvironmentSkybox makes the skybox draw the environment instead of the flat color.
func WithEnvironmentSkybox(enabled bool) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.environmentSkybox = enabled
	}
}

// WithSun adds a shadow casting sun light, and its disk to an environment skybox.
func WithSun() SceneBuilderOption {
	return func(s *sceneImpl) {
		s.sun = true
	}
}

// WithEditorOptions configures the editor controller.
//
// Parameters:
//   - options: editor controller options, applied in order
//
// Returns:
//   - SceneBuilderOption: a function that stores the options
func WithEditorOptions(options ...camera.EditorControllerOption) SceneBuilderOption {
	return func(s *sceneImpl) {
		s.editorOptions = append(s.editorOptions, options...)
	}
}
