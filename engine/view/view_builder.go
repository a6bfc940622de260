package view

import (
	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/camera"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/scene"
)

// ViewBuilderOption is a functional option for configuring a View.
type ViewBuilderOption func(v *view)

// WithName sets the debug name.
func WithName(name string) ViewBuilderOption {
	return func(v *view) {
		v.name = name
	}
}

// WithCamera sets the camera the view renders through.
func WithCamera(cam camera.Camera) ViewBuilderOption {
	return func(v *view) {
		v.camera = cam
	}
}

// WithScene sets the scene the view renders.
func WithScene(s scene.Scene) ViewBuilderOption {
	return func(v *view) {
		v.scene = s
	}
}

// WithViewport sets the target rectangle.
//
// Parameters:
//   - vp: the viewport in surface pixels
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithViewport(vp common.Viewport) ViewBuilderOption {
	return func(v *view) {
		v.viewport = vp
	}
}

// WithPostProcessing toggles post-processing.
func WithPostProcessing(enabled bool) ViewBuilderOption {
	return func(v *view) {
		v.postProcessing = enabled
	}
}
