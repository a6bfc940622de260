package input

import "github.com/Carmen-Shannon/oxy-sandbox/common"

// InputControllerBuilderOption is a functional option for configuring an inputControllerImpl.
type InputControllerBuilderOption func(ic *inputControllerImpl)

// WithViewport sets the initial viewport.
//
// Parameters:
//   - vp: the drawable rectangle
//
// Returns:
//   - InputControllerBuilderOption: option function to apply
func WithViewport(vp common.Viewport) InputControllerBuilderOption {
	return func(ic *inputControllerImpl) {
		ic.viewport = vp
	}
}

// WithSize sets the initial viewport to cover a width x height surface.
//
// Parameters:
//   - width: surface width in pixels
//   - height: surface height in pixels
//
// Returns:
//   - InputControllerBuilderOption: option function to apply
func WithSize(width, height int) InputControllerBuilderOption {
	return func(ic *inputControllerImpl) {
		ic.viewport = common.Viewport{Width: uint32(max(width, 0)), Height: uint32(max(height, 0))}
	}
}
