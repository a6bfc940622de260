package camera

import "github.com/go-gl/mathgl/mgl32"

// EditorControllerOption is a functional option for configuring an EditorController.
type EditorControllerOption func(*editorControllerImpl)

// WithTarget sets the initial orbit pivot.
//
// Parameters:
//   - target: world-space pivot point
//
// Returns:
//   - EditorControllerOption: functional option to set the target
func WithTarget(target mgl32.Vec3) EditorControllerOption {
	return func(ec *editorControllerImpl) {
		ec.target = target
	}
}

// WithRadius sets the initial orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - EditorControllerOption: functional option to set the radius
func WithRadius(radius float32) EditorControllerOption {
	return func(ec *editorControllerImpl) {
		ec.radius = radius
	}
}

// WithRadiusLimits sets the zoom limits.
func WithRadiusLimits(minRadius, maxRadius float32) EditorControllerOption {
	return func(ec *editorControllerImpl) {
		ec.minRadius, ec.maxRadius = minRadius, maxRadius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - EditorControllerOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) EditorControllerOption {
	return func(ec *editorControllerImpl) {
		ec.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle from the horizontal plane.
//
// Parameters:
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - EditorControllerOption: functional option to set the elevation
func WithElevation(elevation float32) EditorControllerOption {
	return func(ec *editorControllerImpl) {
		ec.elevation = elevation
	}
}

// WithOrbitSpeed sets the keyboard orbit rate in radians per second.
func WithOrbitSpeed(speed float32) EditorControllerOption {
	return func(ec *editorControllerImpl) {
		ec.orbitSpeed = speed
	}
}

// WithPanSpeed sets the keyboard pan rate in world units per second.
func WithPanSpeed(speed float32) EditorControllerOption {
	return func(ec *editorControllerImpl) {
		ec.panSpeed = speed
	}
}

// WithMouseSensitivity sets the orbit angle per pixel of mouse drag, in radians.
func WithMouseSensitivity(sensitivity float32) EditorControllerOption {
	return func(ec *editorControllerImpl) {
		ec.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the radius change per scroll step, as a fraction of the current radius.
func WithZoomSpeed(speed float32) EditorControllerOption {
	return func(ec *editorControllerImpl) {
		ec.zoomSpeed = speed
	}
}
