package camera

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// EditorController drives a Camera from an InputController with editor-style navigation.
// The controller owns an orbit around a target point (radius, azimuth, elevation); every Animate
// reads one input snapshot, advances that orbit and pushes the resulting pose into the camera.
//
// Bindings:
//   - left mouse drag, arrow keys: orbit around the target
//   - right mouse drag, W/A/S/D, Q/E: pan the target along the camera axes
//   - scroll wheel: zoom (orbit radius)
//   - R: return to the home pose
//
// Pointer motion is applied as-is; keyboard motion is scaled by the elapsed time.
type EditorController interface {
	// Animate advances the controller by dt and updates the bound camera.
	// A negative dt is treated as zero.
	//
	// Parameters:
	//   - dt: time elapsed since the previous call
	Animate(dt time.Duration)

	// Camera returns the bound camera.
	Camera() Camera

	// Target returns the orbit pivot.
	Target() mgl32.Vec3

	// SetTarget moves the orbit pivot and updates the camera.
	SetTarget(target mgl32.Vec3)

	// Radius returns the distance between the camera and the pivot.
	Radius() float32

	// Azimuth returns the horizontal orbit angle in radians (0 = +Z axis).
	Azimuth() float32

	// Elevation returns the vertical orbit angle in radians (0 = horizontal).
	Elevation() float32

	// Home restores the pose the controller was created with.
	Home()
}
