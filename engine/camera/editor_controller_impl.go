package camera

import (
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/input"
	"github.com/go-gl/mathgl/mgl32"
)

// worldUp is the fixed up axis of the orbit.
var worldUp = mgl32.Vec3{0, 1, 0}

type orbitPose struct {
	target    mgl32.Vec3
	radius    float32
	azimuth   float32
	elevation float32
}

type editorControllerImpl struct {
	mu *sync.Mutex

	cam   Camera
	input input.InputController

	target    mgl32.Vec3
	radius    float32
	azimuth   float32
	elevation float32
	home      orbitPose

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32 // radians per second
	panSpeed         float32 // world units per second
	mouseSensitivity float32 // radians per pixel
	panSensitivity   float32 // fraction of the radius per pixel
	zoomSpeed        float32 // fraction of the radius per scroll step
}

var _ EditorController = &editorControllerImpl{}

// NewEditorController binds a controller to a camera and an input source and pushes the initial pose into the camera.
// Both collaborators are required; NewEditorController panics if either is nil.
//
// Parameters:
//   - cam: the camera to drive
//   - ic: the input source polled on every Animate
//   - options: functional options to configure the controller
//
// Returns:
//   - EditorController: the newly created controller
func NewEditorController(cam Camera, ic input.InputController, options ...EditorControllerOption) EditorController {
	if cam == nil {
		panic("camera: NewEditorController requires a non-nil Camera")
	}
	if ic == nil {
		panic("camera: NewEditorController requires a non-nil InputController")
	}

	ec := &editorControllerImpl{
		mu:    &sync.Mutex{},
		cam:   cam,
		input: ic,

		radius: 20.0,

		minRadius:    0.5,
		maxRadius:    500.0,
		minElevation: -float32(math.Pi/2 - 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),

		orbitSpeed:       1.5,
		panSpeed:         10.0,
		mouseSensitivity: 0.005,
		panSensitivity:   0.002,
		zoomSpeed:        0.1,
	}
	for _, option := range options {
		option(ec)
	}

	ec.clamp()
	ec.home = orbitPose{target: ec.target, radius: ec.radius, azimuth: ec.azimuth, elevation: ec.elevation}
	ec.apply()
	return ec
}

func (ec *editorControllerImpl) Animate(dt time.Duration) {
	secs := float32(max(dt, 0).Seconds())
	s := ec.input.Poll()

	ec.mu.Lock()
	defer ec.mu.Unlock()

	if s.KeyHeld(common.KeyR) {
		ec.resetLocked()
	}

	// Orbit.
	if s.ButtonHeld(common.MouseButtonLeft) {
		ec.azimuth -= s.DeltaX * ec.mouseSensitivity
		ec.elevation += s.DeltaY * ec.mouseSensitivity
	}
	if s.KeyHeld(common.KeyLeft) {
		ec.azimuth -= ec.orbitSpeed * secs
	}
	if s.KeyHeld(common.KeyRight) {
		ec.azimuth += ec.orbitSpeed * secs
	}
	if s.KeyHeld(common.KeyUp) {
		ec.elevation += ec.orbitSpeed * secs
	}
	if s.KeyHeld(common.KeyDown) {
		ec.elevation -= ec.orbitSpeed * secs
	}

	// Pan.
	var right, up, forward float32
	if s.ButtonHeld(common.MouseButtonRight) {
		right -= s.DeltaX * ec.panSensitivity * ec.radius
		up += s.DeltaY * ec.panSensitivity * ec.radius
	}
	step := ec.panSpeed * secs
	if s.KeyHeld(common.KeyD) {
		right += step
	}
	if s.KeyHeld(common.KeyA) {
		right -= step
	}
	if s.KeyHeld(common.KeyE) {
		up += step
	}
	if s.KeyHeld(common.KeyQ) {
		up -= step
	}
	if s.KeyHeld(common.KeyW) {
		forward += step
	}
	if s.KeyHeld(common.KeyS) {
		forward -= step
	}
	if right != 0 || up != 0 || forward != 0 {
		r, u, f := ec.localAxes()
		ec.target = ec.target.Add(r.Mul(right)).Add(u.Mul(up)).Add(f.Mul(forward))
	}

	// Zoom is multiplicative so it feels the same at every distance.
	if s.Scroll != 0 {
		ec.radius *= float32(math.Pow(float64(1-ec.zoomSpeed), float64(s.Scroll)))
	}

	ec.clamp()
	ec.apply()
}

func (ec *editorControllerImpl) Camera() Camera {
	return ec.cam
}

func (ec *editorControllerImpl) Target() mgl32.Vec3 {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.target
}

func (ec *editorControllerImpl) SetTarget(target mgl32.Vec3) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.target = target
	ec.apply()
}

func (ec *editorControllerImpl) Radius() float32 {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.radius
}

func (ec *editorControllerImpl) Azimuth() float32 {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.azimuth
}

func (ec *editorControllerImpl) Elevation() float32 {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.elevation
}

func (ec *editorControllerImpl) Home() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.resetLocked()
	ec.apply()
}

func (ec *editorControllerImpl) resetLocked() {
	ec.target = ec.home.target
	ec.radius = ec.home.radius
	ec.azimuth = ec.home.azimuth
	ec.elevation = ec.home.elevation
}

// --- internal helpers ---

// clamp keeps radius and elevation within their limits.
// Caller must hold the mutex.
func (ec *editorControllerImpl) clamp() {
	ec.radius = common.Clamp(ec.radius, ec.minRadius, ec.maxRadius)
	ec.elevation = common.Clamp(ec.elevation, ec.minElevation, ec.maxElevation)
}

// eye computes the camera position from the spherical coordinates.
// Caller must hold the mutex.
func (ec *editorControllerImpl) eye() mgl32.Vec3 {
	cosElev := float32(math.Cos(float64(ec.elevation)))
	sinElev := float32(math.Sin(float64(ec.elevation)))
	cosAzim := float32(math.Cos(float64(ec.azimuth)))
	sinAzim := float32(math.Sin(float64(ec.azimuth)))
	offset := mgl32.Vec3{cosElev * sinAzim, sinElev, cosElev * cosAzim}.Mul(ec.radius)
	return ec.target.Add(offset)
}

// localAxes returns the camera right, up and forward vectors consistent with the LookAt matrix.
// Caller must hold the mutex.
func (ec *editorControllerImpl) localAxes() (right, up, forward mgl32.Vec3) {
	forward = ec.target.Sub(ec.eye())
	if forward.Len() < 1e-8 {
		return mgl32.Vec3{1, 0, 0}, worldUp, mgl32.Vec3{0, 0, -1}
	}
	forward = forward.Normalize()
	right = forward.Cross(worldUp).Normalize()
	up = right.Cross(forward)
	return right, up, forward
}

// apply pushes the current pose into the camera.
// Caller must hold the mutex.
func (ec *editorControllerImpl) apply() {
	ec.cam.LookAt(ec.eye(), ec.target, worldUp)
}
