package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/arche/ecs"
)

// Default exposure settings: f/16, 1/125s, ISO 100 (the "sunny 16" rule).
const (
	DefaultAperture     float32 = 16.0
	DefaultShutterSpeed float32 = 1.0 / 125.0
	DefaultSensitivity  float32 = 100.0
)

type cameraImpl struct {
	mu *sync.Mutex

	handle resource.Handle
	entity ecs.Entity

	eye    mgl32.Vec3
	target mgl32.Vec3
	up     mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	aperture     float32
	shutterSpeed float32
	sensitivity  float32

	viewMatrix                  mgl32.Mat4
	projectionMatrix            mgl32.Mat4
	viewProjectionMatrix        mgl32.Mat4
	inverseViewProjectionMatrix mgl32.Mat4
}

// Camera holds a perspective projection, a look-at pose and physical exposure settings.
// Matrices are recomputed eagerly whenever one of their inputs changes.
type Camera interface {
	resource.Resource

	// Entity returns the entity the camera component is attached to.
	Entity() ecs.Entity

	// SetProjection replaces every projection parameter at once.
	//
	// Parameters:
	//   - fovY: vertical field of view in radians
	//   - aspect: viewport width / height
	//   - near: near clipping plane distance
	//   - far: far clipping plane distance
	SetProjection(fovY, aspect, near, far float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	SetAspect(aspect float32)

	Fov() float32
	Aspect() float32
	Near() float32
	Far() float32

	// LookAt places the camera at eye looking towards target.
	//
	// Parameters:
	//   - eye: camera position in world space
	//   - target: point the camera looks at
	//   - up: approximate up direction
	LookAt(eye, target, up mgl32.Vec3)

	// Position returns the world-space camera position.
	Position() mgl32.Vec3

	// Target returns the point the camera looks at.
	Target() mgl32.Vec3

	// Up returns the up vector passed to the last LookAt.
	Up() mgl32.Vec3

	// SetExposure sets the physical camera settings used to scale scene luminance.
	//
	// Parameters:
	//   - aperture: f-stop (e.g. 16)
	//   - shutterSpeed: exposure time in seconds (e.g. 1/125)
	//   - sensitivity: ISO sensitivity (e.g. 100)
	SetExposure(aperture, shutterSpeed, sensitivity float32)

	// Exposure returns the luminance multiplier derived from the exposure settings.
	//
	// Returns:
	//   - float32: 1 / (1.2 * 2^EV100)
	Exposure() float32

	ViewMatrix() mgl32.Mat4
	ProjectionMatrix() mgl32.Mat4
	ViewProjectionMatrix() mgl32.Mat4

	// InverseViewProjectionMatrix maps clip space back to world space. The skybox pass uses it to rebuild view rays.
	InverseViewProjectionMatrix() mgl32.Mat4

	// Frustum returns the world-space view frustum.
	Frustum() common.Frustum

	// Uniform returns the camera state laid out for the GPU.
	Uniform() GPUCameraUniform
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera for an entity with a 45 degree field of view looking down -Z from (0, 0, 5).
//
// Parameters:
//   - handle: the registry handle issued for this camera
//   - entity: the entity that owns the camera component
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(handle resource.Handle, entity ecs.Entity, options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:           &sync.Mutex{},
		handle:       handle,
		entity:       entity,
		eye:          mgl32.Vec3{0, 0, 5},
		up:           mgl32.Vec3{0, 1, 0},
		fov:          mgl32.DegToRad(45),
		aspect:       1.0,
		near:         0.1,
		far:          1000.0,
		aperture:     DefaultAperture,
		shutterSpeed: DefaultShutterSpeed,
		sensitivity:  DefaultSensitivity,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Handle() resource.Handle {
	return c.handle
}

func (c *cameraImpl) Entity() ecs.Entity {
	return c.entity
}

func (c *cameraImpl) SetProjection(fovY, aspect, near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov, c.aspect, c.near, c.far = fovY, aspect, near, far
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) LookAt(eye, target, up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye, c.target, c.up = eye, target, up
	c.updateMatrices()
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) SetExposure(aperture, shutterSpeed, sensitivity float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aperture, c.shutterSpeed, c.sensitivity = aperture, shutterSpeed, sensitivity
}

func (c *cameraImpl) Exposure() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return exposure(c.aperture, c.shutterSpeed, c.sensitivity)
}

// exposure converts camera settings to a luminance scale.
// EV100 = log2(N^2 / t * 100 / S); the 1.2 factor maps the saturation-based sensitivity to a maximum luminance.
func exposure(aperture, shutterSpeed, sensitivity float32) float32 {
	if aperture <= 0 || shutterSpeed <= 0 || sensitivity <= 0 {
		return 1
	}
	ev100 := math.Log2(float64(aperture*aperture) / float64(shutterSpeed) * 100.0 / float64(sensitivity))
	return float32(1.0 / (1.2 * math.Exp2(ev100)))
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseViewProjectionMatrix
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ExtractFrustum(c.viewProjectionMatrix)
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		ViewProj:    c.viewProjectionMatrix,
		InvViewProj: c.inverseViewProjectionMatrix,
		Position:    c.eye,
		Exposure:    exposure(c.aperture, c.shutterSpeed, c.sensitivity),
	}
}

// updateMatrices recomputes the view, projection and derived matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	aspect := c.aspect
	if aspect <= 0 {
		aspect = 1
	}
	c.viewMatrix = common.LookAt(c.eye, c.target, c.up)
	c.projectionMatrix = common.Perspective(c.fov, aspect, c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
	c.inverseViewProjectionMatrix = c.viewProjectionMatrix.Inv()
}
