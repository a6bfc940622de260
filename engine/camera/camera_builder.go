package camera

import "github.com/go-gl/mathgl/mgl32"

type CameraBuilderOption func(*cameraImpl)

// WithProjection sets the perspective projection.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport width / height
//   - near: near clipping plane distance
//   - far: far clipping plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the projection
func WithProjection(fovY, aspect, near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov, c.aspect, c.near, c.far = fovY, aspect, near, far
	}
}

// WithLookAt sets the initial camera pose.
//
// Parameters:
//   - eye: camera position
//   - target: point to look at
//   - up: approximate up direction
//
// Returns:
//   - CameraBuilderOption: a function that sets the pose
func WithLookAt(eye, target, up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.eye, c.target, c.up = eye, target, up
	}
}

// WithExposure sets the physical exposure settings.
func WithExposure(aperture, shutterSpeed, sensitivity float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aperture, c.shutterSpeed, c.sensitivity = aperture, shutterSpeed, sensitivity
	}
}
