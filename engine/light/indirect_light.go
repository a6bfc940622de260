package light

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrMissingReflections is returned when an indirect light is created without a complete reflections cubemap.
var ErrMissingReflections = errors.New("light: indirect light requires a complete reflections cubemap")

// shY00 is the constant term of the real spherical harmonics basis, 1 / (2 * sqrt(pi)).
const shY00 = 0.282095

// IndirectLight is image based lighting: a prefiltered reflections cubemap for specular and
// nine spherical harmonics coefficients for diffuse irradiance.
//
// The coefficients are stored pre-convolved with the clamped cosine lobe and divided by pi, so
// evaluating them along a normal yields the Lambertian diffuse radiance directly.
type IndirectLight interface {
	resource.Resource

	// Reflections returns the prefiltered specular cubemap. Never nil.
	Reflections() texture.Texture

	// Irradiance returns the spherical harmonics coefficients in band order.
	Irradiance() [9]mgl32.Vec3

	// Intensity returns the environment intensity in lux.
	Intensity() float32

	// SetIntensity sets the environment intensity in lux.
	SetIntensity(intensity float32)

	// Rotation returns the world-to-environment rotation.
	Rotation() mgl32.Mat3

	// SetRotation sets the world-to-environment rotation.
	SetRotation(rotation mgl32.Mat3)

	// Uniform fills the indirect light part of the lighting uniform.
	Uniform(dst *GPULighting)
}

type indirectLightImpl struct {
	mu *sync.Mutex

	handle        resource.Handle
	reflections   texture.Texture
	irradiance    [9]mgl32.Vec3
	hasIrradiance bool
	intensity     float32
	rotation      mgl32.Mat3
}

var _ IndirectLight = &indirectLightImpl{}

// NewIndirectLight creates an indirect light around a reflections cubemap.
// When no irradiance is supplied the ambient term is estimated from the smallest reflections level.
//
// Parameters:
//   - handle: the registry handle issued for this light
//   - reflections: a complete cubemap; required
//   - opts: functional options
//
// Returns:
//   - IndirectLight: the new light
//   - error: ErrMissingReflections if reflections is nil, not a cubemap or incomplete
func NewIndirectLight(handle resource.Handle, reflections texture.Texture, opts ...IndirectLightBuilderOption) (IndirectLight, error) {
	if reflections == nil {
		return nil, ErrMissingReflections
	}
	if reflections.Type() != texture.TypeCubemap || !reflections.Valid() {
		return nil, fmt.Errorf("%w: %q is a %s texture, complete=%v", ErrMissingReflections, reflections.Label(), reflections.Type(), reflections.Valid())
	}

	il := &indirectLightImpl{
		mu:          &sync.Mutex{},
		handle:      handle,
		reflections: reflections,
		intensity:   30000,
		rotation:    mgl32.Ident3(),
	}
	for _, opt := range opts {
		opt(il)
	}
	if !il.hasIrradiance {
		il.irradiance = UniformIrradiance(averageColor(reflections))
	}
	return il, nil
}

// UniformIrradiance returns the coefficients of an environment with the same radiance in every direction.
func UniformIrradiance(radiance mgl32.Vec3) [9]mgl32.Vec3 {
	var sh [9]mgl32.Vec3
	sh[0] = radiance.Mul(1 / shY00)
	return sh
}

// averageColor averages the texels of the smallest mip level over all faces.
func averageColor(tex texture.Texture) mgl32.Vec3 {
	level := tex.Levels() - 1
	var sum mgl32.Vec3
	var n float32
	for face := 0; face < tex.Faces(); face++ {
		img, ok := tex.Image(level, face)
		if !ok {
			continue
		}
		for i := 0; i+3 < len(img.Pix); i += 4 {
			sum = sum.Add(mgl32.Vec3{img.Pix[i], img.Pix[i+1], img.Pix[i+2]})
			n++
		}
	}
	if n == 0 {
		return mgl32.Vec3{}
	}
	return sum.Mul(1 / n)
}

func (il *indirectLightImpl) Handle() resource.Handle {
	return il.handle
}

func (il *indirectLightImpl) Reflections() texture.Texture {
	return il.reflections
}

func (il *indirectLightImpl) Irradiance() [9]mgl32.Vec3 {
	return il.irradiance
}

func (il *indirectLightImpl) Intensity() float32 {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.intensity
}

func (il *indirectLightImpl) SetIntensity(intensity float32) {
	il.mu.Lock()
	defer il.mu.Unlock()
	il.intensity = intensity
}

func (il *indirectLightImpl) Rotation() mgl32.Mat3 {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.rotation
}

func (il *indirectLightImpl) SetRotation(rotation mgl32.Mat3) {
	il.mu.Lock()
	defer il.mu.Unlock()
	il.rotation = rotation
}

func (il *indirectLightImpl) Uniform(dst *GPULighting) {
	il.mu.Lock()
	defer il.mu.Unlock()
	dst.Irradiance = il.irradiance
	dst.IBLIntensity = il.intensity
	dst.IBLMaxLod = float32(il.reflections.Levels() - 1)
	dst.IBLRotation = il.rotation
}

// IndirectLightBuilderOption configures an IndirectLight during construction.
type IndirectLightBuilderOption func(*indirectLightImpl)

// WithIrradiance sets the spherical harmonics coefficients.
//
// Parameters:
//   - sh: nine coefficients, pre-convolved and divided by pi
//
// Returns:
//   - IndirectLightBuilderOption: option function to apply
func WithIrradiance(sh [9]mgl32.Vec3) IndirectLightBuilderOption {
	return func(il *indirectLightImpl) {
		il.irradiance = sh
		il.hasIrradiance = true
	}
}

// WithIndirectIntensity sets the environment intensity in lux.
func WithIndirectIntensity(intensity float32) IndirectLightBuilderOption {
	return func(il *indirectLightImpl) {
		il.intensity = intensity
	}
}

// WithRotation sets the world-to-environment rotation.
func WithRotation(rotation mgl32.Mat3) IndirectLightBuilderOption {
	return func(il *indirectLightImpl) {
		il.rotation = rotation
	}
}
