package light

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/arche/ecs"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeSun is a directional light that also has an apparent disk, drawn by the skybox
	// and used to widen the specular highlight.
	LightTypeSun LightType = iota

	// LightTypeDirectional represents a light with no position, only direction.
	LightTypeDirectional

	// LightTypePoint represents a light that emits in all directions from a position.
	// Attenuates with distance up to a configurable falloff radius.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along a direction.
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypeSun:
		return "sun"
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	}
	return fmt.Sprintf("LightType(%d)", int(t))
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	handle resource.Handle
	entity ecs.Entity

	lightType     LightType
	position      mgl32.Vec3
	direction     mgl32.Vec3
	color         mgl32.Vec3
	intensity     float32
	falloff       float32
	innerCone     float32 // stored as cos(angle in radians)
	outerCone     float32 // stored as cos(angle in radians)
	angularRadius float32 // degrees
	castsShadows  bool
}

// Light is a punctual light component attached to an entity.
//
// Intensities are photometric: lux for sun and directional lights, lumens for point and spot lights.
// Colors are linear RGB.
type Light interface {
	resource.Resource

	// Entity returns the entity the light component is attached to.
	Entity() ecs.Entity

	// Type returns the kind of light source.
	Type() LightType

	// Position returns the world-space position of the light.
	// Meaningless for sun and directional lights.
	Position() mgl32.Vec3

	// Direction returns the normalized direction the light travels in.
	Direction() mgl32.Vec3

	// Color returns the linear RGB color of the light.
	Color() mgl32.Vec3

	// Intensity returns the photometric intensity.
	Intensity() float32

	// Falloff returns the distance past which point and spot lights contribute nothing.
	Falloff() float32

	// InnerCone returns the cosine of the inner cone half-angle for spot lights.
	InnerCone() float32

	// OuterCone returns the cosine of the outer cone half-angle for spot lights.
	OuterCone() float32

	// AngularRadius returns the apparent sun disk radius in degrees.
	AngularRadius() float32

	// CastsShadows returns whether this light is eligible for shadow map generation.
	CastsShadows() bool

	// SetDirection sets the direction of the light and normalizes it.
	//
	// Parameters:
	//   - dir: direction (will be normalized)
	SetDirection(dir mgl32.Vec3)

	// SetIntensity sets the photometric intensity.
	SetIntensity(intensity float32)

	// Uniform returns the light laid out for the GPU.
	Uniform() GPULight
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - handle: the registry handle issued for this light
//   - entity: the entity that owns the light component
//   - lightType: the kind of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(handle resource.Handle, entity ecs.Entity, lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:            &sync.Mutex{},
		handle:        handle,
		entity:        entity,
		lightType:     lightType,
		direction:     mgl32.Vec3{0, -1, 0},
		color:         mgl32.Vec3{1, 1, 1},
		intensity:     100000,
		falloff:       10.0,
		innerCone:     0.9063, // cos(25°)
		outerCone:     0.8192, // cos(35°)
		angularRadius: 0.545,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Handle() resource.Handle {
	return l.handle
}

func (l *lightImpl) Entity() ecs.Entity {
	return l.entity
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *lightImpl) Color() mgl32.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Falloff() float32 {
	return l.falloff
}

func (l *lightImpl) InnerCone() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterCone() float32 {
	return l.outerCone
}

func (l *lightImpl) AngularRadius() float32 {
	return l.angularRadius
}

func (l *lightImpl) CastsShadows() bool {
	return l.castsShadows
}

func (l *lightImpl) SetDirection(dir mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = normalize(dir)
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}

func (l *lightImpl) Uniform() GPULight {
	l.mu.Lock()
	defer l.mu.Unlock()
	g := GPULight{
		Position:      l.position,
		LightType:     uint32(l.lightType),
		Color:         l.color,
		Intensity:     l.intensity,
		Direction:     l.direction,
		Falloff:       l.falloff,
		InnerCone:     l.innerCone,
		OuterCone:     l.outerCone,
		AngularRadius: mgl32.DegToRad(l.angularRadius),
	}
	if l.castsShadows {
		g.CastsShadows = 1
	}
	return g
}

// normalize returns a unit vector, or straight down for a zero vector.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return mgl32.Vec3{0, -1, 0}
	}
	return v.Normalize()
}
