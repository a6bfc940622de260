// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Viewport is a rectangle in window pixels. Left and Bottom are offsets from the lower-left corner of the surface.
type Viewport struct {
	Left   int32
	Bottom int32
	Width  uint32
	Height uint32
}

// Aspect returns Width/Height, or 1 for an empty viewport.
func (v Viewport) Aspect() float32 {
	if v.Width == 0 || v.Height == 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

// Empty reports whether the viewport covers no pixels.
func (v Viewport) Empty() bool {
	return v.Width == 0 || v.Height == 0
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Center returns the midpoint of the box.
func (b Box) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfExtent returns half of the box size along each axis.
func (b Box) HalfExtent() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Transform returns the axis-aligned box enclosing b after applying m.
//
// Parameters:
//   - m: affine transform to apply
//
// Returns:
//   - Box: the enclosing box in the destination space
func (b Box) Transform(m mgl32.Mat4) Box {
	c := m.Mul4x1(b.Center().Vec4(1)).Vec3()
	e := b.HalfExtent()
	var half mgl32.Vec3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			half[row] += float32(math.Abs(float64(m.At(row, col)))) * e[col]
		}
	}
	return Box{Min: c.Sub(half), Max: c.Add(half)}
}

// SRGBToLinear converts one sRGB encoded channel to linear light.
func SRGBToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return float32(math.Pow((float64(c)+0.055)/1.055, 2.4))
}

// SRGBToLinearColor converts an sRGB color to linear light, channel by channel.
func SRGBToLinearColor(c mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{SRGBToLinear(c[0]), SRGBToLinear(c[1]), SRGBToLinear(c[2])}
}
