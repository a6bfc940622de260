// package ibl turns an equirectangular environment image into the inputs of image based lighting:
// a GGX-prefiltered reflections cubemap and diffuse irradiance spherical harmonics.
//
// Generation is a pure function of the source image, kept apart from scene setup so a host can run it
// offline, cache it, or skip it entirely.
package ibl

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrBadAspect is returned for an equirectangular image that is not exactly twice as wide as it is high.
var ErrBadAspect = errors.New("ibl: equirectangular image must be twice as wide as it is high")

// Equirect is a latitude/longitude panorama in linear light. Row 0 looks straight up.
type Equirect struct {
	img texture.Image
}

// NewEquirect validates and wraps a panorama.
//
// Parameters:
//   - img: linear RGBA texels, width == 2 * height
//
// Returns:
//   - Equirect: the panorama
//   - error: ErrBadAspect, or an error for a malformed image
func NewEquirect(img texture.Image) (Equirect, error) {
	if !img.Valid() {
		return Equirect{}, fmt.Errorf("ibl: invalid image %dx%d with %d values", img.Width, img.Height, len(img.Pix))
	}
	if img.Width != 2*img.Height {
		return Equirect{}, fmt.Errorf("%w: got %dx%d", ErrBadAspect, img.Width, img.Height)
	}
	return Equirect{img: img}, nil
}

// DecodeEquirect decodes a PNG or JPEG panorama. The 8-bit data is linearized from sRGB.
//
// Parameters:
//   - r: encoded image bytes
//
// Returns:
//   - Equirect: the panorama
//   - error: a decode error or ErrBadAspect
func DecodeEquirect(r io.Reader) (Equirect, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return Equirect{}, fmt.Errorf("ibl: decode equirect: %w", err)
	}
	return NewEquirect(texture.FromImage(src))
}

// Uniform returns a panorama with the same radiance in every direction.
//
// Parameters:
//   - radiance: linear RGB color
//   - height: panorama height in texels; the width is twice that
//
// Returns:
//   - Equirect: the panorama
func Uniform(radiance mgl32.Vec3, height int) Equirect {
	height = max(height, 1)
	return Equirect{img: texture.Solid(2*height, height, radiance.Vec4(1))}
}

// Image returns the underlying texels.
func (e Equirect) Image() texture.Image {
	return e.img
}

// Valid reports whether the panorama holds texels.
func (e Equirect) Valid() bool {
	return e.img.Valid() && e.img.Width == 2*e.img.Height
}

// Sample returns the filtered radiance seen along a direction.
//
// Parameters:
//   - dir: world-space direction, need not be normalized
//
// Returns:
//   - mgl32.Vec3: linear radiance
func (e Equirect) Sample(dir mgl32.Vec3) mgl32.Vec3 {
	u, v := directionToEquirect(dir)
	return e.img.Bilinear(u, v).Vec3()
}

// directionToEquirect maps a direction to panorama coordinates. u = 0.5 faces -Z.
func directionToEquirect(dir mgl32.Vec3) (u, v float32) {
	d := dir.Normalize()
	phi := math.Atan2(float64(d.X()), float64(-d.Z()))
	theta := math.Acos(float64(mgl32.Clamp(d.Y(), -1, 1)))
	return float32(0.5 + phi/(2*math.Pi)), float32(theta / math.Pi)
}
