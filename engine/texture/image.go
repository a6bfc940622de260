package texture

import (
	"image"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Image is a linear-light RGBA float image stored row-major, top row first.
type Image struct {
	Width  int
	Height int
	Pix    []float32
}

// NewImage allocates a zeroed width x height image.
func NewImage(width, height int) Image {
	return Image{Width: width, Height: height, Pix: make([]float32, width*height*4)}
}

// Solid returns a width x height image filled with one color.
func Solid(width, height int, c mgl32.Vec4) Image {
	img := NewImage(width, height)
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], c[:])
	}
	return img
}

// FromImage converts a decoded image into linear light. 8-bit sources are treated as sRGB encoded;
// alpha is kept as-is.
//
// Parameters:
//   - src: any decoded image
//
// Returns:
//   - Image: the linear float copy
func FromImage(src image.Image) Image {
	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*img.Width + x) * 4
			img.Pix[i+0] = common.SRGBToLinear(float32(r) / 0xffff)
			img.Pix[i+1] = common.SRGBToLinear(float32(g) / 0xffff)
			img.Pix[i+2] = common.SRGBToLinear(float32(bl) / 0xffff)
			img.Pix[i+3] = float32(a) / 0xffff
		}
	}
	return img
}

// Valid reports whether the pixel slice matches the dimensions.
func (img Image) Valid() bool {
	return img.Width > 0 && img.Height > 0 && len(img.Pix) == img.Width*img.Height*4
}

// At returns the pixel at (x, y). Coordinates are clamped to the edges.
func (img Image) At(x, y int) mgl32.Vec4 {
	x = common.Clamp(x, 0, img.Width-1)
	y = common.Clamp(y, 0, img.Height-1)
	i := (y*img.Width + x) * 4
	return mgl32.Vec4{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

// Set writes the pixel at (x, y).
func (img Image) Set(x, y int, c mgl32.Vec4) {
	i := (y*img.Width + x) * 4
	copy(img.Pix[i:i+4], c[:])
}

// Bilinear samples the image at normalized coordinates. u wraps around, v clamps,
// which is what an equirectangular panorama needs.
//
// Parameters:
//   - u: horizontal coordinate in [0, 1)
//   - v: vertical coordinate in [0, 1], 0 = top row
//
// Returns:
//   - mgl32.Vec4: the filtered color
func (img Image) Bilinear(u, v float32) mgl32.Vec4 {
	fx := u*float32(img.Width) - 0.5
	fy := v*float32(img.Height) - 0.5
	x0 := int(floor(fx))
	y0 := int(floor(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	wrap := func(x int) int {
		x %= img.Width
		if x < 0 {
			x += img.Width
		}
		return x
	}
	c00 := img.At(wrap(x0), y0)
	c10 := img.At(wrap(x0+1), y0)
	c01 := img.At(wrap(x0), y0+1)
	c11 := img.At(wrap(x0+1), y0+1)

	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bottom := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}

func floor(v float32) float32 {
	i := float32(int(v))
	if v < i {
		return i - 1
	}
	return i
}
