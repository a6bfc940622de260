package ibl

import (
	"math"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

// Cubemap is a mip chain of six square faces in +X, -X, +Y, -Y, +Z, -Z order.
type Cubemap [][6]texture.Image

// Size returns the face size of level 0.
func (c Cubemap) Size() int {
	if len(c) == 0 {
		return 0
	}
	return c[0][0].Width
}

// faceDirection returns the direction through normalized face coordinates s, t in [-1, 1],
// with t growing downwards.
func faceDirection(face int, s, t float32) mgl32.Vec3 {
	switch face {
	case 0:
		return mgl32.Vec3{1, -t, -s}
	case 1:
		return mgl32.Vec3{-1, -t, s}
	case 2:
		return mgl32.Vec3{s, 1, t}
	case 3:
		return mgl32.Vec3{s, -1, -t}
	case 4:
		return mgl32.Vec3{s, -t, 1}
	default:
		return mgl32.Vec3{-s, -t, -1}
	}
}

// texelDirection returns the normalized direction through the center of texel (x, y) of a face.
func texelDirection(face, x, y, size int) mgl32.Vec3 {
	s := (float32(x)+0.5)/float32(size)*2 - 1
	t := (float32(y)+0.5)/float32(size)*2 - 1
	return faceDirection(face, s, t).Normalize()
}

// directionToFace is the inverse of faceDirection.
func directionToFace(d mgl32.Vec3) (face int, s, t float32) {
	ax, ay, az := abs(d.X()), abs(d.Y()), abs(d.Z())
	switch {
	case ax >= ay && ax >= az:
		if d.X() > 0 {
			return 0, -d.Z() / ax, -d.Y() / ax
		}
		return 1, d.Z() / ax, -d.Y() / ax
	case ay >= az:
		if d.Y() > 0 {
			return 2, d.X() / ay, d.Z() / ay
		}
		return 3, d.X() / ay, -d.Z() / ay
	default:
		if d.Z() > 0 {
			return 4, d.X() / az, -d.Y() / az
		}
		return 5, -d.X() / az, -d.Y() / az
	}
}

// sampleFaces bilinearly samples a set of faces along a direction. Filtering does not cross face edges.
func sampleFaces(faces *[6]texture.Image, d mgl32.Vec3) mgl32.Vec3 {
	face, s, t := directionToFace(d)
	img := faces[face]
	fx := (s+1)*0.5*float32(img.Width) - 0.5
	fy := (t+1)*0.5*float32(img.Height) - 0.5
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	c00 := img.At(x0, y0).Vec3()
	c10 := img.At(x0+1, y0).Vec3()
	c01 := img.At(x0, y0+1).Vec3()
	c11 := img.At(x0+1, y0+1).Vec3()
	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bottom := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}

// texelSolidAngle returns the solid angle subtended by texel (x, y) of a size x size face.
func texelSolidAngle(x, y, size int) float32 {
	inv := 1 / float64(size)
	x0 := (float64(x)*inv)*2 - 1
	y0 := (float64(y)*inv)*2 - 1
	x1 := x0 + 2*inv
	y1 := y0 + 2*inv
	area := func(a, b float64) float64 {
		return math.Atan2(a*b, math.Sqrt(a*a+b*b+1))
	}
	return float32(area(x0, y0) - area(x0, y1) - area(x1, y0) + area(x1, y1))
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
