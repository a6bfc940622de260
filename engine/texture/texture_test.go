package texture

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

func TestHalfConversion(t *testing.T) {
	cases := []struct {
		in   float32
		bits uint16
	}{
		{0, 0x0000},
		{1, 0x3c00},
		{-2, 0xc000},
		{0.5, 0x3800},
		{65504, 0x7bff},
		{1e6, 0x7c00},
		{5.960464477539063e-08, 0x0001},
		{1e-9, 0x0000},
	}
	for _, c := range cases {
		if h := toHalf(c.in); h != c.bits {
			t.Fatalf("toHalf(%v) failed:\nhave %#04x\nwant %#04x", c.in, h, c.bits)
		}
	}
	for _, v := range []float32{0.1, 0.125, 3.14159, 60000, 0.25} {
		back := fromHalf(toHalf(v))
		if math.Abs(float64(back-v)) > float64(v)*1e-3 {
			t.Fatalf("half round trip failed:\n%v -> %v", v, back)
		}
	}
	if h := fromHalf(0x0001); h != 5.960464477539063e-08 {
		t.Fatalf("fromHalf failed:\n%v", h)
	}
}

func TestTextureCubemapValidation(t *testing.T) {
	h := resource.Handle{Kind: resource.KindTexture, ID: 1}
	if _, err := NewTexture(h, Descriptor{Type: TypeCubemap, Width: 8, Height: 4}); err == nil {
		t.Fatal("NewTexture failed:\nnon-square cubemap accepted")
	}
	if _, err := NewTexture(h, Descriptor{Width: 4, Height: 4, Levels: 9}); err == nil {
		t.Fatal("NewTexture failed:\ntoo many levels accepted")
	}

	tex, err := NewTexture(h, Descriptor{Label: "env", Type: TypeCubemap, Width: 4, Height: 4, Levels: 2})
	if err != nil {
		t.Fatalf("NewTexture failed:\n%v", err)
	}
	if tex.Faces() != 6 || tex.Valid() {
		t.Fatalf("NewTexture failed:\nfaces %d valid %v", tex.Faces(), tex.Valid())
	}
	if err := tex.SetImage(1, 0, NewImage(4, 4)); err == nil {
		t.Fatal("SetImage failed:\nwrong level size accepted")
	}
	if err := tex.SetImage(0, 6, NewImage(4, 4)); err == nil {
		t.Fatal("SetImage failed:\nface out of range accepted")
	}
	if _, err := tex.Encode(0, 0); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Encode failed:\n%v", err)
	}

	for level := 0; level < 2; level++ {
		for face := 0; face < 6; face++ {
			size := 4 >> level
			if err := tex.SetImage(level, face, Solid(size, size, mgl32.Vec4{1, 0.5, 0, 1})); err != nil {
				t.Fatalf("SetImage failed:\n%v", err)
			}
		}
	}
	if !tex.Valid() || tex.Version() != 12 {
		t.Fatalf("SetImage failed:\nvalid %v version %d", tex.Valid(), tex.Version())
	}

	buf, err := tex.Encode(1, 5)
	if err != nil || len(buf) != 2*2*4*2 {
		t.Fatalf("Encode failed:\n%v %d", err, len(buf))
	}
	if g := binary.LittleEndian.Uint16(buf[2:]); g != 0x3800 {
		t.Fatalf("Encode failed:\ngreen %#04x", g)
	}
}

func TestFromImageLinearizes(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{255, 255, 255, 255})
	src.Set(1, 0, color.NRGBA{128, 0, 0, 255})

	img := FromImage(src)
	if !img.Valid() || img.Width != 2 || img.Height != 1 {
		t.Fatalf("FromImage failed:\n%+v", img)
	}
	if c := img.At(0, 0); !c.ApproxEqualThreshold(mgl32.Vec4{1, 1, 1, 1}, 1e-4) {
		t.Fatalf("FromImage failed:\n%v", c)
	}
	if r := img.At(1, 0)[0]; r < 0.2 || r > 0.23 {
		t.Fatalf("FromImage failed:\nsRGB 128 -> %v", r)
	}
}

func TestBilinearWrapsHorizontally(t *testing.T) {
	img := NewImage(2, 1)
	img.Set(0, 0, mgl32.Vec4{1, 0, 0, 1})
	img.Set(1, 0, mgl32.Vec4{0, 0, 1, 1})

	// u = 0 sits between the last and the first column
	c := img.Bilinear(0, 0.5)
	if !c.ApproxEqualThreshold(mgl32.Vec4{0.5, 0, 0.5, 1}, 1e-5) {
		t.Fatalf("Bilinear failed:\n%v", c)
	}
}
