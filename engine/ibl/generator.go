package ibl

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/jobs"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/texture"
	"github.com/go-gl/mathgl/mgl32"
)

// Environment is the output of a Generator.
type Environment struct {
	// Reflections holds the prefiltered specular mip chain. Level 0 is the unfiltered environment,
	// level n is prefiltered for roughness n / (levels - 1).
	Reflections Cubemap

	// Irradiance holds nine spherical harmonics coefficients, convolved with the clamped cosine and divided by pi.
	Irradiance [9]mgl32.Vec3
}

// Descriptor returns the texture shape that Upload fills.
func (e Environment) Descriptor(label string) texture.Descriptor {
	return texture.Descriptor{
		Label:  label,
		Type:   texture.TypeCubemap,
		Width:  e.Reflections.Size(),
		Height: e.Reflections.Size(),
		Levels: len(e.Reflections),
	}
}

// Upload copies every level and face of the reflections into a cubemap created from Descriptor.
//
// Parameters:
//   - dst: the destination cubemap
//
// Returns:
//   - error: if the shapes disagree
func (e Environment) Upload(dst texture.Texture) error {
	if dst.Levels() != len(e.Reflections) || dst.Faces() != 6 {
		return fmt.Errorf("ibl: upload into %q: want %d cube levels, have %d levels of %d faces", dst.Label(), len(e.Reflections), dst.Levels(), dst.Faces())
	}
	for level, faces := range e.Reflections {
		for face, img := range faces {
			if err := dst.SetImage(level, face, img); err != nil {
				return fmt.Errorf("ibl: upload: %w", err)
			}
		}
	}
	return nil
}

// Generator turns a panorama into an Environment.
type Generator interface {
	// Generate runs the whole pipeline. It is a pure function of src and the generator's settings.
	//
	// Parameters:
	//   - src: the source panorama
	//
	// Returns:
	//   - Environment: reflections and irradiance
	//   - error: if src is invalid or a filtering job fails
	Generate(src Equirect) (Environment, error)
}

type prefilterImpl struct {
	size    int
	levels  int
	samples int
	jobs    jobs.JobSystem
}

var _ Generator = &prefilterImpl{}

// NewPrefilter creates the default Generator: a GGX importance-sampled specular prefilter and an SH9 irradiance projection.
// Without a job system every face is filtered on the calling goroutine.
//
// Parameters:
//   - options: functional options to configure the generator
//
// Returns:
//   - Generator: the generator
func NewPrefilter(options ...PrefilterBuilderOption) Generator {
	p := &prefilterImpl{
		size:    64,
		samples: 64,
	}
	for _, option := range options {
		option(p)
	}
	p.size = max(p.size, 1)
	p.samples = max(p.samples, 1)
	if maxLevels := texture.MaxLevels(p.size); p.levels <= 0 || p.levels > maxLevels {
		p.levels = maxLevels
	}
	return p
}

func (p *prefilterImpl) Generate(src Equirect) (Environment, error) {
	if !src.Valid() {
		return Environment{}, fmt.Errorf("ibl: generate: %w", ErrBadAspect)
	}
	start := time.Now()

	env := Environment{Reflections: make(Cubemap, p.levels)}
	for level := range env.Reflections {
		size := max(1, p.size>>level)
		for face := range env.Reflections[level] {
			env.Reflections[level][face] = texture.NewImage(size, size)
		}
	}

	// Level 0 is a straight resample of the panorama.
	if err := p.run(6, func(face int) error {
		img := env.Reflections[0][face]
		for y := 0; y < p.size; y++ {
			for x := 0; x < p.size; x++ {
				img.Set(x, y, src.Sample(texelDirection(face, x, y, p.size)).Vec4(1))
			}
		}
		return nil
	}); err != nil {
		return Environment{}, err
	}

	base := &env.Reflections[0]
	if p.levels > 1 {
		n := (p.levels - 1) * 6
		if err := p.run(n, func(i int) error {
			level, face := 1+i/6, i%6
			roughness := float32(level) / float32(p.levels-1)
			p.prefilterFace(base, env.Reflections[level][face], face, roughness)
			return nil
		}); err != nil {
			return Environment{}, err
		}
	}

	env.Irradiance = projectIrradiance(base)
	log.Printf("[IBL] prefiltered %dx%d environment, %d levels, %d samples in %v", p.size, p.size, p.levels, p.samples, time.Since(start))
	return env, nil
}

func (p *prefilterImpl) run(n int, fn func(i int) error) error {
	if p.jobs != nil {
		return p.jobs.Parallel(n, fn)
	}
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

// prefilterFace convolves one face with the GGX lobe, assuming n = v = r.
func (p *prefilterImpl) prefilterFace(base *[6]texture.Image, dst texture.Image, face int, roughness float32) {
	a := roughness * roughness
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			n := texelDirection(face, x, y, dst.Width)
			tangentX, tangentY := basis(n)

			var sum mgl32.Vec3
			var weight float32
			for i := 0; i < p.samples; i++ {
				u1, u2 := hammersley(i, p.samples)
				h := importanceSampleGGX(u1, u2, a)
				hw := tangentX.Mul(h.X()).Add(tangentY.Mul(h.Y())).Add(n.Mul(h.Z()))
				l := hw.Mul(2 * n.Dot(hw)).Sub(n)
				if nol := n.Dot(l); nol > 0 {
					sum = sum.Add(sampleFaces(base, l).Mul(nol))
					weight += nol
				}
			}
			if weight > 0 {
				sum = sum.Mul(1 / weight)
			}
			dst.Set(x, y, sum.Vec4(1))
		}
	}
}

// hammersley returns the i-th point of an n point Hammersley set.
func hammersley(i, n int) (float32, float32) {
	bits := uint32(i)
	bits = (bits << 16) | (bits >> 16)
	bits = ((bits & 0x55555555) << 1) | ((bits & 0xAAAAAAAA) >> 1)
	bits = ((bits & 0x33333333) << 2) | ((bits & 0xCCCCCCCC) >> 2)
	bits = ((bits & 0x0F0F0F0F) << 4) | ((bits & 0xF0F0F0F0) >> 4)
	bits = ((bits & 0x00FF00FF) << 8) | ((bits & 0xFF00FF00) >> 8)
	return float32(i) / float32(n), float32(bits) * 2.3283064365386963e-10
}

// importanceSampleGGX returns a tangent-space half vector distributed by the GGX lobe of roughness a (alpha).
func importanceSampleGGX(u1, u2, a float32) mgl32.Vec3 {
	phi := 2 * math.Pi * float64(u1)
	cosTheta := math.Sqrt((1 - float64(u2)) / (1 + (float64(a*a)-1)*float64(u2)))
	sinTheta := math.Sqrt(1 - cosTheta*cosTheta)
	return mgl32.Vec3{float32(sinTheta * math.Cos(phi)), float32(sinTheta * math.Sin(phi)), float32(cosTheta)}
}

// basis builds two tangents orthogonal to n.
func basis(n mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	up := mgl32.Vec3{0, 0, 1}
	if abs(n.Z()) > 0.999 {
		up = mgl32.Vec3{1, 0, 0}
	}
	tx := up.Cross(n).Normalize()
	return tx, n.Cross(tx)
}

// shBasis evaluates the nine real spherical harmonics along a unit direction.
func shBasis(d mgl32.Vec3) [9]float32 {
	x, y, z := d.X(), d.Y(), d.Z()
	return [9]float32{
		0.282095,
		0.488603 * y,
		0.488603 * z,
		0.488603 * x,
		1.092548 * x * y,
		1.092548 * y * z,
		0.315392 * (3*z*z - 1),
		1.092548 * x * z,
		0.546274 * (x*x - y*y),
	}
}

// cosineLobe holds the clamped cosine convolution factors per band, divided by pi.
var cosineLobe = [9]float32{
	1,
	2.0 / 3.0, 2.0 / 3.0, 2.0 / 3.0,
	0.25, 0.25, 0.25, 0.25, 0.25,
}

// projectIrradiance integrates radiance against the SH basis over all six faces.
func projectIrradiance(faces *[6]texture.Image) [9]mgl32.Vec3 {
	var sh [9]mgl32.Vec3
	for face := range faces {
		img := faces[face]
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				d := texelDirection(face, x, y, img.Width)
				w := texelSolidAngle(x, y, img.Width)
				c := img.At(x, y).Vec3().Mul(w)
				b := shBasis(d)
				for i := range sh {
					sh[i] = sh[i].Add(c.Mul(b[i]))
				}
			}
		}
	}
	for i := range sh {
		sh[i] = sh[i].Mul(cosineLobe[i])
	}
	return sh
}

// PrefilterBuilderOption configures the default generator.
type PrefilterBuilderOption func(*prefilterImpl)

// WithSize sets the face size of the reflections cubemap.
//
// Parameters:
//   - size: texels per face edge
//
// Returns:
//   - PrefilterBuilderOption: option function to apply
func WithSize(size int) PrefilterBuilderOption {
	return func(p *prefilterImpl) {
		p.size = size
	}
}

// WithLevels sets the number of roughness levels. Zero or too many means a full mip chain.
func WithLevels(levels int) PrefilterBuilderOption {
	return func(p *prefilterImpl) {
		p.levels = levels
	}
}

// WithSamples sets the number of GGX samples per texel.
func WithSamples(samples int) PrefilterBuilderOption {
	return func(p *prefilterImpl) {
		p.samples = samples
	}
}

// WithJobs filters faces in parallel on a job system.
func WithJobs(js jobs.JobSystem) PrefilterBuilderOption {
	return func(p *prefilterImpl) {
		p.jobs = js
	}
}
