// package texture holds CPU-side texture data. The renderer uploads a texture lazily and re-uploads it whenever its
// version changes, so a texture can be filled after creation.
package texture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
)

// ErrIncomplete is returned when a level or face has not been filled yet.
var ErrIncomplete = errors.New("texture: incomplete")

// Type is the sampler type of a texture.
type Type int

const (
	// Type2D is a single image per level.
	Type2D Type = iota
	// TypeCubemap is six square faces per level, in +X, -X, +Y, -Y, +Z, -Z order.
	TypeCubemap
)

func (t Type) String() string {
	if t == TypeCubemap {
		return "cubemap"
	}
	return "2d"
}

// Descriptor describes the shape of a texture.
type Descriptor struct {
	Label  string
	Type   Type
	Width  int
	Height int
	// Levels is the mip level count. Zero means 1.
	Levels int
}

// Texture is a mip-mapped 2D or cube texture with float RGBA texels.
type Texture interface {
	resource.Resource

	Label() string
	Type() Type
	Width() int
	Height() int
	Levels() int

	// Faces returns 6 for cubemaps and 1 otherwise.
	Faces() int

	// SetImage stores the texels of one level and face.
	//
	// Parameters:
	//   - level: mip level, 0 = full size
	//   - face: cube face index, 0 for 2D textures
	//   - img: texels, sized max(1, Width>>level) x max(1, Height>>level)
	//
	// Returns:
	//   - error: if the level, face or image size is out of range
	SetImage(level, face int, img Image) error

	// Image returns the texels of one level and face, and whether they have been set.
	Image(level, face int) (Image, bool)

	// Valid reports whether every level and face has texels.
	Valid() bool

	// Version increments on every SetImage.
	Version() uint64

	// Encode returns one level and face as RGBA16Float bytes, the format the renderer uploads.
	//
	// Returns:
	//   - []byte: 8 bytes per texel
	//   - error: ErrIncomplete if the image was never set
	Encode(level, face int) ([]byte, error)
}

type textureImpl struct {
	mu      *sync.Mutex
	handle  resource.Handle
	desc    Descriptor
	images  [][]Image // [level][face]
	set     [][]bool
	version uint64
}

var _ Texture = &textureImpl{}

// NewTexture creates an empty texture. Cubemaps must be square.
//
// Parameters:
//   - handle: the registry handle issued for this texture
//   - desc: the texture shape
//
// Returns:
//   - Texture: the new texture
//   - error: if the descriptor is invalid
func NewTexture(handle resource.Handle, desc Descriptor) (Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Type == TypeCubemap && desc.Width != desc.Height {
		return nil, fmt.Errorf("texture %q: cubemap faces must be square, got %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Levels <= 0 {
		desc.Levels = 1
	}
	if maxLevels := MaxLevels(max(desc.Width, desc.Height)); desc.Levels > maxLevels {
		return nil, fmt.Errorf("texture %q: %d levels exceed the maximum of %d", desc.Label, desc.Levels, maxLevels)
	}

	faces := 1
	if desc.Type == TypeCubemap {
		faces = 6
	}
	t := &textureImpl{
		mu:     &sync.Mutex{},
		handle: handle,
		desc:   desc,
		images: make([][]Image, desc.Levels),
		set:    make([][]bool, desc.Levels),
	}
	for l := range t.images {
		t.images[l] = make([]Image, faces)
		t.set[l] = make([]bool, faces)
	}
	return t, nil
}

// MaxLevels returns the length of a full mip chain for the given size.
func MaxLevels(size int) int {
	n := 1
	for size > 1 {
		size >>= 1
		n++
	}
	return n
}

func (t *textureImpl) Handle() resource.Handle { return t.handle }
func (t *textureImpl) Label() string           { return t.desc.Label }
func (t *textureImpl) Type() Type              { return t.desc.Type }
func (t *textureImpl) Width() int              { return t.desc.Width }
func (t *textureImpl) Height() int             { return t.desc.Height }
func (t *textureImpl) Levels() int             { return t.desc.Levels }

func (t *textureImpl) Faces() int {
	if t.desc.Type == TypeCubemap {
		return 6
	}
	return 1
}

func (t *textureImpl) SetImage(level, face int, img Image) error {
	if level < 0 || level >= t.desc.Levels {
		return fmt.Errorf("texture %q: level %d out of range", t.desc.Label, level)
	}
	if face < 0 || face >= t.Faces() {
		return fmt.Errorf("texture %q: face %d out of range", t.desc.Label, face)
	}
	w, h := max(1, t.desc.Width>>level), max(1, t.desc.Height>>level)
	if img.Width != w || img.Height != h || !img.Valid() {
		return fmt.Errorf("texture %q: level %d expects %dx%d, got %dx%d", t.desc.Label, level, w, h, img.Width, img.Height)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.images[level][face] = img
	t.set[level][face] = true
	t.version++
	return nil
}

func (t *textureImpl) Image(level, face int) (Image, bool) {
	if level < 0 || level >= t.desc.Levels || face < 0 || face >= t.Faces() {
		return Image{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.images[level][face], t.set[level][face]
}

func (t *textureImpl) Valid() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, faces := range t.set {
		for _, ok := range faces {
			if !ok {
				return false
			}
		}
	}
	return true
}

func (t *textureImpl) Version() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

func (t *textureImpl) Encode(level, face int) ([]byte, error) {
	img, ok := t.Image(level, face)
	if !ok {
		return nil, fmt.Errorf("%w: %q level %d face %d", ErrIncomplete, t.desc.Label, level, face)
	}
	buf := make([]byte, len(img.Pix)*2)
	for i, v := range img.Pix {
		binary.LittleEndian.PutUint16(buf[i*2:], toHalf(v))
	}
	return buf, nil
}
