// package mesh holds geometry buffers: vertex buffers made of one or more interleaved or planar byte buffers
// described by attributes, and index buffers.
package mesh

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
)

// Attribute is a vertex attribute semantic. Its value is also the shader location it binds to.
type Attribute int

const (
	AttributePosition Attribute = iota
	AttributeTangents
	AttributeColor
	AttributeUV0
	AttributeUV1
)

func (a Attribute) String() string {
	switch a {
	case AttributePosition:
		return "position"
	case AttributeTangents:
		return "tangents"
	case AttributeColor:
		return "color"
	case AttributeUV0:
		return "uv0"
	case AttributeUV1:
		return "uv1"
	}
	return fmt.Sprintf("attribute(%d)", int(a))
}

// AttributeType is the storage format of one attribute element.
type AttributeType int

const (
	AttributeTypeFloat2 AttributeType = iota
	AttributeTypeFloat3
	AttributeTypeFloat4
	AttributeTypeUByte4
	AttributeTypeShort4
)

// Size returns the byte size of one element.
func (t AttributeType) Size() uint32 {
	switch t {
	case AttributeTypeFloat2:
		return 8
	case AttributeTypeFloat3:
		return 12
	case AttributeTypeFloat4:
		return 16
	case AttributeTypeUByte4:
		return 4
	case AttributeTypeShort4:
		return 8
	}
	return 0
}

func (t AttributeType) String() string {
	return [...]string{"float2", "float3", "float4", "ubyte4", "short4"}[t]
}

// AttributeDesc places one attribute inside one of the vertex buffer's byte buffers.
type AttributeDesc struct {
	Attribute   Attribute
	BufferIndex int
	Type        AttributeType
	// Normalized maps integer types to [0, 1] or [-1, 1] in the shader.
	Normalized bool
	// Offset is the byte offset of the attribute inside a vertex. Zero for planar buffers.
	Offset uint32
	// Stride is the byte distance between two vertices. Zero means the element size.
	Stride uint32
}

// EffectiveStride returns Stride, or the element size when Stride is zero.
func (d AttributeDesc) EffectiveStride() uint32 {
	if d.Stride == 0 {
		return d.Type.Size()
	}
	return d.Stride
}

// VertexBufferDescriptor describes the shape of a vertex buffer.
type VertexBufferDescriptor struct {
	Label       string
	VertexCount int
	BufferCount int
	Attributes  []AttributeDesc
}

// VertexBuffer holds the vertex data of a mesh, split across BufferCount byte buffers.
type VertexBuffer interface {
	resource.Resource

	Label() string
	VertexCount() int
	BufferCount() int

	// Attributes returns the attribute layout in declaration order.
	Attributes() []AttributeDesc

	// Has reports whether the layout declares an attribute.
	Has(a Attribute) bool

	// BufferStride returns the vertex stride of one byte buffer.
	BufferStride(index int) uint32

	// SetBufferAt replaces the contents of one byte buffer.
	//
	// Parameters:
	//   - index: buffer slot
	//   - data: at least VertexCount * BufferStride(index) bytes
	//
	// Returns:
	//   - error: if the slot is out of range or data is too short
	SetBufferAt(index int, data []byte) error

	// Buffer returns the contents of one byte buffer and whether it was set.
	Buffer(index int) ([]byte, bool)

	// Complete reports whether every byte buffer was set.
	Complete() bool

	// Version increments on every SetBufferAt.
	Version() uint64

	// LayoutKey identifies the attribute layout. Buffers with equal keys can share a pipeline.
	LayoutKey() string
}

type vertexBufferImpl struct {
	mu      *sync.Mutex
	handle  resource.Handle
	desc    VertexBufferDescriptor
	strides []uint32
	buffers [][]byte
	version uint64
	key     string
}

var _ VertexBuffer = &vertexBufferImpl{}

// NewVertexBuffer validates a layout and creates an empty vertex buffer.
//
// Parameters:
//   - handle: the registry handle issued for this buffer
//   - desc: the buffer shape
//
// Returns:
//   - VertexBuffer: the new buffer
//   - error: if the layout is inconsistent
func NewVertexBuffer(handle resource.Handle, desc VertexBufferDescriptor) (VertexBuffer, error) {
	if desc.VertexCount <= 0 {
		return nil, fmt.Errorf("vertex buffer %q: vertex count must be positive", desc.Label)
	}
	if desc.BufferCount <= 0 {
		return nil, fmt.Errorf("vertex buffer %q: buffer count must be positive", desc.Label)
	}

	strides := make([]uint32, desc.BufferCount)
	seen := make(map[Attribute]bool, len(desc.Attributes))
	hasPosition := false
	for _, a := range desc.Attributes {
		if a.BufferIndex < 0 || a.BufferIndex >= desc.BufferCount {
			return nil, fmt.Errorf("vertex buffer %q: %s uses buffer %d of %d", desc.Label, a.Attribute, a.BufferIndex, desc.BufferCount)
		}
		if seen[a.Attribute] {
			return nil, fmt.Errorf("vertex buffer %q: %s declared twice", desc.Label, a.Attribute)
		}
		if a.Offset+a.Type.Size() > a.EffectiveStride() {
			return nil, fmt.Errorf("vertex buffer %q: %s does not fit its stride", desc.Label, a.Attribute)
		}
		if s := strides[a.BufferIndex]; s != 0 && s != a.EffectiveStride() {
			return nil, fmt.Errorf("vertex buffer %q: buffer %d has conflicting strides %d and %d", desc.Label, a.BufferIndex, s, a.EffectiveStride())
		}
		strides[a.BufferIndex] = a.EffectiveStride()
		seen[a.Attribute] = true
		hasPosition = hasPosition || a.Attribute == AttributePosition
	}
	if !hasPosition {
		return nil, fmt.Errorf("vertex buffer %q: missing %s attribute", desc.Label, AttributePosition)
	}
	for i, s := range strides {
		if s == 0 {
			return nil, fmt.Errorf("vertex buffer %q: buffer %d has no attributes", desc.Label, i)
		}
	}

	return &vertexBufferImpl{
		mu:      &sync.Mutex{},
		handle:  handle,
		desc:    desc,
		strides: strides,
		buffers: make([][]byte, desc.BufferCount),
		key:     layoutKey(desc.Attributes),
	}, nil
}

func layoutKey(attrs []AttributeDesc) string {
	sorted := append([]AttributeDesc(nil), attrs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Attribute < sorted[j].Attribute })
	parts := make([]string, len(sorted))
	for i, a := range sorted {
		parts[i] = fmt.Sprintf("%s:%d:%s:%t:%d:%d", a.Attribute, a.BufferIndex, a.Type, a.Normalized, a.Offset, a.EffectiveStride())
	}
	return strings.Join(parts, "|")
}

func (vb *vertexBufferImpl) Handle() resource.Handle { return vb.handle }
func (vb *vertexBufferImpl) Label() string           { return vb.desc.Label }
func (vb *vertexBufferImpl) VertexCount() int        { return vb.desc.VertexCount }
func (vb *vertexBufferImpl) BufferCount() int        { return vb.desc.BufferCount }
func (vb *vertexBufferImpl) LayoutKey() string       { return vb.key }

func (vb *vertexBufferImpl) Attributes() []AttributeDesc {
	return append([]AttributeDesc(nil), vb.desc.Attributes...)
}

func (vb *vertexBufferImpl) Has(a Attribute) bool {
	for _, d := range vb.desc.Attributes {
		if d.Attribute == a {
			return true
		}
	}
	return false
}

func (vb *vertexBufferImpl) BufferStride(index int) uint32 {
	if index < 0 || index >= len(vb.strides) {
		return 0
	}
	return vb.strides[index]
}

func (vb *vertexBufferImpl) SetBufferAt(index int, data []byte) error {
	if index < 0 || index >= vb.desc.BufferCount {
		return fmt.Errorf("vertex buffer %q: buffer %d out of range", vb.desc.Label, index)
	}
	need := int(vb.strides[index]) * vb.desc.VertexCount
	if len(data) < need {
		return fmt.Errorf("vertex buffer %q: buffer %d needs %d bytes, got %d", vb.desc.Label, index, need, len(data))
	}
	vb.mu.Lock()
	defer vb.mu.Unlock()
	vb.buffers[index] = append([]byte(nil), data[:need]...)
	vb.version++
	return nil
}

func (vb *vertexBufferImpl) Buffer(index int) ([]byte, bool) {
	if index < 0 || index >= vb.desc.BufferCount {
		return nil, false
	}
	vb.mu.Lock()
	defer vb.mu.Unlock()
	return vb.buffers[index], vb.buffers[index] != nil
}

func (vb *vertexBufferImpl) Complete() bool {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	for _, b := range vb.buffers {
		if b == nil {
			return false
		}
	}
	return true
}

func (vb *vertexBufferImpl) Version() uint64 {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	return vb.version
}
