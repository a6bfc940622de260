package mesh

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
)

// IndexType is the storage format of indices.
type IndexType int

const (
	IndexTypeUShort IndexType = iota
	IndexTypeUInt
)

// Size returns the byte size of one index.
func (t IndexType) Size() int {
	if t == IndexTypeUShort {
		return 2
	}
	return 4
}

// IndexBuffer holds the indices of a mesh.
type IndexBuffer interface {
	resource.Resource

	Label() string
	IndexCount() int
	Type() IndexType

	// SetIndices stores indices, converting them to the buffer's index type.
	//
	// Parameters:
	//   - indices: exactly IndexCount values
	//
	// Returns:
	//   - error: if the count is wrong or a value does not fit the index type
	SetIndices(indices []uint32) error

	// Indices returns the stored indices widened to uint32, or nil before SetIndices.
	Indices() []uint32

	// Bytes returns the little-endian index data, or nil before SetIndices.
	Bytes() []byte

	// Version increments on every SetIndices.
	Version() uint64
}

type indexBufferImpl struct {
	mu        *sync.Mutex
	handle    resource.Handle
	label     string
	count     int
	indexType IndexType
	indices   []uint32
	version   uint64
}

var _ IndexBuffer = &indexBufferImpl{}

// NewIndexBuffer creates an empty index buffer.
//
// Parameters:
//   - handle: the registry handle issued for this buffer
//   - label: debug name
//   - count: number of indices
//   - indexType: storage format
//
// Returns:
//   - IndexBuffer: the new buffer
//   - error: if count is not positive
func NewIndexBuffer(handle resource.Handle, label string, count int, indexType IndexType) (IndexBuffer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("index buffer %q: index count must be positive", label)
	}
	return &indexBufferImpl{mu: &sync.Mutex{}, handle: handle, label: label, count: count, indexType: indexType}, nil
}

func (ib *indexBufferImpl) Handle() resource.Handle { return ib.handle }
func (ib *indexBufferImpl) Label() string           { return ib.label }
func (ib *indexBufferImpl) IndexCount() int         { return ib.count }
func (ib *indexBufferImpl) Type() IndexType         { return ib.indexType }

func (ib *indexBufferImpl) SetIndices(indices []uint32) error {
	if len(indices) != ib.count {
		return fmt.Errorf("index buffer %q: expected %d indices, got %d", ib.label, ib.count, len(indices))
	}
	if ib.indexType == IndexTypeUShort {
		for _, v := range indices {
			if v > 0xffff {
				return fmt.Errorf("index buffer %q: index %d does not fit 16 bits", ib.label, v)
			}
		}
	}
	ib.mu.Lock()
	defer ib.mu.Unlock()
	ib.indices = append([]uint32(nil), indices...)
	ib.version++
	return nil
}

func (ib *indexBufferImpl) Indices() []uint32 {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	return ib.indices
}

func (ib *indexBufferImpl) Bytes() []byte {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	if ib.indices == nil {
		return nil
	}
	size := ib.indexType.Size()
	// WebGPU buffer writes must be a multiple of 4 bytes.
	buf := make([]byte, (len(ib.indices)*size+3)&^3)
	for i, v := range ib.indices {
		if size == 2 {
			binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
		} else {
			binary.LittleEndian.PutUint32(buf[i*4:], v)
		}
	}
	return buf
}

func (ib *indexBufferImpl) Version() uint64 {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	return ib.version
}
