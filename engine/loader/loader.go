// package loader imports triangle geometry from glTF 2.0 files (.gltf with external or embedded buffers, or .glb)
// into mesh.Geometry, ready for the sandbox to upload in place of its triangle.
package loader

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrUnsupportedTopology is returned for a primitive that is not a triangle list.
var ErrUnsupportedTopology = errors.New("loader: primitive is not a triangle list")

type geometryLoader struct {
	mesh         int
	primitive    int
	label        string
	tangentFrame mgl32.Vec3
}

func newGeometryLoader(options []LoaderBuilderOption) *geometryLoader {
	l := &geometryLoader{tangentFrame: mgl32.Vec3{0, 0, 1}}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// LoadGeometry reads one primitive of a glTF or GLB file.
//
// Parameters:
//   - path: the .gltf or .glb file
//   - options: functional options selecting the primitive and naming the result
//
// Returns:
//   - mesh.Geometry: validated positions and indices; the label defaults to the file name
//   - error: if the file can not be parsed or the primitive is missing or not a triangle list
func LoadGeometry(path string, options ...LoaderBuilderOption) (mesh.Geometry, error) {
	l := newGeometryLoader(options)
	if l.label == "" {
		l.label = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	p, err := parseFile(path)
	if err != nil {
		return mesh.Geometry{}, fmt.Errorf("loader: %s: %w", path, err)
	}
	return l.extract(p)
}

// DecodeGeometry reads one primitive of a glTF or GLB document from r.
// Buffers must be embedded, as a GLB binary chunk or base64 data URIs.
//
// Parameters:
//   - r: the document bytes
//   - options: functional options selecting the primitive and naming the result
//
// Returns:
//   - mesh.Geometry: validated positions and indices
//   - error: if the document can not be parsed or the primitive is missing or not a triangle list
func DecodeGeometry(r io.Reader, options ...LoaderBuilderOption) (mesh.Geometry, error) {
	l := newGeometryLoader(options)
	p, err := parseReader(r, "")
	if err != nil {
		return mesh.Geometry{}, fmt.Errorf("loader: %w", err)
	}
	return l.extract(p)
}

func (l *geometryLoader) extract(p *gltfParser) (mesh.Geometry, error) {
	doc := p.document
	if l.mesh < 0 || l.mesh >= len(doc.Meshes) {
		return mesh.Geometry{}, fmt.Errorf("loader: mesh %d out of range (%d meshes)", l.mesh, len(doc.Meshes))
	}
	m := doc.Meshes[l.mesh]
	if l.primitive < 0 || l.primitive >= len(m.Primitives) {
		return mesh.Geometry{}, fmt.Errorf("loader: mesh %d: primitive %d out of range (%d primitives)", l.mesh, l.primitive, len(m.Primitives))
	}
	prim := m.Primitives[l.primitive]
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return mesh.Geometry{}, fmt.Errorf("%w: mode %d", ErrUnsupportedTopology, *prim.Mode)
	}

	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return mesh.Geometry{}, fmt.Errorf("loader: mesh %d primitive %d has no POSITION attribute", l.mesh, l.primitive)
	}
	raw, err := p.readVec3(posIndex)
	if err != nil {
		return mesh.Geometry{}, fmt.Errorf("loader: positions: %w", err)
	}
	positions := make([]mgl32.Vec3, len(raw))
	for i, v := range raw {
		positions[i] = mgl32.Vec3(v)
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = p.readIndices(*prim.Indices); err != nil {
			return mesh.Geometry{}, fmt.Errorf("loader: indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	label := l.label
	if label == "" {
		label = m.Name
	}
	g := mesh.Geometry{
		Label:        label,
		Positions:    positions,
		Indices:      indices,
		TangentFrame: l.tangentFrame,
		IndexType:    indexTypeFor(len(positions)),
	}
	if err := g.Validate(); err != nil {
		return mesh.Geometry{}, fmt.Errorf("loader: %w", err)
	}
	log.Printf("[Loader] %q: %d vertices, %d triangles", g.Label, len(g.Positions), len(g.Indices)/3)
	return g, nil
}

// indexTypeFor picks 16 bit indices when every vertex is addressable with them.
func indexTypeFor(vertices int) mesh.IndexType {
	if vertices <= math.MaxUint16+1 {
		return mesh.IndexTypeUShort
	}
	return mesh.IndexTypeUInt
}
