package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

var trianglePositions = [][3]float32{{-5, -5, 0}, {0, 5, 0}, {5, -5, 0}}

// triangleBuffer packs three positions followed by three uint16 indices, padded to four bytes.
func triangleBuffer() []byte {
	buf := make([]byte, 0, 44)
	for _, p := range trianglePositions {
		for _, c := range p {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
		}
	}
	for _, i := range []uint16{0, 1, 2} {
		buf = binary.LittleEndian.AppendUint16(buf, i)
	}
	return append(buf, 0, 0)
}

func triangleJSON(uri string, mode int) string {
	modeField := ""
	if mode >= 0 {
		modeField = fmt.Sprintf(`,"mode":%d`, mode)
	}
	uriField := ""
	if uri != "" {
		uriField = fmt.Sprintf(`"uri":%q,`, uri)
	}
	return fmt.Sprintf(`{
		"asset":{"version":"2.0"},
		"meshes":[{"name":"tri","primitives":[{"attributes":{"POSITION":0},"indices":1%s}]}],
		"accessors":[
			{"bufferView":0,"componentType":5126,"count":3,"type":"VEC3"},
			{"bufferView":1,"componentType":5123,"count":3,"type":"SCALAR"}
		],
		"bufferViews":[
			{"buffer":0,"byteOffset":0,"byteLength":36},
			{"buffer":0,"byteOffset":36,"byteLength":6}
		],
		"buffers":[{%s"byteLength":44}]
	}`, modeField, uriField)
}

func dataURI(b []byte) string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b)
}

func checkTriangle(t *testing.T, g mesh.Geometry) {
	t.Helper()
	if len(g.Positions) != 3 || len(g.Indices) != 3 {
		t.Fatalf("DecodeGeometry failed:\n%d positions, %d indices", len(g.Positions), len(g.Indices))
	}
	for i, p := range trianglePositions {
		if g.Positions[i] != mgl32.Vec3(p) {
			t.Fatalf("DecodeGeometry failed:\nposition %d: have %v, want %v", i, g.Positions[i], p)
		}
	}
	for i, idx := range g.Indices {
		if idx != uint32(i) {
			t.Fatalf("DecodeGeometry failed:\nindices %v", g.Indices)
		}
	}
	if g.IndexType != mesh.IndexTypeUShort {
		t.Fatalf("DecodeGeometry failed:\nindex type %v", g.IndexType)
	}
}

func TestDecodeGeometryEmbedded(t *testing.T) {
	g, err := DecodeGeometry(strings.NewReader(triangleJSON(dataURI(triangleBuffer()), -1)))
	if err != nil {
		t.Fatalf("DecodeGeometry failed:\n%v", err)
	}
	checkTriangle(t, g)
	if g.Label != "tri" {
		t.Fatalf("DecodeGeometry failed:\nlabel %q", g.Label)
	}
	if g.TangentFrame != (mgl32.Vec3{0, 0, 1}) {
		t.Fatalf("DecodeGeometry failed:\ntangent frame %v", g.TangentFrame)
	}
}

func TestDecodeGeometryGLB(t *testing.T) {
	js := []byte(triangleJSON("", 4))
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin := triangleBuffer()

	var glb bytes.Buffer
	binary.Write(&glb, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(12 + 8 + len(js) + 8 + len(bin))})
	binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(js)), ChunkType: gltfGLBChunkJSON})
	glb.Write(js)
	binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
	glb.Write(bin)

	g, err := DecodeGeometry(&glb, WithLabel("glb triangle"))
	if err != nil {
		t.Fatalf("DecodeGeometry failed:\n%v", err)
	}
	checkTriangle(t, g)
	if g.Label != "glb triangle" {
		t.Fatalf("DecodeGeometry failed:\nlabel %q", g.Label)
	}
}

func TestLoadGeometryExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tri.bin"), triangleBuffer(), 0o644); err != nil {
		t.Fatalf("WriteFile failed:\n%v", err)
	}
	path := filepath.Join(dir, "shape.gltf")
	if err := os.WriteFile(path, []byte(triangleJSON("tri.bin", -1)), 0o644); err != nil {
		t.Fatalf("WriteFile failed:\n%v", err)
	}

	g, err := LoadGeometry(path)
	if err != nil {
		t.Fatalf("LoadGeometry failed:\n%v", err)
	}
	checkTriangle(t, g)
	if g.Label != "shape" {
		t.Fatalf("LoadGeometry failed:\nlabel %q", g.Label)
	}
}

func TestDecodeGeometryErrors(t *testing.T) {
	uri := dataURI(triangleBuffer())
	if _, err := DecodeGeometry(strings.NewReader(triangleJSON(uri, 1))); !errors.Is(err, ErrUnsupportedTopology) {
		t.Fatalf("DecodeGeometry failed:\nlines: have %v", err)
	}
	if _, err := DecodeGeometry(strings.NewReader(triangleJSON(uri, -1)), WithMesh(1)); err == nil {
		t.Fatalf("DecodeGeometry failed:\nmissing mesh accepted")
	}
	if _, err := DecodeGeometry(strings.NewReader(triangleJSON(uri, -1)), WithPrimitive(2)); err == nil {
		t.Fatalf("DecodeGeometry failed:\nmissing primitive accepted")
	}
	if _, err := DecodeGeometry(strings.NewReader(triangleJSON(dataURI(triangleBuffer()[:20]), -1))); !errors.Is(err, errBufferSizeMismatch) {
		t.Fatalf("DecodeGeometry failed:\nshort buffer: have %v", err)
	}
	if _, err := DecodeGeometry(strings.NewReader(`{"asset":{"version":"1.0"}}`)); !errors.Is(err, errInvalidGLTFVersion) {
		t.Fatalf("DecodeGeometry failed:\nversion: have %v", err)
	}
}

func TestDecodeGeometryRejectsNegativeLayout(t *testing.T) {
	doc := triangleJSON(dataURI(triangleBuffer()), -1)
	cases := map[string][2]string{
		"count":           {`"count":3,"type":"VEC3"`, `"count":-1,"type":"VEC3"`},
		"huge count":      {`"count":3,"type":"VEC3"`, `"count":9000000000000000000,"type":"VEC3"`},
		"accessor offset": {`{"bufferView":0,"componentType":5126`, `{"bufferView":0,"byteOffset":-8,"componentType":5126`},
		"view offset":     {`"byteOffset":0,"byteLength":36`, `"byteOffset":-8,"byteLength":36`},
		"view length":     {`"byteOffset":0,"byteLength":36`, `"byteOffset":0,"byteLength":-36`},
		"view stride":     {`"byteOffset":0,"byteLength":36`, `"byteOffset":0,"byteLength":36,"byteStride":-12`},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			malformed := strings.Replace(doc, c[0], c[1], 1)
			if malformed == doc {
				t.Fatalf("DecodeGeometry failed:\n%q not found in the document", c[0])
			}
			if _, err := DecodeGeometry(strings.NewReader(malformed)); !errors.Is(err, errBufferSizeMismatch) {
				t.Fatalf("DecodeGeometry failed:\nhave %v, want errBufferSizeMismatch", err)
			}
		})
	}
}

func TestDecodeGeometryRejectsOversizedChunk(t *testing.T) {
	var glb bytes.Buffer
	binary.Write(&glb, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: 20})
	binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: math.MaxUint32, ChunkType: gltfGLBChunkJSON})

	if _, err := DecodeGeometry(&glb); !errors.Is(err, errBufferSizeMismatch) {
		t.Fatalf("DecodeGeometry failed:\nhave %v, want errBufferSizeMismatch", err)
	}
}

func TestIndexTypeFor(t *testing.T) {
	if indexTypeFor(65536) != mesh.IndexTypeUShort || indexTypeFor(65537) != mesh.IndexTypeUInt {
		t.Fatalf("indexTypeFor failed:\nwrong threshold")
	}
}
