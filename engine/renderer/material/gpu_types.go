package material

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// ParamType is the uniform type of a material parameter.
type ParamType uint8

const (
	ParamFloat ParamType = iota + 1
	ParamFloat2
	ParamFloat3
	ParamFloat4
)

// Components returns the number of float32 values, or 0 for an unknown type.
func (t ParamType) Components() int {
	if t < ParamFloat || t > ParamFloat4 {
		return 0
	}
	return int(t)
}

// wgsl returns the WGSL type name.
func (t ParamType) wgsl() string {
	return [...]string{"", "f32", "vec2<f32>", "vec3<f32>", "vec4<f32>"}[t]
}

// align returns the uniform address space alignment.
func (t ParamType) align() uint32 {
	return [...]uint32{0, 4, 8, 16, 16}[t]
}

// ParamInfo is a parameter with its byte offset inside the MaterialParams uniform.
type ParamInfo struct {
	Parameter
	Offset uint32
}

// ParamsLayout is the uniform layout of a material's parameters.
type ParamsLayout struct {
	Params []ParamInfo
	Size   uint32
}

// NewParamsLayout places parameters in declaration order using WGSL uniform alignment rules.
// A material without parameters still gets a 16 byte block so its bind group stays valid.
//
// Parameters:
//   - params: the declared parameters
//
// Returns:
//   - ParamsLayout: the computed layout
func NewParamsLayout(params []Parameter) ParamsLayout {
	layout := ParamsLayout{Params: make([]ParamInfo, 0, len(params))}
	offset := uint32(0)
	for _, p := range params {
		a := p.Type.align()
		offset = (offset + a - 1) &^ (a - 1)
		layout.Params = append(layout.Params, ParamInfo{Parameter: p, Offset: offset})
		offset += uint32(p.Type.Components()) * 4
	}
	layout.Size = max((offset+15)&^15, 16)
	return layout
}

// Find returns the layout entry for a parameter name.
func (l ParamsLayout) Find(name string) (ParamInfo, bool) {
	for _, p := range l.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamInfo{}, false
}

// Source returns the WGSL MaterialParams struct for the layout.
func (l ParamsLayout) Source() string {
	var sb strings.Builder
	sb.WriteString("struct MaterialParams {\n")
	for _, p := range l.Params {
		fmt.Fprintf(&sb, "    %s: %s,\n", p.Name, p.Type.wgsl())
	}
	if len(l.Params) == 0 {
		sb.WriteString("    _unused: vec4<f32>,\n")
	}
	sb.WriteString("};\n")
	return sb.String()
}

// Marshal packs parameter values into a uniform buffer. Missing values are left zero.
//
// Parameters:
//   - values: parameter values keyed by name, each with Components() floats
//
// Returns:
//   - []byte: Size bytes ready for GPU upload
func (l ParamsLayout) Marshal(values map[string][]float32) []byte {
	buf := make([]byte, l.Size)
	for _, p := range l.Params {
		for i, v := range values[p.Name] {
			if i >= p.Type.Components() {
				break
			}
			binary.LittleEndian.PutUint32(buf[p.Offset+uint32(i)*4:], math.Float32bits(v))
		}
	}
	return buf
}
