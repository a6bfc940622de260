package material

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"slices"
	"text/template"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/jobs"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/mesh"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
)

// ErrBadPackage is returned when material package bytes cannot be decoded.
var ErrBadPackage = errors.New("material: bad package")

const (
	packageMagic   = "OXYM"
	packageVersion = uint16(1)
)

//go:embed assets/surface.wgsl.tmpl
var surfaceTemplateSource string

var surfaceTemplate = template.Must(template.New("surface").Parse(surfaceTemplateSource))

// Variant selects optional shader features. The renderer picks the variant matching the scene.
type Variant uint8

const (
	// VariantDirectional evaluates the scene's punctual lights on top of image based lighting.
	VariantDirectional Variant = 1 << iota
)

func (v Variant) String() string {
	if v&VariantDirectional != 0 {
		return "directional"
	}
	return "base"
}

// Package is a compiled material in its persisted binary form.
type Package []byte

// Program is a decoded Package.
type Program struct {
	Name        string
	Shading     Shading
	DoubleSided bool
	Parameters  []Parameter
	Required    []mesh.Attribute
	Sources     map[Variant]string
}

// Layout returns the uniform layout of the program's parameters.
func (p Program) Layout() ParamsLayout {
	return NewParamsLayout(p.Parameters)
}

// Variants returns the compiled variants in ascending order.
func (p Program) Variants() []Variant {
	out := make([]Variant, 0, len(p.Sources))
	for v := range p.Sources {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

type surfaceData struct {
	BaseColor   string
	Metallic    string
	Roughness   string
	Reflectance string
	Lit         bool
	Directional bool
	Tangents    bool
}

// Compile generates and checks the WGSL of every variant of a definition and packs the result.
// Variants compile concurrently on js; a nil js compiles them on the calling goroutine.
//
// Parameters:
//   - def: the material definition
//   - js: the job system to compile variants on
//
// Returns:
//   - Package: the compiled package
//   - error: if the definition is invalid or a variant fails to pre-process
func Compile(def Definition, js jobs.JobSystem) (Package, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	variants := []Variant{0}
	if def.Shading == ShadingLit {
		variants = append(variants, VariantDirectional)
	}

	layout := NewParamsLayout(def.Parameters)
	sources := make([]string, len(variants))
	compile := func(i int) error {
		src, err := generate(def, layout, variants[i])
		if err != nil {
			return err
		}
		if _, err := shader.NewShader(def.Name+"/"+variants[i].String(), src, newPreProcessor(layout)); err != nil {
			return err
		}
		sources[i] = src
		return nil
	}

	var err error
	if js == nil {
		for i := range variants {
			if err = compile(i); err != nil {
				break
			}
		}
	} else {
		err = js.Parallel(len(variants), compile)
	}
	if err != nil {
		return nil, fmt.Errorf("material %s: compile: %w", def.Name, err)
	}

	prog := Program{
		Name:        def.Name,
		Shading:     def.Shading,
		DoubleSided: def.DoubleSided,
		Parameters:  def.Parameters,
		Required:    def.Required,
		Sources:     make(map[Variant]string, len(variants)),
	}
	for i, v := range variants {
		prog.Sources[v] = sources[i]
	}
	return encode(prog), nil
}

func generate(def Definition, layout ParamsLayout, v Variant) (string, error) {
	data := surfaceData{
		BaseColor:   paramExpr(layout, "baseColor", 3, "vec3<f32>(1.0)"),
		Metallic:    paramExpr(layout, "metallic", 1, "0.0"),
		Roughness:   paramExpr(layout, "roughness", 1, "1.0"),
		Reflectance: paramExpr(layout, "reflectance", 1, "0.5"),
		Lit:         def.Shading == ShadingLit,
		Directional: v&VariantDirectional != 0,
		Tangents:    slices.Contains(def.Required, mesh.AttributeTangents),
	}
	var buf bytes.Buffer
	if err := surfaceTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// paramExpr returns the WGSL expression reading a surface input from a parameter with at least
// the wanted number of components, or fallback when there is none.
func paramExpr(layout ParamsLayout, name string, components int, fallback string) string {
	p, ok := layout.Find(name)
	if !ok || p.Type.Components() < components {
		return fallback
	}
	switch {
	case components == 1 && p.Type.Components() > 1:
		return "material." + name + ".x"
	case components == 3 && p.Type.Components() == 4:
		return "material." + name + ".rgb"
	}
	return "material." + name
}

func newPreProcessor(layout ParamsLayout) shader.PreProcessor {
	pp := shader.NewPreProcessor()
	pp.Register(shader.AnnotationArgMaterialParams, layout.Source(), "MaterialParams")
	return pp
}

func encode(p Program) Package {
	var body bytes.Buffer
	w := func(v any) { _ = binary.Write(&body, binary.LittleEndian, v) }
	str := func(s string) {
		w(uint32(len(s)))
		body.WriteString(s)
	}

	w(packageVersion)
	str(p.Name)
	w(uint8(p.Shading))
	w(p.DoubleSided)
	w(uint16(len(p.Parameters)))
	for _, param := range p.Parameters {
		str(param.Name)
		w(uint8(param.Type))
	}
	w(uint8(len(p.Required)))
	for _, a := range p.Required {
		w(uint8(a))
	}
	variants := p.Variants()
	w(uint8(len(variants)))
	for _, v := range variants {
		w(uint8(v))
		str(p.Sources[v])
	}

	out := make([]byte, 0, len(packageMagic)+body.Len()+4)
	out = append(out, packageMagic...)
	out = append(out, body.Bytes()...)
	return binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(body.Bytes()))
}

// Parse decodes package bytes.
//
// Parameters:
//   - pkg: bytes produced by Compile
//
// Returns:
//   - Program: the decoded program
//   - error: wrapping ErrBadPackage if the bytes are truncated, corrupt or from another version
func Parse(pkg Package) (Program, error) {
	if len(pkg) < len(packageMagic)+6 || string(pkg[:len(packageMagic)]) != packageMagic {
		return Program{}, fmt.Errorf("%w: missing header", ErrBadPackage)
	}
	body := pkg[len(packageMagic) : len(pkg)-4]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(pkg[len(pkg)-4:]) {
		return Program{}, fmt.Errorf("%w: checksum mismatch", ErrBadPackage)
	}

	r := bytes.NewReader(body)
	var err error
	read := func(v any) {
		if err == nil {
			err = binary.Read(r, binary.LittleEndian, v)
		}
	}
	str := func() string {
		var n uint32
		read(&n)
		if err != nil {
			return ""
		}
		if int64(n) > int64(r.Len()) {
			err = io.ErrUnexpectedEOF
			return ""
		}
		b := make([]byte, n)
		_, err = io.ReadFull(r, b)
		return string(b)
	}

	var version uint16
	read(&version)
	if err == nil && version != packageVersion {
		return Program{}, fmt.Errorf("%w: version %d", ErrBadPackage, version)
	}

	var p Program
	var shading, count8 uint8
	var count16 uint16
	p.Name = str()
	read(&shading)
	p.Shading = Shading(shading)
	read(&p.DoubleSided)
	read(&count16)
	for i := 0; err == nil && i < int(count16); i++ {
		name := str()
		var t uint8
		read(&t)
		p.Parameters = append(p.Parameters, Parameter{Name: name, Type: ParamType(t)})
	}
	read(&count8)
	for i := 0; err == nil && i < int(count8); i++ {
		var a uint8
		read(&a)
		p.Required = append(p.Required, mesh.Attribute(a))
	}
	read(&count8)
	p.Sources = make(map[Variant]string, count8)
	for i := 0; err == nil && i < int(count8); i++ {
		var v uint8
		read(&v)
		p.Sources[Variant(v)] = str()
	}
	if err != nil {
		return Program{}, fmt.Errorf("%w: %v", ErrBadPackage, err)
	}
	if len(p.Sources) == 0 {
		return Program{}, fmt.Errorf("%w: no variants", ErrBadPackage)
	}
	if _, ok := p.Sources[0]; !ok {
		return Program{}, fmt.Errorf("%w: missing base variant", ErrBadPackage)
	}
	def := Definition{Name: p.Name, Shading: p.Shading, Parameters: p.Parameters}
	if verr := def.Validate(); verr != nil {
		return Program{}, fmt.Errorf("%w: %v", ErrBadPackage, verr)
	}
	return p, nil
}
