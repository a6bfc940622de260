package material

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

type materialInstance struct {
	mu       *sync.Mutex
	handle   resource.Handle
	material *material
	values   map[string][]float32
	version  uint64
}

// MaterialInstance holds the parameter values one renderable draws with.
type MaterialInstance interface {
	resource.Resource

	// Material returns the material the instance was created from.
	Material() Material

	// SetParameter overrides a parameter value.
	//
	// Parameters:
	//   - name: the parameter name
	//   - values: exactly as many floats as the parameter has components
	//
	// Returns:
	//   - error: if the parameter does not exist or the value count is wrong
	SetParameter(name string, values ...float32) error

	// SetRGB overrides a color parameter, converting sRGB input to linear.
	SetRGB(name string, t RGBType, c mgl32.Vec3) error

	// Parameter returns a copy of a parameter value.
	Parameter(name string) ([]float32, bool)

	// Uniform returns the MaterialParams uniform bytes.
	Uniform() []byte

	// Version increments on every successful Set call, starting at 1.
	Version() uint64
}

var _ MaterialInstance = &materialInstance{}

func (mi *materialInstance) Handle() resource.Handle { return mi.handle }
func (mi *materialInstance) Material() Material      { return mi.material }

func (mi *materialInstance) SetParameter(name string, values ...float32) error {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if err := setValue(mi.material.layout, mi.values, mi.material.program.Name, name, values); err != nil {
		return err
	}
	mi.version++
	return nil
}

func (mi *materialInstance) SetRGB(name string, t RGBType, c mgl32.Vec3) error {
	return mi.SetParameter(name, rgbValues(mi.material.layout, name, t, c)...)
}

func (mi *materialInstance) Parameter(name string) ([]float32, bool) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	v, ok := mi.values[name]
	return append([]float32(nil), v...), ok
}

func (mi *materialInstance) Uniform() []byte {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.material.layout.Marshal(mi.values)
}

func (mi *materialInstance) Version() uint64 {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.version
}
