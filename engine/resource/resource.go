// package resource tracks the lifetime of engine-owned objects. Every object the engine hands out carries a Handle that is
// registered in a Registry until it is released, which lets hosts and tests verify that nothing leaked.
package resource

import "fmt"

// Kind identifies the category of an engine resource.
type Kind uint8

const (
	KindEntity Kind = iota
	KindCamera
	KindView
	KindScene
	KindVertexBuffer
	KindIndexBuffer
	KindTexture
	KindSkybox
	KindIndirectLight
	KindLight
	KindMaterial
	KindMaterialInstance
	KindRenderable
	kindCount
)

var kindNames = [kindCount]string{
	KindEntity:           "Entity",
	KindCamera:           "Camera",
	KindView:             "View",
	KindScene:            "Scene",
	KindVertexBuffer:     "VertexBuffer",
	KindIndexBuffer:      "IndexBuffer",
	KindTexture:          "Texture",
	KindSkybox:           "Skybox",
	KindIndirectLight:    "IndirectLight",
	KindLight:            "Light",
	KindMaterial:         "Material",
	KindMaterialInstance: "MaterialInstance",
	KindRenderable:       "Renderable",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Kinds returns every resource kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Handle names one live engine object. The zero Handle is never issued.
type Handle struct {
	Kind Kind
	ID   uint
}

// Valid reports whether the handle was issued by a registry.
func (h Handle) Valid() bool {
	return h.ID != 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d", h.Kind, h.ID)
}

// Resource is implemented by every object the engine creates and destroys.
type Resource interface {
	// Handle returns the registry handle of the resource.
	Handle() Handle
}
