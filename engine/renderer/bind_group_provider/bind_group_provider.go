package bind_group_provider

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
)

// binding is one GPU object attached to a role.
type binding struct {
	kind   gpu.ObjectKind
	handle gpu.Handle
	owned  bool
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	// label is a debug label added for convenience.
	label string

	// bindings holds the GPU objects of this provider keyed by the role shaders declare them with.
	bindings map[shader.AnnotationArg]binding

	// bindGroups caches one bind group per layout key so every pipeline with a compatible layout shares it.
	bindGroups map[string]gpu.Handle
}

// BindGroupProvider owns the GPU objects behind one bind group source (the frame, a material instance,
// a renderable, an environment) and builds bind groups for whatever shader asks for them.
//
// Usage pattern:
//  1. The renderer creates a provider per source and attaches buffers, textures and samplers by role
//  2. A draw asks the provider for the bind group matching a shader group; it is created on first use
//  3. Uniform data is written through the provider's buffers
//  4. Release destroys the bind groups and every owned object
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// SetBuffer attaches a buffer to a role.
	//
	// Parameters:
	//   - role: the struct type key shaders bind the buffer as
	//   - h: the buffer
	//   - owned: whether Release destroys the buffer
	SetBuffer(role shader.AnnotationArg, h gpu.Handle, owned bool)

	// SetTexture attaches a texture to a role.
	SetTexture(role shader.AnnotationArg, h gpu.Handle, owned bool)

	// SetSampler attaches a sampler to a role.
	SetSampler(role shader.AnnotationArg, h gpu.Handle, owned bool)

	// Buffer returns the buffer attached to a role, or the zero handle.
	Buffer(role shader.AnnotationArg) gpu.Handle

	// Has reports whether anything is attached to a role.
	Has(role shader.AnnotationArg) bool

	// BindGroup returns the bind group serving one group of a shader, creating it on first use.
	// Every binding of the group must be declared with a role attached to this provider.
	//
	// Parameters:
	//   - b: the backend to create the bind group on
	//   - s: the shader declaring the group
	//   - group: the group index
	//
	// Returns:
	//   - gpu.Handle: the bind group
	//   - error: if a binding has no role or the role has nothing attached
	BindGroup(b gpu.Backend, s shader.Shader, group int) (gpu.Handle, error)

	// Invalidate destroys the cached bind groups, for instance after an attached object was replaced.
	Invalidate(b gpu.Backend) error

	// Release destroys the bind groups and every owned object.
	// It will clean up all buffers and bind groups and leave the provider empty.
	Release(b gpu.Backend) error
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: a debug label used for the GPU objects the provider creates
//   - options: functional options to configure the provider
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		mu:         &sync.Mutex{},
		label:      label,
		bindings:   make(map[shader.AnnotationArg]binding),
		bindGroups: make(map[string]gpu.Handle),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) set(role shader.AnnotationArg, kind gpu.ObjectKind, h gpu.Handle, owned bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindings[role] = binding{kind: kind, handle: h, owned: owned}
}

func (p *bindGroupProvider) SetBuffer(role shader.AnnotationArg, h gpu.Handle, owned bool) {
	p.set(role, gpu.ObjectBuffer, h, owned)
}

func (p *bindGroupProvider) SetTexture(role shader.AnnotationArg, h gpu.Handle, owned bool) {
	p.set(role, gpu.ObjectTexture, h, owned)
}

func (p *bindGroupProvider) SetSampler(role shader.AnnotationArg, h gpu.Handle, owned bool) {
	p.set(role, gpu.ObjectSampler, h, owned)
}

func (p *bindGroupProvider) Buffer(role shader.AnnotationArg) gpu.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.bindings[role]; ok && b.kind == gpu.ObjectBuffer {
		return b.handle
	}
	return 0
}

func (p *bindGroupProvider) Has(role shader.AnnotationArg) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.bindings[role]
	return ok
}

// roleAt returns the role declared for one binding of a shader.
func roleAt(s shader.Shader, group, bindingIndex int) (shader.AnnotationArg, bool) {
	for _, d := range s.Declarations() {
		if d.Group != nil && d.Binding != nil && *d.Group == group && *d.Binding == bindingIndex {
			return d.Role(), true
		}
	}
	return "", false
}

func (p *bindGroupProvider) BindGroup(b gpu.Backend, s shader.Shader, group int) (gpu.Handle, error) {
	layouts := pipeline.BindGroupLayouts(s)
	if group < 0 || group >= len(layouts) {
		return 0, fmt.Errorf("bind group provider %q: shader %q has no group %d", p.label, s.Key(), group)
	}
	layout := layouts[group]
	key := pipeline.LayoutKey(layout)

	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.bindGroups[key]; ok {
		return h, nil
	}

	entries := make([]gpu.BindGroupEntry, len(layout.Entries))
	for i, e := range layout.Entries {
		role, ok := roleAt(s, group, int(e.Binding))
		if !ok {
			return 0, fmt.Errorf("bind group provider %q: shader %q declares no role for group %d binding %d", p.label, s.Key(), group, e.Binding)
		}
		bound, ok := p.bindings[role]
		if !ok {
			return 0, fmt.Errorf("bind group provider %q: nothing bound as %q", p.label, role)
		}
		entries[i] = gpu.BindGroupEntry{Binding: e.Binding}
		switch bound.kind {
		case gpu.ObjectBuffer:
			entries[i].Buffer = bound.handle
		case gpu.ObjectTexture:
			entries[i].Texture = bound.handle
		case gpu.ObjectSampler:
			entries[i].Sampler = bound.handle
		}
	}

	h, err := b.CreateBindGroup(gpu.BindGroupDescriptor{
		Label:   p.label + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return 0, fmt.Errorf("bind group provider %q: %w", p.label, err)
	}
	p.bindGroups[key] = h
	return h, nil
}

func (p *bindGroupProvider) Invalidate(b gpu.Backend) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.invalidateLocked(b)
}

func (p *bindGroupProvider) invalidateLocked(b gpu.Backend) error {
	var errs []error
	for key, h := range p.bindGroups {
		if err := b.Destroy(h); err != nil {
			errs = append(errs, err)
		}
		delete(p.bindGroups, key)
	}
	return errors.Join(errs...)
}

func (p *bindGroupProvider) Release(b gpu.Backend) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	errs := []error{p.invalidateLocked(b)}
	for role, bound := range p.bindings {
		if bound.owned {
			if err := b.Destroy(bound.handle); err != nil {
				errs = append(errs, err)
			}
		}
		delete(p.bindings, role)
	}
	return errors.Join(errs...)
}
