package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
)

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer attaches an owned buffer to a role.
//
// Parameters:
//   - role: the struct type key shaders bind the buffer as
//   - buf: the buffer to associate with this role
//
// Returns:
//   - BindGroupProviderOption: a function that attaches the buffer
func WithBuffer(role shader.AnnotationArg, buf gpu.Handle) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindings[role] = binding{kind: gpu.ObjectBuffer, handle: buf, owned: true}
	}
}

// WithSampler attaches a borrowed sampler to a role.
//
// Parameters:
//   - role: the binding role shaders bind the sampler as
//   - s: the sampler, owned by the caller
//
// Returns:
//   - BindGroupProviderOption: a function that attaches the sampler
func WithSampler(role shader.AnnotationArg, s gpu.Handle) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindings[role] = binding{kind: gpu.ObjectSampler, handle: s}
	}
}

// WithTexture attaches a borrowed texture to a role.
//
// Parameters:
//   - role: the binding role shaders bind the texture as
//   - tex: the texture, owned by the caller
//
// Returns:
//   - BindGroupProviderOption: a function that attaches the texture
func WithTexture(role shader.AnnotationArg, tex gpu.Handle) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindings[role] = binding{kind: gpu.ObjectTexture, handle: tex}
	}
}
