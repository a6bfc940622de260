package gpu

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestRecorderLifetime(t *testing.T) {
	r := NewRecorder()
	buf, err := r.CreateBuffer(BufferDescriptor{Label: "ubo", Size: 16, Usage: wgpu.BufferUsageUniform})
	if err != nil {
		t.Fatalf("CreateBuffer failed:\n%v", err)
	}
	if err := r.WriteBuffer(buf, 0, make([]byte, 16)); err != nil {
		t.Fatalf("WriteBuffer failed:\n%v", err)
	}
	if err := r.WriteBuffer(buf, 8, make([]byte, 16)); err == nil {
		t.Fatalf("WriteBuffer overflow:\nwant error")
	}
	tex, err := r.CreateTexture(TextureDescriptor{Label: "env", Width: 4, Height: 4, Levels: 3, Cube: true})
	if err != nil {
		t.Fatalf("CreateTexture failed:\n%v", err)
	}
	if err := r.WriteTexture(tex, 2, 5, []byte{0}); err != nil {
		t.Fatalf("WriteTexture failed:\n%v", err)
	}
	if err := r.WriteTexture(tex, 3, 0, []byte{0}); err == nil {
		t.Fatalf("WriteTexture level 3:\nwant error")
	}
	if n := r.Live(); n != 2 {
		t.Fatalf("Live:\nhave %d\nwant 2", n)
	}
	if err := r.Destroy(buf); err != nil {
		t.Fatalf("Destroy failed:\n%v", err)
	}
	if err := r.Destroy(buf); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("Destroy twice:\nhave %v\nwant %v", err, ErrUnknownHandle)
	}
	if n := r.LiveByKind(ObjectTexture); n != 1 {
		t.Fatalf("LiveByKind:\nhave %d\nwant 1", n)
	}
}

func TestRecorderFrames(t *testing.T) {
	r := NewRecorder()
	p, err := r.CreateRenderPipeline(RenderPipelineDescriptor{Label: "p", Source: "src", VertexEntry: "vs", FragmentEntry: "fs"})
	if err != nil {
		t.Fatalf("CreateRenderPipeline failed:\n%v", err)
	}
	if err := r.Draw(DrawCommand{Pipeline: p, Count: 3}); err == nil {
		t.Fatalf("Draw outside frame:\nwant error")
	}

	r.FailNextBegin(1)
	if err := r.BeginFrame(wgpu.Color{}); !errors.Is(err, ErrSurfaceUnavailable) {
		t.Fatalf("BeginFrame:\nhave %v\nwant %v", err, ErrSurfaceUnavailable)
	}
	clearColor := wgpu.Color{R: 0.1, G: 0.125, B: 0.25, A: 1}
	if err := r.BeginFrame(clearColor); err != nil {
		t.Fatalf("BeginFrame failed:\n%v", err)
	}
	if err := r.Draw(DrawCommand{Pipeline: p, Count: 3, InstanceCount: 1}); err != nil {
		t.Fatalf("Draw failed:\n%v", err)
	}
	if err := r.Draw(DrawCommand{Pipeline: Handle(99)}); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("Draw unknown pipeline:\nhave %v\nwant %v", err, ErrUnknownHandle)
	}
	if err := r.EndFrame(); err != nil {
		t.Fatalf("EndFrame failed:\n%v", err)
	}

	frames := r.Frames()
	if len(frames) != 1 || len(frames[0].Draws) != 1 || frames[0].Clear != clearColor {
		t.Fatalf("Frames:\nhave %+v", frames)
	}
}

func TestRecorderBindGroupValidation(t *testing.T) {
	r := NewRecorder()
	layout := wgpu.BindGroupLayoutDescriptor{Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0}}}
	if _, err := r.CreateBindGroup(BindGroupDescriptor{Layout: layout}); err == nil {
		t.Fatalf("CreateBindGroup with missing entry:\nwant error")
	}
	s, _ := r.CreateSampler(SamplerDescriptor{Label: "s"})
	if _, err := r.CreateBindGroup(BindGroupDescriptor{Layout: layout, Entries: []BindGroupEntry{{Binding: 0, Buffer: s}}}); err == nil {
		t.Fatalf("CreateBindGroup with sampler as buffer:\nwant error")
	}
	bg, err := r.CreateBindGroup(BindGroupDescriptor{Layout: layout, Entries: []BindGroupEntry{{Binding: 0, Sampler: s}}})
	if err != nil {
		t.Fatalf("CreateBindGroup failed:\n%v", err)
	}
	if _, ok := r.BindGroup(bg); !ok {
		t.Fatalf("BindGroup:\nwant recorded descriptor")
	}
}
