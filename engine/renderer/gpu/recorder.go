package gpu

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Frame is one frame captured by a Recorder.
type Frame struct {
	Clear wgpu.Color
	Draws []DrawCommand
}

type recordedObject struct {
	kind   ObjectKind
	label  string
	size   uint64
	levels uint32
	layers uint32
}

// Recorder is a Backend that keeps every object and frame in memory instead of talking to a GPU.
// It backs headless runs and lets tests assert on submissions and leaks.
type Recorder struct {
	mu *sync.Mutex

	next      Handle
	objects   map[Handle]recordedObject
	pipelines map[Handle]RenderPipelineDescriptor
	bindings  map[Handle]BindGroupDescriptor
	writes    map[Handle]int

	frames  []Frame
	current *Frame
	width   int
	height  int

	failBegin int
	released  bool
}

var _ Backend = &Recorder{}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		mu:        &sync.Mutex{},
		objects:   make(map[Handle]recordedObject),
		pipelines: make(map[Handle]RenderPipelineDescriptor),
		bindings:  make(map[Handle]BindGroupDescriptor),
		writes:    make(map[Handle]int),
	}
}

func (r *Recorder) issue(kind ObjectKind, label string, size uint64) Handle {
	r.next++
	r.objects[r.next] = recordedObject{kind: kind, label: label, size: size}
	return r.next
}

func (r *Recorder) lookup(h Handle, kind ObjectKind) (recordedObject, error) {
	obj, ok := r.objects[h]
	if !ok {
		return recordedObject{}, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	if obj.kind != kind {
		return recordedObject{}, fmt.Errorf("gpu: handle %d is a %s, not a %s", h, obj.kind, kind)
	}
	return obj, nil
}

func (r *Recorder) CreateBuffer(desc BufferDescriptor) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desc.Size == 0 {
		return 0, fmt.Errorf("gpu: buffer %q has zero size", desc.Label)
	}
	return r.issue(ObjectBuffer, desc.Label, desc.Size), nil
}

func (r *Recorder) WriteBuffer(h Handle, offset uint64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, err := r.lookup(h, ObjectBuffer)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > obj.size {
		return fmt.Errorf("gpu: write of %d bytes at %d overflows buffer %q of %d bytes", len(data), offset, obj.label, obj.size)
	}
	r.writes[h]++
	return nil
}

func (r *Recorder) CreateTexture(desc TextureDescriptor) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("gpu: texture %q has zero extent", desc.Label)
	}
	h := r.issue(ObjectTexture, desc.Label, 0)
	obj := r.objects[h]
	obj.levels, obj.layers = max(desc.Levels, 1), desc.Layers()
	r.objects[h] = obj
	return h, nil
}

func (r *Recorder) WriteTexture(h Handle, level, layer uint32, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, err := r.lookup(h, ObjectTexture)
	if err != nil {
		return err
	}
	if level >= obj.levels || layer >= obj.layers {
		return fmt.Errorf("gpu: texture %q has no level %d layer %d", obj.label, level, layer)
	}
	if len(data) == 0 {
		return fmt.Errorf("gpu: empty write to texture %q", obj.label)
	}
	r.writes[h]++
	return nil
}

func (r *Recorder) CreateSampler(desc SamplerDescriptor) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.issue(ObjectSampler, desc.Label, 0), nil
}

func (r *Recorder) CreateBindGroup(desc BindGroupDescriptor) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(desc.Entries) != len(desc.Layout.Entries) {
		return 0, fmt.Errorf("gpu: bind group %q has %d entries, layout wants %d", desc.Label, len(desc.Entries), len(desc.Layout.Entries))
	}
	for _, e := range desc.Entries {
		var err error
		switch {
		case e.Buffer.Valid():
			_, err = r.lookup(e.Buffer, ObjectBuffer)
		case e.Texture.Valid():
			_, err = r.lookup(e.Texture, ObjectTexture)
		case e.Sampler.Valid():
			_, err = r.lookup(e.Sampler, ObjectSampler)
		default:
			err = fmt.Errorf("gpu: bind group %q binding %d is empty", desc.Label, e.Binding)
		}
		if err != nil {
			return 0, err
		}
	}
	h := r.issue(ObjectBindGroup, desc.Label, 0)
	r.bindings[h] = desc
	return h, nil
}

func (r *Recorder) CreateRenderPipeline(desc RenderPipelineDescriptor) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desc.Source == "" || desc.VertexEntry == "" || desc.FragmentEntry == "" {
		return 0, fmt.Errorf("gpu: pipeline %q needs a source with vertex and fragment entry points", desc.Label)
	}
	h := r.issue(ObjectRenderPipeline, desc.Label, 0)
	r.pipelines[h] = desc
	return h, nil
}

func (r *Recorder) Destroy(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.objects[h]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	delete(r.objects, h)
	delete(r.pipelines, h)
	delete(r.bindings, h)
	delete(r.writes, h)
	return nil
}

func (r *Recorder) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.objects)
}

func (r *Recorder) BeginFrame(clear wgpu.Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return errors.New("gpu: previous frame not ended")
	}
	if r.failBegin > 0 {
		r.failBegin--
		return ErrSurfaceUnavailable
	}
	r.current = &Frame{Clear: clear}
	return nil
}

func (r *Recorder) Draw(cmd DrawCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return errors.New("gpu: draw outside a frame")
	}
	if _, err := r.lookup(cmd.Pipeline, ObjectRenderPipeline); err != nil {
		return err
	}
	for _, bg := range cmd.BindGroups {
		if _, err := r.lookup(bg, ObjectBindGroup); err != nil {
			return err
		}
	}
	for _, vb := range cmd.VertexBuffers {
		if _, err := r.lookup(vb, ObjectBuffer); err != nil {
			return err
		}
	}
	if cmd.IndexBuffer.Valid() {
		if _, err := r.lookup(cmd.IndexBuffer, ObjectBuffer); err != nil {
			return err
		}
	}
	cmd.BindGroups = append([]Handle(nil), cmd.BindGroups...)
	cmd.VertexBuffers = append([]Handle(nil), cmd.VertexBuffers...)
	r.current.Draws = append(r.current.Draws, cmd)
	return nil
}

func (r *Recorder) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return errors.New("gpu: no frame to end")
	}
	r.frames = append(r.frames, *r.current)
	r.current = nil
	return nil
}

func (r *Recorder) Present() {}

func (r *Recorder) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.width, r.height = width, height
}

func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.objects)
	clear(r.pipelines)
	clear(r.bindings)
	clear(r.writes)
	r.released = true
}

// FailNextBegin makes the next n BeginFrame calls return ErrSurfaceUnavailable.
func (r *Recorder) FailNextBegin(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failBegin = n
}

// Frames returns every submitted frame in order.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Frame(nil), r.frames...)
}

// Pipeline returns the descriptor a live pipeline was created from.
func (r *Recorder) Pipeline(h Handle) (RenderPipelineDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.pipelines[h]
	return desc, ok
}

// BindGroup returns the descriptor a live bind group was created from.
func (r *Recorder) BindGroup(h Handle) (BindGroupDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc, ok := r.bindings[h]
	return desc, ok
}

// Writes returns how many times a live buffer or texture was written.
func (r *Recorder) Writes(h Handle) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writes[h]
}

// LiveByKind counts live objects of one kind.
func (r *Recorder) LiveByKind(kind ObjectKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, obj := range r.objects {
		if obj.kind == kind {
			n++
		}
	}
	return n
}

// Labels lists the labels of live objects, sorted, for leak reports.
func (r *Recorder) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.objects))
	for _, obj := range r.objects {
		out = append(out, obj.kind.String()+" "+obj.label)
	}
	sort.Strings(out)
	return out
}

// Size returns the last size passed to Resize.
func (r *Recorder) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.width, r.height
}

// Released reports whether Release was called.
func (r *Recorder) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.released
}
