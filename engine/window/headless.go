package window

import "github.com/cogentcore/webgpu/wgpu"

// Headless is a Window without a platform surface. Its message loop runs a fixed number of iterations,
// which drives engine loops off-screen and in tests. Input is injected through the Emit* methods.
type Headless struct {
	width, height int
	frames        int
	running       bool

	onUpdate      func()
	onResize      func(width, height int)
	onScroll      func(delta float32)
	onKeyDown     func(keyCode uint32)
	onKeyUp       func(keyCode uint32)
	onMouseButton func(button int, pressed bool, x, y int32)
	onMouseMove   func(x, y int32)
}

var _ Window = &Headless{}

// NewHeadless creates a headless window of the given size whose message loop stops after frames iterations.
func NewHeadless(width, height, frames int) *Headless {
	return &Headless{width: width, height: height, frames: frames, running: true}
}

func (h *Headless) SetUpdateCallback(callback func())                  { h.onUpdate = callback }
func (h *Headless) SetResizeCallback(callback func(width, height int)) { h.onResize = callback }
func (h *Headless) SetScrollCallback(callback func(delta float32))     { h.onScroll = callback }
func (h *Headless) SetKeyDownCallback(callback func(keyCode uint32))   { h.onKeyDown = callback }
func (h *Headless) SetKeyUpCallback(callback func(keyCode uint32))     { h.onKeyUp = callback }
func (h *Headless) SetMouseMoveCallback(callback func(x, y int32))     { h.onMouseMove = callback }

func (h *Headless) SetMouseButtonCallback(callback func(button int, pressed bool, x, y int32)) {
	h.onMouseButton = callback
}

// SurfaceDescriptor always returns nil.
func (h *Headless) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }

func (h *Headless) IsRunning() bool { return h.running }

func (h *Headless) Close() error {
	h.running = false
	return nil
}

func (h *Headless) ProcessMessages() {
	for i := 0; i < h.frames && h.running; i++ {
		if h.onUpdate != nil {
			h.onUpdate()
		}
	}
	h.running = false
}

func (h *Headless) Width() int  { return h.width }
func (h *Headless) Height() int { return h.height }

// EmitResize resizes the window and notifies the resize callback.
func (h *Headless) EmitResize(width, height int) {
	h.width, h.height = width, height
	if h.onResize != nil {
		h.onResize(width, height)
	}
}

// EmitKey delivers a key press or release.
func (h *Headless) EmitKey(keyCode uint32, pressed bool) {
	if pressed && h.onKeyDown != nil {
		h.onKeyDown(keyCode)
	} else if !pressed && h.onKeyUp != nil {
		h.onKeyUp(keyCode)
	}
}

// EmitMouseButton delivers a mouse button press or release.
func (h *Headless) EmitMouseButton(button int, pressed bool, x, y int32) {
	if h.onMouseButton != nil {
		h.onMouseButton(button, pressed, x, y)
	}
}

// EmitMouseMove delivers a cursor position.
func (h *Headless) EmitMouseMove(x, y int32) {
	if h.onMouseMove != nil {
		h.onMouseMove(x, y)
	}
}

// EmitScroll delivers wheel motion.
func (h *Headless) EmitScroll(delta float32) {
	if h.onScroll != nil {
		h.onScroll(delta)
	}
}
