// package input collects raw window events into a per-frame snapshot that controllers read from.
package input

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/window"
	"github.com/willf/bitset"
)

// State is a snapshot of the input devices.
// Held keys and buttons are levels; DeltaX, DeltaY and Scroll accumulate between two Poll calls.
type State struct {
	// X and Y are the last known cursor position in window pixels.
	X, Y int32
	// DeltaX and DeltaY are the cursor motion since the previous poll.
	DeltaX, DeltaY float32
	// Scroll is the accumulated wheel motion since the previous poll.
	Scroll float32

	keys    *bitset.BitSet
	buttons *bitset.BitSet
}

// KeyHeld reports whether the key is currently pressed.
func (s State) KeyHeld(keyCode uint32) bool {
	return s.keys != nil && s.keys.Test(uint(keyCode))
}

// ButtonHeld reports whether the mouse button is currently pressed.
func (s State) ButtonHeld(button int) bool {
	return s.buttons != nil && button >= 0 && s.buttons.Test(uint(button))
}

// Idle reports whether nothing is held and no motion is pending.
func (s State) Idle() bool {
	held := (s.keys != nil && s.keys.Count() > 0) || (s.buttons != nil && s.buttons.Count() > 0)
	return !held && s.DeltaX == 0 && s.DeltaY == 0 && s.Scroll == 0
}

// InputController owns the viewport and the raw input state of one window.
type InputController interface {
	// Viewport returns the current drawable rectangle.
	Viewport() common.Viewport

	// Poll returns the current state and resets the accumulated motion.
	//
	// Returns:
	//   - State: the snapshot, safe to keep after later events arrive
	Poll() State

	// State returns the current state without resetting anything.
	State() State

	// KeyDown records a key press.
	KeyDown(keyCode uint32)

	// KeyUp records a key release.
	KeyUp(keyCode uint32)

	// ButtonDown records a mouse button press at the given cursor position.
	ButtonDown(button int, x, y int32)

	// ButtonUp records a mouse button release at the given cursor position.
	ButtonUp(button int, x, y int32)

	// MouseMove records a cursor position, accumulating motion since the previous position.
	MouseMove(x, y int32)

	// Scroll accumulates wheel motion.
	Scroll(delta float32)

	// Resize updates the viewport to cover the whole surface.
	Resize(width, height int)

	// Bind installs this controller's handlers as the window's input callbacks and sizes the viewport to the window.
	// The resize callback is left alone so the engine can own it.
	//
	// Parameters:
	//   - w: the window to listen to
	Bind(w window.Window)
}

type inputControllerImpl struct {
	mu *sync.Mutex

	viewport common.Viewport

	keys    bitset.BitSet
	buttons bitset.BitSet

	x, y      int32
	hasCursor bool
	dx, dy    float32
	scroll    float32
}

var _ InputController = &inputControllerImpl{}

// NewInputController creates an InputController with a 1280x720 viewport unless configured otherwise.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - InputController: the new controller
func NewInputController(options ...InputControllerBuilderOption) InputController {
	ic := &inputControllerImpl{
		mu:       &sync.Mutex{},
		viewport: common.Viewport{Width: 1280, Height: 720},
	}
	for _, option := range options {
		option(ic)
	}
	return ic
}

func (ic *inputControllerImpl) Viewport() common.Viewport {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.viewport
}

func (ic *inputControllerImpl) Poll() State {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	s := ic.snapshot()
	ic.dx, ic.dy, ic.scroll = 0, 0, 0
	return s
}

func (ic *inputControllerImpl) State() State {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.snapshot()
}

func (ic *inputControllerImpl) snapshot() State {
	return State{
		X:       ic.x,
		Y:       ic.y,
		DeltaX:  ic.dx,
		DeltaY:  ic.dy,
		Scroll:  ic.scroll,
		keys:    ic.keys.Clone(),
		buttons: ic.buttons.Clone(),
	}
}

// KeyDown ignores codes past common.KeyLast, such as GLFW's unknown key.
func (ic *inputControllerImpl) KeyDown(keyCode uint32) {
	if keyCode > common.KeyLast {
		return
	}
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.keys.Set(uint(keyCode))
}

func (ic *inputControllerImpl) KeyUp(keyCode uint32) {
	if keyCode > common.KeyLast {
		return
	}
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.keys.Clear(uint(keyCode))
}

func (ic *inputControllerImpl) ButtonDown(button int, x, y int32) {
	if button < 0 {
		return
	}
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.buttons.Set(uint(button))
	ic.moveLocked(x, y)
}

func (ic *inputControllerImpl) ButtonUp(button int, x, y int32) {
	if button < 0 {
		return
	}
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.buttons.Clear(uint(button))
	ic.moveLocked(x, y)
}

func (ic *inputControllerImpl) MouseMove(x, y int32) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.moveLocked(x, y)
}

// moveLocked records a new cursor position. The first position ever seen produces no motion.
func (ic *inputControllerImpl) moveLocked(x, y int32) {
	if ic.hasCursor {
		ic.dx += float32(x - ic.x)
		ic.dy += float32(y - ic.y)
	}
	ic.x, ic.y = x, y
	ic.hasCursor = true
}

func (ic *inputControllerImpl) Scroll(delta float32) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.scroll += delta
}

func (ic *inputControllerImpl) Resize(width, height int) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.viewport = common.Viewport{Width: uint32(max(width, 0)), Height: uint32(max(height, 0))}
}

func (ic *inputControllerImpl) Bind(w window.Window) {
	if w == nil {
		panic("input: Bind requires a non-nil Window")
	}
	ic.Resize(w.Width(), w.Height())
	w.SetKeyDownCallback(ic.KeyDown)
	w.SetKeyUpCallback(ic.KeyUp)
	w.SetScrollCallback(ic.Scroll)
	w.SetMouseMoveCallback(ic.MouseMove)
	w.SetMouseButtonCallback(func(button int, pressed bool, x, y int32) {
		if pressed {
			ic.ButtonDown(button, x, y)
		} else {
			ic.ButtonUp(button, x, y)
		}
	})
}
