// Package input maps physical keys and pointer buttons to logical actions and hands the update
// phase a per-frame snapshot.
package input

import "sync"

// Action is a logical action, not a physical key.
type Action int

const (
	ActionMoveForward Action = iota
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionPause
	ActionToggleOverlay
	ActionQuit
	ActionPointerPrimary
	ActionPointerSecondary
	ActionCount
)

// Snapshot is the input state of one frame.
type Snapshot struct {
	held         [ActionCount]bool
	justPressed  [ActionCount]bool
	justReleased [ActionCount]bool

	PointerX, PointerY float64
	// PointerDX and PointerDY are the pointer movement since the previous frame.
	PointerDX, PointerDY float64
}

func valid(a Action) bool { return a >= 0 && a < ActionCount }

// Held reports whether a is currently held down.
func (s Snapshot) Held(a Action) bool { return valid(a) && s.held[a] }

// JustPressed reports whether a went down during this frame.
func (s Snapshot) JustPressed(a Action) bool { return valid(a) && s.justPressed[a] }

// JustReleased reports whether a went up during this frame.
func (s Snapshot) JustReleased(a Action) bool { return valid(a) && s.justReleased[a] }

// Router tracks key and button state. Platform events may arrive on any goroutine.
type Router struct {
	mu sync.RWMutex

	keyToActions    map[Key][]Action
	buttonToActions map[MouseButton][]Action

	state   Snapshot
	havePos bool
	lastX   float64
	lastY   float64
}

// NewRouter returns a router with the default bindings.
func NewRouter() *Router {
	r := &Router{
		keyToActions:    make(map[Key][]Action),
		buttonToActions: make(map[MouseButton][]Action),
	}

	r.BindKey(KeyW, ActionMoveForward)
	r.BindKey(KeyUp, ActionMoveForward)
	r.BindKey(KeyS, ActionMoveBackward)
	r.BindKey(KeyDown, ActionMoveBackward)
	r.BindKey(KeyA, ActionMoveLeft)
	r.BindKey(KeyLeft, ActionMoveLeft)
	r.BindKey(KeyD, ActionMoveRight)
	r.BindKey(KeyRight, ActionMoveRight)
	r.BindKey(KeySpace, ActionMoveUp)
	r.BindKey(KeyLeftShift, ActionMoveDown)
	r.BindKey(KeyP, ActionPause)
	r.BindKey(KeyF3, ActionToggleOverlay)
	r.BindKey(KeyEscape, ActionQuit)

	r.BindMouseButton(MouseButtonLeft, ActionPointerPrimary)
	r.BindMouseButton(MouseButtonRight, ActionPointerSecondary)
	return r
}

// BindKey binds key to action. A key may drive several actions and an action several keys.
func (r *Router) BindKey(key Key, action Action) {
	if !valid(action) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyToActions[key] = append(r.keyToActions[key], action)
}

// UnbindKey removes every binding of key.
func (r *Router) UnbindKey(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keyToActions, key)
}

// BindMouseButton binds a pointer button to action.
func (r *Router) BindMouseButton(button MouseButton, action Action) {
	if !valid(action) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buttonToActions[button] = append(r.buttonToActions[button], action)
}

// HandleKey records a key press or release. Repeats of a held key are ignored.
func (r *Router) HandleKey(key Key, pressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apply(r.keyToActions[key], pressed)
}

// HandlePointer records pointer movement and, unless moved is set, a button change.
func (r *Router) HandlePointer(x, y float64, button MouseButton, pressed, moved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.havePos {
		r.state.PointerDX += x - r.lastX
		r.state.PointerDY += y - r.lastY
	}
	r.lastX, r.lastY, r.havePos = x, y, true
	r.state.PointerX, r.state.PointerY = x, y
	if !moved {
		r.apply(r.buttonToActions[button], pressed)
	}
}

func (r *Router) apply(actions []Action, pressed bool) {
	for _, a := range actions {
		// Edges are detected when the event arrives so a press and release within one frame both register.
		if pressed && !r.state.held[a] {
			r.state.justPressed[a] = true
		}
		if !pressed && r.state.held[a] {
			r.state.justReleased[a] = true
		}
		r.state.held[a] = pressed
	}
}

// Snapshot returns the state accumulated since the last PostUpdate.
func (r *Router) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// PostUpdate clears the per-frame edges and pointer delta. Call it once at the end of each frame.
func (r *Router) PostUpdate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.justPressed = [ActionCount]bool{}
	r.state.justReleased = [ActionCount]bool{}
	r.state.PointerDX, r.state.PointerDY = 0, 0
}
