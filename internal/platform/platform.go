// Package platform defines the windowing contract the frame loop consumes.
package platform

import (
	"sync"

	"mirage/internal/input"
)

// EventKind discriminates Event.
type EventKind uint8

const (
	EventResize EventKind = iota + 1
	EventClose
	EventKey
	EventPointer
)

func (k EventKind) String() string {
	switch k {
	case EventResize:
		return "resize"
	case EventClose:
		return "close"
	case EventKey:
		return "key"
	case EventPointer:
		return "pointer"
	}
	return "unknown"
}

// Event is a window or input event. Only the fields for its Kind are set.
type Event struct {
	Kind EventKind

	Width, Height int

	Key     input.Key
	Pressed bool

	X, Y   float64
	Button input.MouseButton
	Moved  bool
}

// Resize returns a resize event.
func Resize(width, height int) Event { return Event{Kind: EventResize, Width: width, Height: height} }

// Close returns a close request.
func Close() Event { return Event{Kind: EventClose} }

// KeyEvent returns a key press or release.
func KeyEvent(key input.Key, pressed bool) Event {
	return Event{Kind: EventKey, Key: key, Pressed: pressed}
}

// PointerMove returns a pointer movement.
func PointerMove(x, y float64) Event { return Event{Kind: EventPointer, X: x, Y: y, Moved: true} }

// PointerButton returns a pointer button change at x, y.
func PointerButton(x, y float64, button input.MouseButton, pressed bool) Event {
	return Event{Kind: EventPointer, X: x, Y: y, Button: button, Pressed: pressed}
}

// Window is a source of events with a size.
type Window interface {
	// PollEvents returns the events that arrived since the previous call. It never blocks.
	PollEvents() []Event
	// Size returns the framebuffer size in pixels.
	Size() (width, height int)
}

// Queue buffers events pushed from platform callbacks until they are polled.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// Push appends events.
func (q *Queue) Push(events ...Event) {
	q.mu.Lock()
	q.events = append(q.events, events...)
	q.mu.Unlock()
}

// Drain returns and clears the buffered events.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}
