package events

import "time"

// WindowResized is published after the surface and viewport resources were resized.
type WindowResized struct {
	Width, Height int
}

// CloseRequested is published when the window asked to close.
type CloseRequested struct{}

// KeyInput mirrors a platform key event after input routing.
type KeyInput struct {
	Key     int
	Pressed bool
}

// PointerInput mirrors a platform pointer event.
type PointerInput struct {
	X, Y    float64
	Button  int
	Pressed bool
	Moved   bool
}

// Update is published once per frame after systems ran.
type Update struct {
	Frame uint64
	Delta time.Duration
}

// Render is published after a frame was submitted.
type Render struct {
	Frame uint64
	Draws int
}
