// Package overlay composites screen-space diagnostics after the world passes.
package overlay

import (
	"mirage/internal/input"
	"mirage/internal/render"
)

// Overlay returns draw items for the overlay pass. Items are in pixel coordinates with the origin
// at the top left and are drawn in the order returned.
type Overlay interface {
	Compose(snapshot input.Snapshot, width, height int) []render.DrawItem
}

// Func adapts a function to Overlay.
type Func func(snapshot input.Snapshot, width, height int) []render.DrawItem

func (f Func) Compose(snapshot input.Snapshot, width, height int) []render.DrawItem {
	return f(snapshot, width, height)
}

// Stack composes several overlays in order.
type Stack []Overlay

func (s Stack) Compose(snapshot input.Snapshot, width, height int) []render.DrawItem {
	var items []render.DrawItem
	for _, o := range s {
		items = append(items, o.Compose(snapshot, width, height)...)
	}
	return items
}
