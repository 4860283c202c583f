// Package ecs is the engine's entity-component store.
//
// A World is owned by the render thread and is not safe for concurrent use. Component pointers
// returned by Get and by queries stay valid until the next structural change (attach of a new
// component type, detach, destroy). Structural changes requested while a query is running are
// buffered and applied, in order, when the outermost query finishes.
package ecs

import (
	"mirage/internal/fault"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// World holds entities and their components.
type World struct {
	logger     zerolog.Logger
	entities   entityManager
	components componentManager
	commands   commandBuffer
	querying   int
}

// NewWorld returns an empty world.
func NewWorld(logger zerolog.Logger) *World {
	return &World{
		logger:     logger.With().Str("component", "ecs").Logger(),
		components: newComponentManager(),
	}
}

// Create returns a new live entity. During a query the entity is allocated immediately but any
// components attached to it become visible only after the query ends.
func (w *World) Create() Entity {
	return w.entities.create()
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool {
	return w.entities.alive(e)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.entities.live
}

// Querying reports whether a query is in progress.
func (w *World) Querying() bool {
	return w.querying > 0
}

// Destroy removes e and all of its components. Destroying a dead entity does nothing.
func (w *World) Destroy(e Entity) {
	if !w.entities.alive(e) {
		return
	}
	if w.querying > 0 {
		w.commands.push(command{op: opDestroy, entity: e})
		return
	}
	w.destroyNow(e)
}

func (w *World) destroyNow(e Entity) {
	s := &w.entities.slots[e.ID]
	s.mask.Range(func(cid uint32) {
		w.components.stores[cid].remove(e.ID)
	})
	w.entities.release(e)
}

// Attach sets e's component of type T, overwriting any existing one.
func Attach[T Component](w *World, e Entity, v T) {
	if !w.entities.alive(e) {
		var zero T
		fault.Violation(w.logger, eris.Wrapf(fault.ErrStaleEntity, "attach %s to %s", zero.Name(), e))
		return
	}
	s, err := register[T](w)
	if err != nil {
		fault.Violation(w.logger, err)
		return
	}
	if w.querying > 0 {
		w.commands.push(command{op: opAttach, entity: e, apply: func() { attachNow(w, s, e, v) }})
		return
	}
	attachNow(w, s, e, v)
}

func attachNow[T Component](w *World, s *store[T], e Entity, v T) {
	s.set(e.ID, v)
	w.entities.slots[e.ID].mask.Set(uint32(s.cid))
}

// Detach removes e's component of type T if present.
func Detach[T Component](w *World, e Entity) {
	if !w.entities.alive(e) {
		return
	}
	s := lookup[T](w)
	if s == nil {
		return
	}
	if w.querying > 0 {
		w.commands.push(command{op: opDetach, entity: e, apply: func() { detachNow(w, s, e) }})
		return
	}
	detachNow(w, s, e)
}

func detachNow[T Component](w *World, s *store[T], e Entity) {
	s.remove(e.ID)
	w.entities.slots[e.ID].mask.Remove(uint32(s.cid))
}

// Get returns a pointer to e's component of type T.
func Get[T Component](w *World, e Entity) (*T, bool) {
	if !w.entities.alive(e) {
		return nil, false
	}
	s := lookup[T](w)
	if s == nil {
		return nil, false
	}
	p := s.get(e.ID)
	return p, p != nil
}

// Has reports whether e carries a component of type T.
func Has[T Component](w *World, e Entity) bool {
	_, ok := Get[T](w, e)
	return ok
}

// Count returns how many entities carry a component of type T.
func Count[T Component](w *World) int {
	s := lookup[T](w)
	if s == nil {
		return 0
	}
	return s.len()
}

// Pending returns the number of structural changes waiting for the current query to end.
func (w *World) Pending() int {
	return len(w.commands.queue)
}

func (w *World) beginQuery() {
	w.querying++
}

func (w *World) endQuery() {
	w.querying--
	if w.querying == 0 {
		w.commands.flush(w)
	}
}
