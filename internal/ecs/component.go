package ecs

import (
	"mirage/internal/fault"

	"github.com/kelindar/bitmap"
	"github.com/rotisserie/eris"
)

// Component is the interface that all components must implement.
// Components are plain data; Name must be stable and unique per type.
type Component interface {
	Name() string
}

// ComponentID is the small registered id of a component type.
type ComponentID uint8

// MaxComponentTypes bounds the number of registered component types per World.
const MaxComponentTypes = 256

// componentMask records which component types an entity carries.
type componentMask = bitmap.Bitmap

// column is the type-erased view of a component store.
type column interface {
	remove(id uint32)
	len() int
}

// store keeps one component type densely packed. sparse maps an entity slot to its row.
type store[T Component] struct {
	cid    ComponentID
	dense  []T
	owners []uint32
	sparse []int32
}

func newStore[T Component](cid ComponentID) *store[T] {
	return &store[T]{cid: cid}
}

func (s *store[T]) row(id uint32) (int, bool) {
	if int(id) >= len(s.sparse) {
		return 0, false
	}
	r := s.sparse[id]
	return int(r), r >= 0
}

// set inserts or overwrites the component for slot id.
func (s *store[T]) set(id uint32, v T) {
	if r, ok := s.row(id); ok {
		s.dense[r] = v
		return
	}
	for int(id) >= len(s.sparse) {
		s.sparse = append(s.sparse, -1)
	}
	s.sparse[id] = int32(len(s.dense))
	s.dense = append(s.dense, v)
	s.owners = append(s.owners, id)
}

func (s *store[T]) get(id uint32) *T {
	if r, ok := s.row(id); ok {
		return &s.dense[r]
	}
	return nil
}

// remove swap-removes the row of slot id, if any.
func (s *store[T]) remove(id uint32) {
	r, ok := s.row(id)
	if !ok {
		return
	}
	last := len(s.dense) - 1
	if r != last {
		s.dense[r] = s.dense[last]
		moved := s.owners[last]
		s.owners[r] = moved
		s.sparse[moved] = int32(r)
	}
	var zero T
	s.dense[last] = zero
	s.dense = s.dense[:last]
	s.owners = s.owners[:last]
	s.sparse[id] = -1
}

func (s *store[T]) len() int { return len(s.dense) }

// componentManager maps component names to ids and stores.
type componentManager struct {
	catalog map[string]ComponentID
	stores  []column
}

func newComponentManager() componentManager {
	return componentManager{catalog: make(map[string]ComponentID)}
}

// Register registers T and returns its id. Registering twice returns the existing id.
func Register[T Component](w *World) (ComponentID, error) {
	s, err := register[T](w)
	if err != nil {
		return 0, err
	}
	return s.cid, nil
}

// ComponentIDOf returns the id of a registered component type.
func ComponentIDOf[T Component](w *World) (ComponentID, error) {
	s := lookup[T](w)
	if s == nil {
		var zero T
		return 0, eris.Wrapf(fault.ErrNotRegistered, "component %s", zero.Name())
	}
	return s.cid, nil
}

func register[T Component](w *World) (*store[T], error) {
	var zero T
	name := zero.Name()
	if name == "" {
		return nil, eris.New("component name cannot be empty")
	}
	cm := &w.components
	if cid, ok := cm.catalog[name]; ok {
		s, ok := cm.stores[cid].(*store[T])
		if !ok {
			return nil, eris.Errorf("component name %q registered by another type", name)
		}
		return s, nil
	}
	if len(cm.stores) >= MaxComponentTypes {
		return nil, eris.Errorf("too many component types (max %d)", MaxComponentTypes)
	}
	cid := ComponentID(len(cm.stores))
	s := newStore[T](cid)
	cm.catalog[name] = cid
	cm.stores = append(cm.stores, s)
	return s, nil
}

// lookup returns T's store, or nil if T was never registered.
func lookup[T Component](w *World) *store[T] {
	var zero T
	cid, ok := w.components.catalog[zero.Name()]
	if !ok {
		return nil
	}
	s, _ := w.components.stores[cid].(*store[T])
	return s
}
