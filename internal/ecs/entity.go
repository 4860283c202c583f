package ecs

import "strconv"

// Entity identifies a world object. The generation distinguishes reuses of the same slot, so a
// destroyed Entity value never matches an entity created later in its slot.
type Entity struct {
	ID  uint32
	Gen uint32
}

// IsZero reports whether e is the zero Entity, which is never live.
func (e Entity) IsZero() bool { return e == Entity{} }

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e.ID), 10) + "v" + strconv.FormatUint(uint64(e.Gen), 10)
}

// slot is the per-ID bookkeeping of the entity manager.
type slot struct {
	gen   uint32
	alive bool
	mask  componentMask
}

// entityManager hands out entity IDs and recycles them through a free list.
type entityManager struct {
	slots []slot
	free  []uint32
	live  int
}

func (em *entityManager) create() Entity {
	em.live++
	if n := len(em.free); n > 0 {
		id := em.free[n-1]
		em.free = em.free[:n-1]
		s := &em.slots[id]
		s.alive = true
		return Entity{ID: id, Gen: s.gen}
	}
	id := uint32(len(em.slots))
	// Generations start at 1 so the zero Entity never names a live slot.
	em.slots = append(em.slots, slot{gen: 1, alive: true})
	return Entity{ID: id, Gen: 1}
}

func (em *entityManager) alive(e Entity) bool {
	if int(e.ID) >= len(em.slots) {
		return false
	}
	s := &em.slots[e.ID]
	return s.alive && s.gen == e.Gen
}

// release retires e's slot. The caller must have removed its components first.
func (em *entityManager) release(e Entity) {
	s := &em.slots[e.ID]
	s.alive = false
	s.gen++
	s.mask.Clear()
	em.free = append(em.free, e.ID)
	em.live--
}

func (em *entityManager) entityAt(id uint32) Entity {
	return Entity{ID: id, Gen: em.slots[id].gen}
}
