package ecs

import "iter"

// Row2 holds the components of one entity matched by Query2.
type Row2[A, B Component] struct {
	First  *A
	Second *B
}

// Row3 holds the components of one entity matched by Query3.
type Row3[A, B, C Component] struct {
	First  *A
	Second *B
	Third  *C
}

// Query yields every entity carrying A. Each call of the returned sequence starts over.
func Query[A Component](w *World) iter.Seq2[Entity, *A] {
	return func(yield func(Entity, *A) bool) {
		sa := lookup[A](w)
		if sa == nil {
			return
		}
		w.beginQuery()
		defer w.endQuery()

		for r := range sa.dense {
			id := sa.owners[r]
			if !yield(w.entities.entityAt(id), &sa.dense[r]) {
				return
			}
		}
	}
}

// Query2 yields every entity carrying both A and B.
func Query2[A, B Component](w *World) iter.Seq2[Entity, Row2[A, B]] {
	return func(yield func(Entity, Row2[A, B]) bool) {
		sa, sb := lookup[A](w), lookup[B](w)
		if sa == nil || sb == nil {
			return
		}
		w.beginQuery()
		defer w.endQuery()

		// Drive from the smaller store; the snapshot is fixed for the whole query.
		drive := sa.owners
		if sb.len() < sa.len() {
			drive = sb.owners
		}
		for _, id := range drive {
			a, b := sa.get(id), sb.get(id)
			if a == nil || b == nil {
				continue
			}
			if !yield(w.entities.entityAt(id), Row2[A, B]{First: a, Second: b}) {
				return
			}
		}
	}
}

// Query3 yields every entity carrying A, B and C.
func Query3[A, B, C Component](w *World) iter.Seq2[Entity, Row3[A, B, C]] {
	return func(yield func(Entity, Row3[A, B, C]) bool) {
		sa, sb, sc := lookup[A](w), lookup[B](w), lookup[C](w)
		if sa == nil || sb == nil || sc == nil {
			return
		}
		w.beginQuery()
		defer w.endQuery()

		drive := sa.owners
		if sb.len() < len(drive) {
			drive = sb.owners
		}
		if sc.len() < len(drive) {
			drive = sc.owners
		}
		for _, id := range drive {
			a, b, c := sa.get(id), sb.get(id), sc.get(id)
			if a == nil || b == nil || c == nil {
				continue
			}
			row := Row3[A, B, C]{First: a, Second: b, Third: c}
			if !yield(w.entities.entityAt(id), row) {
				return
			}
		}
	}
}

// Entities yields every live entity in slot order.
func (w *World) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		w.beginQuery()
		defer w.endQuery()

		for id := range w.entities.slots {
			s := &w.entities.slots[id]
			if !s.alive {
				continue
			}
			if !yield(Entity{ID: uint32(id), Gen: s.gen}) {
				return
			}
		}
	}
}
