package ecs

type opKind uint8

const (
	opAttach opKind = iota
	opDetach
	opDestroy
)

// command is a structural change recorded while a query was running.
type command struct {
	op     opKind
	entity Entity
	apply  func()
}

// commandBuffer queues structural changes in request order.
type commandBuffer struct {
	queue []command
}

func (cb *commandBuffer) push(c command) {
	cb.queue = append(cb.queue, c)
}

// flush applies every queued command. Commands that target an entity destroyed earlier in the same
// batch are dropped.
func (cb *commandBuffer) flush(w *World) {
	for len(cb.queue) > 0 {
		batch := cb.queue
		cb.queue = nil
		for _, c := range batch {
			if !w.entities.alive(c.entity) {
				continue
			}
			switch c.op {
			case opDestroy:
				w.destroyNow(c.entity)
			case opAttach, opDetach:
				c.apply()
			}
		}
	}
}
