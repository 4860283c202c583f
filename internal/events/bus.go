// Package events is a synchronous, typed publish/subscribe bus used on the render thread.
package events

import "reflect"

// MaxEventTypes bounds the number of distinct event types a Bus can route.
const MaxEventTypes = 256

// Bus routes events to handlers by the event's Go type. It is not safe for concurrent use.
type Bus struct {
	types    map[reflect.Type]uint8
	handlers [MaxEventTypes][]any
	next     int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{types: make(map[reflect.Type]uint8)}
}

// Subscribe registers handler for events of type T. Handlers run in subscription order.
// The returned function removes the subscription.
func Subscribe[T any](bus *Bus, handler func(T)) (unsubscribe func()) {
	id := bus.typeID(reflect.TypeFor[T]())
	entry := &handler
	bus.handlers[id] = append(bus.handlers[id], entry)
	return func() {
		hs := bus.handlers[id]
		for i, h := range hs {
			if h == any(entry) {
				bus.handlers[id] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers event to every handler subscribed to T.
func Publish[T any](bus *Bus, event T) {
	id, ok := bus.types[reflect.TypeFor[T]()]
	if !ok {
		return
	}
	for _, h := range bus.handlers[id] {
		(*h.(*func(T)))(event)
	}
}

// Subscribers returns how many handlers are registered for T.
func Subscribers[T any](bus *Bus) int {
	id, ok := bus.types[reflect.TypeFor[T]()]
	if !ok {
		return 0
	}
	return len(bus.handlers[id])
}

func (bus *Bus) typeID(t reflect.Type) uint8 {
	if id, ok := bus.types[t]; ok {
		return id
	}
	if bus.next >= MaxEventTypes {
		panic("events: too many event types")
	}
	id := uint8(bus.next)
	bus.next++
	bus.types[t] = id
	return id
}
