package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRoutesByType(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var resized []WindowResized
	var updates int

	Subscribe(bus, func(e WindowResized) { resized = append(resized, e) })
	Subscribe(bus, func(Update) { updates++ })

	Publish(bus, WindowResized{Width: 800, Height: 600})
	Publish(bus, Update{Frame: 1})
	Publish(bus, Update{Frame: 2})
	Publish(bus, CloseRequested{}) // no subscribers

	require.Len(t, resized, 1)
	assert.Equal(t, 800, resized[0].Width)
	assert.Equal(t, 2, updates)
}

func TestHandlersRunInOrder(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var order []int
	for i := range 3 {
		Subscribe(bus, func(Render) { order = append(order, i) })
	}

	Publish(bus, Render{})
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var a, b int
	unsubA := Subscribe(bus, func(KeyInput) { a++ })
	Subscribe(bus, func(KeyInput) { b++ })
	require.Equal(t, 2, Subscribers[KeyInput](bus))

	unsubA()
	unsubA()
	Publish(bus, KeyInput{Key: 65, Pressed: true})

	assert.Zero(t, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 1, Subscribers[KeyInput](bus))
	assert.Zero(t, Subscribers[PointerInput](bus))
}
