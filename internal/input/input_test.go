package input

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyEdgesAndHold(t *testing.T) {
	r := NewRouter()

	r.HandleKey(KeyW, true)
	s := r.Snapshot()
	assert.True(t, s.Held(ActionMoveForward))
	assert.True(t, s.JustPressed(ActionMoveForward))

	r.PostUpdate()
	r.HandleKey(KeyW, true) // repeat
	s = r.Snapshot()
	assert.True(t, s.Held(ActionMoveForward))
	assert.False(t, s.JustPressed(ActionMoveForward))

	r.HandleKey(KeyW, false)
	s = r.Snapshot()
	assert.False(t, s.Held(ActionMoveForward))
	assert.True(t, s.JustReleased(ActionMoveForward))
}

func TestPressAndReleaseWithinOneFrame(t *testing.T) {
	r := NewRouter()
	r.HandleKey(KeyF3, true)
	r.HandleKey(KeyF3, false)

	s := r.Snapshot()
	assert.True(t, s.JustPressed(ActionToggleOverlay))
	assert.True(t, s.JustReleased(ActionToggleOverlay))
	assert.False(t, s.Held(ActionToggleOverlay))
}

func TestAlternateBindings(t *testing.T) {
	r := NewRouter()
	r.HandleKey(KeyUp, true)
	assert.True(t, r.Snapshot().Held(ActionMoveForward))

	r.UnbindKey(KeyEscape)
	r.BindKey(KeyQ, ActionQuit)
	r.HandleKey(KeyEscape, true)
	assert.False(t, r.Snapshot().JustPressed(ActionQuit))
	r.HandleKey(KeyQ, true)
	assert.True(t, r.Snapshot().JustPressed(ActionQuit))

	r.BindKey(KeyE, ActionCount)
	r.HandleKey(KeyE, true)
	assert.False(t, r.Snapshot().Held(ActionCount))
}

func TestPointerDeltaAndButtons(t *testing.T) {
	r := NewRouter()
	r.HandlePointer(10, 10, 0, false, true)
	r.HandlePointer(15, 7, 0, false, true)
	r.HandlePointer(15, 7, MouseButtonLeft, true, false)

	s := r.Snapshot()
	assert.Equal(t, 15.0, s.PointerX)
	assert.Equal(t, 5.0, s.PointerDX)
	assert.Equal(t, -3.0, s.PointerDY)
	assert.True(t, s.JustPressed(ActionPointerPrimary))

	r.PostUpdate()
	s = r.Snapshot()
	assert.Zero(t, s.PointerDX)
	assert.True(t, s.Held(ActionPointerPrimary))
}

func TestConcurrentEvents(t *testing.T) {
	r := NewRouter()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				r.HandleKey(KeyA, (i+j)%2 == 0)
				r.HandlePointer(float64(j), 0, 0, false, true)
				_ = r.Snapshot()
			}
		}()
	}
	wg.Wait()
	r.PostUpdate()
	assert.False(t, r.Snapshot().JustPressed(ActionMoveLeft))
}
