package audio

import "mirage/internal/events"

// Trigger plays sound whenever an event of type E is published on bus and params accepts it.
// It returns the function that removes the subscription.
func Trigger[E any](bus *events.Bus, s *Scheduler, sound string, params func(E) (Params, bool)) func() {
	return events.Subscribe(bus, func(ev E) {
		p, ok := params(ev)
		if !ok {
			return
		}
		s.Play(sound, p)
	})
}
