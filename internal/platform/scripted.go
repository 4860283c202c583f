package platform

import "sync"

// Scripted is a Window without a display. Each PollEvents returns the next scripted batch plus
// anything pushed since; it is used by the headless runner and tests.
type Scripted struct {
	mu            sync.Mutex
	width, height int
	batches       [][]Event
	queue         Queue
	polls         int
	closeAfter    int
}

// NewScripted returns a scripted window of the given size.
func NewScripted(width, height int) *Scripted {
	return &Scripted{width: width, height: height}
}

// Script appends one batch per argument. Batch i is returned by the i-th PollEvents after any
// previously scripted batches.
func (s *Scripted) Script(batches ...[]Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batches...)
}

// Push queues events for the next PollEvents.
func (s *Scripted) Push(events ...Event) {
	s.queue.Push(events...)
}

// CloseAfter makes the n-th PollEvents (counting from 1) report a close request. Zero disables it.
func (s *Scripted) CloseAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeAfter = n
}

func (s *Scripted) PollEvents() []Event {
	s.mu.Lock()
	s.polls++
	var out []Event
	if len(s.batches) > 0 {
		out = append(out, s.batches[0]...)
		s.batches = s.batches[1:]
	}
	closing := s.closeAfter > 0 && s.polls == s.closeAfter
	s.mu.Unlock()

	out = append(out, s.queue.Drain()...)
	for _, ev := range out {
		if ev.Kind == EventResize {
			s.mu.Lock()
			s.width, s.height = ev.Width, ev.Height
			s.mu.Unlock()
		}
	}
	if closing {
		out = append(out, Close())
	}
	return out
}

func (s *Scripted) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Polls returns how many times PollEvents was called.
func (s *Scripted) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}
