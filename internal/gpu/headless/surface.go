package headless

import (
	"sync"

	"mirage/internal/gpu"
)

// Surface is a gpu.Surface with scriptable failures.
type Surface struct {
	mu            sync.Mutex
	width, height int
	acquireErrs   []error
	presentErrs   []error
	recreateErrs  []error

	acquired, presented, recreated int
}

var _ gpu.Surface = (*Surface)(nil)

// NewSurface returns a surface of the given size.
func NewSurface(width, height int) *Surface {
	return &Surface{width: width, height: height}
}

// FailAcquire queues errors returned by subsequent Acquire calls, one per call.
func (s *Surface) FailAcquire(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquireErrs = append(s.acquireErrs, errs...)
}

// FailPresent queues errors returned by subsequent Present calls.
func (s *Surface) FailPresent(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presentErrs = append(s.presentErrs, errs...)
}

// FailRecreate queues errors returned by subsequent Recreate calls.
func (s *Surface) FailRecreate(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recreateErrs = append(s.recreateErrs, errs...)
}

func pop(q *[]error) error {
	if len(*q) == 0 {
		return nil
	}
	err := (*q)[0]
	*q = (*q)[1:]
	return err
}

func (s *Surface) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := pop(&s.acquireErrs); err != nil {
		return err
	}
	s.acquired++
	return nil
}

func (s *Surface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := pop(&s.presentErrs); err != nil {
		return err
	}
	s.presented++
	return nil
}

func (s *Surface) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	return nil
}

func (s *Surface) Recreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := pop(&s.recreateErrs); err != nil {
		return err
	}
	s.recreated++
	return nil
}

func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Counts returns acquire, present and recreate totals.
func (s *Surface) Counts() (acquired, presented, recreated int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired, s.presented, s.recreated
}
