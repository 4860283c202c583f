// Package resource owns every GPU object the engine creates.
//
// The Manager maps generation-tagged handles to device objects and tracks their readiness. It is
// owned by the render thread: background loaders hand their results to the render thread, which
// calls CompleteUpload. Device objects are never destroyed while a submission that references them
// may still be executing; they wait on a retired list keyed by the submission's fence.
package resource

import (
	"context"
	"time"

	"mirage/internal/fault"
	"mirage/internal/gpu"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type slot struct {
	gen     uint32
	inUse   bool
	kind    Kind
	state   State
	evicted bool
	label   string
	obj     Object
	err     error
	// fence is the last submission that referenced this slot.
	fence    gpu.Fence
	viewport func(width, height int) gpu.TextureDesc
}

// retiredObject waits for fence before its device objects are destroyed. When slot is not negative
// the slot is freed at the same time.
type retiredObject struct {
	obj   Object
	fence gpu.Fence
	slot  int
}

// Option configures a Manager.
type Option func(*Manager)

// WithViewport sets the initial viewport size used by viewport-dependent textures.
func WithViewport(width, height int) Option {
	return func(m *Manager) { m.width, m.height = width, height }
}

// Manager is the resource table. It is not safe for concurrent use.
type Manager struct {
	logger zerolog.Logger
	device gpu.Device

	slots    []slot
	free     []uint32
	retired  []retiredObject
	viewport []uint32

	width, height int
	lastSubmitted gpu.Fence
	onEvict       []func(Handle)
}

// NewManager returns a manager creating objects on device.
func NewManager(device gpu.Device, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		logger: logger.With().Str("component", "resource").Logger(),
		device: device,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnEvict registers fn to run whenever a handle is evicted.
func (m *Manager) OnEvict(fn func(Handle)) {
	m.onEvict = append(m.onEvict, fn)
}

// RegisterPending reserves a handle of the given kind. The handle can be bound immediately and
// reads as Pending until CompleteUpload or Fail.
func (m *Manager) RegisterPending(kind Kind, label string) Handle {
	h, _ := m.alloc(kind, label)
	return h
}

func (m *Manager) alloc(kind Kind, label string) (Handle, *slot) {
	var idx uint32
	if n := len(m.free); n > 0 {
		idx = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		idx = uint32(len(m.slots))
		// Generations start at 1 so the zero Handle never matches.
		m.slots = append(m.slots, slot{gen: 1})
	}
	s := &m.slots[idx]
	s.inUse = true
	s.kind = kind
	s.state = StatePending
	s.label = label
	return Handle{index: idx, gen: s.gen, kind: kind}, s
}

func (m *Manager) lookup(h Handle) (*slot, bool) {
	if h.IsZero() || int(h.index) >= len(m.slots) {
		return nil, false
	}
	s := &m.slots[h.index]
	if !s.inUse || s.gen != h.gen || s.kind != h.kind {
		return nil, false
	}
	return s, true
}

// release frees slot idx. Its generation bumps so outstanding handles become stale.
func (m *Manager) release(idx uint32) {
	s := &m.slots[idx]
	*s = slot{gen: s.gen + 1}
	m.free = append(m.free, idx)
}

// State returns h's readiness. Stale, evicted and zero handles are StateInvalid.
func (m *Manager) State(h Handle) State {
	s, ok := m.lookup(h)
	if !ok || s.evicted {
		return StateInvalid
	}
	return s.state
}

// Get returns h's object when it is Ready, and h's state.
func (m *Manager) Get(h Handle) (Object, State) {
	st := m.State(h)
	if st != StateReady {
		return Object{}, st
	}
	return m.slots[h.index].obj, st
}

// Resolve returns the object of a handle the caller already knows to be Ready. Any other handle
// is an invariant violation.
func (m *Manager) Resolve(h Handle) (Object, bool) {
	obj, st := m.Get(h)
	if st != StateReady {
		fault.Violation(m.logger, eris.Wrapf(fault.ErrStaleHandle, "resolve %s in state %s", h, st))
		return Object{}, false
	}
	return obj, true
}

// Resident reports whether h still occupies the table, including evicted handles waiting on a fence.
func (m *Manager) Resident(h Handle) bool {
	_, ok := m.lookup(h)
	return ok
}

// Err returns the failure recorded for a Failed handle.
func (m *Manager) Err(h Handle) error {
	s, ok := m.lookup(h)
	if !ok {
		return nil
	}
	return s.err
}

// Label returns the label h was registered with.
func (m *Manager) Label(h Handle) string {
	s, ok := m.lookup(h)
	if !ok {
		return ""
	}
	return s.label
}

// CompleteUpload creates device objects for a Pending handle and returns its new state. Uploads
// for stale or evicted handles are discarded; handles that already left Pending are unchanged.
func (m *Manager) CompleteUpload(h Handle, data Data) State {
	s, ok := m.lookup(h)
	if !ok || s.evicted {
		m.logger.Debug().Stringer("handle", h).Msg("discarding upload for stale handle")
		return StateInvalid
	}
	if s.state != StatePending {
		m.logger.Debug().Stringer("handle", h).Stringer("state", s.state).Msg("ignoring upload outside pending state")
		return s.state
	}
	if data == nil || data.Kind() != s.kind {
		m.fail(s, h, eris.Wrapf(fault.ErrKindMismatch, "upload into %s", h))
		return StateFailed
	}
	if md, ok := data.(MaterialData); ok && !md.Texture.IsZero() && md.Texture.Kind() != KindTexture {
		m.fail(s, h, eris.Wrapf(fault.ErrKindMismatch, "material texture %s", md.Texture))
		return StateFailed
	}

	obj, err := m.create(data)
	if err != nil {
		m.fail(s, h, eris.Wrapf(fault.ErrUpload, "%s (%s): %v", h, s.label, err))
		return StateFailed
	}
	s.obj = obj
	s.state = StateReady
	m.logger.Debug().Stringer("handle", h).Str("label", s.label).Msg("resource ready")
	return StateReady
}

// Fail moves a Pending handle to Failed.
func (m *Manager) Fail(h Handle, err error) {
	s, ok := m.lookup(h)
	if !ok || s.evicted || s.state != StatePending {
		return
	}
	m.fail(s, h, err)
}

func (m *Manager) fail(s *slot, h Handle, err error) {
	s.state = StateFailed
	s.err = err
	m.logger.Warn().Err(err).Stringer("handle", h).Str("label", s.label).Msg("resource failed")
}

// Replace swaps the device objects of a Ready handle for new ones built from data. The old objects
// are retired against the handle's last fence. The handle stays Ready throughout.
func (m *Manager) Replace(h Handle, data Data) error {
	s, ok := m.lookup(h)
	if !ok || s.evicted {
		return eris.Wrapf(fault.ErrStaleHandle, "replace %s", h)
	}
	if s.state != StateReady {
		return eris.Errorf("replace %s in state %s", h, s.state)
	}
	if data == nil || data.Kind() != s.kind {
		return eris.Wrapf(fault.ErrKindMismatch, "replace %s", h)
	}
	obj, err := m.create(data)
	if err != nil {
		return eris.Wrapf(fault.ErrUpload, "replace %s: %v", h, err)
	}
	m.retire(s.obj, s.fence, -1)
	s.obj = obj
	return nil
}

// Evict schedules h for destruction. From now on h reads as Invalid. Its device objects are
// destroyed once no in-flight submission references them. Evicting an unknown handle returns false.
func (m *Manager) Evict(h Handle) bool {
	s, ok := m.lookup(h)
	if !ok || s.evicted {
		return false
	}
	for _, fn := range m.onEvict {
		fn(h)
	}
	m.dropViewport(h.index)

	if s.state != StateReady {
		m.release(h.index)
		return true
	}
	s.evicted = true
	m.retire(s.obj, s.fence, int(h.index))
	return true
}

// retire destroys obj now if fence already signaled, otherwise queues it.
func (m *Manager) retire(obj Object, fence gpu.Fence, slotIdx int) {
	if fence == 0 || m.device.PollFence(fence) {
		m.destroy(obj)
		if slotIdx >= 0 {
			m.release(uint32(slotIdx))
		}
		return
	}
	m.retired = append(m.retired, retiredObject{obj: obj, fence: fence, slot: slotIdx})
}

// Submit sends list to the device and stamps every handle in refs with the returned fence.
func (m *Manager) Submit(list *gpu.CommandList, refs []Handle) (gpu.Fence, error) {
	f, err := m.device.Submit(list)
	if err != nil {
		return 0, eris.Wrap(err, "submit command list")
	}
	for _, h := range refs {
		if s, ok := m.lookup(h); ok && !s.evicted {
			s.fence = f
		}
	}
	m.lastSubmitted = f
	return f, nil
}

// LastSubmitted returns the fence of the most recent submission.
func (m *Manager) LastSubmitted() gpu.Fence {
	return m.lastSubmitted
}

// Collect destroys retired objects whose fence has signaled and returns how many it destroyed.
func (m *Manager) Collect() int {
	n := 0
	kept := m.retired[:0]
	for _, r := range m.retired {
		if !m.device.PollFence(r.fence) {
			kept = append(kept, r)
			continue
		}
		m.destroy(r.obj)
		if r.slot >= 0 {
			m.release(uint32(r.slot))
		}
		n++
	}
	clear(m.retired[len(kept):])
	m.retired = kept
	return n
}

// Drain blocks until the most recent submission has completed or ctx ends.
func (m *Manager) Drain(ctx context.Context) error {
	if m.lastSubmitted == 0 || m.device.PollFence(m.lastSubmitted) {
		return nil
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for !m.device.PollFence(m.lastSubmitted) {
		select {
		case <-ctx.Done():
			return eris.Wrapf(ctx.Err(), "waiting for fence %d", m.lastSubmitted)
		case <-ticker.C:
		}
	}
	return nil
}

// Release destroys every object the manager owns. Call it only after Drain.
func (m *Manager) Release() {
	destroyed := 0
	for _, r := range m.retired {
		m.destroy(r.obj)
		destroyed++
	}
	m.retired = nil
	for i := range m.slots {
		s := &m.slots[i]
		if !s.inUse {
			continue
		}
		if s.state == StateReady && !s.evicted {
			m.destroy(s.obj)
			destroyed++
		}
		m.release(uint32(i))
	}
	m.viewport = nil
	m.logger.Info().Int("destroyed", destroyed).Msg("released gpu resources")
}

func (m *Manager) destroy(obj Object) {
	switch obj.Kind {
	case KindBuffer:
		m.device.DestroyBuffer(obj.Buffer)
	case KindTexture:
		m.device.DestroyTexture(obj.Texture)
	case KindPipeline:
		m.device.DestroyPipeline(obj.Pipeline)
	case KindMesh:
		m.device.DestroyBuffer(obj.Mesh.VertexBuffer)
		if obj.Mesh.IndexBuffer != 0 {
			m.device.DestroyBuffer(obj.Mesh.IndexBuffer)
		}
	case KindMaterial:
		m.device.DestroyPipeline(obj.Material.Pipeline)
	}
}

// Stats counts handles by state.
type Stats struct {
	Pending, Ready, Failed int
	// Evicting counts evicted handles waiting on a fence.
	Evicting int
	// Retired counts device objects waiting on a fence.
	Retired int
}

func (m *Manager) Stats() Stats {
	st := Stats{Retired: len(m.retired)}
	for i := range m.slots {
		s := &m.slots[i]
		switch {
		case !s.inUse:
		case s.evicted:
			st.Evicting++
		case s.state == StatePending:
			st.Pending++
		case s.state == StateReady:
			st.Ready++
		case s.state == StateFailed:
			st.Failed++
		}
	}
	return st
}
