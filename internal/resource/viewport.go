package resource

import (
	"slices"

	"mirage/internal/gpu"

	"github.com/rotisserie/eris"
)

// RegisterViewport creates a texture sized from the viewport, e.g. a depth target, and recreates
// it on every Resize. The returned handle is Ready, or stays Pending until a Resize succeeds if the
// device rejected it.
func (m *Manager) RegisterViewport(label string, desc func(width, height int) gpu.TextureDesc) Handle {
	h, s := m.alloc(KindTexture, label)
	s.viewport = desc
	m.viewport = append(m.viewport, h.index)

	obj, err := m.createViewport(s)
	if err != nil {
		s.err = err
		m.logger.Warn().Err(err).Stringer("handle", h).Msg("viewport texture creation failed")
		return h
	}
	s.obj = obj
	s.state = StateReady
	return h
}

func (m *Manager) createViewport(s *slot) (Object, error) {
	d := s.viewport(m.width, m.height)
	if d.Label == "" {
		d.Label = s.label
	}
	id, err := m.device.CreateTexture(d)
	if err != nil {
		return Object{}, eris.Wrapf(err, "viewport texture %s at %dx%d", s.label, m.width, m.height)
	}
	return Object{Kind: KindTexture, Texture: id, Width: d.Width, Height: d.Height}, nil
}

// Viewport returns the size viewport textures are built for.
func (m *Manager) Viewport() (width, height int) {
	return m.width, m.height
}

// Resize rebuilds every viewport-dependent texture at the new size. Old textures are retired
// against the last submission, which may still be rendering into them.
func (m *Manager) Resize(width, height int) error {
	m.width, m.height = width, height
	var firstErr error
	for _, idx := range m.viewport {
		s := &m.slots[idx]
		h := Handle{index: idx, gen: s.gen, kind: s.kind}
		obj, err := m.createViewport(s)
		if err != nil {
			// The old texture stays bound at its old size; readiness never moves backward.
			if firstErr == nil {
				firstErr = err
			}
			m.logger.Warn().Err(err).Stringer("handle", h).Msg("viewport texture rebuild failed")
			continue
		}
		switch s.state {
		case StateReady:
			m.retire(s.obj, m.lastSubmitted, -1)
		case StatePending:
			s.state = StateReady
			s.err = nil
		}
		s.obj = obj
	}
	m.logger.Info().Int("width", width).Int("height", height).Int("textures", len(m.viewport)).Msg("viewport resized")
	return firstErr
}

func (m *Manager) dropViewport(idx uint32) {
	m.viewport = slices.DeleteFunc(m.viewport, func(v uint32) bool { return v == idx })
}
