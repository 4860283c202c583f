package render

import (
	"cmp"
	"slices"

	"mirage/internal/components"
	"mirage/internal/ecs"
	"mirage/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultAmbient is the light level lit surfaces receive with no light reaching them.
const DefaultAmbient = 0.25

// DefaultSun lights a world that has no light entities, so lit materials never render black.
var DefaultSun = gpu.Light{
	Kind:      gpu.LightDirectional,
	Direction: mgl32.Vec3{-0.4, -1, -0.3}.Normalize(),
	Color:     mgl32.Vec3{1, 1, 1},
	Intensity: 0.75,
}

// WithAmbient sets the ambient light level of lit passes.
func WithAmbient(level float32) Option {
	return func(g *Graph) { g.ambient = max(level, 0) }
}

type lightCandidate struct {
	entity ecs.Entity
	dist   float32
	light  gpu.Light
}

// gatherLights returns up to gpu.MaxLights lights for a frame seen from eye. Directional lights come
// first in entity order, then point lights nearest the eye. Ties go to the lower entity ID.
func (g *Graph) gatherLights(w *ecs.World, eye mgl32.Vec3) []gpu.Light {
	g.directional = g.directional[:0]
	g.points = g.points[:0]
	for e, l := range ecs.Query[components.DirectionalLight](w) {
		g.directional = append(g.directional, lightCandidate{entity: e, light: gpu.Light{
			Kind:      gpu.LightDirectional,
			Direction: l.Direction,
			Color:     l.Color,
			Intensity: l.Intensity,
		}})
	}
	for e, row := range ecs.Query2[components.PointLight, components.Transform](w) {
		pos := row.Second.Position
		g.points = append(g.points, lightCandidate{entity: e, dist: pos.Sub(eye).Len(), light: gpu.Light{
			Kind:      gpu.LightPoint,
			Position:  pos,
			Color:     row.First.Color,
			Intensity: row.First.Intensity,
			Range:     row.First.Range,
		}})
	}
	if len(g.directional) == 0 && len(g.points) == 0 {
		return []gpu.Light{DefaultSun}
	}

	slices.SortFunc(g.directional, func(a, b lightCandidate) int { return cmp.Compare(a.entity.ID, b.entity.ID) })
	slices.SortFunc(g.points, func(a, b lightCandidate) int {
		return cmp.Or(cmp.Compare(a.dist, b.dist), cmp.Compare(a.entity.ID, b.entity.ID))
	})
	lights := make([]gpu.Light, 0, min(len(g.directional)+len(g.points), gpu.MaxLights))
	for _, c := range slices.Concat(g.directional, g.points) {
		if len(lights) == gpu.MaxLights {
			break
		}
		lights = append(lights, c.light)
	}
	return lights
}
