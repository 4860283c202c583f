package engine

import (
	"mirage/internal/audio"
	"mirage/internal/components"
	"mirage/internal/ecs"
	"mirage/internal/events"
	"mirage/internal/input"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
)

// Demo asset paths, relative to the asset root.
const (
	CrateMesh     = "models/crate.json"
	PaneMesh      = "models/pane.obj"
	CrateMaterial = "materials/crate.mat.json"
	GlassMaterial = "materials/glass.mat.json"
)

// Demo describes the entities PopulateDemo spawned.
type Demo struct {
	Camera ecs.Entity
	Crates []ecs.Entity
	Panes  []ecs.Entity
	Sun    ecs.Entity
	Lamp   ecs.Entity
}

// PopulateDemo spawns a camera, a sun, a lamp over a grid of crates, and a row of glass panes.
// Every mesh and material is submitted to the asset loader, so the scene fills in over the first
// frames as decodes land.
func (e *Engine) PopulateDemo(gridSize int) (Demo, error) {
	var d Demo
	handles := make(map[string]components.MeshRef)
	materials := make(map[string]components.MaterialRef)
	for _, p := range []string{CrateMesh, PaneMesh} {
		h, err := e.Assets.Submit(p)
		if err != nil {
			return d, eris.Wrap(err, "demo scene")
		}
		handles[p] = components.MeshRef{Handle: h}
	}
	for _, p := range []string{CrateMaterial, GlassMaterial} {
		h, err := e.Assets.Submit(p)
		if err != nil {
			return d, eris.Wrap(err, "demo scene")
		}
		materials[p] = components.MaterialRef{Handle: h}
	}

	width, height := e.Resources.Viewport()
	d.Camera = e.World.Create()
	ecs.Attach(e.World, d.Camera, components.Name{Value: "camera"})
	ecs.Attach(e.World, d.Camera, components.NewTransform(mgl32.Vec3{0, 2, float32(gridSize) + 6}))
	ecs.Attach(e.World, d.Camera, components.NewPerspectiveCamera(width, height))

	d.Sun = e.World.Create()
	ecs.Attach(e.World, d.Sun, components.Name{Value: "sun"})
	ecs.Attach(e.World, d.Sun, components.NewDirectionalLight(mgl32.Vec3{-0.4, -1, -0.3}, mgl32.Vec3{1, 0.96, 0.88}, 0.6))

	d.Lamp = e.World.Create()
	ecs.Attach(e.World, d.Lamp, components.Name{Value: "lamp"})
	ecs.Attach(e.World, d.Lamp, components.NewTransform(mgl32.Vec3{0, 3, 0}))
	ecs.Attach(e.World, d.Lamp, components.PointLight{
		Color:     mgl32.Vec3{1, 0.7, 0.4},
		Intensity: 1.2,
		Range:     float32(gridSize)*2 + 4,
	})

	half := float32(gridSize-1) / 2
	for x := range gridSize {
		for z := range gridSize {
			crate := e.World.Create()
			pos := mgl32.Vec3{(float32(x) - half) * 2, 0, (float32(z) - half) * 2}
			ecs.Attach(e.World, crate, components.NewTransform(pos))
			ecs.Attach(e.World, crate, handles[CrateMesh])
			ecs.Attach(e.World, crate, materials[CrateMaterial])
			if (x+z)%2 == 0 {
				ecs.Attach(e.World, crate, components.Velocity{Angular: mgl32.Vec3{0, 0.8, 0}})
			}
			d.Crates = append(d.Crates, crate)
		}
	}

	for i := range 3 {
		pane := e.World.Create()
		tr := components.NewTransform(mgl32.Vec3{float32(i-1) * 1.5, 1.5, half*2 + 2 + float32(i)})
		tr.Scale = mgl32.Vec3{1.2, 1.2, 1}
		ecs.Attach(e.World, pane, tr)
		ecs.Attach(e.World, pane, handles[PaneMesh])
		ecs.Attach(e.World, pane, materials[GlassMaterial])
		d.Panes = append(d.Panes, pane)
	}

	e.Audio.Play("ambient/wind", audio.Params{Category: audio.CategoryAmbient, Volume: 0.6, Loop: true})
	audio.Trigger(e.Bus, e.Audio, "ui/click", func(ev events.KeyInput) (audio.Params, bool) {
		return audio.DefaultParams(), ev.Pressed && input.Key(ev.Key) == input.KeyF3
	})

	e.Logger.Info().
		Int("crates", len(d.Crates)).
		Int("panes", len(d.Panes)).
		Msg("demo scene populated")
	return d, nil
}
