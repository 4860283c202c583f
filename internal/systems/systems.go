// Package systems contains the built-in update systems. Systems run on the render thread during
// the Update phase, in registration order.
package systems

import (
	"time"

	"mirage/internal/components"
	"mirage/internal/ecs"

	"github.com/go-gl/mathgl/mgl32"
)

// System advances part of the world by dt.
type System interface {
	Name() string
	Update(w *ecs.World, dt time.Duration)
}

// Func adapts a function to System.
type Func struct {
	Label string
	Fn    func(w *ecs.World, dt time.Duration)
}

func (f Func) Name() string                          { return f.Label }
func (f Func) Update(w *ecs.World, dt time.Duration) { f.Fn(w, dt) }

// StandardGravity is Earth gravity in world units per second squared.
var StandardGravity = mgl32.Vec3{0, -9.81, 0}

// Gravity accelerates every Physics body with UseGravity set.
type Gravity struct {
	Acceleration mgl32.Vec3
}

// NewGravity returns a gravity system using StandardGravity.
func NewGravity() *Gravity {
	return &Gravity{Acceleration: StandardGravity}
}

func (*Gravity) Name() string { return "gravity" }

func (g *Gravity) Update(w *ecs.World, dt time.Duration) {
	step := float32(dt.Seconds())
	for _, row := range ecs.Query2[components.Physics, components.Velocity](w) {
		body, vel := row.First, row.Second
		if body.UseGravity {
			vel.Linear = vel.Linear.Add(g.Acceleration.Mul(step))
		}
		if body.Drag > 0 {
			keep := max(0, 1-body.Drag*step)
			vel.Linear = vel.Linear.Mul(keep)
		}
	}
}

// Movement integrates Velocity into Transform.
type Movement struct{}

func (Movement) Name() string { return "movement" }

func (Movement) Update(w *ecs.World, dt time.Duration) {
	step := float32(dt.Seconds())
	for _, row := range ecs.Query2[components.Transform, components.Velocity](w) {
		tr, vel := row.First, row.Second
		tr.Position = tr.Position.Add(vel.Linear.Mul(step))

		if angle := vel.Angular.Len() * step; angle > 0 {
			spin := mgl32.QuatRotate(angle, vel.Angular.Normalize())
			rot := tr.Rotation
			if rot.W == 0 && rot.V.Len() == 0 {
				rot = mgl32.QuatIdent()
			}
			tr.Rotation = spin.Mul(rot).Normalize()
		}
	}
}
