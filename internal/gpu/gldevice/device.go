// Package gldevice implements gpu.Device on OpenGL 4.1 core.
//
// Every method must be called on the thread that owns the current GL context. Fences are GL sync
// objects created after each submission and polled without waiting.
package gldevice

import (
	"mirage/internal/fault"
	"mirage/internal/gpu"
	"mirage/internal/profiling"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// glContextLost is GL_CONTEXT_LOST, reported by glGetError after a reset on drivers that
// support robustness. The 4.1 core bindings do not define it.
const glContextLost = 0x0507

type buffer struct {
	id    uint32
	vao   uint32
	usage gpu.BufferUsage
}

type pipeline struct {
	prog *program
	desc gpu.PipelineDesc
}

type pendingFence struct {
	fence gpu.Fence
	sync  uintptr
}

// Device is the OpenGL backend.
type Device struct {
	logger zerolog.Logger

	nextID    uint32
	buffers   map[gpu.BufferID]buffer
	textures  map[gpu.TextureID]uint32
	pipelines map[gpu.PipelineID]pipeline

	submitted gpu.Fence
	signaled  gpu.Fence
	pending   []pendingFence
}

var _ gpu.Device = (*Device)(nil)

// New loads the GL function pointers for the current context and sets the default state.
func New(logger zerolog.Logger) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, eris.Wrap(err, "failed to initialize OpenGL bindings")
	}
	d := &Device{
		logger:    logger.With().Str("component", "gldevice").Logger(),
		buffers:   make(map[gpu.BufferID]buffer),
		textures:  make(map[gpu.TextureID]uint32),
		pipelines: make(map[gpu.PipelineID]pipeline),
	}

	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)

	d.logger.Info().
		Str("version", gl.GoStr(gl.GetString(gl.VERSION))).
		Str("renderer", gl.GoStr(gl.GetString(gl.RENDERER))).
		Msg("opengl initialized")
	return d, nil
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) CreateBuffer(desc gpu.BufferDesc) (gpu.BufferID, error) {
	if len(desc.Data) == 0 {
		return 0, eris.Errorf("buffer %s is empty", desc.Label)
	}
	var b buffer
	b.usage = desc.Usage
	gl.GenBuffers(1, &b.id)

	switch desc.Usage {
	case gpu.BufferIndex:
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.id)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(desc.Data), gl.Ptr(desc.Data), gl.STATIC_DRAW)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, 0)
	default:
		gl.GenVertexArrays(1, &b.vao)
		gl.BindVertexArray(b.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
		gl.BufferData(gl.ARRAY_BUFFER, len(desc.Data), gl.Ptr(desc.Data), gl.STATIC_DRAW)

		// position(3) normal(3) uv(2)
		stride := int32(gpu.VertexStride * 4)
		gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
		gl.EnableVertexAttribArray(0)
		gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
		gl.EnableVertexAttribArray(1)
		gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 6*4)
		gl.EnableVertexAttribArray(2)

		gl.BindVertexArray(0)
		gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	}
	if err := d.check("create buffer " + desc.Label); err != nil {
		d.deleteBuffer(b)
		return 0, err
	}

	id := gpu.BufferID(d.id())
	d.buffers[id] = b
	return id, nil
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.TextureID, error) {
	tex, err := createTexture(desc)
	if err != nil {
		return 0, err
	}
	if err := d.check("create texture " + desc.Label); err != nil {
		gl.DeleteTextures(1, &tex)
		return 0, err
	}
	id := gpu.TextureID(d.id())
	d.textures[id] = tex
	return id, nil
}

func (d *Device) CreatePipeline(desc gpu.PipelineDesc) (gpu.PipelineID, error) {
	prog, err := linkProgram(desc.VertexSource, desc.FragmentSource)
	if err != nil {
		return 0, eris.Wrapf(err, "pipeline %s", desc.Label)
	}
	id := gpu.PipelineID(d.id())
	d.pipelines[id] = pipeline{prog: prog, desc: desc}
	return id, nil
}

func (d *Device) deleteBuffer(b buffer) {
	gl.DeleteBuffers(1, &b.id)
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
	}
}

func (d *Device) DestroyBuffer(id gpu.BufferID) {
	if b, ok := d.buffers[id]; ok {
		d.deleteBuffer(b)
		delete(d.buffers, id)
	}
}

func (d *Device) DestroyTexture(id gpu.TextureID) {
	if tex, ok := d.textures[id]; ok {
		gl.DeleteTextures(1, &tex)
		delete(d.textures, id)
	}
}

func (d *Device) DestroyPipeline(id gpu.PipelineID) {
	if p, ok := d.pipelines[id]; ok {
		gl.DeleteProgram(p.prog.id)
		delete(d.pipelines, id)
	}
}

// Submit executes list and fences it.
func (d *Device) Submit(list *gpu.CommandList) (gpu.Fence, error) {
	defer profiling.Track("gl.Submit")()

	gl.Viewport(0, 0, int32(list.Width), int32(list.Height))
	for i := range list.Passes {
		d.pass(&list.Passes[i])
	}
	if err := d.check("submit"); err != nil {
		return 0, err
	}

	sync := gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
	gl.Flush()
	d.submitted++
	d.pending = append(d.pending, pendingFence{fence: d.submitted, sync: sync})
	return d.submitted, nil
}

func (d *Device) pass(p *gpu.Pass) {
	if p.Clear {
		c := p.ClearColor
		gl.DepthMask(true)
		gl.ClearColor(c[0], c[1], c[2], c[3])
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	}

	var bound gpu.PipelineID
	for i := range p.Draws {
		dr := &p.Draws[i]
		pl, ok := d.pipelines[dr.Pipeline]
		if !ok {
			d.logger.Warn().Uint32("pipeline", uint32(dr.Pipeline)).Str("pass", p.Label).Msg("draw skipped: unknown pipeline")
			continue
		}
		vb, ok := d.buffers[dr.VertexBuffer]
		if !ok {
			d.logger.Warn().Uint32("buffer", uint32(dr.VertexBuffer)).Str("pass", p.Label).Msg("draw skipped: unknown vertex buffer")
			continue
		}

		if bound != dr.Pipeline {
			bind(pl)
			gl.UniformMatrix4fv(pl.prog.viewProj, 1, false, &p.ViewProj[0])
			pl.prog.setLights(p.Ambient, p.Lights)
			bound = dr.Pipeline
		}
		gl.UniformMatrix4fv(pl.prog.model, 1, false, &dr.Model[0])
		gl.Uniform4fv(pl.prog.color, 1, &dr.Color[0])

		tex, hasTexture := d.textures[dr.Texture]
		if hasTexture {
			gl.ActiveTexture(gl.TEXTURE0)
			gl.BindTexture(gl.TEXTURE_2D, tex)
			gl.Uniform1i(pl.prog.texture, 0)
			gl.Uniform1i(pl.prog.hasTexture, 1)
		} else {
			gl.Uniform1i(pl.prog.hasTexture, 0)
		}

		gl.BindVertexArray(vb.vao)
		if ib, ok := d.buffers[dr.IndexBuffer]; ok && dr.IndexCount > 0 {
			gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.id)
			gl.DrawElements(gl.TRIANGLES, int32(dr.IndexCount), gl.UNSIGNED_INT, nil)
		} else {
			gl.DrawArrays(gl.TRIANGLES, 0, int32(dr.VertexCount))
		}
	}
	gl.BindVertexArray(0)
}

// bind applies a pipeline's program and fixed-function state.
func bind(pl pipeline) {
	gl.UseProgram(pl.prog.id)
	if pl.desc.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(pl.desc.DepthWrite)
	if pl.desc.Blend == gpu.BlendAlpha {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}
}

// PollFence reports whether f completed. Fences complete in submission order, so every older sync
// object is released along with f's.
func (d *Device) PollFence(f gpu.Fence) bool {
	if f <= d.signaled {
		return true
	}
	for len(d.pending) > 0 {
		p := d.pending[0]
		status := gl.ClientWaitSync(p.sync, 0, 0)
		if status != gl.ALREADY_SIGNALED && status != gl.CONDITION_SATISFIED {
			break
		}
		gl.DeleteSync(p.sync)
		d.signaled = p.fence
		d.pending = d.pending[1:]
	}
	return f <= d.signaled
}

// check maps the GL error flag to an error. A lost context is reported as device loss.
func (d *Device) check(op string) error {
	code := gl.GetError()
	switch code {
	case gl.NO_ERROR:
		return nil
	case glContextLost:
		return eris.Wrap(fault.ErrDeviceLost, op)
	case gl.OUT_OF_MEMORY:
		return eris.Errorf("%s: out of gpu memory", op)
	}
	return eris.Errorf("%s: gl error 0x%04x", op, code)
}
