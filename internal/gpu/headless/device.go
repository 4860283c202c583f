// Package headless is an in-memory GPU backend. It executes nothing but tracks every object and
// submission, which makes it the backend for tests and windowless runs.
package headless

import (
	"sync"

	"mirage/internal/fault"
	"mirage/internal/gpu"

	"github.com/rotisserie/eris"
)

// Option configures a Device.
type Option func(*Device)

// WithFenceLatency makes each fence signal only after n later submissions. A queue that stops
// receiving work still finishes it: once the newest fence has been polled n times with no
// submission in between, every submitted fence signals.
func WithFenceLatency(n int) Option {
	return func(d *Device) { d.latency = gpu.Fence(max(n, 0)) }
}

// WithManualFences disables automatic signaling; fences complete only through Signal.
func WithManualFences() Option {
	return func(d *Device) { d.manual = true }
}

// Device is a gpu.Device that keeps objects in maps.
type Device struct {
	mu sync.Mutex

	nextID    uint32
	buffers   map[gpu.BufferID]gpu.BufferDesc
	textures  map[gpu.TextureID]gpu.TextureDesc
	pipelines map[gpu.PipelineID]gpu.PipelineDesc

	submitted gpu.Fence
	signaled  gpu.Fence
	latency   gpu.Fence
	manual    bool
	idlePolls gpu.Fence

	last      gpu.CommandList
	destroyed int
	createErr error
	lost      bool
}

var _ gpu.Device = (*Device)(nil)

// New returns an empty device. Without options every fence signals on submit.
func New(opts ...Option) *Device {
	d := &Device{
		buffers:   make(map[gpu.BufferID]gpu.BufferDesc),
		textures:  make(map[gpu.TextureID]gpu.TextureDesc),
		pipelines: make(map[gpu.PipelineID]gpu.PipelineDesc),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) checkCreate() error {
	if d.lost {
		return eris.Wrap(fault.ErrDeviceLost, "headless device lost")
	}
	if err := d.createErr; err != nil {
		d.createErr = nil
		return err
	}
	return nil
}

func (d *Device) CreateBuffer(desc gpu.BufferDesc) (gpu.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkCreate(); err != nil {
		return 0, err
	}
	id := gpu.BufferID(d.id())
	d.buffers[id] = desc
	return id, nil
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkCreate(); err != nil {
		return 0, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, eris.Errorf("invalid texture size %dx%d", desc.Width, desc.Height)
	}
	id := gpu.TextureID(d.id())
	d.textures[id] = desc
	return id, nil
}

func (d *Device) CreatePipeline(desc gpu.PipelineDesc) (gpu.PipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkCreate(); err != nil {
		return 0, err
	}
	id := gpu.PipelineID(d.id())
	d.pipelines[id] = desc
	return id, nil
}

func (d *Device) DestroyBuffer(id gpu.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[id]; ok {
		delete(d.buffers, id)
		d.destroyed++
	}
}

func (d *Device) DestroyTexture(id gpu.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[id]; ok {
		delete(d.textures, id)
		d.destroyed++
	}
}

func (d *Device) DestroyPipeline(id gpu.PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipelines[id]; ok {
		delete(d.pipelines, id)
		d.destroyed++
	}
}

// Submit records list and returns its fence.
func (d *Device) Submit(list *gpu.CommandList) (gpu.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return 0, eris.Wrap(fault.ErrDeviceLost, "headless submit")
	}
	for _, p := range list.Passes {
		for _, dr := range p.Draws {
			if _, ok := d.buffers[dr.VertexBuffer]; !ok {
				return 0, eris.Errorf("pass %s draws destroyed vertex buffer %d", p.Label, dr.VertexBuffer)
			}
			if _, ok := d.pipelines[dr.Pipeline]; !ok {
				return 0, eris.Errorf("pass %s uses destroyed pipeline %d", p.Label, dr.Pipeline)
			}
		}
	}
	d.submitted++
	d.idlePolls = 0
	d.last = *list
	if !d.manual && d.submitted > d.latency {
		d.signaled = max(d.signaled, d.submitted-d.latency)
	}
	return d.submitted, nil
}

func (d *Device) PollFence(f gpu.Fence) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f <= d.signaled {
		return true
	}
	if d.manual || f != d.submitted {
		return false
	}
	d.idlePolls++
	if d.idlePolls >= d.latency {
		d.signaled = d.submitted
		return true
	}
	return false
}

// Signal marks every fence up to f complete.
func (d *Device) Signal(f gpu.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.signaled = max(d.signaled, min(f, d.submitted))
}

// SignalAll marks every submitted fence complete.
func (d *Device) SignalAll() {
	d.Signal(^gpu.Fence(0))
}

// FailNextCreate makes the next create call return err.
func (d *Device) FailNextCreate(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createErr = err
}

// SetLost toggles device loss.
func (d *Device) SetLost(lost bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = lost
}

// Stats describes the device's current contents.
type Stats struct {
	Buffers, Textures, Pipelines int
	Destroyed                    int
	Submitted, Signaled          gpu.Fence
}

func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Buffers:   len(d.buffers),
		Textures:  len(d.textures),
		Pipelines: len(d.pipelines),
		Destroyed: d.destroyed,
		Submitted: d.submitted,
		Signaled:  d.signaled,
	}
}

// Live returns the number of objects not yet destroyed.
func (s Stats) Live() int { return s.Buffers + s.Textures + s.Pipelines }

// LastSubmission returns the most recently submitted command list.
func (d *Device) LastSubmission() gpu.CommandList {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// HasTexture reports whether id is a live texture, and its description.
func (d *Device) HasTexture(id gpu.TextureID) (gpu.TextureDesc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.textures[id]
	return desc, ok
}

// HasBuffer reports whether id is a live buffer.
func (d *Device) HasBuffer(id gpu.BufferID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.buffers[id]
	return ok
}
