// Package glfwwindow opens a GLFW window with an OpenGL 4.1 core context and adapts it to
// platform.Window and gpu.Surface. Callbacks run inside PollEvents on the render thread and only
// queue events.
package glfwwindow

import (
	"mirage/internal/fault"
	"mirage/internal/gpu"
	"mirage/internal/input"
	"mirage/internal/platform"
	"mirage/internal/profiling"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Options describe the window to open.
type Options struct {
	Width, Height int
	Title         string
	VSync         bool
	// CaptureCursor hides and locks the cursor for mouse look.
	CaptureCursor bool
}

// Window is a GLFW window. glfw.Init must have been called on the current thread.
type Window struct {
	logger zerolog.Logger
	win    *glfw.Window
	queue  platform.Queue
	vsync  bool
}

var (
	_ platform.Window = (*Window)(nil)
	_ gpu.Surface     = (*Window)(nil)
)

// Open creates the window and makes its context current.
func Open(opts Options, logger zerolog.Logger) (*Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	win, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create window")
	}
	w := &Window{
		logger: logger.With().Str("component", "window").Logger(),
		win:    win,
		vsync:  opts.VSync,
	}
	win.MakeContextCurrent()
	w.applySwapInterval()
	if opts.CaptureCursor {
		win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	}
	w.installCallbacks()
	return w, nil
}

func (w *Window) applySwapInterval() {
	// Without vsync the frame limiter paces frames.
	if w.vsync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
}

func (w *Window) installCallbacks() {
	w.win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Repeat || key == glfw.KeyUnknown {
			return
		}
		w.queue.Push(platform.KeyEvent(input.Key(key), action == glfw.Press))
	})
	w.win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.queue.Push(platform.PointerMove(x, y))
	})
	w.win.SetMouseButtonCallback(func(win *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		x, y := win.GetCursorPos()
		w.queue.Push(platform.PointerButton(x, y, input.MouseButton(button), action == glfw.Press))
	})
	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.queue.Push(platform.Resize(width, height))
	})
	w.win.SetCloseCallback(func(_ *glfw.Window) {
		w.queue.Push(platform.Close())
	})
}

// PollEvents pumps the OS event loop without blocking and returns what the callbacks queued.
func (w *Window) PollEvents() []platform.Event {
	func() { defer profiling.Track("glfw.PollEvents")(); glfw.PollEvents() }()
	return w.queue.Drain()
}

// Size returns the framebuffer size in pixels.
func (w *Window) Size() (int, int) {
	return w.win.GetFramebufferSize()
}

// Acquire fails with fault.ErrSurfaceLost when the window lost its context.
func (w *Window) Acquire() error {
	if glfw.GetCurrentContext() != w.win {
		return eris.Wrap(fault.ErrSurfaceLost, "window context is not current")
	}
	return nil
}

func (w *Window) Present() error {
	defer profiling.Track("glfw.SwapBuffers")()
	w.win.SwapBuffers()
	return nil
}

// Resize is a no-op: the default framebuffer follows the window and the device sets the viewport
// per submission.
func (w *Window) Resize(width, height int) error {
	w.logger.Debug().Int("width", width).Int("height", height).Msg("framebuffer resized")
	return nil
}

// Recreate makes the context current again.
func (w *Window) Recreate() error {
	w.win.MakeContextCurrent()
	if glfw.GetCurrentContext() != w.win {
		return eris.Wrap(fault.ErrDeviceLost, "context could not be made current")
	}
	w.applySwapInterval()
	return nil
}

// SetCursorCaptured locks or releases the cursor.
func (w *Window) SetCursorCaptured(captured bool) {
	if captured {
		w.win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		w.win.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

// Destroy closes the window.
func (w *Window) Destroy() {
	w.win.Destroy()
}
