package input

// Key is a platform-independent key code. Values match GLFW key codes, which use ASCII for
// printable keys, so the GLFW adapter converts with a plain cast.
type Key int

const (
	KeyUnknown Key = -1

	KeySpace Key = 32
	Key0     Key = 48
	Key1     Key = 49
	Key2     Key = 50
	Key3     Key = 51
	KeyA     Key = 65
	KeyD     Key = 68
	KeyE     Key = 69
	KeyF     Key = 70
	KeyP     Key = 80
	KeyQ     Key = 81
	KeyS     Key = 83
	KeyW     Key = 87

	KeyEscape Key = 256
	KeyEnter  Key = 257
	KeyTab    Key = 258
	KeyRight  Key = 262
	KeyLeft   Key = 263
	KeyDown   Key = 264
	KeyUp     Key = 265
	KeyF3     Key = 292

	KeyLeftShift    Key = 340
	KeyLeftControl  Key = 341
	KeyRightShift   Key = 344
	KeyRightControl Key = 345
)

// MouseButton is a pointer button. Values match GLFW.
type MouseButton int

const (
	MouseButtonLeft   MouseButton = 0
	MouseButtonRight  MouseButton = 1
	MouseButtonMiddle MouseButton = 2
)
