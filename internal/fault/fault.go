// Package fault defines the engine's error taxonomy.
//
// Every error produced by the runtime core wraps one of the sentinels below, so callers can
// classify a failure with KindOf regardless of how much context was added on the way up.
package fault

import "github.com/rotisserie/eris"

// Kind is the category an error belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	// KindResource covers decode and upload failures. Non-fatal: the resource is marked Failed.
	KindResource
	// KindInvariant covers programmer errors such as stale handle dereference.
	KindInvariant
	// KindDevice covers GPU device loss and surfaces that must be recreated.
	KindDevice
	// KindShutdown is a close request. It is a normal terminal transition, not a failure.
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindResource:
		return "resource"
	case KindInvariant:
		return "invariant"
	case KindDevice:
		return "device"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

var (
	// ErrDecode is returned when an asset cannot be read or parsed.
	ErrDecode = eris.New("asset decode failed")
	// ErrUpload is returned when the device rejects CPU data for a resource.
	ErrUpload = eris.New("resource upload failed")

	// ErrStaleHandle is returned when a resource handle's generation no longer matches its slot.
	ErrStaleHandle = eris.New("stale resource handle")
	// ErrStaleEntity is returned when an entity has been destroyed.
	ErrStaleEntity = eris.New("stale entity")
	// ErrKindMismatch is returned when data of one resource kind is uploaded into a handle of another.
	ErrKindMismatch = eris.New("resource kind mismatch")
	// ErrNotRegistered is returned when a component type is used before registration.
	ErrNotRegistered = eris.New("component type not registered")

	// ErrDeviceLost is returned when the GPU device is gone.
	ErrDeviceLost = eris.New("gpu device lost")
	// ErrSurfaceLost is returned when the presentable surface must be recreated.
	ErrSurfaceLost = eris.New("surface out of date")
	// ErrDeviceUnrecoverable is returned after device recovery exhausted its retries.
	ErrDeviceUnrecoverable = eris.New("gpu device unrecoverable")

	// ErrShutdown signals a requested shutdown.
	ErrShutdown = eris.New("shutdown requested")
)

var taxonomy = []struct {
	kind Kind
	errs []error
}{
	{KindResource, []error{ErrDecode, ErrUpload}},
	{KindInvariant, []error{ErrStaleHandle, ErrStaleEntity, ErrKindMismatch, ErrNotRegistered}},
	{KindDevice, []error{ErrDeviceLost, ErrSurfaceLost, ErrDeviceUnrecoverable}},
	{KindShutdown, []error{ErrShutdown}},
}

// KindOf classifies err. A nil error is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, group := range taxonomy {
		for _, target := range group.errs {
			if eris.Is(err, target) {
				return group.kind
			}
		}
	}
	return KindUnknown
}

// IsRecoverableDevice reports whether err is a device error the frame loop may retry.
func IsRecoverableDevice(err error) bool {
	return eris.Is(err, ErrDeviceLost) || eris.Is(err, ErrSurfaceLost)
}
