package profiling

import (
	"github.com/pkg/profile"
)

// StartProcess starts a whole-process pprof profile for mode ("cpu" or "mem"), writing into dir.
// Any other mode, including "", profiles nothing. The returned function stops the profile and
// writes it out.
func StartProcess(mode, dir string) (stop func()) {
	switch mode {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.NoShutdownHook, profile.Quiet).Stop
	case "mem":
		return profile.Start(profile.MemProfileAllocs, profile.ProfilePath(dir), profile.NoShutdownHook, profile.Quiet).Stop
	}
	return func() {}
}
