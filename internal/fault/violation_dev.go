//go:build !release

package fault

import "github.com/rs/zerolog"

// Violation reports a broken invariant. Development builds panic so the bug surfaces at its origin.
func Violation(_ zerolog.Logger, err error) {
	panic(err)
}
