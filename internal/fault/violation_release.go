//go:build release

package fault

import "github.com/rs/zerolog"

// Violation reports a broken invariant. Release builds log it and keep running.
func Violation(logger zerolog.Logger, err error) {
	logger.Error().Err(err).Msg("invariant violation")
}
