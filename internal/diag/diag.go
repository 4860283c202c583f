// Package diag collects non-fatal failures reported by background subsystems.
package diag

import (
	"sync"
	"time"

	"mirage/internal/fault"

	"github.com/rs/zerolog"
)

// Diagnostic is a single reported failure.
type Diagnostic struct {
	// Source names the subsystem, e.g. "asset" or "audio".
	Source string
	// Key identifies what failed, e.g. an asset path. Reports are deduplicated per Source+Key.
	Key  string
	Err  error
	Time time.Time
}

// Sink receives diagnostics. Implementations must be safe for concurrent use.
type Sink interface {
	Report(d Diagnostic)
}

// Log is a Sink that logs each Source+Key once and remembers recent reports.
type Log struct {
	logger zerolog.Logger

	mu     sync.Mutex
	seen   map[string]struct{}
	recent []Diagnostic
	limit  int
}

// NewLog returns a Log sink keeping up to limit recent diagnostics.
func NewLog(logger zerolog.Logger, limit int) *Log {
	return &Log{
		logger: logger.With().Str("component", "diag").Logger(),
		seen:   make(map[string]struct{}),
		limit:  max(limit, 1),
	}
}

// Report logs d unless the same Source+Key was already reported.
func (l *Log) Report(d Diagnostic) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	id := d.Source + "\x00" + d.Key

	l.mu.Lock()
	if _, dup := l.seen[id]; dup {
		l.mu.Unlock()
		return
	}
	l.seen[id] = struct{}{}
	l.recent = append(l.recent, d)
	if len(l.recent) > l.limit {
		l.recent = l.recent[len(l.recent)-l.limit:]
	}
	l.mu.Unlock()

	l.logger.Warn().
		Err(d.Err).
		Str("source", d.Source).
		Str("key", d.Key).
		Str("kind", fault.KindOf(d.Err).String()).
		Msg("diagnostic")
}

// Forget allows Source+Key to be reported again, e.g. after an asset was evicted and resubmitted.
func (l *Log) Forget(source, key string) {
	l.mu.Lock()
	delete(l.seen, source+"\x00"+key)
	l.mu.Unlock()
}

// Recent returns the most recent diagnostics, oldest first.
func (l *Log) Recent() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Diagnostic, len(l.recent))
	copy(out, l.recent)
	return out
}

// Count returns how many distinct diagnostics were reported.
func (l *Log) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Nop discards every diagnostic.
type Nop struct{}

func (Nop) Report(Diagnostic) {}
