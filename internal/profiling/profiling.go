// Package profiling is a lightweight per-frame CPU profiler.
//
// Timers are aggregated by name for the current frame only. The frame scheduler calls ResetFrame
// at the top of every tick, so Snapshot and TopN always describe the frame in progress.
package profiling

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	mu          sync.Mutex
	frameTotals = make(map[string]time.Duration)
	lastFrame   = make(map[string]time.Duration)
)

// Entry is one named total.
type Entry struct {
	Name string
	Dur  time.Duration
}

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("resource.Collect")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		frameTotals[name] += d
		mu.Unlock()
	}
}

// ResetFrame ends the current frame. Its totals stay readable through LastFrame until the next reset.
func ResetFrame() {
	mu.Lock()
	lastFrame, frameTotals = frameTotals, lastFrame
	clear(frameTotals)
	mu.Unlock()
}

// Snapshot returns a copy of current per-frame totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(frameTotals))
	for k, v := range frameTotals {
		out[k] = v
	}
	return out
}

// LastFrame returns the totals of the most recently completed frame, largest first.
func LastFrame() []Entry {
	mu.Lock()
	defer mu.Unlock()
	return sorted(lastFrame)
}

// SumWithPrefix adds up every current total whose name starts with prefix.
func SumWithPrefix(prefix string) time.Duration {
	mu.Lock()
	defer mu.Unlock()
	var sum time.Duration
	for k, v := range frameTotals {
		if strings.HasPrefix(k, prefix) {
			sum += v
		}
	}
	return sum
}

// TopN formats the n largest durations of the current frame.
// Example: "frame.Submit:4.2ms, asset.Drain:2.1ms"
func TopN(n int) string {
	mu.Lock()
	list := sorted(frameTotals)
	mu.Unlock()
	return Format(list, n)
}

// Format renders up to n entries as "name:1.5ms" pairs.
func Format(list []Entry, n int) string {
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for _, e := range list[:n] {
		parts = append(parts, e.Name+":"+FormatMs(e.Dur))
	}
	return strings.Join(parts, ", ")
}

// FormatMs renders d in milliseconds with one decimal, dropping a trailing ".0".
func FormatMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000.0
	s := strconv.FormatFloat(ms, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0") + "ms"
}

func sorted(totals map[string]time.Duration) []Entry {
	list := make([]Entry, 0, len(totals))
	for k, v := range totals {
		list = append(list, Entry{Name: k, Dur: v})
	}
	slices.SortFunc(list, func(a, b Entry) int {
		if a.Dur != b.Dur {
			if a.Dur > b.Dur {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return list
}
