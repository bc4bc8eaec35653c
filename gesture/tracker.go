// Package gesture turns raw touch samples into discrete camera commands.
package gesture

import (
	"errors"
	"sync"
	"time"
)

// DefaultTrailHold is how long a finished path stays visible.
const DefaultTrailHold = time.Second

var ErrInvalidState = errors.New("gesture: invalid tracker state")

// TouchPoint is one sample from the input surface.
type TouchPoint struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	TimestampMs int64   `json:"t"`
}

// Path is the ordered sequence of points for one continuous touch.
type Path []TouchPoint

// Sample is the classifier input for a finished path.
type Sample struct {
	Path              Path
	TouchCountAtStart int
}

// Tracker accumulates the path of one touch interaction at a time.
// A finished path is kept as the visible trail until the hold expires or
// a new interaction begins.
type Tracker struct {
	mu      sync.Mutex
	path    Path
	touches int
	open    bool

	trail     Path
	trailGen  uint64
	trailHold time.Duration
	onClear   func()
}

// NewTracker returns a tracker whose trail is cleared trailHold after
// each End. A non-positive hold keeps the trail until the next Begin.
func NewTracker(trailHold time.Duration) *Tracker {
	return &Tracker{trailHold: trailHold}
}

// OnTrailCleared registers a callback run after the trail is cleared.
func (t *Tracker) OnTrailCleared(fn func()) {
	t.mu.Lock()
	t.onClear = fn
	t.mu.Unlock()
}

func (t *Tracker) Begin(p TouchPoint, touchCount int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open {
		return ErrInvalidState
	}
	t.open = true
	t.touches = touchCount
	t.path = Path{p}
	t.trailGen++
	t.trail = t.path
	return nil
}

// Extend appends a sample. Duplicate and stationary points are kept.
func (t *Tracker) Extend(p TouchPoint) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return ErrInvalidState
	}
	t.path = append(t.path, p)
	t.trail = t.path
	return nil
}

// End appends the final point, seals the path and returns it.
func (t *Tracker) End(p TouchPoint) (Sample, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return Sample{}, ErrInvalidState
	}
	path := append(t.path, p)
	sample := Sample{Path: path, TouchCountAtStart: t.touches}

	t.open = false
	t.path = nil
	t.trail = path
	t.trailGen++
	if t.trailHold > 0 {
		gen := t.trailGen
		time.AfterFunc(t.trailHold, func() { t.clearTrail(gen) })
	}
	return sample, nil
}

// Reset drops any open path and the visible trail.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = false
	t.path = nil
	t.trail = nil
	t.trailGen++
}

// Open reports whether a path is in progress.
func (t *Tracker) Open() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// Trail returns a copy of the currently visible path.
func (t *Tracker) Trail() Path {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.trail) == 0 {
		return nil
	}
	out := make(Path, len(t.trail))
	copy(out, t.trail)
	return out
}

func (t *Tracker) clearTrail(gen uint64) {
	t.mu.Lock()
	if gen != t.trailGen {
		t.mu.Unlock()
		return
	}
	t.trail = nil
	fn := t.onClear
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}
