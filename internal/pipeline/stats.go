package pipeline

import (
	"slices"
	"sync"
	"time"
)

type runSample struct {
	at       time.Time
	duration time.Duration
	points   int
	failed   bool
}

// StatsSnapshot aggregates the runs inside the stats window.
type StatsSnapshot struct {
	Runs     int     `json:"runs"`
	Failures int     `json:"failures"`
	Points   int     `json:"points"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
}

// Stats keeps run outcomes for a rolling window. Safe for concurrent use.
type Stats struct {
	mu      sync.Mutex
	samples []runSample
	window  time.Duration
	now     func() time.Time
}

// NewStats tracks runs of the last window; zero means one hour.
func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window, now: time.Now}
}

func (s *Stats) record(d time.Duration, points int, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, runSample{at: now, duration: d, points: points, failed: failed})
}

// Snapshot returns the current aggregate. Latencies cover successful runs.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())

	var snap StatsSnapshot
	var ms []int64
	var sum int64
	for _, sm := range s.samples {
		snap.Runs++
		if sm.failed {
			snap.Failures++
			continue
		}
		snap.Points += sm.points
		v := sm.duration.Milliseconds()
		ms = append(ms, v)
		sum += v
	}
	if len(ms) == 0 {
		return snap
	}
	slices.Sort(ms)
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(sum) / float64(len(ms))
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm runSample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	idx := float64(len(sorted)-1) * pct / 100
	lo := int(idx)
	if lo+1 >= len(sorted) {
		return float64(sorted[len(sorted)-1])
	}
	w := idx - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*w
}
