package proxy

import "sync/atomic"

// ModeStats counts attempts for one tier.
type ModeStats struct {
	Requests  int64 `json:"requests"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
}

const numModes = 4

// Stats tracks per-mode request outcomes across the gateway's lifetime.
type Stats struct {
	requests  [numModes]atomic.Int64
	successes [numModes]atomic.Int64
	failures  [numModes]atomic.Int64
}

func (s *Stats) recordRequest(m Mode) {
	s.requests[m].Add(1)
}

func (s *Stats) recordSuccess(m Mode) {
	s.successes[m].Add(1)
}

func (s *Stats) recordFailure(m Mode) {
	s.failures[m].Add(1)
}

// Snapshot returns current counters keyed by mode name.
func (s *Stats) Snapshot() map[string]ModeStats {
	out := make(map[string]ModeStats, len(modeNames))
	for mode, name := range modeNames {
		out[name] = ModeStats{
			Requests:  s.requests[mode].Load(),
			Successes: s.successes[mode].Load(),
			Failures:  s.failures[mode].Load(),
		}
	}
	return out
}
