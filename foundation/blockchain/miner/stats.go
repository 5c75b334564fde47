package miner

import (
	"go.uber.org/atomic"
)

// Stats maintains counters for searches. A single value can be shared by
// concurrent searches.
type Stats struct {
	Searches    atomic.Uint64
	Extranonces atomic.Uint64
	Hashes      atomic.Uint64
	Solutions   atomic.Uint64
}

// StatsSnapshot is a point in time copy of the counters.
type StatsSnapshot struct {
	Searches    uint64 `json:"searches"`
	Extranonces uint64 `json:"extranonces"`
	Hashes      uint64 `json:"hashes"`
	Solutions   uint64 `json:"solutions"`
}

// Snapshot returns the current value of every counter.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Searches:    s.Searches.Load(),
		Extranonces: s.Extranonces.Load(),
		Hashes:      s.Hashes.Load(),
		Solutions:   s.Solutions.Load(),
	}
}
