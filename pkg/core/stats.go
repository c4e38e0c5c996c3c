package core

import "time"

// PulseStats describes one propagation pass
type PulseStats struct {
	Pulse      uint64
	Inputs     int
	Batches    int
	Recomputed int
	Changed    int
	Promotions int
	MaxLevel   int
	Duration   time.Duration
}

// Totals accumulates statistics over the lifetime of a graph
type Totals struct {
	Pulses       uint64
	Transactions uint64
	Recomputed   uint64
	Changed      uint64
	Promotions   uint64
}

func (t *Totals) add(s PulseStats) {
	t.Pulses++
	t.Recomputed += uint64(s.Recomputed)
	t.Changed += uint64(s.Changed)
	t.Promotions += uint64(s.Promotions)
}
