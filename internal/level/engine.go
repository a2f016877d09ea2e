// Package level maps cumulative XP to a level using a monotonic threshold
// table. LevelOf is pure and side-effect-free; the backend is the single
// writer of player levels and uses this package to derive them.
package level

import (
	"fmt"
	"math"
)

// Table is a strictly increasing sequence of cumulative XP cutoffs.
// Table[0] must be 0 so every player is at least level 1.
type Table []int

// DefaultTable is the shipped progression curve.
var DefaultTable = Table{0, 1000, 2500, 4500, 7000, 10000, 14000, 19000, 25000, 32000}

// NewTable validates and returns a threshold table.
func NewTable(thresholds []int) (Table, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("threshold table must not be empty")
	}
	if thresholds[0] != 0 {
		return nil, fmt.Errorf("threshold table must start at 0, got %d", thresholds[0])
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return nil, fmt.Errorf("threshold table must be strictly increasing at index %d", i)
		}
	}
	return Table(thresholds), nil
}

// Progress is the level derived from a cumulative XP total.
type Progress struct {
	Level       int `json:"level"`
	NextLevelXP int `json:"nextLevelXp"`
}

// LevelOf returns the 1-based level for totalXP and the cumulative XP needed
// for the next level. Past the end of the table each further cutoff
// extrapolates as round(prev*1.5) so progression never dead-ends. Negative
// input clamps to zero.
func (t Table) LevelOf(totalXP int) Progress {
	if totalXP < 0 {
		totalXP = 0
	}
	last := 0
	for i := len(t) - 1; i >= 0; i-- {
		if totalXP >= t[i] {
			last = i
			break
		}
	}
	if last+1 < len(t) {
		return Progress{Level: last + 1, NextLevelXP: t[last+1]}
	}

	// Beyond the configured table: keep multiplying the last cutoff by 1.5
	// until it exceeds totalXP. Each extrapolated cutoff is one more level.
	level := len(t)
	next := extrapolate(t[len(t)-1])
	for totalXP >= next {
		level++
		next = extrapolate(next)
	}
	return Progress{Level: level, NextLevelXP: next}
}

// FloorOf returns the cumulative cutoff of the level totalXP sits in, i.e.
// the XP at which the current level began. TotalXP minus this floor is the
// "current XP" shown on progress bars.
func (t Table) FloorOf(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	floor := 0
	for i := len(t) - 1; i >= 0; i-- {
		if totalXP >= t[i] {
			floor = t[i]
			break
		}
	}
	if floor == t[len(t)-1] {
		next := extrapolate(floor)
		for totalXP >= next {
			floor = next
			next = extrapolate(next)
		}
	}
	return floor
}

func extrapolate(cutoff int) int {
	if cutoff == 0 {
		// Single-entry table {0}; pick a non-zero next cutoff so progress bars
		// render something sane.
		return 1000
	}
	return int(math.Round(float64(cutoff) * 1.5))
}
