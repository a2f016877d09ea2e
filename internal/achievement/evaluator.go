package achievement

import (
	"sync"
	"time"
)

// Evaluator checks catalog rules against player aggregates. It accumulates
// unlocked ids across calls so interleaved evaluations for the same player
// never emit the same achievement twice, in whichever order they land.
type Evaluator struct {
	rules []Rule
	now   func() time.Time

	mu       sync.Mutex
	unlocked map[ID]time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides the timestamp source. Tests use this for determinism.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// NewEvaluator builds an evaluator over the given catalog. The seed set is
// copied, so callers may reuse the map they passed in.
func NewEvaluator(rules []Rule, alreadyUnlocked map[ID]time.Time, opts ...Option) *Evaluator {
	e := &Evaluator{
		rules:    rules,
		unlocked: make(map[ID]time.Time, len(alreadyUnlocked)),
		now:      time.Now,
	}
	for id, at := range alreadyUnlocked {
		e.unlocked[id] = at
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the definitions newly satisfied by the given stats and
// activity. Each returned id is added to the accumulated unlocked set, so a
// single pass (and any later pass) unlocks an id at most once. Rules are
// independent, so the resulting set does not depend on catalog order.
func (e *Evaluator) Evaluate(stats PlayerStats, last Activity) []Unlocked {
	e.mu.Lock()
	defer e.mu.Unlock()

	// The caller's view of already-unlocked ids may be fresher than ours
	// (e.g. another device unlocked something since we were constructed).
	for id, at := range stats.Unlocked {
		if _, seen := e.unlocked[id]; !seen {
			e.unlocked[id] = at
		}
	}

	var newly []Unlocked
	for _, rule := range e.rules {
		if _, seen := e.unlocked[rule.ID]; seen {
			continue
		}
		if !rule.Satisfied(stats, last) {
			continue
		}
		at := e.now()
		e.unlocked[rule.ID] = at
		newly = append(newly, Unlocked{ID: rule.ID, UnlockedAt: at})
	}
	return newly
}

// UnlockedSet returns a copy of the accumulated unlocked ids.
func (e *Evaluator) UnlockedSet() map[ID]time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[ID]time.Time, len(e.unlocked))
	for id, at := range e.unlocked {
		out[id] = at
	}
	return out
}

// Definitions returns the catalog definitions, for progress display.
func (e *Evaluator) Definitions() []Definition {
	defs := make([]Definition, 0, len(e.rules))
	for _, r := range e.rules {
		defs = append(defs, r.Definition)
	}
	return defs
}
