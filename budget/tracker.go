// Package budget tracks daily LLM spend. The tracker records reality; it
// never enforces policy. Refusing to spend is not implemented anywhere.
// Quality degradation under budget pressure is the router's job.
package budget

import (
	"sync"
	"time"
)

// DefaultDegradeThreshold is the fraction of the daily limit at which the
// router starts degrading quality.
const DefaultDegradeThreshold = 0.8

// entry is one append-only ledger record
type entry struct {
	at     time.Time
	amount float64
}

// Summary reports the tracker state for a budget endpoint or log line.
type Summary struct {
	TodayTotal  float64 `json:"today_total"`
	DailyLimit  float64 `json:"daily_limit"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
}

// Tracker keeps a rolling ledger of spend events scoped to the current
// calendar day. Entries from previous days are pruned lazily before every
// read, so the ledger stays correct across long-idle periods without a
// background sweeper. The ledger is not persisted: a fresh process starts
// with zero spend recorded (known limitation).
//
// All methods are safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	dailyLimit float64
	entries    []entry

	// now is swappable for tests
	now func() time.Time
}

// NewTracker creates a tracker with the given daily limit in USD.
func NewTracker(dailyLimit float64) *Tracker {
	return &Tracker{
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// AddCost appends a spend entry timestamped now. It never rejects a cost,
// even one that pushes the tracker over budget.
func (t *Tracker) AddCost(amount float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()
	t.entries = append(t.entries, entry{at: t.now(), amount: amount})
}

// TodayTotal returns the sum of today's entries.
func (t *Tracker) TodayTotal() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()
	return t.total()
}

// RemainingBudget returns how much of the daily limit is left, floored at 0.
func (t *Tracker) RemainingBudget() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()
	remaining := t.dailyLimit - t.total()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsOverBudget reports whether today's spend has reached the daily limit.
func (t *Tracker) IsOverBudget() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()
	return t.total() >= t.dailyLimit
}

// ShouldDegrade reports whether today's spend has reached threshold times
// the daily limit.
func (t *Tracker) ShouldDegrade(threshold float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()
	return t.total() >= t.dailyLimit*threshold
}

// GetSummary returns the current tracker state. PercentUsed is 0 when the
// daily limit is 0; this is a reporting convenience, not a policy decision.
func (t *Tracker) GetSummary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()
	total := t.total()
	remaining := t.dailyLimit - total
	if remaining < 0 {
		remaining = 0
	}
	percent := 0.0
	if t.dailyLimit > 0 {
		percent = total / t.dailyLimit * 100
	}
	return Summary{
		TodayTotal:  total,
		DailyLimit:  t.dailyLimit,
		Remaining:   remaining,
		PercentUsed: percent,
	}
}

// prune drops entries whose calendar date differs from today.
// Callers must hold mu.
func (t *Tracker) prune() {
	today := t.now()
	ty, tm, td := today.Date()

	kept := t.entries[:0]
	for _, e := range t.entries {
		ey, em, ed := e.at.Date()
		if ey == ty && em == tm && ed == td {
			kept = append(kept, e)
		}
	}
	t.entries = kept
}

// total sums the ledger. Callers must hold mu after pruning.
func (t *Tracker) total() float64 {
	sum := 0.0
	for _, e := range t.entries {
		sum += e.amount
	}
	return sum
}
