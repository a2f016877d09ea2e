// Package score converts a checklist plus recorded responses into a compliance
// score, risk tier, and XP award. All functions are pure and total over their
// documented domain; the only error path is malformed input (negative weight).
package score

import (
	"math"
	"time"

	dErrors "leanquest/pkg/domain-errors"
)

// ChecklistItem is a single auditable point with an expected answer and a
// scoring weight. A zero weight excludes the item from scoring; weights are
// never negative.
type ChecklistItem struct {
	ID       string  `json:"id"`
	Prompt   string  `json:"prompt"`
	Expected string  `json:"expected"`
	Weight   float64 `json:"weight"`
}

// Response records what the auditor observed for one checklist item.
type Response struct {
	ItemID     string    `json:"itemId"`
	Answer     string    `json:"answer"`
	RecordedAt time.Time `json:"recordedAt"`
	PhotoRefs  []string  `json:"photoRefs,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// RiskTier buckets a compliance score into the familiar traffic-light scale.
type RiskTier string

const (
	TierGreen  RiskTier = "Green"
	TierYellow RiskTier = "Yellow"
	TierRed    RiskTier = "Red"
)

// Risk tier cutoffs: score >= greenCutoff is Green, >= yellowCutoff is Yellow.
const (
	greenCutoff  = 85
	yellowCutoff = 70
)

// Result is the outcome of scoring one audit.
type Result struct {
	Score          int      `json:"score"`
	RiskTier       RiskTier `json:"riskTier"`
	CompliantCount int      `json:"compliantCount"`
	TotalCount     int      `json:"totalCount"`
}

// Calculate scores a response set against a checklist.
//
// score = round(100 * Σ weight[answer==expected] / Σ weight). A response is
// compliant iff its answer equals the item's expected answer; unanswered items
// count as non-compliant. A checklist whose weights sum to zero is vacuously
// compliant (score 100) so the division never happens. Zero responses is a
// valid, fully non-compliant audit, not an error.
func Calculate(items []ChecklistItem, responses map[string]Response) (Result, error) {
	var total, compliant float64
	res := Result{TotalCount: len(items)}

	for _, item := range items {
		if item.Weight < 0 {
			return Result{}, dErrors.Newf(dErrors.CodeInvalidInput,
				"checklist item %s has negative weight", item.ID)
		}
		total += item.Weight
		r, answered := responses[item.ID]
		if answered && r.Answer == item.Expected {
			compliant += item.Weight
			res.CompliantCount++
		}
	}

	if total == 0 {
		res.Score = 100
	} else {
		res.Score = int(math.Round(100 * compliant / total))
	}
	res.RiskTier = TierFor(res.Score)
	return res, nil
}

// TierFor maps a compliance score to its risk tier.
func TierFor(score int) RiskTier {
	switch {
	case score >= greenCutoff:
		return TierGreen
	case score >= yellowCutoff:
		return TierYellow
	default:
		return TierRed
	}
}

// XPAward computes the XP granted for an activity: round(baseReward*score/100).
// baseReward belongs to the scenario template, never to the player.
func XPAward(baseReward, score int) int {
	return int(math.Round(float64(baseReward) * float64(score) / 100))
}
