// Package scoring consumes externally computed compliance scores.
//
// Scores are produced elsewhere; this package validates them, resolves the
// effective total when a reviewer override is present and maps a total to a
// coarse recommendation. It never decides anything on its own.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
)

const (
	MinValue = 0.0
	MaxValue = 100.0
)

// Breakdown is the fixed set of named sub-scores.
type Breakdown struct {
	PolicyFit     float64 `json:"policy_fit"`
	FairValue     float64 `json:"fair_value"`
	Documentation float64 `json:"documentation"`
	Tax           float64 `json:"tax"`
	BrandSafety   float64 `json:"brand_safety"`
	Consent       float64 `json:"consent"`
}

func (b Breakdown) fields() []struct {
	name  string
	value float64
} {
	return []struct {
		name  string
		value float64
	}{
		{"policy_fit", b.PolicyFit},
		{"fair_value", b.FairValue},
		{"documentation", b.Documentation},
		{"tax", b.Tax},
		{"brand_safety", b.BrandSafety},
		{"consent", b.Consent},
	}
}

// Score is one snapshot from the scoring collaborator. A subject has at most
// one current score; a new snapshot replaces the previous one.
type Score struct {
	ID         id.ScoreID   `json:"id"`
	SubjectID  id.SubjectID `json:"subject_id"`
	Total      float64      `json:"total"`
	Breakdown  Breakdown    `json:"breakdown"`
	ComputedAt time.Time    `json:"computed_at"`
}

// Validate rejects out-of-range values. Values are never clamped.
func (s Score) Validate() error {
	if err := checkRange("total", s.Total); err != nil {
		return err
	}
	for _, f := range s.Breakdown.fields() {
		if err := checkRange(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// Override is a reviewer's replacement for a score's total.
// It applies only to the score it was recorded against.
type Override struct {
	ScoreID       id.ScoreID `json:"score_id"`
	Value         float64    `json:"value"`
	Justification string     `json:"justification,omitempty"`
	Actor         id.ActorID `json:"actor"`
	At            time.Time  `json:"at"`
}

// ValidateOverride enforces the override invariants: a non-blank justification
// and an in-range value.
func ValidateOverride(value float64, justification string) error {
	if strings.TrimSpace(justification) == "" {
		return dErrors.New(dErrors.CodeJustificationRequired, "an override requires a justification")
	}
	return checkRange("override value", value)
}

// Effective returns the total that governs the recommendation.
func Effective(score *Score, override *Override) float64 {
	if score == nil {
		return 0
	}
	if override != nil && override.ScoreID == score.ID {
		return override.Value
	}
	return score.Total
}

func checkRange(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < MinValue || v > MaxValue {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be between %.0f and %.0f", name, MinValue, MaxValue))
	}
	return nil
}
