package scoring

import (
	dErrors "dealdesk/pkg/domain-errors"
)

// Recommendation is the coarse outcome suggested by a score.
type Recommendation string

const (
	RecommendPass        Recommendation = "pass"
	RecommendConditional Recommendation = "conditional"
	RecommendFail        Recommendation = "fail"
)

// Adapter maps an effective total to a recommendation.
type Adapter interface {
	Recommend(total float64) Recommendation
}

const (
	DefaultPassThreshold        = 80.0
	DefaultConditionalThreshold = 60.0
)

// ThresholdAdapter recommends pass at or above Pass, conditional at or above
// Conditional, and fail below that.
type ThresholdAdapter struct {
	Pass        float64
	Conditional float64
}

// NewThresholdAdapter validates the thresholds. Zero is a real cut-off, so
// callers wanting the defaults pass DefaultPassThreshold and
// DefaultConditionalThreshold.
func NewThresholdAdapter(pass, conditional float64) (ThresholdAdapter, error) {
	if err := checkRange("pass threshold", pass); err != nil {
		return ThresholdAdapter{}, err
	}
	if err := checkRange("conditional threshold", conditional); err != nil {
		return ThresholdAdapter{}, err
	}
	if conditional > pass {
		return ThresholdAdapter{}, dErrors.New(dErrors.CodeValidation, "conditional threshold must not exceed pass threshold")
	}
	return ThresholdAdapter{Pass: pass, Conditional: conditional}, nil
}

func (a ThresholdAdapter) Recommend(total float64) Recommendation {
	switch {
	case total >= a.Pass:
		return RecommendPass
	case total >= a.Conditional:
		return RecommendConditional
	default:
		return RecommendFail
	}
}
