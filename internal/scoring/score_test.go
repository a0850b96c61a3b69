package scoring

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
)

func validScore() Score {
	return Score{
		ID:        id.ScoreID(uuid.New()),
		SubjectID: id.SubjectID(uuid.New()),
		Total:     72,
		Breakdown: Breakdown{PolicyFit: 80, FairValue: 65, Documentation: 70, Tax: 90, BrandSafety: 55, Consent: 100},
	}
}

func TestScoreValidate(t *testing.T) {
	t.Run("accepts bounds", func(t *testing.T) {
		s := validScore()
		s.Total = 0
		s.Breakdown.Consent = 100
		require.NoError(t, s.Validate())
	})

	cases := map[string]func(*Score){
		"total above range":     func(s *Score) { s.Total = 100.5 },
		"total below range":     func(s *Score) { s.Total = -1 },
		"nan total":             func(s *Score) { s.Total = math.NaN() },
		"sub-score above range": func(s *Score) { s.Breakdown.Tax = 101 },
		"infinite sub-score":    func(s *Score) { s.Breakdown.BrandSafety = math.Inf(1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := validScore()
			mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestValidateOverride(t *testing.T) {
	t.Run("blank justification", func(t *testing.T) {
		err := ValidateOverride(90, "   ")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeJustificationRequired))
	})
	t.Run("out of range value is not clamped", func(t *testing.T) {
		err := ValidateOverride(140, "manual review of contract")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateOverride(90, "manual review of contract"))
	})
}

func TestEffective(t *testing.T) {
	s := validScore()

	assert.Equal(t, 72.0, Effective(&s, nil))
	assert.Equal(t, 91.0, Effective(&s, &Override{ScoreID: s.ID, Value: 91}))

	stale := &Override{ScoreID: id.ScoreID(uuid.New()), Value: 91}
	assert.Equal(t, 72.0, Effective(&s, stale), "override of a replaced score is ignored")
	assert.Equal(t, 0.0, Effective(nil, stale))
}

func TestThresholdAdapter(t *testing.T) {
	a, err := NewThresholdAdapter(DefaultPassThreshold, DefaultConditionalThreshold)
	require.NoError(t, err)

	assert.Equal(t, RecommendPass, a.Recommend(80))
	assert.Equal(t, RecommendPass, a.Recommend(100))
	assert.Equal(t, RecommendConditional, a.Recommend(79.99))
	assert.Equal(t, RecommendConditional, a.Recommend(60))
	assert.Equal(t, RecommendFail, a.Recommend(59.9))

	_, err = NewThresholdAdapter(50, 70)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewThresholdAdapter(120, 60)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestThresholdAdapterZeroConditional(t *testing.T) {
	a, err := NewThresholdAdapter(70, 0)
	require.NoError(t, err)
	assert.Equal(t, ThresholdAdapter{Pass: 70, Conditional: 0}, a)

	assert.Equal(t, RecommendConditional, a.Recommend(0))
	assert.Equal(t, RecommendConditional, a.Recommend(45))
	assert.Equal(t, RecommendPass, a.Recommend(70))
}
