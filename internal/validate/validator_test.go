package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

func okResult(label model.Label) model.LabelResult {
	return model.LabelResult{Status: model.LabelStatusOK, Label: label}
}

func TestValidate(t *testing.T) {
	review := model.Review{
		ID:     "r1",
		Text:   "배송이 빨랐고 품질도 괜찮아요",
		Rating: 5,
	}

	tests := []struct {
		name      string
		label     model.Label
		wantCodes []string
	}{
		{
			name: "clean label passes",
			label: model.Label{
				Sentiment:      model.SentimentPositive,
				SentimentScore: 0.8,
				Aspects:        []string{"배송/포장", "품질/불량"},
				Evidence:       "배송이 빨랐고",
			},
		},
		{
			name: "missing sentiment short circuits",
			label: model.Label{
				Aspects:  []string{"배송/포장"},
				Evidence: "배송이 빨랐고",
			},
			wantCodes: []string{model.CodeMissingField},
		},
		{
			name: "missing aspects short circuits",
			label: model.Label{
				Sentiment: model.SentimentPositive,
				Evidence:  "배송이 빨랐고",
			},
			wantCodes: []string{model.CodeMissingField},
		},
		{
			name: "unknown sentiment value",
			label: model.Label{
				Sentiment:      "great",
				SentimentScore: 0.8,
				Aspects:        []string{"배송/포장"},
				Evidence:       "배송이 빨랐고",
			},
			wantCodes: []string{model.CodeInvalidSentiment},
		},
		{
			name: "score out of range",
			label: model.Label{
				Sentiment:      model.SentimentPositive,
				SentimentScore: 1.5,
				Aspects:        []string{"배송/포장"},
				Evidence:       "배송이 빨랐고",
			},
			wantCodes: []string{model.CodeInvalidScore},
		},
		{
			name: "aspect outside taxonomy",
			label: model.Label{
				Sentiment:      model.SentimentPositive,
				SentimentScore: 0.8,
				Aspects:        []string{"향기"},
				Evidence:       "배송이 빨랐고",
			},
			wantCodes: []string{model.CodeInvalidAspect},
		},
		{
			name: "duplicate aspect",
			label: model.Label{
				Sentiment:      model.SentimentPositive,
				SentimentScore: 0.8,
				Aspects:        []string{"배송/포장", "배송/포장"},
				Evidence:       "배송이 빨랐고",
			},
			wantCodes: []string{model.CodeDuplicateAspect},
		},
		{
			name: "evidence absent from text",
			label: model.Label{
				Sentiment:      model.SentimentPositive,
				SentimentScore: 0.8,
				Aspects:        []string{"배송/포장"},
				Evidence:       "향이 너무 좋아요",
			},
			wantCodes: []string{model.CodeEvidenceMismatch},
		},
		{
			name: "multiple failures accumulate in check order",
			label: model.Label{
				Sentiment:      "great",
				SentimentScore: -2,
				Aspects:        []string{"향기", "향기"},
				Evidence:       "향이 너무 좋아요",
			},
			wantCodes: []string{
				model.CodeInvalidSentiment,
				model.CodeInvalidScore,
				model.CodeInvalidAspect,
				model.CodeDuplicateAspect,
				model.CodeEvidenceMismatch,
			},
		},
	}

	v := New(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(review, okResult(tt.label))
			assert.Equal(t, "r1", verdict.ReviewID)
			assert.Equal(t, tt.wantCodes, verdict.Codes)
			assert.Equal(t, len(tt.wantCodes) == 0, verdict.Valid)
		})
	}
}

func TestValidateErroredAttempt(t *testing.T) {
	v := New(Config{})
	verdict := v.Validate(model.Review{ID: "r1", Text: "텍스트"}, model.LabelResult{
		Status:       model.LabelStatusError,
		ErrorMessage: "malformed response",
	})
	assert.False(t, verdict.Valid)
	assert.Equal(t, []string{model.CodeInvalidJSON}, verdict.Codes)
}

func TestEvidenceMatchModes(t *testing.T) {
	review := model.Review{
		ID:   "r1",
		Text: "배송이   빨랐고\n품질도 아주 아주 괜찮아요 진짜로",
	}
	label := model.Label{
		Sentiment:      model.SentimentPositive,
		SentimentScore: 0.8,
		Aspects:        []string{"배송/포장"},
		Evidence:       "배송이 빨랐고 품질도",
	}

	t.Run("normalized collapses whitespace", func(t *testing.T) {
		v := New(Config{EvidenceMatch: MatchNormalized})
		verdict := v.Validate(review, okResult(label))
		assert.True(t, verdict.Valid)
	})

	t.Run("exact requires verbatim substring", func(t *testing.T) {
		v := New(Config{EvidenceMatch: MatchExact})
		verdict := v.Validate(review, okResult(label))
		require.False(t, verdict.Valid)
		assert.Equal(t, []string{model.CodeEvidenceMismatch}, verdict.Codes)
	})

	t.Run("long paraphrase matches on surviving head", func(t *testing.T) {
		v := New(Config{EvidenceMatch: MatchNormalized})
		paraphrased := label
		paraphrased.Evidence = "품질도 아주 아주 괜찮았다고 생각해요"
		verdict := v.Validate(review, okResult(paraphrased))
		assert.True(t, verdict.Valid)
	})

	t.Run("placeholder evidence accepted", func(t *testing.T) {
		v := New(Config{})
		na := label
		na.Evidence = "N/A"
		verdict := v.Validate(review, okResult(na))
		assert.True(t, verdict.Valid)
	})
}

func TestCustomTaxonomy(t *testing.T) {
	v := New(Config{Aspects: []string{"맛", "가격"}})
	review := model.Review{ID: "r1", Text: "맛있고 싸요"}

	verdict := v.Validate(review, okResult(model.Label{
		Sentiment:      model.SentimentPositive,
		SentimentScore: 0.9,
		Aspects:        []string{"맛"},
		Evidence:       "맛있고 싸요",
	}))
	assert.True(t, verdict.Valid)

	verdict = v.Validate(review, okResult(model.Label{
		Sentiment:      model.SentimentPositive,
		SentimentScore: 0.9,
		Aspects:        []string{"배송/포장"},
		Evidence:       "맛있고 싸요",
	}))
	assert.Equal(t, []string{model.CodeInvalidAspect}, verdict.Codes)
}
