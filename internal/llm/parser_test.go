package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.Label
		wantErr bool
	}{
		{
			name: "plain JSON",
			content: `{"sentiment": "positive", "sentiment_score": 0.8,
				"aspect_labels": ["배송/포장"], "evidence": "배송이 빨라요", "summary": "배송에 대해 긍정적"}`,
			want: model.Label{
				Sentiment:      model.SentimentPositive,
				SentimentScore: 0.8,
				Aspects:        []string{"배송/포장"},
				Evidence:       "배송이 빨라요",
				Summary:        "배송에 대해 긍정적",
			},
		},
		{
			name: "markdown fenced",
			content: "```json\n{\"sentiment\": \"NEGATIVE\", \"sentiment_score\": -0.6, " +
				"\"aspect_labels\": [], \"evidence\": \"별로예요\", \"summary\": \"전반적으로 부정적\"}\n```",
			want: model.Label{
				Sentiment:      model.SentimentNegative,
				SentimentScore: -0.6,
				Aspects:        []string{},
				Evidence:       "별로예요",
				Summary:        "전반적으로 부정적",
			},
		},
		{
			name:    "no JSON",
			content: "죄송합니다, 분석할 수 없습니다.",
			wantErr: true,
		},
		{
			name:    "truncated JSON",
			content: `{"sentiment": "positive", "sentiment_score":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLabel(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJudge(t *testing.T) {
	candidate := model.Label{
		Sentiment:      model.SentimentPositive,
		SentimentScore: 0.7,
		Aspects:        []string{"배송/포장"},
		Evidence:       "배송이 빨라요",
	}

	t.Run("ok", func(t *testing.T) {
		resp, err := parseJudge(`{"judgment": "ok", "confidence": 0.95, "reason": "라벨 정확"}`, candidate)
		require.NoError(t, err)
		assert.Equal(t, model.JudgeOK, resp.Decision)
		assert.Nil(t, resp.Fixed)
		assert.InDelta(t, 0.95, resp.Confidence, 1e-9)
	})

	t.Run("fix applies corrections onto candidate", func(t *testing.T) {
		resp, err := parseJudge(`{
			"judgment": "fix",
			"issues": ["wrong_sentiment"],
			"fixed_label": {"sentiment": "negative", "sentiment_score": -0.5},
			"confidence": 0.8,
			"reason": "부정 표현이 지배적"
		}`, candidate)
		require.NoError(t, err)
		require.Equal(t, model.JudgeFix, resp.Decision)
		require.NotNil(t, resp.Fixed)

		assert.Equal(t, model.SentimentNegative, resp.Fixed.Sentiment)
		assert.InDelta(t, -0.5, resp.Fixed.SentimentScore, 1e-9)
		// Untouched fields carry over from the candidate.
		assert.Equal(t, candidate.Aspects, resp.Fixed.Aspects)
		assert.Equal(t, candidate.Evidence, resp.Fixed.Evidence)
		assert.ElementsMatch(t, []string{"sentiment", "sentiment_score"}, resp.Changes)
	})

	t.Run("fix without corrections demotes to uncertain", func(t *testing.T) {
		resp, err := parseJudge(`{"judgment": "fix", "confidence": 0.5}`, candidate)
		require.NoError(t, err)
		assert.Equal(t, model.JudgeUncertain, resp.Decision)
		assert.Nil(t, resp.Fixed)
	})

	t.Run("unknown judgment maps to uncertain", func(t *testing.T) {
		resp, err := parseJudge(`{"judgment": "maybe?"}`, candidate)
		require.NoError(t, err)
		assert.Equal(t, model.JudgeUncertain, resp.Decision)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := parseJudge(`판단 불가`, candidate)
		require.Error(t, err)
	})
}
