package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentimentFromRating(t *testing.T) {
	tests := []struct {
		rating int
		want   Sentiment
	}{
		{1, SentimentNegative},
		{2, SentimentNegative},
		{3, SentimentNeutral},
		{4, SentimentPositive},
		{5, SentimentPositive},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SentimentFromRating(tt.rating), "rating %d", tt.rating)
	}
}

func TestSentimentValid(t *testing.T) {
	assert.True(t, SentimentPositive.Valid())
	assert.True(t, SentimentNeutral.Valid())
	assert.True(t, SentimentNegative.Valid())
	assert.False(t, Sentiment("mixed").Valid())
	assert.False(t, Sentiment("").Valid())
}

func TestReviewStratum(t *testing.T) {
	r := Review{ID: "r1", Category1: "스킨케어", Category2: "크림", Rating: 4}

	assert.Equal(t, "스킨케어/크림", r.Stratum())
	assert.Equal(t, SentimentPositive, r.RatingSentiment())
}

func TestReviewHashIsStable(t *testing.T) {
	a := Review{ID: "r1", Category1: "네일", Category2: "젤", Rating: 3}
	b := a

	assert.Equal(t, a.GenerateHash(), b.GenerateHash())

	b.Rating = 5
	assert.NotEqual(t, a.GenerateHash(), b.GenerateHash())
}

func TestLabelCloneIsIndependent(t *testing.T) {
	orig := Label{
		Sentiment:      SentimentNegative,
		SentimentScore: -0.7,
		Aspects:        []string{"품질/불량", "배송/포장"},
		Evidence:       "받자마자 파손되어 있었어요",
	}

	clone := orig.Clone()
	clone.Aspects[0] = "가격/가성비"
	clone.Sentiment = SentimentPositive

	assert.Equal(t, "품질/불량", orig.Aspects[0])
	assert.Equal(t, SentimentNegative, orig.Sentiment)
	assert.Equal(t, []string{"가격/가성비", "배송/포장"}, clone.Aspects)
}

func TestRecordStatusTrainable(t *testing.T) {
	trainable := []RecordStatus{StatusVerified, StatusFixed, StatusUnchecked, StatusNeedsHumanReview}
	for _, s := range trainable {
		assert.True(t, s.Trainable(), "status %s", s)
	}
	assert.False(t, StatusRemoved.Trainable())
}
