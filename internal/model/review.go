// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
)

// Sentiment is the three-way polarity assigned to a review.
type Sentiment string

// Sentiment values.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Sentiments lists the valid sentiment values in canonical order.
var Sentiments = []Sentiment{SentimentNegative, SentimentNeutral, SentimentPositive}

// Valid reports whether s is one of the three recognized sentiments.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// SentimentFromRating buckets a 1-5 star rating into a sentiment group.
// Ratings 1-2 are negative, 3 is neutral, 4-5 are positive.
func SentimentFromRating(rating int) Sentiment {
	switch {
	case rating <= 2:
		return SentimentNegative
	case rating == 3:
		return SentimentNeutral
	default:
		return SentimentPositive
	}
}

// Review is a single product review drawn from the raw corpus snapshot.
// It is carried through the whole pipeline unchanged.
type Review struct {
	ID        string
	Category1 string
	Category2 string
	Text      string
	Rating    int
}

// Stratum returns the sampling stratum key (major/sub category intersection).
func (r *Review) Stratum() string {
	return r.Category1 + "/" + r.Category2
}

// RatingSentiment returns the sentiment bucket derived from the star rating.
func (r *Review) RatingSentiment() Sentiment {
	return SentimentFromRating(r.Rating)
}

// GenerateHash creates a stable content hash for duplicate detection.
func (r *Review) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%d", r.ID, r.Category1, r.Category2, r.Rating)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
