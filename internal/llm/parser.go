package llm

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// extractJSON strips markdown fences and surrounding prose, returning the
// first top-level JSON object in the content.
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	if fenced := strings.Index(content, "```"); fenced >= 0 {
		content = content[fenced+3:]
		content = strings.TrimPrefix(content, "json")
		if end := strings.Index(content, "```"); end >= 0 {
			content = content[:end]
		}
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return content[start : end+1], nil
}

// parseLabel parses the labeling model's JSON payload into a Label.
func parseLabel(content string) (model.Label, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return model.Label{}, err
	}

	var payload struct {
		Sentiment      string   `json:"sentiment"`
		SentimentScore float64  `json:"sentiment_score"`
		AspectLabels   []string `json:"aspect_labels"`
		Evidence       string   `json:"evidence"`
		Summary        string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return model.Label{}, fmt.Errorf("failed to parse label JSON: %w", err)
	}

	return model.Label{
		Sentiment:      model.Sentiment(strings.ToLower(strings.TrimSpace(payload.Sentiment))),
		SentimentScore: payload.SentimentScore,
		Aspects:        payload.AspectLabels,
		Evidence:       payload.Evidence,
		Summary:        payload.Summary,
	}, nil
}

// partialFix carries only the fields the judge chose to correct.
type partialFix struct {
	Sentiment      *string   `json:"sentiment"`
	SentimentScore *float64  `json:"sentiment_score"`
	AspectLabels   *[]string `json:"aspect_labels"`
	Evidence       *string   `json:"evidence"`
}

type judgePayload struct {
	Judgment   string      `json:"judgment"`
	Issues     []string    `json:"issues"`
	Confidence float64     `json:"confidence"`
	Reason     string      `json:"reason"`
	FixedLabel *partialFix `json:"fixed_label"`
}

// parseJudge parses the arbitration model's JSON payload. Unknown judgments
// map to uncertain rather than failing the call.
func parseJudge(content string, candidate model.Label) (JudgeResponse, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return JudgeResponse{}, err
	}

	var payload judgePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return JudgeResponse{}, fmt.Errorf("failed to parse judge JSON: %w", err)
	}

	resp := JudgeResponse{
		Issues:     payload.Issues,
		Confidence: payload.Confidence,
		Reason:     payload.Reason,
	}

	switch strings.ToLower(strings.TrimSpace(payload.Judgment)) {
	case "ok":
		resp.Decision = model.JudgeOK
	case "fix":
		resp.Decision = model.JudgeFix
	default:
		resp.Decision = model.JudgeUncertain
	}

	if resp.Decision == model.JudgeFix {
		fixed, changes := applyFix(candidate, payload.FixedLabel)
		if len(changes) == 0 {
			// A fix without actual corrections is unusable; demote it.
			resp.Decision = model.JudgeUncertain
			return resp, nil
		}
		resp.Fixed = &fixed
		resp.Changes = changes
	}

	return resp, nil
}

// applyFix overlays the judge's corrections onto the candidate label and
// reports which fields actually changed.
func applyFix(candidate model.Label, fix *partialFix) (model.Label, []string) {
	fixed := candidate.Clone()
	var changes []string
	if fix == nil {
		return fixed, nil
	}

	if fix.Sentiment != nil {
		s := model.Sentiment(strings.ToLower(strings.TrimSpace(*fix.Sentiment)))
		if s.Valid() && s != candidate.Sentiment {
			fixed.Sentiment = s
			changes = append(changes, "sentiment")
		}
	}
	if fix.SentimentScore != nil && *fix.SentimentScore != candidate.SentimentScore {
		fixed.SentimentScore = *fix.SentimentScore
		changes = append(changes, "sentiment_score")
	}
	if fix.AspectLabels != nil && !reflect.DeepEqual(*fix.AspectLabels, candidate.Aspects) {
		fixed.Aspects = append([]string(nil), (*fix.AspectLabels)...)
		changes = append(changes, "aspect_labels")
	}
	if fix.Evidence != nil && *fix.Evidence != candidate.Evidence {
		fixed.Evidence = *fix.Evidence
		changes = append(changes, "evidence")
	}

	return fixed, changes
}
