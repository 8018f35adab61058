package llm

import (
	"fmt"
	"strings"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// buildLabelPrompt creates the aspect-based sentiment labeling prompt for one
// review.
func buildLabelPrompt(review model.Review, aspects []string) string {
	var aspectList strings.Builder
	for i, label := range aspects {
		fmt.Fprintf(&aspectList, "%d. %s\n", i+1, label)
	}

	return fmt.Sprintf(`당신은 한국어 쇼핑몰 리뷰를 분석하는 감성 분석 전문가입니다.

다음 리뷰를 분석하여 JSON 형식으로 결과를 반환하세요.

**리뷰 정보:**
- 평점: %d/5
- 리뷰 내용: "%s"

**분석 항목:**

1. **sentiment**: 감성 분류 (positive/neutral/negative)
   - 리뷰 텍스트 내용을 기반으로 판단 (평점은 참고만)

2. **sentiment_score**: 감성 점수 (-1.0 ~ 1.0)

3. **aspect_labels**: 해당하는 모든 측면 라벨 (배열)
   다음 라벨 중 리뷰에서 언급된 모든 항목을 선택:
%s
4. **evidence**: 판단 근거 문장 (리뷰에서 원문 그대로 발췌)

5. **summary**: 1문장 요약 (30자 이내)

**출력 형식 (JSON):**
{
  "sentiment": "positive",
  "sentiment_score": 0.8,
  "aspect_labels": ["배송/포장", "품질/불량"],
  "evidence": "배송이 빠르고 품질도 좋아요",
  "summary": "배송, 품질에 대해 긍정적"
}

반드시 유효한 JSON만 반환하세요. 추가 설명은 포함하지 마세요.`,
		review.Rating,
		review.Text,
		aspectList.String())
}

// buildJudgePrompt creates the arbitration prompt: the judge sees the source
// text, the candidate label, and the heuristic rules that flagged it.
func buildJudgePrompt(req JudgeRequest) string {
	candidate := fmt.Sprintf(
		"sentiment: %s\nsentiment_score: %.2f\naspect_labels: [%s]\nevidence: %q",
		req.Candidate.Sentiment,
		req.Candidate.SentimentScore,
		strings.Join(req.Candidate.Aspects, ", "),
		req.Candidate.Evidence)

	var aspectList strings.Builder
	for i, label := range req.Aspects {
		fmt.Fprintf(&aspectList, "%d. %s\n", i+1, label)
	}

	return fmt.Sprintf(`당신은 감성 분석 라벨의 품질을 검수하는 심사관입니다.

아래 리뷰에 대해 자동으로 생성된 라벨이 있습니다. 라벨이 정확한지 판단하고,
오류가 있으면 수정안을 제시하세요.

**리뷰 정보:**
- 평점: %d/5
- 리뷰 내용: "%s"

**기존 라벨:**
%s

**의심 사유:** %s

**유효한 aspect 라벨:**
%s
**출력 형식 (JSON):**
{
  "judgment": "ok" | "fix" | "uncertain",
  "issues": ["문제 유형"],
  "fixed_label": {
    "sentiment": "...",
    "sentiment_score": 0.0,
    "aspect_labels": [],
    "evidence": "..."
  },
  "confidence": 0.9,
  "reason": "한 문장 설명"
}

- judgment가 "ok"면 fixed_label은 생략 가능합니다.
- judgment가 "fix"면 수정이 필요한 필드만 fixed_label에 담으세요.
- 확신이 없으면 "uncertain"으로 답하세요.

반드시 유효한 JSON만 반환하세요.`,
		req.Review.Rating,
		req.Review.Text,
		candidate,
		strings.Join(req.RiskRules, ", "),
		aspectList.String())
}
