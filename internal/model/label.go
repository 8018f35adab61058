package model

// DefaultAspects is the fixed nine-label aspect taxonomy used for labeling.
// The set is configurable per run; this is the shipped default.
var DefaultAspects = []string{
	"배송/포장",
	"품질/불량",
	"가격/가성비",
	"사용감/성능",
	"사이즈/호환",
	"디자인",
	"재질/냄새",
	"CS/응대",
	"재구매",
}

// Label is the structured annotation produced by the labeling service for one
// review. It is immutable once cached.
type Label struct {
	Sentiment      Sentiment `json:"sentiment"`
	SentimentScore float64   `json:"sentiment_score"`
	Aspects        []string  `json:"aspect_labels"`
	Evidence       string    `json:"evidence"`
	Summary        string    `json:"summary"`
}

// Clone returns a deep copy of the label.
func (l Label) Clone() Label {
	out := l
	out.Aspects = append([]string(nil), l.Aspects...)
	return out
}

// LabelStatus indicates the terminal outcome of a labeling attempt.
type LabelStatus string

// Labeling attempt outcomes.
const (
	LabelStatusOK    LabelStatus = "ok"
	LabelStatusError LabelStatus = "error"
)

// LabelResult is the durable record of one labeling attempt: either a label
// or a terminal per-run error, never both.
type LabelResult struct {
	ReviewID     string
	CacheKey     string
	Status       LabelStatus
	Label        Label
	ErrorMessage string
	TokensIn     int
	TokensOut    int
	Cost         float64
}
