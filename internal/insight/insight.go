// Package insight generates talking points for a school: a financial writer
// working from benchmarking figures and an inspection analyst working from
// the latest published inspection report.
package insight

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/school-intel/internal/model"
)

// Generation stages reported by GenerationError.
const (
	StageFinancial  = "financial"
	StageLocate     = "locate_report"
	StageRead       = "read_report"
	StageInspection = "inspection"
)

// GenerationError reports a failed generator call. It is never fatal to the
// caller; the orchestrator continues with whatever other points it has.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("insight: %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// NewLimiter returns a limiter allowing rpm LLM calls per minute. A
// non-positive rpm disables limiting.
func NewLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// rawPoint is a talking point as the model returns it. Relevance is a
// pointer so a missing score can be told apart from zero.
type rawPoint struct {
	Topic     string   `json:"topic"`
	Detail    string   `json:"detail"`
	Source    string   `json:"source"`
	Relevance *float64 `json:"relevance_score"`
}

// toPoints drops points without a topic or detail and fills in defaults.
func toPoints(raw []rawPoint, defaultSource string) []model.TalkingPoint {
	out := make([]model.TalkingPoint, 0, len(raw))
	for _, r := range raw {
		topic := strings.TrimSpace(r.Topic)
		detail := strings.TrimSpace(r.Detail)
		if topic == "" || detail == "" {
			continue
		}
		relevance := model.DefaultRelevance
		if r.Relevance != nil {
			relevance = model.ClampRelevance(*r.Relevance)
		}
		source := strings.TrimSpace(r.Source)
		if source == "" {
			source = defaultSource
		}
		out = append(out, model.TalkingPoint{
			Topic:     topic,
			Detail:    detail,
			Source:    source,
			Relevance: relevance,
		})
	}
	return out
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
