package insight

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/school-intel/internal/config"
	"github.com/sells-group/school-intel/internal/model"
	"github.com/sells-group/school-intel/pkg/anthropic"
)

// financialSource attributes points the writer returns without a source.
const financialSource = "Financial benchmarking data"

// FinancialWriter writes talking points from a school's directory and
// benchmarking figures.
type FinancialWriter struct {
	client  anthropic.Client
	cfg     config.AnthropicConfig
	limiter *rate.Limiter
}

// NewFinancialWriter creates a writer. A nil limiter means no rate limiting.
func NewFinancialWriter(client anthropic.Client, cfg config.AnthropicConfig, limiter *rate.Limiter) *FinancialWriter {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &FinancialWriter{client: client, cfg: cfg, limiter: limiter}
}

type startersResponse struct {
	ConversationStarters []rawPoint `json:"conversation_starters"`
	Summary              string     `json:"summary"`
	SalesPriority        string     `json:"sales_priority"`
}

// Generate asks the model for count talking points about school. Every
// failure is returned as a *GenerationError.
func (w *FinancialWriter) Generate(ctx context.Context, school *model.School, count int) (*model.FinancialInsight, error) {
	if count < 1 {
		count = 1
	}
	log := zap.L().With(zap.String("urn", school.URN), zap.String("stage", StageFinancial))

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, &GenerationError{Stage: StageFinancial, Err: eris.Wrap(err, "rate limit wait")}
	}

	temp := w.cfg.Temperature
	resp, err := w.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       w.cfg.Model,
		MaxTokens:   int64(w.cfg.MaxTokens),
		System:      anthropic.BuildCachedSystemBlocks(startersSystem),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(startersHuman, count, school.LLMContext())},
		},
	})
	if err != nil {
		return nil, &GenerationError{Stage: StageFinancial, Err: eris.Wrap(err, "create message")}
	}
	resp.Usage.LogCost(w.cfg.Model, StageFinancial)

	var parsed startersResponse
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &parsed); err != nil {
		log.Warn("insight: failed to parse starters json", zap.Error(err))
		return nil, &GenerationError{Stage: StageFinancial, Err: eris.Wrap(err, "parse response")}
	}

	priority := model.ParsePriority(parsed.SalesPriority)
	if priority == model.PriorityUnknown {
		priority = school.Priority()
	}

	points := toPoints(parsed.ConversationStarters, financialSource)
	for i := range points {
		// A URL source would classify the point as inspection-sourced.
		if points[i].FromInspection() {
			points[i].Source = financialSource
		}
	}
	if len(points) > count {
		points = points[:count]
	}
	log.Debug("generated financial talking points", zap.Int("count", len(points)))

	return &model.FinancialInsight{
		TalkingPoints: points,
		Summary:       parsed.Summary,
		Priority:      priority,
	}, nil
}
