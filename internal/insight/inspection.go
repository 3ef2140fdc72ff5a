package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/school-intel/internal/config"
	"github.com/sells-group/school-intel/internal/model"
	"github.com/sells-group/school-intel/pkg/anthropic"
)

// inspectionStarters is how many points the analyst asks the model for.
const inspectionStarters = 3

// reportSource locates and reads inspection reports.
type reportSource interface {
	Locate(ctx context.Context, name, urn string) (string, error)
	Read(ctx context.Context, reportURL string) (*Report, error)
}

// InspectionAnalyst turns the latest inspection report into talking points.
// Failures are reported through InspectionInsight.Error rather than an error
// return, so callers always get a value to inspect.
type InspectionAnalyst struct {
	reports reportSource
	client  anthropic.Client
	cfg     config.AnthropicConfig
	limiter *rate.Limiter
}

// NewInspectionAnalyst creates an analyst. A nil limiter means no rate limiting.
func NewInspectionAnalyst(reports *ReportFinder, client anthropic.Client, cfg config.AnthropicConfig, limiter *rate.Limiter) *InspectionAnalyst {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &InspectionAnalyst{reports: reports, client: client, cfg: cfg, limiter: limiter}
}

type inspectionResponse struct {
	Rating               string              `json:"rating"`
	InspectionDate       string              `json:"inspection_date"`
	Improvements         []model.Improvement `json:"improvements"`
	Strengths            []string            `json:"strengths"`
	ConversationStarters []rawPoint          `json:"conversation_starters"`
	Error                string              `json:"error"`
}

// Analyze locates, reads and analyses the school's latest inspection report.
// Every talking point carries the report URL as its source.
func (a *InspectionAnalyst) Analyze(ctx context.Context, name, urn string) model.InspectionInsight {
	log := zap.L().With(zap.String("school", name), zap.String("urn", urn), zap.String("stage", StageInspection))

	insight, err := a.analyze(ctx, name, urn)
	if err != nil {
		log.Warn("insight: inspection analysis failed", zap.Error(err))
		return model.InspectionInsight{ReportURL: insight.ReportURL, Error: err.Error()}
	}
	log.Debug("analysed inspection report",
		zap.String("rating", insight.Rating),
		zap.Int("count", len(insight.TalkingPoints)),
	)
	return insight
}

func (a *InspectionAnalyst) analyze(ctx context.Context, name, urn string) (model.InspectionInsight, error) {
	var out model.InspectionInsight

	reportURL, err := a.reports.Locate(ctx, name, urn)
	if err != nil {
		return out, &GenerationError{Stage: StageLocate, Err: err}
	}
	out.ReportURL = reportURL

	report, err := a.reports.Read(ctx, reportURL)
	if err != nil {
		return out, &GenerationError{Stage: StageRead, Err: err}
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return out, &GenerationError{Stage: StageInspection, Err: eris.Wrap(err, "rate limit wait")}
	}

	modelID := a.cfg.ExtractModel
	if modelID == "" {
		modelID = a.cfg.Model
	}
	temp := a.cfg.Temperature
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       modelID,
		MaxTokens:   int64(a.cfg.MaxTokens),
		System:      anthropic.BuildCachedSystemBlocks(inspectionSystem),
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(inspectionHuman, name, urn, inspectionStarters, truncateReport(report.Content))},
		},
	})
	if err != nil {
		return out, &GenerationError{Stage: StageInspection, Err: eris.Wrap(err, "create message")}
	}
	resp.Usage.LogCost(modelID, StageInspection)

	var parsed inspectionResponse
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &parsed); err != nil {
		return out, &GenerationError{Stage: StageInspection, Err: eris.Wrap(err, "parse response")}
	}
	if parsed.Error != "" {
		return out, &GenerationError{Stage: StageInspection, Err: eris.New(parsed.Error)}
	}

	out.Rating = strings.TrimSpace(parsed.Rating)
	out.InspectionDate = strings.TrimSpace(parsed.InspectionDate)
	out.Strengths = parsed.Strengths
	for _, imp := range parsed.Improvements {
		if strings.TrimSpace(imp.Description) != "" {
			out.Improvements = append(out.Improvements, imp)
		}
	}

	out.TalkingPoints = toPoints(parsed.ConversationStarters, reportURL)
	for i := range out.TalkingPoints {
		out.TalkingPoints[i].Source = reportURL
	}
	return out, nil
}
