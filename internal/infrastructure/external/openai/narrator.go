package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/scanpaie/internal/ai"
	"github.com/garyjia/scanpaie/internal/application/port"
	"github.com/garyjia/scanpaie/internal/domain/entity"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// maxTopAnomalies bounds how many anomalies are quoted in the prompt
const maxTopAnomalies = 5

// ErrEmptyCompletion is returned when the model answers with no text
var ErrEmptyCompletion = errors.New("empty completion from OpenAI")

// Config holds the narrator settings
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Locale      string
	Prompts     *PromptConfig
}

// Narrator implements port.ReportNarrator with a chat completion
type Narrator struct {
	client      *openai.Client
	prompts     *PromptConfig
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	locale      string
	logger      *zap.Logger
}

// NewNarrator creates a new OpenAI narrator. Prompt file parameters take
// precedence over the configured temperature and token limit.
func NewNarrator(cfg Config, logger *zap.Logger) *Narrator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	prompts := cfg.Prompts
	if prompts == nil {
		prompts = DefaultPrompts()
	}

	n := &Narrator{
		client:      openai.NewClientWithConfig(clientCfg),
		prompts:     prompts,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		locale:      cfg.Locale,
		logger:      logger,
	}
	if prompts.Narrative.Temperature > 0 {
		n.temperature = prompts.Narrative.Temperature
	}
	if prompts.Narrative.MaxTokens > 0 {
		n.maxTokens = prompts.Narrative.MaxTokens
	}
	if n.model == "" {
		n.model = openai.GPT4oMini
	}
	return n
}

// Narrate summarizes the record's report in a few sentences
func (n *Narrator) Narrate(ctx context.Context, record *entity.AnalysisRecord) (string, error) {
	if record == nil || record.Analysis == nil {
		return "", fmt.Errorf("narrate: record has no report")
	}

	data := newPromptData(record, n.locale)

	system, err := renderTemplate(n.prompts.Narrative.System, data)
	if err != nil {
		return "", fmt.Errorf("failed to render system prompt: %w", err)
	}
	user, err := renderTemplate(n.prompts.Narrative.UserTemplate, data)
	if err != nil {
		return "", fmt.Errorf("failed to render user prompt: %w", err)
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       n.model,
		Temperature: n.temperature,
		MaxTokens:   n.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		n.logger.Error("OpenAI API call failed",
			zap.String("analysis_id", record.ID),
			zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	n.logger.Info("Analysis narrative generated",
		zap.String("analysis_id", record.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return text, nil
}

type typeCount struct {
	Label string
	Count int
}

type anomalySummary struct {
	EmployeeName string
	TypeLabel    string
	Severity     string
	Description  string
}

// promptData is the template context of the narrative prompts
type promptData struct {
	Language          string
	CompanyID         string
	Period            string
	EntryCount        int
	TotalAnomalies    int
	CriticalAnomalies int
	RiskScore         int
	ByType            []typeCount
	TopAnomalies      []anomalySummary
	Recommendations   []string
}

func newPromptData(record *entity.AnalysisRecord, locale string) promptData {
	report := record.Analysis

	data := promptData{
		Language:          "French",
		CompanyID:         record.CompanyID,
		Period:            record.Period,
		EntryCount:        record.EntryCount,
		TotalAnomalies:    report.TotalAnomalies,
		CriticalAnomalies: report.CriticalAnomalies,
		RiskScore:         report.OverallRiskScore,
		Recommendations:   report.Recommendations,
	}
	if locale == ai.LocaleEN {
		data.Language = "English"
	}

	for _, t := range entity.AnomalyTypes {
		if c := report.CountByType(t); c > 0 {
			data.ByType = append(data.ByType, typeCount{Label: ai.TypeLabel(locale, t), Count: c})
		}
	}

	// anomalies are already sorted most serious first
	for i := 0; i < len(report.Anomalies) && i < maxTopAnomalies; i++ {
		a := &report.Anomalies[i]
		data.TopAnomalies = append(data.TopAnomalies, anomalySummary{
			EmployeeName: a.EmployeeName,
			TypeLabel:    ai.TypeLabel(locale, a.Type),
			Severity:     string(a.Severity),
			Description:  a.Description,
		})
	}

	return data
}

var _ port.ReportNarrator = (*Narrator)(nil)
