// Package openai turns natural-language element queries into filter
// parameters using an OpenAI-compatible chat completion API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/domain"
	domfilter "github.com/kailas-cloud/bimlink/internal/domain/filter"
	"github.com/kailas-cloud/bimlink/internal/metrics"
)

const systemPrompt = `You translate requests about building model elements into a JSON filter.
Reply with one JSON object and nothing else. Fields:
  filterCategory: built-in category such as "OST_Walls", "OST_Doors", "OST_Windows", "OST_Floors", "OST_Rooms".
  filterElementType: element class name such as "Wall", "FamilyInstance", "Floor", "Level".
  filterFamilySymbolId: id of a family type, or -1 when not filtering by type.
  includeTypes: true to return type elements.
  includeInstances: true to return placed instances (default true).
  filterVisibleInCurrentView: true to keep only elements visible in the active view.
  boundingBoxMin, boundingBoxMax: {"x","y","z"} corners in millimetres, both or neither.
  maxElements: result limit, default 50.
Set at least one of filterCategory, filterElementType or filterFamilySymbolId. Omit fields you do not need.`

// Planner plans filters with an OpenAI-compatible provider.
type Planner struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// Config holds the planner provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewPlanner creates a planner. An empty BaseURL selects the OpenAI API.
func NewPlanner(cfg *Config) *Planner {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Planner{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: provider,
		logger:   logger,
	}
}

// Plan asks the model for filter parameters matching query. The reply is
// validated, so a successful result always builds a filter description.
func (p *Planner) Plan(ctx context.Context, query string) (domfilter.Params, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domfilter.Params{}, fmt.Errorf("%w: query is empty", domain.ErrValidation)
	}

	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		p.fail("api_error")
		return domfilter.Params{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		p.fail("empty_response")
		return domfilter.Params{}, fmt.Errorf("empty completion: %w", domain.ErrPlannerFailure)
	}

	metrics.PlannerRequestDuration.WithLabelValues(p.provider, p.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.PlannerTokensTotal.WithLabelValues(p.provider, p.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.PlannerTokensTotal.WithLabelValues(p.provider, p.model, "completion").
			Add(float64(resp.Usage.CompletionTokens))
	}

	params := domfilter.DefaultParams()
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &params); err != nil {
		p.fail("invalid_json")
		return domfilter.Params{}, fmt.Errorf("decode planned filter: %v: %w", err, domain.ErrPlannerFailure)
	}
	if _, err := domfilter.New(params); err != nil {
		p.fail("invalid_filter")
		p.logger.Info("Planner produced an invalid filter",
			zap.String("query", query), zap.String("reply", resp.Choices[0].Message.Content), zap.Error(err))
		return domfilter.Params{}, fmt.Errorf("planned filter: %w", err)
	}

	metrics.PlannerRequestsTotal.WithLabelValues(p.provider, p.model, "success").Inc()
	return params, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (p *Planner) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (p *Planner) fail(errorType string) {
	metrics.PlannerRequestsTotal.WithLabelValues(p.provider, p.model, "error").Inc()
	metrics.PlannerErrorsTotal.WithLabelValues(p.provider, p.model, errorType).Inc()
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrPlannerFailure for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrPlannerFailure

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("planner API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("planner API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("planner API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("planner request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
