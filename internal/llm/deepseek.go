// Package llm produces task suggestions from an OpenAI-compatible chat
// completion endpoint (DeepSeek by default).
package llm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"notionboard/internal/config"
	"notionboard/internal/metrics"
	"notionboard/internal/models"
)

// ErrNotConfigured is returned by Complete when no API key is set.
var ErrNotConfigured = errors.New("DeepSeek API key is not configured")

// Service talks to the chat completion API.
type Service struct {
	model       llms.Model
	maxTokens   int
	temperature float64
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// New builds the service. Without an API key the service stays usable but
// every call short-circuits without network I/O.
func New(cfg config.DeepSeekConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	if cfg.APIKey == "" {
		return s, nil
	}

	model, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create chat client: %w", err)
	}
	s.model = model
	return s, nil
}

// Configured reports whether an API key was supplied.
func (s *Service) Configured() bool {
	return s.model != nil
}

// Complete sends one system and user message and returns the raw reply.
func (s *Service) Complete(ctx context.Context, system, user string) (string, error) {
	if s.model == nil {
		return "", ErrNotConfigured
	}

	resp, err := s.model.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeSystem, system),
			llms.TextParts(schema.ChatMessageTypeHuman, user),
		},
		llms.WithMaxTokens(s.maxTokens),
		llms.WithTemperature(s.temperature),
	)
	if err != nil {
		metrics.LLMRequests.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.LLMRequests.WithLabelValues("ok").Inc()
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

// Analyze asks for suggestions on the given context. It never fails:
// configuration and upstream problems are reported in the summary.
func (s *Service) Analyze(ctx context.Context, req Request) models.Analysis {
	if s.model == nil {
		return models.Analysis{
			Suggestions: []models.Suggestion{},
			Summary:     ErrNotConfigured.Error(),
			Insights:    []string{},
		}
	}

	content, err := s.Complete(ctx, systemPrompt, userPrompt(req))
	if err != nil {
		s.logger.Warn("chat completion failed", zap.Error(err))
		return models.Analysis{
			Suggestions: []models.Suggestion{},
			Summary:     err.Error(),
			Insights:    []string{},
		}
	}
	return parseAnalysis(content, s.now(), s.newID)
}

// TaskBreakdown asks for 3-5 independent subtasks of task.
func (s *Service) TaskBreakdown(ctx context.Context, task models.Task, hint string) models.Analysis {
	if hint == "" {
		hint = "Please break down this task into smaller, actionable subtasks"
	}
	return s.Analyze(ctx, Request{
		Context:    hint,
		Tasks:      []models.Task{task},
		UserPrompt: fmt.Sprintf("Break down the task %q into 3-5 smaller subtasks that can be completed independently.", task.Title),
	})
}

// SprintPlanning asks which backlog tasks fit the sprint capacity.
func (s *Service) SprintPlanning(ctx context.Context, backlog []models.Task, sprint models.Sprint) models.Analysis {
	capacity := "unknown"
	if sprint.Capacity != nil && *sprint.Capacity != 0 {
		capacity = strconv.FormatFloat(*sprint.Capacity, 'f', -1, 64)
	}
	return s.Analyze(ctx, Request{
		Context: "Help plan the sprint by selecting and prioritizing tasks",
		Tasks:   backlog,
		Sprints: []models.Sprint{sprint},
		UserPrompt: fmt.Sprintf("Given the sprint capacity of %s story points, which tasks from the backlog should be included in this sprint? Consider priorities and dependencies.",
			capacity),
	})
}

// ProjectHealth asks for risks and recommendations across the project.
func (s *Service) ProjectHealth(ctx context.Context, tasks []models.Task, sprints []models.Sprint, epics []models.Epic) models.Analysis {
	return s.Analyze(ctx, Request{
		Context:    "Analyze the overall project health and identify areas for improvement",
		Tasks:      tasks,
		Sprints:    sprints,
		Epics:      epics,
		UserPrompt: "Provide insights on project health, potential risks, and recommendations for improvement.",
	})
}
