package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/candex/internal/domain"
)

// DefaultExpansionPrompt asks for related search terms only.
const DefaultExpansionPrompt = "You expand short job-candidate search queries. " +
	"Reply with a single line of related skills, job titles and synonyms in the language of the query, " +
	"separated by spaces. Do not repeat the query. Do not explain."

// ExpanderConfig holds the query expansion provider settings.
type ExpanderConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxWords     int
	RatePerSec   float64
	Burst        int
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Expander enriches short queries through an OpenAI-compatible chat completion.
type Expander struct {
	client   *openai.Client
	model    string
	prompt   string
	maxWords int
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewExpander creates a rate-limited query expander.
func NewExpander(cfg *ExpanderConfig) *Expander {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultExpansionPrompt
	}
	ratePerSec := cfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Expander{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		prompt:   prompt,
		maxWords: cfg.MaxWords,
		timeout:  cfg.Timeout,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), burst),
		logger:   logger,
	}
}

// Expand implements domain.Expander. Errors wrap domain.ErrExpansionFailed.
func (e *Expander) Expand(ctx context.Context, query string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %v: %w", err, domain.ErrExpansionFailed)
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.prompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature: 0.2,
		MaxTokens:   64,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %v: %w", err, domain.ErrExpansionFailed)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion: %w", domain.ErrExpansionFailed)
	}

	out := cleanExpansion(resp.Choices[0].Message.Content, e.maxWords)
	e.logger.Debug("Query expanded", zap.String("query", query), zap.String("expansion", out))
	return out, nil
}

// cleanExpansion keeps the first non-empty line, strips quotes and list markers,
// and caps the number of words (0 = no cap).
func cleanExpansion(s string, maxWords int) string {
	var line string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	line = strings.Trim(line, "\"'`*-• ")
	words := strings.Fields(strings.NewReplacer(",", " ", ";", " ").Replace(line))
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}
