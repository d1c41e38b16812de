package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/resume-agent/internal/ai"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	Provider = "gemini"

	defaultModel           = "gemini-2.5-flash"
	defaultTemperature     = 0.7
	defaultMaxOutputTokens = 4000
	defaultMaxLogLength    = 200
)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Options configures a Generator.
type Options struct {
	APIKey string
	Model  string
	// Temperature is sent as given, zero included; nil selects the default.
	Temperature     *float32
	MaxOutputTokens int32
	// RequestsPerMinute throttles calls on the client side; zero disables it.
	RequestsPerMinute int
	MaxLogLength      int
}

// Generator performs single Gemini calls. Each call opens a fresh chat whose
// system instruction carries the stage prompt. Retries belong to ai.Retrier.
type Generator struct {
	chats       chatCreator
	model       string
	temperature float32
	maxTokens   int32
	limiter     *rate.Limiter
	maxLogLen   int
	logger      *zap.Logger
}

// NewGenerator creates a Generator for the Gemini API backend. It returns an
// error wrapping ai.ErrModelUnavailable when no API key is supplied.
func NewGenerator(ctx context.Context, opts Options, log *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is missing: %w", ai.ErrModelUnavailable)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(genaiChats{chats: client.Chats}, opts, log), nil
}

func newGenerator(chats chatCreator, opts Options, log *zap.Logger) *Generator {
	model := utils.FirstNonEmpty(opts.Model, defaultModel)

	temperature := float32(defaultTemperature)
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	maxTokens := opts.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &Generator{
		chats:       chats,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		limiter:     limiter,
		maxLogLen:   maxLogLen,
		logger:      logger.WithCommonFields(log, Provider, model),
	}
}

// GenerateContent sends one message and returns the concatenated text parts
// of the response. Failures are reported as *ai.ModelCallError, except
// context errors which are returned unchanged.
func (g *Generator) GenerateContent(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g == nil || g.chats == nil {
		return "", ai.ErrModelUnavailable
	}

	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return "", &ai.ModelCallError{Attempts: 1, Err: errors.New("prompt must not be empty")}
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", &ai.ModelCallError{Attempts: 1, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}
	if system := strings.TrimSpace(systemPrompt); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(userPrompt)),
		zap.String("prompt_preview", utils.TruncateForLog(userPrompt, g.maxLogLen)),
	)

	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", g.callError(ctx, fmt.Errorf("create chat: %w", err))
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: userPrompt})
	if err != nil {
		return "", g.callError(ctx, fmt.Errorf("send message: %w", err))
	}

	output := responseText(resp)
	if output == "" {
		return "", &ai.ModelCallError{Attempts: 1, Err: errors.New("gemini api returned empty response")}
	}

	g.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func (g *Generator) callError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		g.logger.Debug("gemini api error", zap.Int("code", apiErr.Code), zap.String("status", apiErr.Status))
	}

	return &ai.ModelCallError{Attempts: 1, Err: err}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" || part.Thought {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
