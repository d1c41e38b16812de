package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/utils"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// waitFor is replaced in tests to observe backoff without sleeping.
var waitFor = utils.WaitFor

// Retrier wraps a Generator with linear backoff: after the n-th failed attempt
// it waits n*BaseDelay before trying again.
type Retrier struct {
	generator   Generator
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

func NewRetrier(generator Generator, maxAttempts int, baseDelay time.Duration, log *zap.Logger) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay < 0 {
		baseDelay = DefaultBaseDelay
	}
	if generator == nil {
		generator = Unavailable{}
	}

	return &Retrier{
		generator:   generator,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger.WithFields(log),
	}
}

// Invoke calls the model with the configured attempt budget.
func (r *Retrier) Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return r.InvokeWithRetry(ctx, systemPrompt, userPrompt, r.maxAttempts)
}

// InvokeWithRetry calls the model at most maxAttempts times. It returns the
// first successful response, ErrModelUnavailable without retrying, the context
// error as soon as ctx is done, or a *ModelCallError wrapping the last failure.
func (r *Retrier) InvokeWithRetry(ctx context.Context, systemPrompt, userPrompt string, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		response, err := r.generator.GenerateContent(ctx, systemPrompt, userPrompt)
		if err == nil {
			if strings.TrimSpace(response) != "" {
				return response, nil
			}
			err = errors.New("model returned an empty response")
		}

		if errors.Is(err, ErrModelUnavailable) {
			return "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		lastErr = unwrapCallError(err)
		fields := append(logger.AttemptFields(attempt, maxAttempts), zap.Error(lastErr))

		if attempt == maxAttempts {
			r.logger.Warn("model call attempts exhausted", fields...)
			break
		}

		delay := time.Duration(attempt) * r.baseDelay
		r.logger.Warn("model call failed, retrying", append(fields, zap.Duration("backoff", delay))...)

		if err := waitFor(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", &ModelCallError{Attempts: maxAttempts, Err: lastErr}
}

func unwrapCallError(err error) error {
	var callErr *ModelCallError
	if errors.As(err, &callErr) && callErr.Err != nil {
		return callErr.Err
	}
	return err
}
