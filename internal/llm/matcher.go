package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Veraticus/estimatch/internal/common"
	"github.com/Veraticus/estimatch/internal/model"
	"github.com/Veraticus/estimatch/internal/service"
	"github.com/sony/gobreaker"
)

// Matcher asks a language model to match invoice line items to estimate items.
type Matcher struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	breaker     *gobreaker.CircuitBreaker
	retryOpts   service.RetryOptions
}

// NewMatcher creates a matcher for the configured provider.
func NewMatcher(cfg Config, logger *slog.Logger) (*Matcher, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewMatcherWithClient(client, cfg, logger), nil
}

// NewMatcherWithClient wraps an existing client.
func NewMatcherWithClient(client Client, cfg Config, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-matcher",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Matcher{
		client:      client,
		logger:      logger,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		breaker:     breaker,
		retryOpts:   retryOpts,
	}
}

// Match sends one batch to the model. A non-nil error means the whole batch failed.
func (m *Matcher) Match(ctx context.Context, invoices []model.Invoice, estimates []model.EstimateLineItem, matchContext string) (model.MatchResponse, error) {
	if err := m.rateLimiter.wait(ctx); err != nil {
		return failedResponse(err), fmt.Errorf("rate limit error: %w", err)
	}

	req := Request{
		System: systemPrompt,
		Prompt: buildMatchPrompt(invoices, estimates, matchContext),
		JSON:   true,
	}

	result, err := m.breaker.Execute(func() (interface{}, error) {
		var (
			completion Completion
			matches    []model.MatchResult
		)
		err := common.WithRetry(ctx, func() error {
			m.logger.Debug("attempting LLM match", "context", matchContext)

			c, err := m.client.Complete(ctx, req)
			if err != nil {
				m.logger.Warn("LLM match attempt failed", "error", err)
				return err
			}

			parsed, err := parseMatches(c.Content)
			if err != nil {
				m.logger.Warn("invalid match response from LLM", "error", err)
				return &common.RetryableError{Err: err, Retryable: true}
			}

			completion, matches = c, parsed
			return nil
		}, m.retryOpts)
		if err != nil {
			return nil, err
		}
		return batchReply{completion: completion, matches: matches}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", common.ErrCircuitOpen, err)
		}
		err = fmt.Errorf("%w: %w", common.ErrCollaboratorFailed, err)
		return failedResponse(err), err
	}

	reply := result.(batchReply)
	resp := model.MatchResponse{Success: true, Matches: reply.matches}
	if cost, ok := estimateCost(reply.completion); ok {
		resp.Cost = &cost
	}

	m.logger.Info("batch matched by LLM",
		"model", reply.completion.Model,
		"matches", len(reply.matches),
		"prompt_tokens", reply.completion.PromptTokens,
		"completion_tokens", reply.completion.CompletionTokens)

	return resp, nil
}

// Close releases provider resources.
func (m *Matcher) Close() error {
	if closer, ok := m.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

type batchReply struct {
	completion Completion
	matches    []model.MatchResult
}

func failedResponse(err error) model.MatchResponse {
	return model.MatchResponse{Success: false, Error: err.Error()}
}
