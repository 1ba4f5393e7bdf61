package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerhand/ledgerhand/internal/common"
	"github.com/ledgerhand/ledgerhand/internal/model"
)

// Config holds configuration for the remote classifier.
type Config struct {
	Endpoint   string
	APIKey     string
	Model      string
	Timeout    time.Duration
	RetryDelay time.Duration
	CacheTTL   time.Duration
	MaxRetries int
	RateLimit  int
}

// Classifier wraps a Client with caching, rate limiting and retries. It is
// the component the orchestrator fans out to.
type Classifier struct {
	client    Client
	cache     *candidateCache
	limiter   *rateLimiter
	logger    *slog.Logger
	retryOpts common.RetryOptions
}

// NewClassifier creates a classifier backed by the HTTP client.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	client, err := newHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote client: %w", err)
	}
	return NewClassifierWithClient(client, cfg, logger), nil
}

// NewClassifierWithClient creates a classifier over an existing client.
// Used by tests and dry runs that substitute a fake transport.
func NewClassifierWithClient(client Client, cfg Config, logger *slog.Logger) *Classifier {
	retryOpts := common.RetryOptions{
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

	return &Classifier{
		client:    client,
		cache:     newCandidateCache(cfg.CacheTTL),
		limiter:   newRateLimiter(cfg.RateLimit),
		logger:    logger,
		retryOpts: retryOpts,
	}
}

// Classify asks the remote service for a candidate for one transaction.
// Unavailable failures are retried with backoff; unauthorized failures are
// returned immediately. Either way the caller receives a typed
// *ClassificationError, never a raw transport error.
func (c *Classifier) Classify(ctx context.Context, txn model.Transaction) (model.ClassificationCandidate, error) {
	if candidate, found := c.cache.get(txn.Hash()); found {
		c.logger.Debug("cache hit for transaction", "transaction_id", txn.ID)
		return candidate, nil
	}

	if err := c.limiter.wait(ctx); err != nil {
		return model.ClassificationCandidate{}, Unavailable(err)
	}

	var result Classification

	err := common.WithRetry(ctx, func() error {
		resp, classifyErr := c.client.Classify(ctx, Request{
			Description: txn.Description,
			Explanation: txn.Explanation,
		})
		if classifyErr != nil {
			retryable := true
			if kind, ok := KindOf(classifyErr); ok && kind == KindUnauthorized {
				retryable = false
			}
			c.logger.Warn("remote classification attempt failed",
				"error", classifyErr,
				"transaction_id", txn.ID,
				"retryable", retryable)
			return &common.RetryableError{Err: classifyErr, Retryable: retryable}
		}

		result = resp
		return nil
	}, c.retryOpts)

	if err != nil {
		// Surface the typed classification error, not the retry wrapper.
		var classErr *ClassificationError
		if errors.As(err, &classErr) {
			return model.ClassificationCandidate{}, classErr
		}
		return model.ClassificationCandidate{}, Unavailable(err)
	}

	candidate := model.ClassificationCandidate{
		AccountID:  result.AccountID,
		Rationale:  result.Rationale,
		Confidence: result.Confidence,
		Source:     model.SourceRemote,
	}

	c.cache.set(txn.Hash(), candidate)

	c.logger.Info("transaction classified remotely",
		"transaction_id", txn.ID,
		"account", candidate.AccountID,
		"confidence", candidate.Confidence)

	return candidate, nil
}

// Close stops background goroutines and cleans up resources.
func (c *Classifier) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	if c.limiter != nil {
		c.limiter.Close()
	}
	return nil
}
