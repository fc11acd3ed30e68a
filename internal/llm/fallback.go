package llm

import (
	"context"
	"log/slog"
)

// FallbackClient wraps a primary completion provider with a fallback.
// If the primary fails, it retries once with the fallback provider.
type FallbackClient struct {
	primary  Client
	fallback Client
	logger   *slog.Logger
}

// NewFallbackClient creates a fallback-enabled client. If fallback is
// nil, only the primary provider is used.
func NewFallbackClient(primary, fallback Client, logger *slog.Logger) *FallbackClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FallbackClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)

	if c.fallback == nil {
		return Response{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return Response{}, fallbackErr
	}

	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}
