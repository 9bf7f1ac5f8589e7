package providers

import (
	"context"

	"go.uber.org/zap"
)

// FailoverClient tries each registered provider in registration order and
// returns the first successful completion. The registration order is the
// preference order.
type FailoverClient struct {
	registry *Registry
	logger   *zap.Logger
}

// NewFailoverClient creates a failover client over the registry
func NewFailoverClient(registry *Registry, logger *zap.Logger) *FailoverClient {
	return &FailoverClient{
		registry: registry,
		logger:   logger,
	}
}

// Complete attempts the completion against each provider until one succeeds
func (c *FailoverClient) Complete(ctx context.Context, system, user string) (string, error) {
	names := c.registry.ListProviders()
	if len(names) == 0 {
		return "", ErrNoProviders
	}

	var lastErr error
	for _, name := range names {
		provider, err := c.registry.GetProvider(name)
		if err != nil {
			lastErr = err
			continue
		}

		text, err := provider.Complete(ctx, system, user)
		if err == nil {
			return text, nil
		}

		c.logger.Warn("provider completion failed, trying next",
			zap.String("provider", name),
			zap.Error(err))
		lastErr = err
	}

	return "", lastErr
}

// IsAvailable reports whether any registered provider is reachable
func (c *FailoverClient) IsAvailable(ctx context.Context) bool {
	for _, name := range c.registry.ListProviders() {
		provider, err := c.registry.GetProvider(name)
		if err != nil {
			continue
		}
		if provider.IsAvailable(ctx) {
			return true
		}
	}
	return false
}
