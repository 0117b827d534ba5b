package bank

import (
	"context"
	"math/rand"
	"time"

	"github.com/psd2hub/xs2a-engine/internal/core/domain"
	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

// RetryClient retries read-only backend calls on technical failures. Writes
// are never retried here: the orchestrators decide what is safe to repeat.
type RetryClient struct {
	*Client
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryClient(inner *Client, baseDelay time.Duration, maxRetries int) *RetryClient {
	return &RetryClient{
		Client:     inner,
		baseDelay:  baseDelay,
		maxRetries: maxRetries,
	}
}

func (r *RetryClient) GetPaymentByID(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[*domain.Payment] {
	return retry(r, ctx, func(ctx context.Context) spi.Response[*domain.Payment] {
		return r.Client.GetPaymentByID(ctx, cd, payment, cont)
	})
}

func (r *RetryClient) GetPaymentStatusByID(ctx context.Context, cd spi.ContextData, payment *domain.Payment, cont spi.ContinuationData) spi.Response[domain.TransactionStatus] {
	return retry(r, ctx, func(ctx context.Context) spi.Response[domain.TransactionStatus] {
		return r.Client.GetPaymentStatusByID(ctx, cd, payment, cont)
	})
}

func (r *RetryClient) GetConsentStatusByID(ctx context.Context, cd spi.ContextData, consent *domain.Consent, cont spi.ContinuationData) spi.Response[domain.ConsentStatus] {
	return retry(r, ctx, func(ctx context.Context) spi.Response[domain.ConsentStatus] {
		return r.Client.GetConsentStatusByID(ctx, cd, consent, cont)
	})
}

func (r *RetryClient) RequestAvailableScaMethods(ctx context.Context, cd spi.ContextData, cont spi.ContinuationData) spi.Response[[]domain.AuthMethod] {
	return retry(r, ctx, func(ctx context.Context) spi.Response[[]domain.AuthMethod] {
		return r.Client.RequestAvailableScaMethods(ctx, cd, cont)
	})
}

// Generic retry helper
func retry[T any](r *RetryClient, ctx context.Context, operation func(ctx context.Context) spi.Response[T]) spi.Response[T] {
	var last spi.Response[T]

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return spi.Fail[T](spi.NewFailure(spi.TechnicalFailure, "", ctx.Err().Error()), last.Continuation)
		default:
		}

		last = operation(ctx)
		if !last.HasError() {
			return last
		}
		if last.Failure.Category != spi.TechnicalFailure {
			return last
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return last
}

// Backoff calculation with exponential delay and jitter
func (r *RetryClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Intn(250)) * time.Millisecond
	return base + jitter
}
