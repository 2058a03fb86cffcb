package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"modelgateway/internal/gateway"
	"modelgateway/internal/logger"
	"modelgateway/internal/metrics"
)

// RetryPolicy bounds the idempotent-send loop. Delay before retry n is
// BaseDelay * 2^min(n, 5), no jitter.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// retryableStatus reports whether an upstream status justifies another
// attempt.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryStatusError signals a retryable upstream status to the backoff loop.
type retryStatusError struct {
	status int
}

func (e *retryStatusError) Error() string {
	return fmt.Sprintf("retryable upstream status %d", e.status)
}

// SendWithRetry issues the request produced by build, retrying transport
// failures and retryable statuses up to policy.MaxRetries times. build is
// called once per attempt so each attempt carries a fresh body. The final
// attempt's response is returned even when its status is retryable; callers
// inspect the status themselves. A transport failure on the final attempt
// surfaces as a gateway transport error.
func SendWithRetry(ctx context.Context, client *http.Client, providerName string, policy RetryPolicy, build func() (*http.Request, error)) (*http.Response, error) {
	log := logger.WithComponent("retry")

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = policy.BaseDelay
	expo.RandomizationFactor = 0
	expo.Multiplier = 2
	expo.MaxInterval = policy.BaseDelay * (1 << 5)

	var lastResp *http.Response
	operation := func() (*http.Response, error) {
		req, err := build()
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if retryableStatus(resp.StatusCode) {
			if lastResp != nil {
				lastResp.Body.Close()
			}
			lastResp = resp
			return nil, &retryStatusError{status: resp.StatusCode}
		}
		if lastResp != nil {
			lastResp.Body.Close()
			lastResp = nil
		}
		return resp, nil
	}

	notify := func(err error, delay time.Duration) {
		metrics.UpstreamRetriesTotal.WithLabelValues(providerName).Inc()
		log.Warn("retrying upstream request",
			slog.String("provider", providerName),
			slog.String("reason", err.Error()),
			slog.Duration("delay", delay),
		)
	}

	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(policy.MaxRetries)+1),
		backoff.WithNotify(notify),
	)
	if err != nil {
		var statusErr *retryStatusError
		if errors.As(err, &statusErr) && lastResp != nil {
			metrics.UpstreamRequestsTotal.WithLabelValues(providerName, "upstream_error").Inc()
			return lastResp, nil
		}
		if lastResp != nil {
			lastResp.Body.Close()
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(providerName, "transport_error").Inc()
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return nil, gwErr
		}
		return nil, gateway.Transport(err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(providerName, "ok").Inc()
	return resp, nil
}
