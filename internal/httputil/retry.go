// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the model providers.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// retryable responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// MaxRetryAfter caps how long a server-supplied Retry-After may make us wait.
var MaxRetryAfter = time.Minute

const defaultMaxRetries = 5

// StatusOverloaded is the non-standard status some model APIs return when
// they are temporarily out of capacity.
const StatusOverloaded = 529

// Retryable reports whether a response status is worth retrying.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, StatusOverloaded:
		return true
	}
	return false
}

// Option configures DoWithRetry.
type Option func(*retryOptions)

type retryOptions struct {
	logger *zap.Logger
}

// WithLogger logs each retry at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *retryOptions) { o.logger = l }
}

// DoWithRetry executes an HTTP request and retries on 429, 503 and 529 with
// exponential backoff. The delay starts at RetryBaseDelay and doubles each
// attempt unless the server sends Retry-After, which then wins (capped at
// MaxRetryAfter).
//
// When maxRetries is 0 the default (5) is used. Request bodies are replayed
// through GetBody, so requests built with http.NewRequest over a bytes or
// strings reader retry safely. On each retry the response body is drained
// and closed before sleeping. If the context is cancelled during a backoff
// wait the function returns ctx.Err(). After exhausting retries the last
// retryable response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, opts ...Option) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	o := retryOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if wait, ok := RetryAfter(resp); ok {
			backoff = wait
		}
		o.logger.Debug("retrying request",
			zap.Int("status", resp.StatusCode),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP
// date. The result is capped at MaxRetryAfter.
func RetryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	var wait time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		wait = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		wait = time.Until(at)
		if wait < 0 {
			wait = 0
		}
	} else {
		return 0, false
	}
	return min(wait, MaxRetryAfter), true
}
