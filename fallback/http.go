// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package fallback

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single provider HTTP request.
	DefaultTimeout = 30 * time.Second

	defaultAttempts  = 3
	defaultBaseDelay = 500 * time.Millisecond
	maxDelayFactor   = 8
	userAgent        = "gurag/1.0 (+https://github.com/poiesic/gurag)"
)

// ProviderOption configures an external provider.
type ProviderOption func(*providerConfig) error

type providerConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	attempts   int
	baseDelay  time.Duration

	client *resty.Client
}

func newProviderConfig(baseURL string, limiter *rate.Limiter, opts []ProviderOption) (*providerConfig, error) {
	cfg := &providerConfig{
		baseURL:   baseURL,
		timeout:   DefaultTimeout,
		limiter:   limiter,
		attempts:  defaultAttempts,
		baseDelay: defaultBaseDelay,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	cfg.client = cfg.newClient()
	return cfg, nil
}

// newClient builds the resty client. Each attempt waits on the limiter, and
// transport errors, 429 and 5xx responses are retried with jittered backoff.
func (c *providerConfig) newClient() *resty.Client {
	var client *resty.Client
	if c.httpClient != nil {
		client = resty.NewWithClient(c.httpClient)
	} else {
		client = resty.New()
	}
	client.
		SetTimeout(c.timeout).
		SetRetryCount(c.attempts-1).
		SetRetryWaitTime(c.baseDelay).
		SetRetryMaxWaitTime(c.baseDelay*maxDelayFactor).
		SetHeader("User-Agent", userAgent)

	if c.limiter != nil {
		limiter := c.limiter
		client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			return limiter.Wait(r.Context())
		})
	}

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if r != nil && r.Request != nil && r.Request.Context().Err() != nil {
			return false
		}
		if err != nil {
			return true
		}
		return r != nil && isTemporaryStatus(r.StatusCode())
	})
	return client
}

// WithBaseURL points the provider at a different endpoint.
func WithBaseURL(baseURL string) ProviderOption {
	return func(c *providerConfig) error {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
		}
		c.baseURL = baseURL
		return nil
	}
}

// WithHTTPClient sets the underlying HTTP client resty sends requests with.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(c *providerConfig) error {
		c.httpClient = client
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(c *providerConfig) error {
		if timeout > 0 {
			c.timeout = timeout
		}
		return nil
	}
}

// WithRateLimit paces requests. A nil limiter disables pacing.
func WithRateLimit(limiter *rate.Limiter) ProviderOption {
	return func(c *providerConfig) error {
		c.limiter = limiter
		return nil
	}
}

// WithRetry sets how many attempts a request gets and the initial backoff.
func WithRetry(attempts int, baseDelay time.Duration) ProviderOption {
	return func(c *providerConfig) error {
		if attempts <= 0 {
			return ErrInvalidAttempts
		}
		c.attempts = attempts
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
		return nil
	}
}

// get fetches target and returns the body of a 200 response.
func (c *providerConfig) get(ctx context.Context, target string) ([]byte, error) {
	resp, err := c.client.R().SetContext(ctx).Get(target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode(), URL: target}
	}
	return resp.Body(), nil
}
