// Package httpclient provides the outbound HTTP client shared by the embedding,
// completion and managed vector store integrations. Requests go through a
// sony/gobreaker circuit breaker that opens after consecutive upstream 5xx or
// transport failures. Nothing here retries.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ErrOpen is returned while the breaker rejects requests.
var ErrOpen = errors.New("circuit breaker is open")

// errServerStatus marks a 5xx response as a breaker failure without
// discarding the response, which callers still need for status and body.
var errServerStatus = errors.New("upstream server error")

// Client is an HTTP client with built-in circuit breaking.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a Client named after the upstream it talks to.
// A disabled breaker config yields a plain client with the configured timeout.
func NewClient(name string, cfg config.CircuitBreakerConfig) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: config.Duration(cfg.RequestTimeout, 30*time.Second)},
	}
	if !cfg.Enabled {
		return c
	}

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.SuccessThreshold,
		Timeout:     config.Duration(cfg.Timeout, 30*time.Second),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not an upstream fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	return c
}

// Do executes req. Status codes >= 500 count as breaker failures but the
// response is still returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var doErr error
		resp, doErr = c.httpClient.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, errServerStatus
		}
		return nil, nil
	})

	switch {
	case err == nil, errors.Is(err, errServerStatus):
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%s: %w", c.breaker.Name(), ErrOpen)
	default:
		return nil, err
	}
}

// State reports the breaker state, "disabled" when there is no breaker.
func (c *Client) State() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// StandardClient adapts c to *http.Client for SDKs that accept one.
func (c *Client) StandardClient() *http.Client {
	return &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return c.Do(req)
		}),
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// HeaderTransport sets fixed headers on every request before handing it to Base.
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers map[string]string
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return base.RoundTrip(req)
}
