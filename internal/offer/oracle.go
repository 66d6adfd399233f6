package offer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type failureClass int

const (
	failureNone failureClass = iota
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
	failureCanceled
)

func (c failureClass) String() string {
	switch c {
	case failureTimeout:
		return "timeout"
	case failureRateLimit:
		return "rate_limit"
	case failureServer:
		return "server"
	case failureClient:
		return "client"
	case failureCanceled:
		return "canceled"
	}
	return "none"
}

func (c failureClass) retryable() bool {
	return c == failureTimeout || c == failureRateLimit || c == failureServer
}

// Oracle is the external text-generation capability. Implementations send one
// prompt and return the raw reply text.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// OracleConfig configures a provider. Credentials are passed in by the
// caller.
type OracleConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

const (
	DefaultMaxRetries = 2
	DefaultTimeout    = 45 * time.Second
)

type AdapterConfig struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Timeout bounds each attempt.
	Timeout time.Duration
	// Backoff returns the wait before the given retry (1-based). Defaults to
	// 1s then 2s.
	Backoff func(retry int) time.Duration
}

// Adapter calls an Oracle with a per-attempt deadline and retries transient
// transport failures. It never retries a reply for its content.
type Adapter struct {
	oracle Oracle
	cfg    AdapterConfig
}

func NewAdapter(oracle Oracle, cfg AdapterConfig) *Adapter {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff == nil {
		cfg.Backoff = backoffDelay
	}
	return &Adapter{oracle: oracle, cfg: cfg}
}

func (a *Adapter) ModelName() string { return a.oracle.ModelName() }

func (a *Adapter) Generate(ctx context.Context, prompt string) (string, StageAttemptMetrics, error) {
	metrics := StageAttemptMetrics{}
	start := time.Now()

	attempts := 1 + a.cfg.MaxRetries
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		metrics.Attempts = attempt
		raw, err := a.attempt(ctx, prompt)
		if err == nil {
			metrics.Elapsed = time.Since(start)
			return raw, metrics, nil
		}
		lastErr = err

		class := classifyTransportError(ctx, err)
		if !class.retryable() || attempt == attempts {
			break
		}
		if err := sleepContext(ctx, a.cfg.Backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}
	metrics.Elapsed = time.Since(start)
	return "", metrics, &OracleUnavailableError{Attempts: metrics.Attempts, Err: lastErr}
}

func (a *Adapter) attempt(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	raw, err := a.oracle.Generate(attemptCtx, prompt)
	if err != nil {
		// A provider that ignores its context still reports the deadline.
		if attemptCtx.Err() != nil && ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return "", err
	}
	return raw, nil
}

// classifyTransportError buckets a provider error. A cancelled parent context
// always wins so a departed client stops the loop.
func classifyTransportError(parent context.Context, err error) failureClass {
	if parent.Err() != nil || errors.Is(err, context.Canceled) {
		return failureCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return classifyStatus(sc.StatusCode())
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource_exhausted") {
		return failureRateLimit
	}
	if code := statusPattern.FindString(msg); code != "" {
		n, _ := strconv.Atoi(code)
		return classifyStatus(n)
	}
	return failureServer
}

// statusPattern finds an HTTP error status in a provider message that did not
// carry a typed status.
var statusPattern = regexp.MustCompile(`\b[45]\d\d\b`)

func classifyStatus(code int) failureClass {
	switch {
	case code == 429:
		return failureRateLimit
	case code == 408:
		return failureTimeout
	case code >= 500:
		return failureServer
	case code >= 400:
		return failureClient
	}
	return failureServer
}

func backoffDelay(retry int) time.Duration {
	if retry <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}
	return s
}
