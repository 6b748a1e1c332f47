package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
)

// Defaults
const (
	defaultTimeout     = 30 * time.Second
	defaultRate        = 2.0
	defaultBurst       = 5
	defaultMaxAttempts = 3
	defaultUserAgent   = "PriceLens/1.0"
	maxErrorBodyBytes  = 512
)

// ClientConfig holds configuration for the feed client
type ClientConfig struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	MaxAttempts   int
	UserAgent     string
}

// Client fetches JSON product feeds from storefronts
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxAttempts int
	userAgent   string
	backoff     func(attempt int) time.Duration
	log         logrus.FieldLogger
}

// NewClient creates a new feed client
func NewClient(config ClientConfig, log logrus.FieldLogger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perSecond := config.RatePerSecond
	if perSecond <= 0 {
		perSecond = defaultRate
	}
	burst := config.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if log == nil {
		log = logrus.New()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		maxAttempts: attempts,
		userAgent:   userAgent,
		backoff:     exponentialBackoff,
		log:         log.WithField("component", "catalog"),
	}
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// doRequest executes an HTTP GET request with proper headers and error handling
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	return resp, nil
}

// Fetch downloads and maps the product feed of a source
func (c *Client) Fetch(ctx context.Context, source domain.Source) ([]domain.RawProduct, error) {
	endpoint := source.Endpoint()
	if endpoint == "" {
		return nil, fmt.Errorf("%w: source %q has no url", domain.ErrSourceUnavailable, source.Name)
	}

	log := c.log.WithFields(logrus.Fields{"source": source.Name, "endpoint": endpoint})

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, endpoint)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("feed request failed")
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: read body: %v", domain.ErrSourceUnavailable, err)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			log.WithFields(logrus.Fields{
				"attempt": attempt,
				"status":  resp.StatusCode,
				"body":    truncate(string(body), maxErrorBodyBytes),
			}).Warn("feed returned error status")
			lastErr = fmt.Errorf("%w: status %d", domain.ErrSourceUnavailable, resp.StatusCode)
			continue
		}

		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("%w: decode feed: %v", domain.ErrSourceUnavailable, err)
		}

		products := MapPayload(payload)
		log.WithField("products", len(products)).Debug("feed parsed")
		return products, nil
	}

	log.WithError(lastErr).Error("all feed attempts failed")
	return nil, lastErr
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
