package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	defaultTimeout    = 60 * time.Second
	maxErrorBodyBytes = 1024
)

// Config holds configuration for the insight client
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	RatePerSecond float64
}

// Client generates competitor insights with the OpenAI responses API
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a new insight client
func NewClient(config Config) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perSecond := config.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}

	return &Client{
		apiKey:      config.APIKey,
		baseURL:     baseURL,
		model:       model,
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

type responsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// text joins every output_text part of the response
func (r responsesResponse) text() string {
	if r.OutputText != "" {
		return r.OutputText
	}
	var parts []string
	for _, item := range r.Output {
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != "" {
				parts = append(parts, c.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// Generate asks the model for pricing risks, opportunities and recommendations
func (c *Client) Generate(ctx context.Context, req domain.InsightRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: no api key", domain.ErrInsightsUnavailable)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	body, err := json.Marshal(responsesRequest{Model: c.model, Input: BuildPrompt(req)})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInsightsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrInsightsUnavailable, resp.StatusCode, string(msg))
	}

	var decoded responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", domain.ErrInsightsUnavailable, err)
	}

	text := strings.TrimSpace(decoded.text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrInsightsUnavailable)
	}
	return text, nil
}

// BuildPrompt renders the strategist prompt for one competitor
func BuildPrompt(req domain.InsightRequest) string {
	var b strings.Builder
	b.WriteString("You are a senior competitive pricing strategist.\n\n")
	fmt.Fprintf(&b, "Competitor: %s\n\n", req.Competitor)
	fmt.Fprintf(&b, "Matched Products Count: %d\n", len(req.Diff.Matched))
	fmt.Fprintf(&b, "Missing Products Count: %d\n", len(req.Diff.Missing))
	fmt.Fprintf(&b, "Variant Gaps Count: %d\n", len(req.Diff.VariantGaps))

	if n := len(req.Diff.PriceComparison); n > 0 {
		cheaper := 0
		for _, pc := range req.Diff.PriceComparison {
			if pc.CompetitorCheaper() {
				cheaper++
			}
		}
		fmt.Fprintf(&b, "Price Comparisons: %d (competitor cheaper on %d)\n", n, cheaper)
	}

	b.WriteString("\nProvide:\n")
	b.WriteString("1. Pricing risks\n")
	b.WriteString("2. Opportunities\n")
	b.WriteString("3. Recommendations to increase sales\n")
	return b.String()
}
