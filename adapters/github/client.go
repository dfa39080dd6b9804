// Package github implements the usage source against the GitHub billing
// usage API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quotawatch/quotawatch/domain/billing"
	"github.com/quotawatch/quotawatch/ports"
)

const defaultBaseURL = "https://api.github.com"

// Maximum bytes of an error body kept for diagnostics.
const maxErrorBody = 4 << 10

// Client fetches billing usage for the authenticated user.
//
// API contract:
//
//	GET /user
//	Response: {"login": "octocat"}
//
//	GET /users/{login}/settings/billing/usage?year=Y&month=M
//	Response: {"usageItems": [{product, quantity, netAmount, unitPrice, discountAmount}]}
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// ClientConfig configures the usage client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// NewClient creates a new billing usage client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "quotawatch"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
	}
}

type userResponse struct {
	Login string `json:"login"`
}

// usageItem is the wire format of one billing line item. All numeric
// fields are nullable; absent means zero.
type usageItem struct {
	Product        string   `json:"product"`
	Quantity       *float64 `json:"quantity"`
	NetAmount      *float64 `json:"netAmount"`
	UnitPrice      *float64 `json:"unitPrice"`
	DiscountAmount *float64 `json:"discountAmount"`
}

type usageResponse struct {
	UsageItems []usageItem `json:"usageItems"`
}

// FetchUsage resolves the authenticated login, then fetches that login's
// billing usage for the given period.
func (c *Client) FetchUsage(ctx context.Context, token string, period billing.Period) (billing.UsageReport, error) {
	if token == "" {
		return billing.UsageReport{}, &APIError{Kind: KindMissingToken, Message: "no bearer token"}
	}

	var user userResponse
	if err := c.get(ctx, token, "/user", &user); err != nil {
		return billing.UsageReport{}, err
	}
	if user.Login == "" {
		return billing.UsageReport{}, &APIError{Kind: KindDecodingError, Message: "user response has no login"}
	}

	path := fmt.Sprintf("/users/%s/settings/billing/usage?year=%d&month=%d",
		url.PathEscape(user.Login), period.Year, int(period.Month))

	var resp usageResponse
	if err := c.get(ctx, token, path, &resp); err != nil {
		return billing.UsageReport{}, err
	}

	items := make([]billing.LineItem, 0, len(resp.UsageItems))
	for _, it := range resp.UsageItems {
		items = append(items, billing.LineItem{
			Product:        it.Product,
			Quantity:       deref(it.Quantity),
			NetAmount:      deref(it.NetAmount),
			UnitPrice:      deref(it.UnitPrice),
			DiscountAmount: deref(it.DiscountAmount),
		})
	}

	return billing.UsageReport{Login: user.Login, Items: items}, nil
}

func (c *Client) get(ctx context.Context, token, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &APIError{Kind: KindInvalidURL, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.classify(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &APIError{Kind: KindDecodingError, StatusCode: resp.StatusCode, Message: err.Error()}
	}
	return nil
}

// classify maps a non-200 response to the error taxonomy. 429 and
// 403-with-exhausted-quota both classify as rate limited.
func (c *Client) classify(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &APIError{Kind: KindUnauthorized, StatusCode: resp.StatusCode, Body: string(body)}
	case http.StatusTooManyRequests:
		return &APIError{
			Kind:       KindRateLimited,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			ResetAt:    resetTime(resp.Header),
		}
	case http.StatusForbidden:
		if resp.Header.Get("x-ratelimit-remaining") == "0" {
			return &APIError{
				Kind:       KindRateLimited,
				StatusCode: resp.StatusCode,
				Body:       string(body),
				ResetAt:    resetTime(resp.Header),
			}
		}
		return &APIError{Kind: KindForbidden, StatusCode: resp.StatusCode, Body: string(body)}
	default:
		if resp.StatusCode >= 400 {
			return &APIError{Kind: KindHTTPError, StatusCode: resp.StatusCode, Body: string(body)}
		}
		return &APIError{Kind: KindUnexpectedResponse, StatusCode: resp.StatusCode, Body: string(body)}
	}
}

// resetTime extracts the rate limit reset time. A Retry-After header
// (delay seconds or an HTTP-date) takes precedence over the
// x-ratelimit-reset epoch header when both are present.
func resetTime(h http.Header) *time.Time {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs >= 0 {
			t := time.Now().Add(time.Duration(secs) * time.Second)
			return &t
		}
		if t, err := http.ParseTime(v); err == nil {
			return &t
		}
	}
	if v := h.Get("x-ratelimit-reset"); v != "" {
		if epoch, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && epoch > 0 {
			t := time.Unix(epoch, 0)
			return &t
		}
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Ensure interface compliance.
var _ ports.UsageSource = (*Client)(nil)
