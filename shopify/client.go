package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/osu/ShopiPing/models"
)

// Client talks to the Shopify Admin REST API of a single store.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a client for store, which may be the bare shop handle or the full
// myshopify.com host.
func NewClient(store, token, apiVersion string, opts ...Option) *Client {
	host := store
	if !strings.Contains(host, ".") {
		host += ".myshopify.com"
	}
	c := &Client{
		baseURL: fmt.Sprintf("https://%s/admin/api/%s", host, apiVersion),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx answer from Shopify.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify API error (status %d): %s", e.StatusCode, e.Body)
}

type ordersResponse struct {
	Orders []models.Order `json:"orders"`
}

type priceRuleRequest struct {
	PriceRule priceRuleBody `json:"price_rule"`
}

type priceRuleBody struct {
	Title             string `json:"title"`
	ValueType         string `json:"value_type"`
	Value             string `json:"value"`
	TargetType        string `json:"target_type"`
	TargetSelection   string `json:"target_selection"`
	AllocationMethod  string `json:"allocation_method"`
	CustomerSelection string `json:"customer_selection"`
	StartsAt          string `json:"starts_at"`
}

type priceRuleResponse struct {
	PriceRule struct {
		ID int64 `json:"id"`
	} `json:"price_rule"`
}

type discountCodeRequest struct {
	DiscountCode struct {
		Code string `json:"code"`
	} `json:"discount_code"`
}

type discountCodeResponse struct {
	DiscountCode models.DiscountCode `json:"discount_code"`
}

// OrdersForCart returns every order, in any status, created from the given cart. The
// search is only a hint to the API; orders whose cart_token is not cartID are dropped.
func (c *Client) OrdersForCart(ctx context.Context, cartID string) ([]models.Order, error) {
	q := url.Values{}
	q.Set("query", "cart_id:"+cartID)
	q.Set("status", "any")

	var resp ordersResponse
	if err := c.doRequest(ctx, http.MethodGet, "/orders.json?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("shopify OrdersForCart: %w", err)
	}

	var matched []models.Order
	for _, o := range resp.Orders {
		if o.CartToken == cartID {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

// CreatePriceRule creates a percentage-off price rule and returns its id.
func (c *Client) CreatePriceRule(ctx context.Context, rule models.PriceRule) (int64, error) {
	body := priceRuleRequest{PriceRule: priceRuleBody{
		Title:             rule.Title,
		ValueType:         "percentage",
		Value:             fmt.Sprintf("-%.1f", rule.PercentOff),
		TargetType:        rule.TargetType,
		TargetSelection:   rule.TargetSelection,
		AllocationMethod:  rule.AllocationMethod,
		CustomerSelection: rule.CustomerSelection,
		StartsAt:          rule.StartsAt.UTC().Format(time.RFC3339),
	}}

	var resp priceRuleResponse
	if err := c.doRequest(ctx, http.MethodPost, "/price_rules.json", body, &resp); err != nil {
		return 0, fmt.Errorf("shopify CreatePriceRule: %w", err)
	}
	if resp.PriceRule.ID == 0 {
		return 0, fmt.Errorf("shopify CreatePriceRule: response has no price rule id")
	}
	return resp.PriceRule.ID, nil
}

// CreateDiscountCode attaches code to an existing price rule.
func (c *Client) CreateDiscountCode(ctx context.Context, priceRuleID int64, code string) (models.DiscountCode, error) {
	var body discountCodeRequest
	body.DiscountCode.Code = code

	var resp discountCodeResponse
	path := fmt.Sprintf("/price_rules/%d/discount_codes.json", priceRuleID)
	if err := c.doRequest(ctx, http.MethodPost, path, body, &resp); err != nil {
		return models.DiscountCode{}, fmt.Errorf("shopify CreateDiscountCode: %w", err)
	}
	if resp.DiscountCode.Code == "" {
		return models.DiscountCode{}, fmt.Errorf("shopify CreateDiscountCode: response has no code")
	}
	if resp.DiscountCode.PriceRuleID == 0 {
		resp.DiscountCode.PriceRuleID = priceRuleID
	}
	return resp.DiscountCode, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBytes)}
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
