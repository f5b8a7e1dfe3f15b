// Package polar is a thin client for the Polar billing API: the handful of
// REST endpoints this service calls, webhook signature verification, and
// normalization of webhook payload shapes.
package polar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	productionBaseURL = "https://api.polar.sh"
	sandboxBaseURL    = "https://sandbox-api.polar.sh"

	pageSize = 50
)

// Config holds Polar credentials and webhook secrets.
type Config struct {
	AccessToken        string
	Environment        string // "sandbox" or "production"
	WebhookSecret      string // subscription/product events route
	OrderWebhookSecret string // custom order events route
	SuccessURL         string
}

type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = u
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		baseURL:    sandboxBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	if cfg.Environment == "production" {
		c.baseURL = productionBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("polar API %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// FindCustomerIDByEmail scans the customer list filtered by email page by
// page and returns the first match, or "" when no customer exists. Pages
// are visited in order; the first page containing a result wins.
func (c *Client) FindCustomerIDByEmail(ctx context.Context, email string) (string, error) {
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("email", email)
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", "1")

		var env listEnvelope[Customer]
		if err := c.do(ctx, http.MethodGet, "/v1/customers/", query, nil, &env); err != nil {
			return "", fmt.Errorf("list customers: %w", err)
		}
		if len(env.Items) > 0 {
			return env.Items[0].ID, nil
		}
		if page >= env.Pagination.MaxPage {
			return "", nil
		}
	}
}

// ListSubscriptionsPage returns one page of subscriptions for a customer
// along with the vendor-reported total page count, so callers can keep
// walking pages even when an individual page fails.
func (c *Client) ListSubscriptionsPage(ctx context.Context, customerID string, page int) ([]Subscription, int, error) {
	query := url.Values{}
	query.Set("customer_id", customerID)
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(pageSize))

	var env listEnvelope[Subscription]
	if err := c.do(ctx, http.MethodGet, "/v1/subscriptions/", query, nil, &env); err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	return env.Items, env.Pagination.MaxPage, nil
}

// ListProductsPage returns one page of the non-archived catalog along with
// the vendor-reported total page count.
func (c *Client) ListProductsPage(ctx context.Context, page int) ([]Product, int, error) {
	query := url.Values{}
	query.Set("is_archived", "false")
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(pageSize))

	var env listEnvelope[Product]
	if err := c.do(ctx, http.MethodGet, "/v1/products/", query, nil, &env); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return env.Items, env.Pagination.MaxPage, nil
}

// CreateCustomer creates a Polar customer for the email and returns its ID.
func (c *Client) CreateCustomer(ctx context.Context, email string, metadata map[string]any) (string, error) {
	body := map[string]any{"email": email}
	if metadata != nil {
		body["metadata"] = metadata
	}
	var cust Customer
	if err := c.do(ctx, http.MethodPost, "/v1/customers/", nil, body, &cust); err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return cust.ID, nil
}

// CreateCustomerSession creates a customer portal session and returns the
// portal URL.
func (c *Client) CreateCustomerSession(ctx context.Context, customerID string) (string, error) {
	body := map[string]any{"customer_id": customerID}
	var sess customerSession
	if err := c.do(ctx, http.MethodPost, "/v1/customer-sessions/", nil, body, &sess); err != nil {
		return "", fmt.Errorf("create customer session: %w", err)
	}
	return sess.CustomerPortalURL, nil
}

// CreateCheckout creates a checkout session for a product and returns the
// redirect URL. customerEmail may be empty for anonymous checkouts.
func (c *Client) CreateCheckout(ctx context.Context, productID, customerEmail string) (string, error) {
	body := map[string]any{
		"products":    []string{productID},
		"success_url": c.cfg.SuccessURL,
	}
	if customerEmail != "" {
		body["customer_email"] = customerEmail
	}
	var checkout checkoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkouts/", nil, body, &checkout); err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}
	return checkout.URL, nil
}
