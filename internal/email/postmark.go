// Package email sends transactional mail through Postmark.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const apiURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	appBaseURL  string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint. Used by tests.
func WithAPIURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = u
	}
}

func NewClient(serverToken, fromEmail, appBaseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		appBaseURL:  appBaseURL,
		baseURL:     apiURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendMagicLink emails a sign-in link carrying a single-use login token.
func (c *Client) SendMagicLink(toEmail, token string) error {
	link := fmt.Sprintf("%s/auth/verify?token=%s", c.appBaseURL, token)
	textBody := fmt.Sprintf("Click the link below to sign in:\n\n%s\n\nThis link expires in 15 minutes.", link)
	htmlBody := fmt.Sprintf(
		`<p>Click the link below to sign in:</p><p><a href="%s">Sign in</a></p><p>This link expires in 15 minutes.</p>`,
		link,
	)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "Sign in to your account",
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

// SendOrderReceipt emails a short confirmation for a paid one-time order.
// Amount is in minor currency units.
func (c *Client) SendOrderReceipt(toEmail, productName string, amount int64, currency string) error {
	price := fmt.Sprintf("%.2f %s", float64(amount)/100, currency)
	textBody := fmt.Sprintf("Thanks for your purchase!\n\n%s — %s\n\nManage your purchases from your dashboard: %s/dashboard", productName, price, c.appBaseURL)
	htmlBody := fmt.Sprintf(
		`<p>Thanks for your purchase!</p><p><strong>%s</strong> — %s</p><p><a href="%s/dashboard">Manage your purchases</a></p>`,
		productName, price, c.appBaseURL,
	)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "Your receipt for " + productName,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

func (c *Client) send(payload postmarkEmail) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
