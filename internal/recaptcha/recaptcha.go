package recaptcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// Verifier checks a human-verification token. Implementations must fail
// closed: any transport or decoding problem is reported as an error and the
// caller treats it as a failed verification.
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// Client verifies tokens against the Google siteverify endpoint.
type Client struct {
	secret     string
	endpoint   string
	httpClient *http.Client
}

// NewClient builds a verifier with a bounded request timeout so a slow or
// unreachable verifier cannot stall checkout.
func NewClient(secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		secret:     secret,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewClientWithEndpoint is used by tests to point at a stub server.
func NewClientWithEndpoint(secret, endpoint string, timeout time.Duration) *Client {
	c := NewClient(secret, timeout)
	c.endpoint = endpoint
	return c
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (c *Client) Verify(ctx context.Context, token string) (bool, error) {
	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, &VerifyError{Status: resp.StatusCode}
	}

	var result siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, err
	}

	return result.Success, nil
}

// VerifyError reports a non-OK response from the verifier.
type VerifyError struct {
	Status int
}

func (e *VerifyError) Error() string {
	return "verifier returned non-OK status"
}
