// Package testutil provides testing utilities for integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// Envelope mirrors the uniform response body.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client is an HTTP client for testing API endpoints.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Validator  *OpenAPIValidator
	t          *testing.T
}

// NewClient creates a new test client without validation.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
	}
}

// NewClientWithValidator creates a test client that validates every response
// against the OpenAPI document.
func NewClientWithValidator(t *testing.T, baseURL string, validator *OpenAPIValidator) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
		Validator:  validator,
		t:          t,
	}
}

// LoginAs authenticates through path and keeps the bearer token.
func (c *Client) LoginAs(t *testing.T, path, loginName, password string) {
	t.Helper()

	status, env := c.Do(t, http.MethodPost, path, map[string]string{
		"login_name": loginName,
		"password":   password,
	})
	if status != http.StatusOK {
		t.Fatalf("login as %s failed: status=%d message=%s", loginName, status, env.Message)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode login result: %v", err)
	}
	c.Token = result.AccessToken
}

// LoginAsStaff logs in through /admin/login.
func (c *Client) LoginAsStaff(t *testing.T, loginName, password string) {
	t.Helper()
	c.LoginAs(t, "/admin/login", loginName, password)
}

// LoginAsAccount logs in through /api/auth/login.
func (c *Client) LoginAsAccount(t *testing.T, loginName, password string) {
	t.Helper()
	c.LoginAs(t, "/api/auth/login", loginName, password)
}

// Do sends a JSON request and decodes the envelope. It fails the test when
// the envelope code differs from the HTTP status.
func (c *Client) Do(t *testing.T, method, path string, body any) (int, Envelope) {
	t.Helper()

	resp, err := c.do(method, path, body)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope from %s %s: %v\nbody: %s", method, path, err, raw)
	}
	if env.Code != resp.StatusCode {
		t.Errorf("%s %s: envelope code %d, HTTP status %d", method, path, env.Code, resp.StatusCode)
	}
	return resp.StatusCode, env
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	if c.Validator != nil && c.t != nil {
		validationReq, _ := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(bodyBytes))
		validationReq.Header = req.Header
		c.Validator.ValidateResponse(c.t, validationReq, resp)
	}

	return resp, nil
}

// DecodeData unmarshals the envelope payload into v.
func DecodeData(t *testing.T, env Envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v\ndata: %s", err, env.Data)
	}
}

// RandomLoginName returns a unique login name with prefix.
func RandomLoginName(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
