// Package ghsync pushes roster snapshots to a file in a GitHub repository
// through the contents API. It is the consumer of the secure token store:
// every outbound call attaches the stored bearer token, and a missing or
// expired token surfaces as a result value, not a panic path.
package ghsync

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iudanet/quotakeeper/internal/models"
)

// DefaultBaseURL - адрес GitHub REST API
const DefaultBaseURL = "https://api.github.com"

// Заголовки исходящих запросов, как их слал оригинальный дашборд
const (
	acceptHeader     = "application/vnd.github.v3+json"
	userAgentHeader  = "Xerox-System-v2.0.0"
	apiVersionHeader = "2022-11-28"
)

// ErrNoToken is returned when no usable bearer token is stored.
var ErrNoToken = errors.New("github token not configured or expired")

// TokenSource supplies the bearer credential. Implemented by
// securestore.Store.
type TokenSource interface {
	GetToken(ctx context.Context) *models.TokenData
	IsTokenValid(ctx context.Context) bool
}

// ConnectionResult is the outcome of a connectivity test.
type ConnectionResult struct {
	Repository string
	Error      string
	Private    bool
	Success    bool
}

// Client talks to the GitHub contents API.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	baseURL    string
}

// NewClient creates a sync client. Pass DefaultBaseURL outside of tests.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TestConnection checks that the stored token can read its repository.
// Failures come back inside the result, never as an error.
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	token, err := c.token(ctx)
	if err != nil {
		return ConnectionResult{Success: false, Error: err.Error()}
	}

	var repo struct {
		FullName string `json:"full_name"`
		Private  bool   `json:"private"`
	}
	status, err := c.doRequest(ctx, http.MethodGet,
		fmt.Sprintf("/repos/%s", token.Repository), token.Token, nil, &repo)
	if err != nil {
		return ConnectionResult{Success: false, Error: err.Error()}
	}
	if status != http.StatusOK {
		return ConnectionResult{
			Success: false,
			Error:   fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
		}
	}

	return ConnectionResult{
		Success:    true,
		Repository: repo.FullName,
		Private:    repo.Private,
	}
}

// PushSnapshot writes content to path in the configured repository,
// creating or updating the file. The commit message is supplied by the
// caller.
func (c *Client) PushSnapshot(ctx context.Context, path, message string, content []byte) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	contentsPath := fmt.Sprintf("/repos/%s/contents/%s", token.Repository, path)

	// Для обновления существующего файла нужен его текущий sha
	var existing struct {
		SHA string `json:"sha"`
	}
	status, err := c.doRequest(ctx, http.MethodGet, contentsPath, token.Token, nil, &existing)
	if err != nil {
		return fmt.Errorf("failed to look up existing file: %w", err)
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("failed to look up existing file: HTTP %d", status)
	}

	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if existing.SHA != "" {
		body["sha"] = existing.SHA
	}

	status, err = c.doRequest(ctx, http.MethodPut, contentsPath, token.Token, body, nil)
	if err != nil {
		return fmt.Errorf("failed to push snapshot: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("failed to push snapshot: HTTP %d", status)
	}

	return nil
}

// token returns the stored bearer token, enforcing the 24h age limit.
func (c *Client) token(ctx context.Context) (*models.TokenData, error) {
	if !c.tokens.IsTokenValid(ctx) {
		return nil, ErrNoToken
	}
	token := c.tokens.GetToken(ctx)
	if token == nil || token.Token == "" {
		return nil, ErrNoToken
	}
	return token, nil
}

// doRequest performs one API call. Returns the HTTP status so callers can
// branch on expected non-200s (404 on first push).
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) (int, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgentHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if result != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
