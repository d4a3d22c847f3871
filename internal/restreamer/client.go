// Package restreamer is an HTTP client for the restreamer engine's control
// API. It owns JWT auth (login, refresh, re-login on expiry) and exposes the
// process, output and session operations the orchestrator and monitor need.
package restreamer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/restreamkit/restreamctl/internal/logging"
	"github.com/restreamkit/restreamctl/internal/version"
)

const requestTimeout = 10 * time.Second

// Client is an HTTP client for the restreamer engine API.
// It is safe for concurrent use.
type Client struct {
	conn       Connection
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu           sync.Mutex
	accessToken  Secret
	refreshToken Secret
	tokenExpires time.Time
	lastError    string
}

// NewClient creates a new engine API client bound to a deep copy of the
// given connection.
func NewClient(conn Connection) *Client {
	conn = conn.Clone().withDefaults()
	return &Client{
		conn:       conn,
		baseURL:    conn.BaseURL(),
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logging.GetLogger("restreamer"),
	}
}

// Close wipes credentials and tokens. The client is unusable afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.Wipe()
	c.accessToken.Wipe()
	c.refreshToken.Wipe()
}

// LastError returns the message of the most recent failed operation.
func (c *Client) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// setError records the failure and returns it as an error.
func (c *Client) setError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	c.mu.Lock()
	c.lastError = msg
	c.mu.Unlock()
	return fmt.Errorf("%s", msg)
}

// IsConnected reports whether the client holds an access token.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.accessToken.IsZero()
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Login authenticates against the engine and stores the JWT tokens.
// Previous tokens are wiped before being replaced.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"username": c.conn.Username,
		"password": c.conn.Password.Reveal(),
	})
	if err != nil {
		return c.setError("failed to encode login request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return c.setError("failed to create login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)

	// Credentials were serialized into the request body; scrub our copy.
	for i := range body {
		body[i] = 0
	}

	if err != nil {
		return c.setError("login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.setError("login failed: HTTP %d", resp.StatusCode)
	}

	var login loginResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&login); decodeErr != nil {
		return c.setError("failed to decode login response: %v", decodeErr)
	}
	if login.AccessToken == "" {
		return c.setError("no access token in login response")
	}

	c.mu.Lock()
	c.accessToken.Wipe()
	c.accessToken = NewSecret(login.AccessToken)
	if login.RefreshToken != "" {
		c.refreshToken.Wipe()
		c.refreshToken = NewSecret(login.RefreshToken)
	}
	if login.ExpiresAt > 0 {
		c.tokenExpires = time.Unix(login.ExpiresAt, 0)
	} else {
		c.tokenExpires = time.Now().Add(time.Hour)
	}
	c.mu.Unlock()

	c.logger.Info("Logged in to restreamer engine", "host", c.conn.Host)
	return nil
}

// RefreshAccessToken exchanges the refresh token for a new access token.
func (c *Client) RefreshAccessToken(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refreshToken.Clone()
	c.mu.Unlock()
	defer refresh.Wipe()

	if refresh.IsZero() {
		return c.setError("no refresh token available")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v3/refresh", nil)
	if err != nil {
		return c.setError("failed to create refresh request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+refresh.Reveal())
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.setError("token refresh failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.setError("token refresh failed: HTTP %d", resp.StatusCode)
	}

	var login loginResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&login); decodeErr != nil {
		return c.setError("failed to decode refresh response: %v", decodeErr)
	}
	if login.AccessToken == "" {
		return c.setError("no access token in refresh response")
	}

	c.mu.Lock()
	c.accessToken.Wipe()
	c.accessToken = NewSecret(login.AccessToken)
	if login.ExpiresAt > 0 {
		c.tokenExpires = time.Unix(login.ExpiresAt, 0)
	} else {
		c.tokenExpires = time.Now().Add(time.Hour)
	}
	c.mu.Unlock()

	c.logger.Debug("Access token refreshed")
	return nil
}

// ensureToken makes sure a valid access token is available, refreshing or
// re-logging-in as needed.
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	valid := !c.accessToken.IsZero() && time.Now().Before(c.tokenExpires)
	hasRefresh := !c.refreshToken.IsZero()
	c.mu.Unlock()

	if valid {
		return nil
	}
	if hasRefresh {
		if err := c.RefreshAccessToken(ctx); err == nil {
			return nil
		}
	}
	return c.Login(ctx)
}

// do performs an authenticated request against the engine and decodes the
// JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.ensureToken(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return c.setError("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return c.setError("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	c.mu.Lock()
	token := c.accessToken.Reveal()
	c.mu.Unlock()
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.setError("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.setError("HTTP error: %d", resp.StatusCode)
	}

	if out != nil {
		if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
			return c.setError("failed to decode response: %v", decodeErr)
		}
	}
	return nil
}

// TestConnection validates the connection by logging in.
func (c *Client) TestConnection(ctx context.Context) error {
	return c.Login(ctx)
}

// Ping checks engine liveliness without authentication.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListProcesses returns all processes known to the engine.
func (c *Client) ListProcesses(ctx context.Context) ([]Process, error) {
	var processes []Process
	if err := c.do(ctx, http.MethodGet, "/api/v3/process", nil, &processes); err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	return processes, nil
}

// GetProcess fetches a single process by engine-assigned id.
func (c *Client) GetProcess(ctx context.Context, id string) (*Process, error) {
	if id == "" {
		return nil, c.setError("process id is empty")
	}
	var process Process
	if err := c.do(ctx, http.MethodGet, "/api/v3/process/"+id, nil, &process); err != nil {
		return nil, fmt.Errorf("failed to get process: %w", err)
	}
	return &process, nil
}

// processCommand posts a lifecycle command (start/stop/restart) to a process.
func (c *Client) processCommand(ctx context.Context, id, command string) error {
	if id == "" {
		return c.setError("process id is empty")
	}
	body := map[string]string{"command": command}
	if err := c.do(ctx, http.MethodPost, "/api/v3/process/"+id+"/command", body, nil); err != nil {
		return fmt.Errorf("failed to %s process: %w", command, err)
	}
	return nil
}

// StartProcess starts the process with the given id.
func (c *Client) StartProcess(ctx context.Context, id string) error {
	return c.processCommand(ctx, id, "start")
}

// StopProcess stops the process with the given id.
func (c *Client) StopProcess(ctx context.Context, id string) error {
	return c.processCommand(ctx, id, "stop")
}

// RestartProcess restarts the process with the given id.
func (c *Client) RestartProcess(ctx context.Context, id string) error {
	return c.processCommand(ctx, id, "restart")
}

type createProcessRequest struct {
	Reference string `json:"reference"`
	Command   string `json:"command"`
	Autostart bool   `json:"autostart"`
}

// buildTeeCommand builds the engine's ffmpeg invocation that copies one
// input to every output URL. The command embeds stream keys; never log it.
func buildTeeCommand(inputURL string, outputURLs []string, videoFilter string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-re -i %s -c:v copy -c:a copy -f tee -map 0:v -map 0:a ", inputURL)

	if videoFilter != "" {
		sb.WriteString("-vf ")
		sb.WriteString(videoFilter)
		sb.WriteString(" ")
	}

	sb.WriteString("\"")
	for i, url := range outputURLs {
		if i > 0 {
			sb.WriteString("|")
		}
		sb.WriteString("[f=flv]")
		sb.WriteString(url)
	}
	sb.WriteString("\"")

	return sb.String()
}

// CreateProcess creates (and autostarts) a fan-out process on the engine.
func (c *Client) CreateProcess(ctx context.Context, reference, inputURL string, outputURLs []string, videoFilter string) error {
	if reference == "" || inputURL == "" || len(outputURLs) == 0 {
		return c.setError("reference, input URL and at least one output URL are required")
	}

	body := createProcessRequest{
		Reference: reference,
		Command:   buildTeeCommand(inputURL, outputURLs, videoFilter),
		Autostart: true,
	}
	if err := c.do(ctx, http.MethodPost, "/api/v3/process", body, nil); err != nil {
		return fmt.Errorf("failed to create process: %w", err)
	}

	c.logger.Info("Created fan-out process", "reference", reference, "outputs", len(outputURLs))
	return nil
}

// DeleteProcess removes a process from the engine.
func (c *Client) DeleteProcess(ctx context.Context, id string) error {
	if id == "" {
		return c.setError("process id is empty")
	}
	if err := c.do(ctx, http.MethodDelete, "/api/v3/process/"+id, nil, nil); err != nil {
		return fmt.Errorf("failed to delete process: %w", err)
	}
	return nil
}

type sessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

// ListSessions returns the engine's active sessions.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var resp sessionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/sessions", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return resp.Sessions, nil
}

type outputRequest struct {
	ID          string `json:"id,omitempty"`
	URL         string `json:"url,omitempty"`
	VideoFilter string `json:"video_filter,omitempty"`
}

// AddProcessOutput adds an output to a running process.
func (c *Client) AddProcessOutput(ctx context.Context, processID, outputID, outputURL, videoFilter string) error {
	if processID == "" || outputID == "" || outputURL == "" {
		return c.setError("process id, output id and output URL are required")
	}
	body := outputRequest{ID: outputID, URL: outputURL, VideoFilter: videoFilter}
	if err := c.do(ctx, http.MethodPost, "/api/v3/process/"+processID+"/outputs", body, nil); err != nil {
		return fmt.Errorf("failed to add output: %w", err)
	}
	c.logger.Info("Added output to process", "process_id", processID, "output_id", outputID)
	return nil
}

// UpdateProcessOutput replaces the URL and filter of an existing output.
func (c *Client) UpdateProcessOutput(ctx context.Context, processID, outputID, outputURL, videoFilter string) error {
	if processID == "" || outputID == "" {
		return c.setError("process id and output id are required")
	}
	body := outputRequest{URL: outputURL, VideoFilter: videoFilter}
	if err := c.do(ctx, http.MethodPut, "/api/v3/process/"+processID+"/outputs/"+outputID, body, nil); err != nil {
		return fmt.Errorf("failed to update output: %w", err)
	}
	c.logger.Info("Updated output in process", "process_id", processID, "output_id", outputID)
	return nil
}

// RemoveProcessOutput removes an output from a running process.
func (c *Client) RemoveProcessOutput(ctx context.Context, processID, outputID string) error {
	if processID == "" || outputID == "" {
		return c.setError("process id and output id are required")
	}
	if err := c.do(ctx, http.MethodDelete, "/api/v3/process/"+processID+"/outputs/"+outputID, nil, nil); err != nil {
		return fmt.Errorf("failed to remove output: %w", err)
	}
	c.logger.Info("Removed output from process", "process_id", processID, "output_id", outputID)
	return nil
}
