package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// ControlClient talks to the game server's HTTP control plane: room
// creation, round control, and the auth collaborators. The session
// core only requires a valid (roomId, role, username) triple; this
// client is how the CLI obtains one.
type ControlClient struct {
	base *url.URL
	http *http.Client
	logf func(format string, args ...any)
}

// NewControlClient builds a client for the API at base. The cookie jar
// carries the externally issued session cookie across calls.
func NewControlClient(base string, logf func(format string, args ...any)) (*ControlClient, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("session: invalid api url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &ControlClient{
		base: u,
		http: &http.Client{Timeout: 10 * time.Second, Jar: jar},
		logf: logf,
	}, nil
}

// CreateRoom asks the server for a fresh room with the given admin
// capacity and returns its ID.
func (c *ControlClient) CreateRoom(ctx context.Context, admins int) (string, error) {
	var out struct {
		RoomID string `json:"roomId"`
	}
	if err := c.postJSON(ctx, "/create", map[string]any{"admins": admins}, &out); err != nil {
		return "", fmt.Errorf("session: create room: %w", err)
	}
	if out.RoomID == "" {
		return "", fmt.Errorf("session: create room: empty roomId in response")
	}
	c.logf("CONTROL: Created room %s (admins: %d)", out.RoomID, admins)
	return out.RoomID, nil
}

// StartRound submits the round's answer and duration. The response is
// not awaited beyond logging its status; the server drives the round
// from here via socket messages.
func (c *ControlClient) StartRound(ctx context.Context, roomID, answer string, delayUntilFinish time.Duration) error {
	body := map[string]any{
		"answer":           answer,
		"delayUntilFinish": delayUntilFinish.Milliseconds(),
	}
	if err := c.postJSON(ctx, "/start/"+url.PathEscape(roomID), body, nil); err != nil {
		return fmt.Errorf("session: start round: %w", err)
	}
	c.logf("CONTROL: Started round in %s (%s until finish)", roomID, delayUntilFinish)
	return nil
}

// Login authenticates against the users API; the issued cookie lands
// in the jar.
func (c *ControlClient) Login(ctx context.Context, username, password string) error {
	body := map[string]any{"username": username, "password": password}
	if err := c.postJSON(ctx, "/auth/login", body, nil); err != nil {
		return fmt.Errorf("session: login: %w", err)
	}
	c.logf("CONTROL: Logged in as %q", username)
	return nil
}

// Check validates the current cookie and returns the username it is
// bound to.
func (c *ControlClient) Check(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve("/auth/check"), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("session: auth check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("session: auth check: http %d", resp.StatusCode)
	}
	var out struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("session: auth check: %w", err)
	}
	return out.Username, nil
}

// Logout drops the server-side session. Errors are logged and
// otherwise ignored; a dead cookie is as good as a cleared one.
func (c *ControlClient) Logout(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve("/auth/logout"), nil)
	if err != nil {
		return
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logf("CONTROL: Logout failed: %v", err)
		return
	}
	resp.Body.Close()
}

func (c *ControlClient) resolve(path string) string {
	u := *c.base
	u.Path = joinPath(u.Path, path)
	return u.String()
}

func joinPath(base, path string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + path
}

func (c *ControlClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("http %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
