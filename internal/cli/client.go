package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finplay/internal/game"
)

// APIError is a non-2xx answer from the FinPlay API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Body)
}

// IsNetworkError reports whether err happened before the API answered.
// Bad responses from a reachable API are not network errors.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type OnboardResult struct {
	ID string `json:"id"`
	game.Profile
}

func (c *Client) Onboard(ctx context.Context, in game.OnboardingInput) (OnboardResult, error) {
	var out OnboardResult
	err := c.jsonRequest(ctx, http.MethodPost, "/users/onboard", map[string]any{
		"name":            in.Name,
		"knowledge_level": in.KnowledgeLevel,
		"life_stage":      in.LifeStage,
		"primary_goal":    in.PrimaryGoal,
	}, &out)
	return out, err
}

func (c *Client) User(ctx context.Context, userID string) (game.UserResponse, error) {
	var out game.UserResponse
	err := c.jsonRequest(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, &out)
	return out, err
}

func (c *Client) Load(ctx context.Context, userID string) (game.GameState, error) {
	var out game.GameState
	err := c.jsonRequest(ctx, http.MethodGet, "/sync/load/"+url.PathEscape(userID), nil, &out)
	return out, err
}

type SaveResult struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
}

func (c *Client) Save(ctx context.Context, state game.GameState) (SaveResult, error) {
	var out SaveResult
	err := c.jsonRequest(ctx, http.MethodPost, "/sync/save", state, &out)
	return out, err
}

// Do sends a pre-encoded body; used to replay queued requests.
func (c *Client) Do(ctx context.Context, method, path string, body json.RawMessage) (map[string]any, error) {
	var out map[string]any
	var in any
	if len(body) > 0 {
		in = body
	}
	err := c.jsonRequest(ctx, method, path, in, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
