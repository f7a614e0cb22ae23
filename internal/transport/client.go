package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mcdev12/quizroom/internal/room"
)

// Client is the HTTP implementation of API.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// NewClient creates a client for the game server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

// SetHeader sets a header sent on every request (e.g. an auth token).
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(responseBody, apiErr); jsonErr != nil || (apiErr.Reason == "" && apiErr.Message == "") {
			apiErr.Message = string(responseBody)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// FetchRoom returns the authoritative room representation.
func (c *Client) FetchRoom(ctx context.Context, roomID string) (*room.Room, error) {
	var r room.Room
	if err := c.do(ctx, http.MethodGet, "/api/rooms/"+roomID, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// JoinRoom adds the user to the room. Passcode is required iff the room is
// private; the server is authoritative on that check.
func (c *Client) JoinRoom(ctx context.Context, roomID, userID, passcode string) (*room.Room, error) {
	in := struct {
		UserID   string `json:"user_id"`
		Passcode string `json:"passcode,omitempty"`
	}{UserID: userID, Passcode: passcode}

	var r room.Room
	if err := c.do(ctx, http.MethodPost, "/api/rooms/"+roomID+"/join", in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// LeaveRoom removes the user from the room.
func (c *Client) LeaveRoom(ctx context.Context, roomID, userID string) error {
	in := struct {
		UserID string `json:"user_id"`
	}{UserID: userID}
	return c.do(ctx, http.MethodPost, "/api/rooms/"+roomID+"/leave", in, nil)
}

// StartGame asks the server to start the game. Host only.
func (c *Client) StartGame(ctx context.Context, roomID, userID string) (*StartResult, error) {
	in := struct {
		UserID string `json:"user_id"`
	}{UserID: userID}

	var out StartResult
	if err := c.do(ctx, http.MethodPost, "/api/rooms/"+roomID+"/start", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAnswer records the user's answer with their time-to-answer.
func (c *Client) SubmitAnswer(ctx context.Context, roomID, userID string, answer bool, elapsed time.Duration) error {
	in := struct {
		UserID     string  `json:"user_id"`
		Answer     bool    `json:"answer"`
		ElapsedSec float64 `json:"elapsed_sec"`
	}{UserID: userID, Answer: answer, ElapsedSec: elapsed.Seconds()}

	return c.do(ctx, http.MethodPost, "/api/rooms/"+roomID+"/answers", in, nil)
}

// AdvanceRound asks the server to move to the next round. Host only.
func (c *Client) AdvanceRound(ctx context.Context, roomID, userID string) (*AdvanceResult, error) {
	in := struct {
		UserID string `json:"user_id"`
	}{UserID: userID}

	var out AdvanceResult
	if err := c.do(ctx, http.MethodPost, "/api/rooms/"+roomID+"/advance", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
