// Package chatrelay is the client for the chat platform that carries
// conversations with students and with the human advisor. It exposes the
// two operations the advisory pipeline needs: posting a message to a user
// or thread, and fetching messages that arrived since the last poll.
package chatrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	advisorerrors "github.com/campushq/advisor/internal/errors"
)

const defaultTimeout = 10 * time.Second

// Message is one message fetched from the platform.
type Message struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Bot         bool   `json:"bot"`
	ThreadID    string `json:"thread_id,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
}

// postRequest is the wire request for posting a message.
type postRequest struct {
	Destination   string `json:"destination"`
	Text          string `json:"text"`
	ReplyToThread string `json:"reply_to_thread,omitempty"`
}

// postResponse is the wire response for posting a message.
type postResponse struct {
	ThreadID string `json:"thread_id"`
}

// fetchResponse is the wire response for fetching new messages.
type fetchResponse struct {
	Messages []Message `json:"messages"`
	Cursor   string    `json:"cursor"`
}

// Client talks to the chat platform's bot API.
type Client struct {
	baseURL    string
	authToken  string
	botUser    string
	httpClient *http.Client

	cursor string
}

// NewClient creates a chat platform client.
func NewClient(baseURL, authToken, botUser string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		authToken:  authToken,
		botUser:    botUser,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PostMessage sends text to a destination user. When replyToThread is set the
// message is appended to that thread; otherwise a new thread is opened.
// Returns the thread id the message landed in.
func (c *Client) PostMessage(ctx context.Context, destination, text, replyToThread string) (string, error) {
	body, err := json.Marshal(postRequest{
		Destination:   destination,
		Text:          text,
		ReplyToThread: replyToThread,
	})
	if err != nil {
		return "", advisorerrors.MalformedResponse("marshal post request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", advisorerrors.TransientUpstream("build post request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Token", c.authToken)
	req.Header.Set("X-Bot-User", c.botUser)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", advisorerrors.TransientUpstream("post message failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", advisorerrors.TransientUpstream(
			fmt.Sprintf("post message returned status %d", resp.StatusCode), nil)
	}

	var result postResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", advisorerrors.MalformedResponse("decode post response", err)
	}
	if result.ThreadID == "" {
		return "", advisorerrors.MalformedResponse("post response missing thread id", nil)
	}

	return result.ThreadID, nil
}

// FetchNewMessages returns messages addressed to the bot since the previous
// call. The platform cursor is tracked internally, so each message is
// delivered at most once per client.
func (c *Client) FetchNewMessages(ctx context.Context) ([]Message, error) {
	endpoint := c.baseURL + "/api/v1/messages/new"
	if c.cursor != "" {
		endpoint += "?cursor=" + url.QueryEscape(c.cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, advisorerrors.TransientUpstream("build fetch request", err)
	}
	req.Header.Set("X-Auth-Token", c.authToken)
	req.Header.Set("X-Bot-User", c.botUser)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, advisorerrors.TransientUpstream("fetch messages failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, advisorerrors.TransientUpstream(
			fmt.Sprintf("fetch messages returned status %d", resp.StatusCode), nil)
	}

	var result fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, advisorerrors.MalformedResponse("decode fetch response", err)
	}

	if result.Cursor != "" {
		c.cursor = result.Cursor
	}
	if len(result.Messages) > 0 {
		slog.Debug("fetched new platform messages", "count", len(result.Messages))
	}

	return result.Messages, nil
}
