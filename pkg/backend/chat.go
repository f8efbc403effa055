package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/papercomputeco/turntable/pkg/chat"
)

// ChatRequest is the body of a chat send.
type ChatRequest struct {
	Provider       string         `json:"provider"`
	Model          string         `json:"model"`
	Message        string         `json:"message"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Stream         bool           `json:"stream"`
	Options        map[string]any `json:"options,omitempty"`
	FileIDs        []string       `json:"file_ids,omitempty"`
}

// SendStream posts req with streaming enabled and returns the open response
// body. The caller must close it.
func (c *Client) SendStream(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, c.endpoint("api", "chat", "send"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("opening chat stream",
		"model", req.Model,
		"provider", req.Provider,
		"conversation_id", req.ConversationID,
		"files", len(req.FileIDs),
	)

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, newStatusError(httpReq, resp)
	}

	return resp.Body, nil
}

// Conversation fetches one conversation with its persisted rows.
func (c *Client) Conversation(ctx context.Context, id string) (*chat.ServerConversation, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("api", "chat", "conversations", id), nil)
	if err != nil {
		return nil, err
	}

	var sc chat.ServerConversation
	if err := c.do(req, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Conversations lists conversations. Both a bare array and an object with a
// "conversations" array are accepted.
func (c *Client) Conversations(ctx context.Context) ([]chat.ConversationSummary, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("api", "chat", "conversations"), nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, err
	}

	list := gjson.ParseBytes(raw)
	if !list.IsArray() {
		list = list.Get("conversations")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("unexpected conversation list shape")
	}

	var out []chat.ConversationSummary
	if err := json.Unmarshal([]byte(list.Raw), &out); err != nil {
		return nil, fmt.Errorf("decoding conversation list: %w", err)
	}
	return out, nil
}

// DeleteConversation deletes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.endpoint("api", "chat", "conversations", id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
