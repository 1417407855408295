// internal/regulation/agent/http.go
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"regsearch/internal/common/errors"
)

// HTTPConversationAPI talks to the real agent service over REST.
type HTTPConversationAPI struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPConversationAPI(endpoint, apiKey string) *HTTPConversationAPI {
	return &HTTPConversationAPI{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		// No client timeout: run polling has no internal ceiling, the
		// caller's context is the only cancellation mechanism.
		client: &http.Client{},
	}
}

func (a *HTTPConversationAPI) CreateConversation(ctx context.Context) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := a.do(ctx, http.MethodPost, "/threads", map[string]interface{}{}, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (a *HTTPConversationAPI) PostMessage(ctx context.Context, conversationID, content string) error {
	body := map[string]interface{}{
		"role":    "user",
		"content": content,
	}
	return a.do(ctx, http.MethodPost, "/threads/"+conversationID+"/messages", body, nil)
}

func (a *HTTPConversationAPI) StartRun(ctx context.Context, conversationID, agentID string) (string, error) {
	var run Run
	body := map[string]interface{}{
		"assistant_id": agentID,
	}
	if err := a.do(ctx, http.MethodPost, "/threads/"+conversationID+"/runs", body, &run); err != nil {
		return "", err
	}
	return run.ID, nil
}

func (a *HTTPConversationAPI) PollRunStatus(ctx context.Context, conversationID, runID string) (*Run, error) {
	var run Run
	if err := a.do(ctx, http.MethodGet, "/threads/"+conversationID+"/runs/"+runID, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (a *HTTPConversationAPI) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var listed struct {
		Data []Message `json:"data"`
	}
	if err := a.do(ctx, http.MethodGet, "/threads/"+conversationID+"/messages", nil, &listed); err != nil {
		return nil, err
	}
	return listed.Data, nil
}

func (a *HTTPConversationAPI) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.NewTransientNetworkError("search-agent", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.endpoint+path, reader)
	if err != nil {
		return errors.NewTransientNetworkError("search-agent", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", a.apiKey)
	req.Header.Set("x-request-id", uuid.NewString())

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.NewTransientNetworkError("search-agent", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.NewRateLimitError(fmt.Sprintf("%s %s returned 429", method, path))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errors.NewAuthenticationError(fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.NewTransientNetworkError("search-agent",
			fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewTransientNetworkError("search-agent", fmt.Errorf("decode response: %w", err))
	}
	return nil
}
