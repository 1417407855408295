// internal/regulation/agent/client.go
package agent

import (
	"context"
	"regexp"
	"strings"
	"time"

	"regsearch/internal/common/errors"
	"regsearch/internal/common/logger"
	"regsearch/internal/models"
)

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>）)\]、，。】]+`)

// Client turns a natural-language query into a WebSearchResult via the
// conversational search agent. Stateless across calls; a fresh
// conversation is created per query and never reused.
type Client struct {
	api          ConversationAPI
	agentID      string
	configured   bool
	pollInterval time.Duration
	logger       logger.Logger
}

// NewClient builds a search client. When api is nil or agentID is empty
// the client is unconfigured and every Search call returns a
// CONFIGURATION_ERROR without touching the network.
func NewClient(api ConversationAPI, agentID string, pollInterval time.Duration, log logger.Logger) *Client {
	if pollInterval <= 0 {
		pollInterval = 1 * time.Second
	}
	return &Client{
		api:          api,
		agentID:      agentID,
		configured:   api != nil && agentID != "",
		pollInterval: pollInterval,
		logger:       log.With(map[string]interface{}{"component": "search-agent"}),
	}
}

// Configured reports whether the client can reach the agent. Checked once
// per client lifetime by callers, which short-circuit to advisory
// fallback results instead of attempting network calls.
func (c *Client) Configured() bool {
	return c.configured
}

// Search runs one query through the agent protocol: new conversation,
// user message, run, poll to terminal state, then collect the newest
// assistant message.
func (c *Client) Search(ctx context.Context, query string) (*models.WebSearchResult, error) {
	if !c.configured {
		return nil, errors.NewConfigurationError("search agent endpoint, agent id or api key not set")
	}

	conversationID, err := c.api.CreateConversation(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.api.PostMessage(ctx, conversationID, query); err != nil {
		return nil, err
	}

	runID, err := c.api.StartRun(ctx, conversationID, c.agentID)
	if err != nil {
		return nil, err
	}

	run, err := c.waitForRun(ctx, conversationID, runID)
	if err != nil {
		return nil, err
	}

	if run.Status != RunStatusCompleted {
		return nil, classifyRunFailure(run)
	}

	msgs, err := c.api.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	text := newestAssistantText(msgs)
	result := &models.WebSearchResult{
		Query:     query,
		Results:   text,
		Sources:   ExtractSources(text),
		Timestamp: time.Now().UTC(),
	}

	c.logger.Info("search completed", map[string]interface{}{
		"query":       query,
		"sourceCount": len(result.Sources),
		"textLength":  len(text),
	})

	return result, nil
}

// waitForRun polls at the configured interval until the run is terminal.
// There is no internal maximum wait: ctx cancellation is the only ceiling.
func (c *Client) waitForRun(ctx context.Context, conversationID, runID string) (*Run, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		run, err := c.api.PollRunStatus(ctx, conversationID, runID)
		if err != nil {
			return nil, err
		}
		if run.Terminal() {
			return run, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, errors.NewTransientNetworkError("search-agent", ctx.Err())
		}
	}
}

// classifyRunFailure inspects the attached error: throttling becomes a
// rate-limit-classified error so the retry policy retries it; anything
// else is a generic run failure.
func classifyRunFailure(run *Run) error {
	detail := "run status: " + run.Status
	if run.LastError != nil {
		detail = run.LastError.Code + ": " + run.LastError.Message
		if errors.IsRateLimit(&runFailure{code: run.LastError.Code, message: run.LastError.Message}) {
			return errors.NewRateLimitError(detail)
		}
	}
	return errors.NewAgentRunFailedError(detail)
}

type runFailure struct {
	code    string
	message string
}

func (f *runFailure) Error() string {
	return f.code + ": " + f.message
}

// newestAssistantText selects the most recent assistant message and
// concatenates its content blocks into one string.
func newestAssistantText(msgs []Message) string {
	var newest *Message
	for i := range msgs {
		if msgs[i].Role != "assistant" {
			continue
		}
		if newest == nil || msgs[i].CreatedAt > newest.CreatedAt {
			newest = &msgs[i]
		}
	}
	if newest == nil {
		return ""
	}

	var parts []string
	for _, block := range newest.Content {
		if block.Type != "" && block.Type != "text" {
			continue
		}
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ExtractSources pulls every http(s) URL out of text and deduplicates
// them, preserving first-seen order.
func ExtractSources(text string) []string {
	seen := make(map[string]bool)
	sources := []string{}
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;")
		if seen[u] {
			continue
		}
		seen[u] = true
		sources = append(sources, u)
	}
	return sources
}
