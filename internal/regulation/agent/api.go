// internal/regulation/agent/api.go
package agent

import "context"

// Run states reported by the conversational search agent.
const (
	RunStatusQueued     = "queued"
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
	RunStatusCancelled  = "cancelled"
	RunStatusExpired    = "expired"
)

// RunError is the error payload attached to a failed run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run is a single execution of the agent against a conversation.
type Run struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	LastError *RunError `json:"last_error,omitempty"`
}

// Terminal reports whether the run reached a final state.
func (r *Run) Terminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// ContentBlock is one unit of message content; only text blocks carry
// search prose.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Message is a conversation entry.
type Message struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   []ContentBlock `json:"content"`
	CreatedAt int64          `json:"created_at"`
}

// ConversationAPI models the agent's conversation/run/message operations
// so a test double can replace the network-backed implementation without
// altering orchestration code.
type ConversationAPI interface {
	CreateConversation(ctx context.Context) (string, error)
	PostMessage(ctx context.Context, conversationID, content string) error
	StartRun(ctx context.Context, conversationID, agentID string) (string, error)
	PollRunStatus(ctx context.Context, conversationID, runID string) (*Run, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
}
