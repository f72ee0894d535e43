package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Agent maps a free-text customer message to tool invocations and a reply.
// It returns the conversational reply plus the messages produced during the
// turn so the caller can extend the session history.
type Agent interface {
	Chat(ctx context.Context, sessionID string, history []*schema.Message, message string) (string, []*schema.Message, error)
}

// Notifier is the best-effort push channel toward a connected client.
// Deliveries to sessions without a subscriber are silent no-ops.
type Notifier interface {
	PushOrderSnapshot(sessionID string, snapshot any)
	PushFinalized(sessionID string, orderNumber int)
}

type ToolGateway interface {
	Execute(ctx context.Context, sessionID string, req ToolRequest) ToolResult
}
