// Package waiter implements the ordering agent: it carries the conversation
// with the customer and drives the closed tool set against the session's
// order ledger. Tool calls from one model turn are applied in the order the
// model emitted them.
package waiter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/orderai/orderai/agent/contract"
	toolx "github.com/orderai/orderai/agent/tool"
)

const defaultMaxToolRounds = 4

type Waiter struct {
	runner        compose.Runnable[[]*schema.Message, *schema.Message]
	tools         contractx.ToolGateway
	systemPrompt  string
	maxToolRounds int
}

var _ contractx.Agent = (*Waiter)(nil)

// Option customizes Waiter.
type Option func(*Waiter)

// WithMaxToolRounds bounds how many model/tool exchanges one chat turn may
// take before the turn is rejected.
func WithMaxToolRounds(n int) Option {
	return func(w *Waiter) {
		if n > 0 {
			w.maxToolRounds = n
		}
	}
}

func New(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	tools contractx.ToolGateway,
	systemPrompt string,
	opts ...Option,
) (*Waiter, error) {
	if tools == nil {
		return nil, fmt.Errorf("%w: tool gateway is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt is required", contractx.ErrValidation)
	}

	toolModel, err := chatModel.WithTools(toolx.Infos())
	if err != nil {
		return nil, fmt.Errorf("%w: bind waiter tools: %v", contractx.ErrModelInvoke, err)
	}

	runner, err := compileChatGraph(ctx, toolModel)
	if err != nil {
		return nil, fmt.Errorf("%w: compile waiter graph: %v", contractx.ErrModelInvoke, err)
	}

	w := &Waiter{
		runner:        runner,
		tools:         tools,
		systemPrompt:  systemPrompt,
		maxToolRounds: defaultMaxToolRounds,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Chat runs one conversational turn. While the model answers with tool
// calls, they are executed through the gateway and their results fed back;
// the first plain assistant message ends the turn. The returned slice holds
// every message the turn produced, for the caller to append to history.
func (w *Waiter) Chat(
	ctx context.Context,
	sessionID string,
	history []*schema.Message,
	message string,
) (string, []*schema.Message, error) {
	if strings.TrimSpace(message) == "" {
		return "", nil, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(w.systemPrompt))
	msgs = append(msgs, history...)

	userMsg := schema.UserMessage(message)
	msgs = append(msgs, userMsg)
	turn := []*schema.Message{userMsg}

	for round := 0; round <= w.maxToolRounds; round++ {
		out, err := w.runner.Invoke(ctx, msgs)
		if err != nil {
			return "", nil, fmt.Errorf("%w: waiter invoke: %v", contractx.ErrModelInvoke, err)
		}
		if out == nil {
			return "", nil, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
		}

		if len(out.ToolCalls) == 0 {
			reply := strings.TrimSpace(out.Content)
			if reply == "" {
				return "", nil, fmt.Errorf("%w: model reply is empty", contractx.ErrSchemaViolation)
			}
			turn = append(turn, out)
			return reply, turn, nil
		}

		msgs = append(msgs, out)
		turn = append(turn, out)

		for _, call := range out.ToolCalls {
			req, err := toToolRequest(call)
			if err != nil {
				return "", nil, err
			}

			result := w.tools.Execute(ctx, sessionID, req)
			payload, err := json.Marshal(result)
			if err != nil {
				return "", nil, fmt.Errorf("%w: marshal tool result: %v", contractx.ErrValidation, err)
			}

			toolMsg := schema.ToolMessage(string(payload), call.ID)
			msgs = append(msgs, toolMsg)
			turn = append(turn, toolMsg)
		}
	}

	return "", nil, fmt.Errorf("%w: tool rounds exceeded %d", contractx.ErrSchemaViolation, w.maxToolRounds)
}

func toToolRequest(call schema.ToolCall) (contractx.ToolRequest, error) {
	tool := strings.TrimSpace(call.Function.Name)
	if tool == "" {
		return contractx.ToolRequest{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
	}

	args := map[string]any{}
	rawArgs := strings.TrimSpace(call.Function.Arguments)
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return contractx.ToolRequest{}, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
		}
	}

	return contractx.ToolRequest{
		Tool: tool,
		Args: args,
	}, nil
}
