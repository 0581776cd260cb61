package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/kittipatv/should-i-move/agent/contract"
)

// Client implements contract.Capability over a compiled prompt->model graph.
// One Client wraps one chat model; workers that need different models get
// their own Client.
type Client struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

var _ contract.Capability = (*Client)(nil)

// New compiles the completion graph for the given chat model.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, graphName string) (*Client, error) {
	runner, err := compileCompletionGraph(ctx, chatModel, graphName)
	if err != nil {
		return nil, fmt.Errorf("%w: compile completion graph: %v", contract.ErrModelInvoke, err)
	}
	return &Client{runner: runner}, nil
}

// NewForRole builds the chat model for a reasoning role and wraps it.
func NewForRole(ctx context.Context, cfg Config, role Role) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	modelCfg := cfg.OpenRouterFor(role)
	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s model: %v", contract.ErrModelInvoke, role, err)
	}
	return New(ctx, chatModel, fmt.Sprintf("capability.%s", role))
}

// Complete sends one system+user exchange and returns the raw text reply.
func (c *Client) Complete(ctx context.Context, system string, user string) (string, error) {
	msg, err := c.runner.Invoke(ctx, map[string]any{
		"system": system,
		"input":  user,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contract.ErrModelInvoke, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: empty model response", contract.ErrModelInvoke)
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return "", fmt.Errorf("%w: model returned empty content", contract.ErrModelInvoke)
	}
	return content, nil
}

func compileCompletionGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	graphName string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{input}"),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile graph: %w", err)
	}
	return runner, nil
}

// ExtractJSON pulls the first JSON object out of a model reply, tolerating
// markdown code fences and surrounding prose.
func ExtractJSON(reply string) ([]byte, error) {
	s := strings.TrimSpace(reply)

	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in model reply", contract.ErrContractViolation)
	}
	return []byte(s[start : end+1]), nil
}
