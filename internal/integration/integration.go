// Package integration defines the capability contracts the Executor
// dispatches model tool calls through, and that the daemon surface uses to
// watch and reply on external channels. It ships no concrete adapter:
// wiring a real messaging platform, document store, or MCP server is a
// deployment concern outside this core.
package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"relaycore.dev/agentcore/internal/model"
)

// MessagingAdapter is the contract a watcher implementation satisfies per
// platform to receive mention/comment events and reply to them.
type MessagingAdapter interface {
	Name() string
	ReplyToThread(ctx context.Context, threadID, content string) error
	PostMessage(ctx context.Context, channel, content string) error
}

// DocumentAdapter is the contract for a document or knowledge-base
// integration a tool call can read from or write to.
type DocumentAdapter interface {
	Name() string
	Read(ctx context.Context, ref string) (string, error)
	Write(ctx context.Context, ref, content string) error
}

// ToolDispatcher resolves one model-issued tool call to a result, along
// with any file paths the call modified (for ExecutionOutput.FilesModified).
type ToolDispatcher interface {
	Dispatch(ctx context.Context, call model.ToolCall) (result string, filesModified []string, err error)
}

// ErrNoDispatcher is returned when no registered dispatcher claims a tool
// call's name.
var ErrNoDispatcher = errors.New("no dispatcher registered for tool")

// Registry routes a tool call to a registered ToolDispatcher following the
// two naming conventions the Executor recognizes: "server__tool" routes to
// the namespaced MCP server "server" (with the tool renamed to the part
// after "__"); anything else routes to whichever integration dispatcher was
// registered against a matching tool-name suffix.
type Registry struct {
	mcpServers   map[string]ToolDispatcher
	integrations map[string]ToolDispatcher
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		mcpServers:   make(map[string]ToolDispatcher),
		integrations: make(map[string]ToolDispatcher),
	}
}

// RegisterMCPServer registers d as the handler for tools namespaced
// "name__...".
func (r *Registry) RegisterMCPServer(name string, d ToolDispatcher) {
	r.mcpServers[name] = d
}

// RegisterIntegration registers d as the handler for any tool name ending
// in suffix.
func (r *Registry) RegisterIntegration(suffix string, d ToolDispatcher) {
	r.integrations[suffix] = d
}

// Dispatch implements ToolDispatcher by routing call per the conventions
// documented on Registry.
func (r *Registry) Dispatch(ctx context.Context, call model.ToolCall) (string, []string, error) {
	if server, tool, ok := strings.Cut(call.Name, "__"); ok {
		if d, found := r.mcpServers[server]; found {
			return d.Dispatch(ctx, model.ToolCall{ID: call.ID, Name: tool, Arguments: call.Arguments})
		}
		return "", nil, fmt.Errorf("%w: mcp server %q", ErrNoDispatcher, server)
	}

	for suffix, d := range r.integrations {
		if strings.HasSuffix(call.Name, suffix) {
			return d.Dispatch(ctx, call)
		}
	}
	return "", nil, fmt.Errorf("%w: %q", ErrNoDispatcher, call.Name)
}
