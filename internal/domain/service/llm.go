package service

import (
	"context"

	"github.com/brandlens/brandlens/internal/domain/entity"
	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
)

// StreamPart is a single delta from a streaming LLM response.
type StreamPart struct {
	Text         string
	Thought      bool
	FunctionCall *entity.FunctionCall
}

// LLMClient is the interface the orchestrator uses to talk to language
// models. It decouples the loop from specific provider implementations.
type LLMClient interface {
	// GenerateStream sends the conversation with tool definitions and pushes
	// delta parts into deltaCh in generation order. It returns the final
	// assembled model turn after the stream ends; the caller owns deltaCh and
	// closes it after the call returns. Cancelling ctx must tear down the
	// upstream request, not merely stop consumption.
	GenerateStream(ctx context.Context, system string, history []entity.Turn, tools []domaintool.Definition, deltaCh chan<- StreamPart) (*entity.Turn, error)
}

// Emitter receives stream events as the orchestrator produces them. A nil
// emitter is valid (REST path): events are simply not forwarded.
type Emitter func(entity.StreamEvent)

// ToolDispatcher is the uniform tool invocation surface (registry + invoke).
type ToolDispatcher interface {
	// Invoke resolves and runs a tool. Failures are captured in the returned
	// info and payload, never raised. When grouped is true the per-invocation
	// tool_done emission is suppressed; the caller emits one synthetic event
	// for the whole group.
	Invoke(ctx context.Context, name string, args map[string]any, emit Emitter, grouped bool) (map[string]any, entity.ToolCallInfo)
	// Label returns the display label of a tool name.
	Label(name string) string
	// Definitions lists the catalog passed to the model.
	Definitions() []domaintool.Definition
}
