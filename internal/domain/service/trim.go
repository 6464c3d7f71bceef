package service

import (
	"fmt"

	"github.com/brandlens/brandlens/internal/domain/entity"
)

const (
	// maxInlineItems is the largest posts/reels array persisted verbatim.
	maxInlineItems = 3
	// maxInlineResults is the largest results array persisted verbatim.
	maxInlineResults = 5
)

// TrimHistory produces the persistable form of a conversation history:
// thought parts are dropped and oversized tool-result arrays are compacted
// so follow-up turns keep context without ballooning the session. Function
// call parts pass through verbatim. The input is not mutated.
func TrimHistory(history []entity.Turn) []entity.Turn {
	trimmed := make([]entity.Turn, 0, len(history))
	for _, turn := range history {
		parts := make([]entity.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			if p.Thought {
				continue
			}
			if p.FunctionResponse != nil {
				p = entity.ResponsePart(p.FunctionResponse.Name, trimPayload(p.FunctionResponse.Response))
			}
			parts = append(parts, p)
		}
		trimmed = append(trimmed, entity.Turn{Role: turn.Role, Parts: parts})
	}
	return trimmed
}

// trimPayload compacts the known large-array fields of a tool payload.
// Scalar fields (totalFetched, summary and friends) pass through untouched.
func trimPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for _, field := range []string{"posts", "reels"} {
		if items, ok := out[field].([]any); ok && len(items) > maxInlineItems {
			out[field] = fmt.Sprintf("[%d %s — trimmed for context]", len(items), field)
		}
	}
	if results, ok := out["results"].([]any); ok && len(results) > maxInlineResults {
		out["results"] = results[:maxInlineResults]
		out["_trimmed"] = true
	}
	return out
}
