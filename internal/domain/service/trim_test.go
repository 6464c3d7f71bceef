package service

import (
	"testing"

	"github.com/brandlens/brandlens/internal/domain/entity"
)

func TestTrimHistoryDropsThoughts(t *testing.T) {
	history := []entity.Turn{
		{Role: entity.RoleModel, Parts: []entity.Part{
			entity.ThoughtPart("reasoning"),
			entity.TextPart("answer"),
		}},
	}
	trimmed := TrimHistory(history)
	if len(trimmed[0].Parts) != 1 || trimmed[0].Parts[0].Text != "answer" {
		t.Fatalf("trimmed parts = %+v", trimmed[0].Parts)
	}
}

func TestTrimHistoryCompactsPostArrays(t *testing.T) {
	posts := []any{
		map[string]any{"shortcode": "a"},
		map[string]any{"shortcode": "b"},
		map[string]any{"shortcode": "c"},
		map[string]any{"shortcode": "d"},
	}
	history := []entity.Turn{
		{Role: entity.RoleUser, Parts: []entity.Part{
			entity.ResponsePart("get_user_posts", map[string]any{
				"posts":        posts,
				"totalFetched": 4,
			}),
		}},
	}

	trimmed := TrimHistory(history)
	payload := trimmed[0].Parts[0].FunctionResponse.Response
	if payload["posts"] != "[4 posts — trimmed for context]" {
		t.Fatalf("posts = %v", payload["posts"])
	}
	if payload["totalFetched"] != 4 {
		t.Fatalf("totalFetched = %v, want preserved", payload["totalFetched"])
	}
}

func TestTrimHistoryKeepsSmallArrays(t *testing.T) {
	posts := []any{map[string]any{"shortcode": "a"}}
	history := []entity.Turn{
		{Role: entity.RoleUser, Parts: []entity.Part{
			entity.ResponsePart("get_user_posts", map[string]any{"posts": posts}),
		}},
	}
	trimmed := TrimHistory(history)
	if _, ok := trimmed[0].Parts[0].FunctionResponse.Response["posts"].([]any); !ok {
		t.Fatal("small posts array was replaced")
	}
}

func TestTrimHistoryTruncatesResults(t *testing.T) {
	results := make([]any, 8)
	for i := range results {
		results[i] = map[string]any{"rank": i}
	}
	history := []entity.Turn{
		{Role: entity.RoleUser, Parts: []entity.Part{
			entity.ResponsePart("rank_influencers", map[string]any{"results": results}),
		}},
	}

	trimmed := TrimHistory(history)
	payload := trimmed[0].Parts[0].FunctionResponse.Response
	kept, ok := payload["results"].([]any)
	if !ok || len(kept) != 5 {
		t.Fatalf("results = %v", payload["results"])
	}
	if payload["_trimmed"] != true {
		t.Fatal("_trimmed flag missing")
	}
}

func TestTrimHistoryDoesNotMutateInput(t *testing.T) {
	posts := []any{1, 2, 3, 4}
	payload := map[string]any{"posts": posts}
	history := []entity.Turn{
		{Role: entity.RoleUser, Parts: []entity.Part{
			entity.ResponsePart("get_user_posts", payload),
		}},
	}

	TrimHistory(history)
	if _, ok := history[0].Parts[0].FunctionResponse.Response["posts"].([]any); !ok {
		t.Fatal("input payload mutated")
	}
}

func TestTrimHistoryKeepsFunctionCalls(t *testing.T) {
	history := []entity.Turn{
		{Role: entity.RoleModel, Parts: []entity.Part{
			entity.CallPart("get_profile", map[string]any{"username": "x"}),
		}},
	}
	trimmed := TrimHistory(history)
	if trimmed[0].Parts[0].FunctionCall == nil {
		t.Fatal("function call dropped")
	}
}
