package tool

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/entity"
	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
	"github.com/brandlens/brandlens/pkg/errors"
)

func newStubTool(name string, run func(ctx context.Context, args domaintool.Args) (map[string]any, error)) domaintool.Tool {
	return &funcTool{
		name:   name,
		label:  "Stub " + name,
		schema: objectSchema(nil, map[string]any{}),
		run:    run,
	}
}

func newTestDispatcher(t *testing.T, tools ...domaintool.Tool) *Dispatcher {
	t.Helper()
	registry := domaintool.NewInMemoryRegistry()
	for _, tl := range tools {
		if err := registry.Register(tl); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return NewDispatcher(registry, zap.NewNop())
}

func TestInvokeUnknownTool(t *testing.T) {
	d := newTestDispatcher(t)

	payload, info := d.Invoke(context.Background(), "nope", nil, nil, false)
	if payload["error"] != "Unknown tool: nope" {
		t.Fatalf("payload = %+v", payload)
	}
	if info.Error == "" {
		t.Fatal("info.Error empty for unknown tool")
	}
}

func TestInvokeSuccessReadsCacheHit(t *testing.T) {
	d := newTestDispatcher(t, newStubTool("fetch", func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
		return map[string]any{"cacheHit": true, "data": 1}, nil
	}))

	payload, info := d.Invoke(context.Background(), "fetch", nil, nil, false)
	if payload["data"] != 1 {
		t.Fatalf("payload = %+v", payload)
	}
	if !info.CacheHit {
		t.Fatal("cacheHit not extracted from payload")
	}
	if info.Error != "" {
		t.Fatalf("unexpected error %q", info.Error)
	}
}

func TestInvokeClassifiedError(t *testing.T) {
	d := newTestDispatcher(t, newStubTool("broken", func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
		return nil, errors.NewNotFoundError("profile @x not found")
	}))

	payload, info := d.Invoke(context.Background(), "broken", nil, nil, false)
	if payload["error"] != "profile @x not found" {
		t.Fatalf("payload = %+v", payload)
	}
	if payload["code"] != string(errors.CodeNotFound) {
		t.Fatalf("code = %v", payload["code"])
	}
	if info.Error != "profile @x not found" {
		t.Fatalf("info.Error = %q", info.Error)
	}
}

func TestInvokeContainsPanics(t *testing.T) {
	d := newTestDispatcher(t, newStubTool("panicky", func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
		panic("boom")
	}))

	payload, info := d.Invoke(context.Background(), "panicky", nil, nil, false)
	if payload["error"] == nil {
		t.Fatalf("payload = %+v, want error field", payload)
	}
	if info.Error == "" {
		t.Fatal("panic not captured in info")
	}
}

func TestInvokeEmitSuppressionWhenGrouped(t *testing.T) {
	d := newTestDispatcher(t, newStubTool("x", func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
		return map[string]any{}, nil
	}))

	var emitted []entity.StreamEvent
	emit := func(e entity.StreamEvent) { emitted = append(emitted, e) }

	d.Invoke(context.Background(), "x", nil, emit, true)
	if len(emitted) != 0 {
		t.Fatalf("grouped call emitted %d events", len(emitted))
	}

	d.Invoke(context.Background(), "x", nil, emit, false)
	if len(emitted) != 1 || emitted[0].Type != entity.EventToolDone {
		t.Fatalf("ungrouped call events = %+v", emitted)
	}
	if emitted[0].Info == nil || emitted[0].Info.Name != "x" {
		t.Fatalf("tool_done info = %+v", emitted[0].Info)
	}
}

func TestHooksRunOnSuccessOnly(t *testing.T) {
	d := newTestDispatcher(t,
		newStubTool("good", func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		}),
		newStubTool("bad", func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
			return nil, errors.NewUpstreamError("down", nil)
		}),
	)

	var hookCalls []string
	d.RegisterHook(func(ctx context.Context, name string, payload map[string]any) {
		hookCalls = append(hookCalls, name)
	})

	d.Invoke(context.Background(), "good", nil, nil, false)
	d.Invoke(context.Background(), "bad", nil, nil, false)

	if len(hookCalls) != 1 || hookCalls[0] != "good" {
		t.Fatalf("hook calls = %v, want only the successful tool", hookCalls)
	}
}

func TestHookPanicIsContained(t *testing.T) {
	d := newTestDispatcher(t, newStubTool("x", func(ctx context.Context, args domaintool.Args) (map[string]any, error) {
		return map[string]any{}, nil
	}))
	d.RegisterHook(func(ctx context.Context, name string, payload map[string]any) {
		panic("hook boom")
	})

	_, info := d.Invoke(context.Background(), "x", nil, nil, false)
	if info.Error != "" {
		t.Fatalf("hook panic surfaced: %q", info.Error)
	}
}

func TestLabelFallsBackToName(t *testing.T) {
	d := newTestDispatcher(t)
	if got := d.Label("mystery"); got != "mystery" {
		t.Fatalf("label = %q", got)
	}
}
