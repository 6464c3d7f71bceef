// Package tool wires the concrete tool set and the dispatcher that invokes
// it uniformly: timing, cache-hit extraction, error capture, grouped-batch
// emit suppression, and post-tool hooks.
package tool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/entity"
	"github.com/brandlens/brandlens/internal/domain/service"
	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
	"github.com/brandlens/brandlens/pkg/errors"
)

// Hook runs after a successful tool invocation with the tool name and its
// payload. Hooks carry side effects (influencer auto-enroll) without
// coupling tools to each other; a hook failure is logged and never surfaces.
type Hook func(ctx context.Context, name string, payload map[string]any)

// Dispatcher is the uniform invocation surface over the registry.
type Dispatcher struct {
	registry domaintool.Registry
	hooks    []Hook
	logger   *zap.Logger
}

func NewDispatcher(registry domaintool.Registry, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger.With(zap.String("component", "dispatcher")),
	}
}

var _ service.ToolDispatcher = (*Dispatcher)(nil)

// RegisterHook appends a post-tool hook. Not safe to call after serving
// starts.
func (d *Dispatcher) RegisterHook(h Hook) {
	d.hooks = append(d.hooks, h)
}

// Label implements service.ToolDispatcher.
func (d *Dispatcher) Label(name string) string {
	return d.registry.Label(name)
}

// Definitions implements service.ToolDispatcher.
func (d *Dispatcher) Definitions() []domaintool.Definition {
	return d.registry.List()
}

// Invoke resolves and runs a tool. Every failure mode is folded into the
// returned payload and info so the model can react; nothing is raised past
// the dispatcher.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args map[string]any, emit service.Emitter, grouped bool) (map[string]any, entity.ToolCallInfo) {
	info := entity.ToolCallInfo{Name: name, Label: d.registry.Label(name)}

	t, ok := d.registry.Get(name)
	if !ok {
		msg := fmt.Sprintf("Unknown tool: %s", name)
		info.Error = msg
		d.emitDone(emit, grouped, info)
		return map[string]any{"error": msg}, info
	}

	start := time.Now()
	payload, err := d.execute(ctx, t, args)
	info.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		appErr := errors.Classify(err)
		info.Error = appErr.Message
		payload = map[string]any{"error": appErr.Message, "code": string(appErr.Code)}
		d.logger.Warn("Tool failed",
			zap.String("tool", name),
			zap.String("code", string(appErr.Code)),
			zap.Int64("duration_ms", info.DurationMs),
			zap.Error(err),
		)
		d.emitDone(emit, grouped, info)
		return payload, info
	}

	if hit, ok := payload["cacheHit"].(bool); ok {
		info.CacheHit = hit
	}
	d.logger.Info("Tool completed",
		zap.String("tool", name),
		zap.Int64("duration_ms", info.DurationMs),
		zap.Bool("cache_hit", info.CacheHit),
	)

	d.runHooks(ctx, name, payload)
	d.emitDone(emit, grouped, info)
	return payload, info
}

// execute runs the tool with panic containment so a misbehaving handler
// becomes a classified error instead of tearing down the request.
func (d *Dispatcher) execute(ctx context.Context, t domaintool.Tool, args map[string]any) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool panicked",
				zap.String("tool", t.Name()),
				zap.Any("panic", r),
			)
			payload = nil
			err = errors.NewInternalError(fmt.Sprintf("tool %s panicked: %v", t.Name(), r))
		}
	}()
	return t.Execute(ctx, args)
}

func (d *Dispatcher) runHooks(ctx context.Context, name string, payload map[string]any) {
	for _, h := range d.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("Post-tool hook panicked",
						zap.String("tool", name), zap.Any("panic", r))
				}
			}()
			h(ctx, name, payload)
		}()
	}
}

func (d *Dispatcher) emitDone(emit service.Emitter, grouped bool, info entity.ToolCallInfo) {
	if emit == nil || grouped {
		return
	}
	emit(entity.StreamEvent{Type: entity.EventToolDone, Info: &info})
}
