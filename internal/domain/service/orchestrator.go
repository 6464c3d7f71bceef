package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/entity"
	domaintool "github.com/brandlens/brandlens/internal/domain/tool"
	"github.com/brandlens/brandlens/pkg/errors"
)

const (
	// MaxTurns bounds the agentic loop.
	MaxTurns = 10
	// MaxRepeats is how many consecutive turns may repeat the same tool-call
	// signature before the loop is broken.
	MaxRepeats = 2
	// MaxMessageChars is the largest accepted user message.
	MaxMessageChars = 2000
)

// ChatResult is the terminal outcome of one orchestrated request.
type ChatResult struct {
	Answer    string
	ToolCalls []entity.ToolCallInfo
	History   []entity.Turn // full history including thoughts; trim before persisting
}

// Orchestrator drives the bounded multi-turn tool-calling loop: it streams
// visible text as it appears, fans tool calls out in parallel, groups
// repeated tool names, breaks retry loops and short-circuits all-failed
// turns. Every terminal path emits exactly one answer event.
type Orchestrator struct {
	llm          LLMClient
	tools        ToolDispatcher
	systemPrompt string
	logger       *zap.Logger
}

func NewOrchestrator(llm LLMClient, tools ToolDispatcher, systemPrompt string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		llm:          llm,
		tools:        tools,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// SystemPrompt returns the prompt prepended to every conversation.
func (o *Orchestrator) SystemPrompt() string { return o.systemPrompt }

// Chat runs the agentic loop for one user message on top of the given
// history. Tool failures are folded into function responses and never abort
// the loop; LLM transport failures and cancellation do.
func (o *Orchestrator) Chat(ctx context.Context, history []entity.Turn, message string, emit Emitter) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.NewInvalidInputError("message must not be empty")
	}
	if len(message) > MaxMessageChars {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("message exceeds %d characters", MaxMessageChars))
	}

	hist := make([]entity.Turn, 0, len(history)+2)
	hist = append(hist, history...)
	hist = append(hist, entity.Turn{Role: entity.RoleUser, Parts: []entity.Part{entity.TextPart(message)}})

	defs := o.tools.Definitions()
	audit := make([]entity.ToolCallInfo, 0)

	prevSignature := ""
	repeatCount := 0
	priorToolCalls := false

	for turn := 1; turn <= MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Classify(err)
		}

		o.send(emit, entity.StreamEvent{
			Type:    entity.EventThinking,
			Turn:    turn,
			Message: thinkingMessage(turn, priorToolCalls),
		})

		final, streamedText, err := o.streamModelTurn(ctx, hist, defs, emit)
		if err != nil {
			return nil, errors.Classify(err)
		}

		// The full candidate, thoughts included, goes into history verbatim:
		// the model needs its own reasoning visible on the next turn. Thoughts
		// are stripped later by TrimHistory, never by this loop.
		hist = append(hist, *final)

		calls := final.FunctionCalls()
		if len(calls) == 0 {
			text := strings.TrimSpace(streamedText)
			if text == "" {
				text = strings.TrimSpace(final.VisibleText())
			}
			if text == "" {
				text = "Done."
			}
			return o.finish(emit, text, audit, hist), nil
		}

		counts := make(map[string]int, len(calls))
		var unique []string
		for _, c := range calls {
			if counts[c.Name] == 0 {
				unique = append(unique, c.Name)
			}
			counts[c.Name]++
		}
		labels := make([]string, len(unique))
		for i, name := range unique {
			labels[i] = groupLabel(o.tools.Label(name), counts[name])
		}
		o.send(emit, entity.StreamEvent{Type: entity.EventToolStart, Tools: unique, Labels: labels})

		sig := callSignature(calls)
		if sig == prevSignature {
			repeatCount++
		} else {
			repeatCount = 0
			prevSignature = sig
		}
		if repeatCount >= MaxRepeats {
			o.logger.Warn("Breaking repeated tool-call loop",
				zap.String("signature", sig),
				zap.Int("turn", turn),
			)
			text := "I keep requesting the same data without getting further, so I'm stopping here. " +
				"Try rephrasing the question or narrowing it to a specific account or hashtag."
			return o.finish(emit, text, audit, hist), nil
		}

		results := o.dispatch(ctx, calls, counts, emit)
		o.emitGrouped(emit, calls, counts, unique, results)

		responseParts := make([]entity.Part, len(calls))
		allFailed := true
		for i, c := range calls {
			responseParts[i] = entity.ResponsePart(c.Name, results[i].payload)
			audit = append(audit, results[i].info)
			if results[i].info.Error == "" {
				allFailed = false
			}
		}
		hist = append(hist, entity.Turn{Role: entity.RoleUser, Parts: responseParts})
		priorToolCalls = true

		if allFailed {
			o.logger.Warn("All tool calls failed, short-circuiting", zap.Int("turn", turn))
			return o.finish(emit, allFailedMessage(calls, results), audit, hist), nil
		}
	}

	// Turn budget exhausted: fall back to the last visible model text.
	text := lastModelText(hist)
	if text == "" {
		text = "I couldn't finish within the allotted number of steps. Please try a narrower question."
	}
	return o.finish(emit, text, audit, hist), nil
}

type callOutcome struct {
	payload map[string]any
	info    entity.ToolCallInfo
}

// streamModelTurn opens one LLM stream, forwards visible text chunks as they
// arrive, skips thoughts, and returns the final assembled candidate.
func (o *Orchestrator) streamModelTurn(ctx context.Context, hist []entity.Turn, defs []domaintool.Definition, emit Emitter) (*entity.Turn, string, error) {
	deltaCh := make(chan StreamPart, 64)
	var streamed strings.Builder
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for part := range deltaCh {
			if part.Thought {
				continue
			}
			if part.Text != "" {
				streamed.WriteString(part.Text)
				o.send(emit, entity.StreamEvent{Type: entity.EventTextChunk, Text: part.Text})
			}
		}
	}()

	final, err := o.llm.GenerateStream(ctx, o.systemPrompt, hist, defs, deltaCh)
	close(deltaCh)
	<-consumerDone
	if err != nil {
		return nil, "", err
	}
	return final, streamed.String(), nil
}

// dispatch runs every call concurrently and joins on all of them. Failures
// are captured in each outcome, never returned.
func (o *Orchestrator) dispatch(ctx context.Context, calls []entity.FunctionCall, counts map[string]int, emit Emitter) []callOutcome {
	results := make([]callOutcome, len(calls))
	var wg sync.WaitGroup
	for i, c := range calls {
		wg.Add(1)
		go func(idx int, call entity.FunctionCall) {
			defer wg.Done()
			grouped := counts[call.Name] > 1
			payload, info := o.tools.Invoke(ctx, call.Name, call.Args, emit, grouped)
			results[idx] = callOutcome{payload: payload, info: info}
		}(i, c)
	}
	wg.Wait()
	return results
}

// emitGrouped sends one synthetic tool_done per batched name after all calls
// of the turn have settled.
func (o *Orchestrator) emitGrouped(emit Emitter, calls []entity.FunctionCall, counts map[string]int, unique []string, results []callOutcome) {
	for _, name := range unique {
		n := counts[name]
		if n <= 1 {
			continue
		}
		var totalMs int64
		hits, failed := 0, 0
		for i, c := range calls {
			if c.Name != name {
				continue
			}
			totalMs += results[i].info.DurationMs
			if results[i].info.CacheHit {
				hits++
			}
			if results[i].info.Error != "" {
				failed++
			}
		}
		info := entity.ToolCallInfo{
			Name:       name,
			Label:      groupLabel(o.tools.Label(name), n),
			DurationMs: totalMs / int64(n),
			CacheHit:   hits == n,
		}
		if failed > 0 {
			info.Error = fmt.Sprintf("%d/%d failed", failed, n)
		}
		o.send(emit, entity.StreamEvent{Type: entity.EventToolDone, Info: &info})
	}
}

func (o *Orchestrator) finish(emit Emitter, text string, audit []entity.ToolCallInfo, hist []entity.Turn) *ChatResult {
	o.send(emit, entity.StreamEvent{Type: entity.EventAnswer, Text: text, ToolCalls: audit})
	return &ChatResult{Answer: text, ToolCalls: audit, History: hist}
}

func (o *Orchestrator) send(emit Emitter, e entity.StreamEvent) {
	if emit != nil {
		emit(e)
	}
}

func thinkingMessage(turn int, priorToolCalls bool) string {
	switch {
	case turn == 1:
		return "Analysing your request…"
	case priorToolCalls:
		return "Processing tool results…"
	default:
		return "Thinking…"
	}
}

func groupLabel(label string, count int) string {
	if count > 1 {
		return fmt.Sprintf("%s ×%d", label, count)
	}
	return label
}

// callSignature is the sorted multiset of tool names in a turn, used for
// repeat-loop detection.
func callSignature(calls []entity.FunctionCall) string {
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func allFailedMessage(calls []entity.FunctionCall, results []callOutcome) string {
	var lines []string
	for i, c := range calls {
		if len(lines) == 3 {
			lines = append(lines, fmt.Sprintf("…and %d more", len(calls)-3))
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %s", c.Name, results[i].info.Error))
	}
	return "Every data lookup failed, so I can't answer this yet:\n" + strings.Join(lines, "\n")
}

// lastModelText returns the visible text of the most recent model turn.
func lastModelText(hist []entity.Turn) string {
	for i := len(hist) - 1; i >= 0; i-- {
		if hist[i].Role != entity.RoleModel {
			continue
		}
		if text := strings.TrimSpace(hist[i].VisibleText()); text != "" {
			return text
		}
	}
	return ""
}
