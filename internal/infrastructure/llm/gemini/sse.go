package gemini

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/entity"
	"github.com/brandlens/brandlens/internal/domain/service"
)

// ParseSSEStream reads Gemini's streaming response format: "data: {...}"
// lines where each chunk is a full GenerateContentResponse. Delta parts are
// pushed to deltaCh in generation order; the returned turn is the assembled
// final candidate.
func ParseSSEStream(ctx context.Context, reader io.Reader, deltaCh chan<- service.StreamPart, logger *zap.Logger) (*entity.Turn, error) {
	idleTimeout := 60 * time.Second
	tReader := &timedReader{r: reader, timeout: idleTimeout}

	scanner := bufio.NewScanner(tReader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	assembler := newCandidateAssembler()
	var finishReason string

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var resp Response
		if err := json.Unmarshal([]byte(data), &resp); err != nil {
			logger.Debug("Skip unparseable Gemini SSE chunk", zap.Error(err))
			continue
		}
		if len(resp.Candidates) == 0 {
			continue
		}

		candidate := resp.Candidates[0]
		if candidate.FinishReason != "" {
			finishReason = candidate.FinishReason
		}

		for _, part := range candidate.Content.Parts {
			delta := fromAPIPart(part)
			assembler.add(delta)
			deltaCh <- delta
		}

		if finishReason != "" {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		if isIdleTimeoutErr(err) {
			logger.Warn("SSE stream idle timeout, Gemini API stalled",
				zap.Duration("idle_timeout", idleTimeout))
			if assembler.empty() {
				return nil, fmt.Errorf("SSE stream stalled: no data for %v", idleTimeout)
			}
		} else {
			return nil, fmt.Errorf("SSE scan error: %w", err)
		}
	}

	return assembler.turn(), nil
}

func fromAPIPart(part Part) service.StreamPart {
	if part.FunctionCall != nil {
		return service.StreamPart{FunctionCall: &entity.FunctionCall{
			Name: part.FunctionCall.Name,
			Args: part.FunctionCall.Args,
		}}
	}
	return service.StreamPart{
		Text:    part.Text,
		Thought: part.Thought != nil && *part.Thought,
	}
}

// candidateAssembler folds streamed deltas into a complete model turn.
// Consecutive text deltas with the same thought flag merge into one part;
// function calls keep their own parts in arrival order.
type candidateAssembler struct {
	parts []entity.Part
}

func newCandidateAssembler() *candidateAssembler {
	return &candidateAssembler{}
}

func (a *candidateAssembler) add(delta service.StreamPart) {
	if delta.FunctionCall != nil {
		a.parts = append(a.parts, entity.Part{FunctionCall: delta.FunctionCall})
		return
	}
	if delta.Text == "" {
		return
	}
	if n := len(a.parts); n > 0 {
		last := &a.parts[n-1]
		if last.FunctionCall == nil && last.FunctionResponse == nil && last.Thought == delta.Thought {
			last.Text += delta.Text
			return
		}
	}
	a.parts = append(a.parts, entity.Part{Text: delta.Text, Thought: delta.Thought})
}

func (a *candidateAssembler) empty() bool {
	return len(a.parts) == 0
}

func (a *candidateAssembler) turn() *entity.Turn {
	return &entity.Turn{Role: entity.RoleModel, Parts: a.parts}
}

// --- SSE idle timeout support ---

var errIdleTimeout = fmt.Errorf("SSE read idle timeout")

type timedReader struct {
	r       io.Reader
	timeout time.Duration
}

// Read delegates to the inner reader in a goroutine so the select can give
// up after the idle timeout. On timeout the inner read stays blocked until
// the caller closes the response body, which GenerateStream does as soon as
// the stream returns; the buffered send lets the goroutine exit then. At
// most one such goroutine lingers per stream, and only for the time between
// the timeout and the body close.
func (t *timedReader) Read(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := t.r.Read(p)
		ch <- result{n, err}
	}()
	select {
	case res := <-ch:
		return res.n, res.err
	case <-time.After(t.timeout):
		return 0, errIdleTimeout
	}
}

func isIdleTimeoutErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SSE read idle timeout")
}
