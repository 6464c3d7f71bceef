package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brandlens/brandlens/internal/domain/entity"
	"github.com/brandlens/brandlens/pkg/safego"
)

// heartbeatInterval keeps idle proxies from cutting the stream.
const heartbeatInterval = 15 * time.Second

// Render frames an event for the wire: a single data line plus the blank
// separator. The encoding is canonical, so Parse(Render(e)) == e.
func Render(e entity.StreamEvent) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}

// Parse restores an event from a rendered frame.
func Parse(frame []byte) (entity.StreamEvent, error) {
	var e entity.StreamEvent
	trimmed := bytes.TrimSuffix(frame, []byte("\n\n"))
	payload, ok := bytes.CutPrefix(trimmed, []byte("data: "))
	if !ok {
		return e, fmt.Errorf("frame missing data prefix")
	}
	if err := json.Unmarshal(payload, &e); err != nil {
		return e, err
	}
	return e, nil
}

// EventWriter serializes framed events onto one long-lived response. After
// the client disconnects, writes become no-ops so an in-flight orchestration
// can run to completion and persist its session.
type EventWriter struct {
	mu         sync.Mutex
	w          http.ResponseWriter
	flusher    http.Flusher
	clientGone bool
	logger     *zap.Logger
}

// NewEventWriter prepares a response for event streaming. The response must
// support flushing.
func NewEventWriter(w http.ResponseWriter, logger *zap.Logger) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &EventWriter{
		w:       w,
		flusher: flusher,
		logger:  logger.With(zap.String("component", "sse")),
	}, nil
}

// Send frames and writes one event. Returns false once the client is gone.
func (ew *EventWriter) Send(e entity.StreamEvent) bool {
	frame, err := Render(e)
	if err != nil {
		ew.logger.Error("Render event failed", zap.String("type", string(e.Type)), zap.Error(err))
		return false
	}
	return ew.write(frame)
}

// Ping writes the heartbeat comment frame.
func (ew *EventWriter) Ping() bool {
	return ew.write([]byte(":ping\n\n"))
}

// MarkClientGone turns all further writes into no-ops.
func (ew *EventWriter) MarkClientGone() {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	ew.clientGone = true
}

// ClientGone reports whether the client has disconnected.
func (ew *EventWriter) ClientGone() bool {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	return ew.clientGone
}

func (ew *EventWriter) write(frame []byte) bool {
	ew.mu.Lock()
	defer ew.mu.Unlock()

	if ew.clientGone {
		return false
	}
	if _, err := ew.w.Write(frame); err != nil {
		ew.clientGone = true
		return false
	}
	ew.flusher.Flush()
	return true
}

// StartHeartbeat pings every interval until done is closed or the client
// goes away.
func (ew *EventWriter) StartHeartbeat(done <-chan struct{}) {
	safego.Go(ew.logger, "sse-heartbeat", func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !ew.Ping() {
					return
				}
			}
		}
	})
}
