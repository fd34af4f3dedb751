package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"teamboard-cli/internal/logging"

	"github.com/google/uuid"
)

const (
	EventAPISuccess    = "api_success"
	EventAPIError      = "api_error"
	EventNetworkError  = "network_error"
	logEventPath       = "/_synthetic/log_event"
	defaultQueueLength = 64
)

type Event struct {
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	Method     string         `json:"method,omitempty"`
	Endpoint   string         `json:"endpoint,omitempty"`
	Status     int            `json:"status,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	At         time.Time      `json:"at"`
	Data       map[string]any `json:"data,omitempty"`
}

type EventSink interface {
	Send(ctx context.Context, ev Event) error
}

// HTTPEventSink posts events to the backend's synthetic event endpoint. It must be
// given an undecorated Doer (Client.Raw) so logging an event never logs itself.
type HTTPEventSink struct {
	Doer Doer
}

func (s HTTPEventSink) Send(ctx context.Context, ev Event) error {
	if s.Doer == nil {
		return fmt.Errorf("event sink: nil doer")
	}
	_, err := s.Doer.Do(ctx, Request{Method: http.MethodPost, Path: logEventPath, Body: ev})
	return err
}

// Emitter delivers events to a sink on a background goroutine. Emit never blocks:
// when the queue is full the event is dropped.
type Emitter struct {
	sink    EventSink
	log     *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	closed  bool
	queue   chan Event
	pending sync.WaitGroup
	done    chan struct{}
}

func NewEmitter(sink EventSink, queueSize int, logger *slog.Logger) *Emitter {
	if queueSize <= 0 {
		queueSize = defaultQueueLength
	}
	e := &Emitter{
		sink:    sink,
		log:     logging.OrDiscard(logger),
		timeout: 5 * time.Second,
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.pending.Add(1)
	select {
	case e.queue <- ev:
	default:
		e.pending.Done()
		e.log.Debug("analytics queue full; dropping event", "type", ev.EventType, "endpoint", ev.Endpoint)
	}
}

func (e *Emitter) run() {
	defer close(e.done)
	for ev := range e.queue {
		e.deliver(ev)
		e.pending.Done()
	}
}

func (e *Emitter) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("analytics sink panicked", "type", ev.EventType, "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	if err := e.sink.Send(ctx, ev); err != nil {
		e.log.Warn("analytics event not delivered", "type", ev.EventType, "endpoint", ev.Endpoint, "err", err)
	}
}

// Flush waits until every queued event has been handed to the sink.
func (e *Emitter) Flush(ctx context.Context) error {
	if e == nil {
		return nil
	}
	ch := make(chan struct{})
	go func() {
		e.pending.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for the queue to drain.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()
	<-e.done
}

// Analytics records one event per call. It never alters the wrapped call's result.
func Analytics(em *Emitter, sessionID func() string) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, req Request) (*Response, error) {
			start := time.Now()
			resp, err := next.Do(ctx, req)

			ev := Event{
				Method:     req.Method,
				Endpoint:   req.Path,
				DurationMs: time.Since(start).Milliseconds(),
			}
			if sessionID != nil {
				ev.SessionID = sessionID()
			}
			switch {
			case err == nil:
				ev.EventType = EventAPISuccess
				ev.Status = resp.Status
			case IsNetwork(err):
				ev.EventType = EventNetworkError
				ev.Data = map[string]any{"message": err.Error()}
			default:
				ev.EventType = EventAPIError
				ev.Status = StatusOf(err)
			}
			em.Emit(ev)
			return resp, err
		})
	}
}
