package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	panic  bool
}

func (s *recordingSink) Send(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if s.panic {
		panic("sink exploded")
	}
	return s.err
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func flush(t *testing.T, em *Emitter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, em.Flush(ctx))
}

func TestAnalytics_RecordsSuccessErrorAndNetworkEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	sink := &recordingSink{}
	em := NewEmitter(sink, 8, nil)
	t.Cleanup(em.Close)

	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	c.SetSessionID("s-1")
	c.Use(Analytics(em, c.SessionID))

	ctx := context.Background()
	require.NoError(t, c.Get(ctx, "/api/teams", nil, nil))
	require.Error(t, c.Get(ctx, "/api/missing", nil, nil))

	flush(t, em)
	evs := sink.snapshot()
	require.Len(t, evs, 2)
	assert.Equal(t, EventAPISuccess, evs[0].EventType)
	assert.Equal(t, http.StatusOK, evs[0].Status)
	assert.Equal(t, "/api/teams", evs[0].Endpoint)
	assert.Equal(t, "s-1", evs[0].SessionID)
	assert.NotEmpty(t, evs[0].EventID)
	assert.Equal(t, EventAPIError, evs[1].EventType)
	assert.Equal(t, http.StatusNotFound, evs[1].Status)

	srv.Close()
	require.Error(t, c.Get(ctx, "/api/teams", nil, nil))
	flush(t, em)
	evs = sink.snapshot()
	require.Len(t, evs, 3)
	assert.Equal(t, EventNetworkError, evs[2].EventType)
}

func TestAnalytics_SinkFailureNeverAffectsCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	t.Cleanup(srv.Close)

	for _, sink := range []*recordingSink{{err: errors.New("down")}, {panic: true}} {
		em := NewEmitter(sink, 4, nil)
		c, err := New(Options{BaseURL: srv.URL})
		require.NoError(t, err)
		c.Use(Analytics(em, c.SessionID))

		var out struct {
			ID int64 `json:"id"`
		}
		require.NoError(t, c.Get(context.Background(), "/api/users/1", nil, &out))
		assert.Equal(t, int64(1), out.ID)
		flush(t, em)
		em.Close()
	}
}

type blockingSink struct{ release chan struct{} }

func (s blockingSink) Send(ctx context.Context, _ Event) error {
	<-s.release
	return nil
}

func TestEmitter_DropsWhenQueueFullAndIgnoresAfterClose(t *testing.T) {
	sink := blockingSink{release: make(chan struct{})}
	em := NewEmitter(sink, 1, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			em.Emit(Event{EventType: EventAPISuccess})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full queue")
	}
	close(sink.release)
	em.Close()

	em.Emit(Event{EventType: EventAPISuccess})
	em.Close()
}

func TestHTTPEventSink_PostsToLogEndpoint(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	require.NoError(t, HTTPEventSink{Doer: c.Raw()}.Send(context.Background(), Event{EventType: "logout"}))
	assert.Equal(t, "/_synthetic/log_event", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
}
