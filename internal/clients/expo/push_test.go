package expo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	pkgerrors "github.com/aymarr/mediguardian-backend/internal/pkg/errors"
	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) Transport {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("EXPO_PUSH_URL", srv.URL)
	t.Setenv("EXPO_PUSH_MAX_RETRIES", "2")
	c, err := NewClient(testLogger())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestIsPushToken(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{"ExponentPushToken[abc123]", true},
		{"ExpoPushToken[abc123]", true},
		{"ExponentPushToken[]", false},
		{"abc123", false},
		{"", false},
		{"exponentpushtoken[abc]", false},
	}
	for _, tc := range cases {
		if got := IsPushToken(tc.token); got != tc.want {
			t.Fatalf("IsPushToken(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestSendBatchTickets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"status":"ok","id":"ticket-1"},
			{"status":"error","message":"gone","details":{"error":"DeviceNotRegistered"}}
		]}`))
	})

	tickets, err := c.SendBatch(context.Background(), []Message{
		{To: "ExponentPushToken[a]", Title: "t", Body: "b"},
		{To: "ExponentPushToken[b]", Title: "t", Body: "b"},
	})
	if err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("tickets = %d, want 2", len(tickets))
	}
	if tickets[0].Status != TicketOK || tickets[0].ID != "ticket-1" || tickets[0].To != "ExponentPushToken[a]" {
		t.Fatalf("unexpected first ticket: %+v", tickets[0])
	}
	if tickets[1].Status != TicketError || tickets[1].Detail != "DeviceNotRegistered" {
		t.Fatalf("unexpected second ticket: %+v", tickets[1])
	}
}

func TestSendBatchRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"t1"}]}`))
	})

	tickets, err := c.SendBatch(context.Background(), []Message{{To: "ExponentPushToken[a]"}})
	if err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if len(tickets) != 1 || tickets[0].Status != TicketOK {
		t.Fatalf("unexpected tickets: %+v", tickets)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestSendBatchDoesNotRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.SendBatch(context.Background(), []Message{{To: "ExponentPushToken[a]"}})
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, pkgerrors.ErrTransient) {
		t.Fatalf("4xx must not be transient: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestSendBatchRejectsOversizedBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})
	messages := make([]Message, maxBatchSize+1)
	for i := range messages {
		messages[i] = Message{To: "ExponentPushToken[a]"}
	}
	_, err := c.SendBatch(context.Background(), messages)
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
