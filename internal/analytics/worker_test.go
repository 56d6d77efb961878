package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

func TestDecodeEnvelope(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	envelope := Envelope{
		EventID:    "11111111-2222-3333-4444-555555555555",
		EventType:  enums.SiteEventPageView,
		OccurredAt: occurred,
		Payload:    json.RawMessage(`{"path":"/communities/aspen-grove"}`),
	}
	msg := buildSiteEventMessage(t, envelope, nil)

	decoded, err := decodeEnvelope(msg)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if decoded.EventID != envelope.EventID {
		t.Fatalf("unexpected event id %s", decoded.EventID)
	}
	if decoded.EventType != enums.SiteEventPageView {
		t.Fatalf("unexpected event type %v", decoded.EventType)
	}
	if !decoded.OccurredAt.Equal(occurred) {
		t.Fatalf("unexpected occurred at %v", decoded.OccurredAt)
	}
}

func TestDecodeEnvelopeFallsBackToAttributes(t *testing.T) {
	eventID := uuid.NewString()
	msg := &gcppubsub.Message{
		ID:   "msg-1",
		Data: []byte(`{"payload":{}}`),
		Attributes: map[string]string{
			"event_id":    eventID,
			"event_type":  "lead_captured",
			"occurred_at": "2026-03-01T12:00:00Z",
		},
	}

	decoded, err := decodeEnvelope(msg)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if decoded.EventID != eventID {
		t.Fatalf("unexpected event id %s", decoded.EventID)
	}
	if decoded.EventType != enums.SiteEventLeadCaptured {
		t.Fatalf("unexpected event type %v", decoded.EventType)
	}
	if decoded.OccurredAt.IsZero() {
		t.Fatal("expected occurred at from attributes")
	}
}

func TestProcessAlreadyProcessed(t *testing.T) {
	manager := &stubManager{checkResult: true}
	handler := &stubHandler{}
	worker := newTestWorker(handler, manager)

	res := worker.process(context.Background(), buildValidMessage(t))
	if res.nack {
		t.Fatalf("expected ack, got nack")
	}
	if handler.called {
		t.Fatal("handler should not be invoked when already processed")
	}
	if len(manager.checked) != 1 {
		t.Fatalf("expected check once, got %d", len(manager.checked))
	}
}

func TestProcessHandlerErrorRetries(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{err: errors.New("boom")}
	worker := newTestWorker(handler, manager)

	res := worker.process(context.Background(), buildValidMessage(t))
	if !res.nack {
		t.Fatalf("expected nack on handler error")
	}
	if !handler.called {
		t.Fatal("handler should be invoked")
	}
	if len(manager.deleted) != 1 {
		t.Fatalf("expected idempotency delete on failure")
	}
}

func TestProcessInvalidEnvelope(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{}
	worker := newTestWorker(handler, manager)

	msg := &gcppubsub.Message{Data: []byte("invalid json")}
	res := worker.process(context.Background(), msg)
	if res.nack {
		t.Fatalf("invalid envelope should ack")
	}
	if handler.called {
		t.Fatal("handler should not be invoked")
	}
	if len(manager.checked) != 0 {
		t.Fatalf("idempotency manager should not be touched")
	}
}

func TestProcessIdempotencyErrorNacks(t *testing.T) {
	manager := &stubManager{checkErr: errors.New("redis down")}
	handler := &stubHandler{}
	worker := newTestWorker(handler, manager)

	res := worker.process(context.Background(), buildValidMessage(t))
	if !res.nack {
		t.Fatalf("expected nack when idempotency check fails")
	}
	if handler.called {
		t.Fatal("handler should not run without idempotency guard")
	}
}

func buildValidMessage(t *testing.T) *gcppubsub.Message {
	t.Helper()
	return buildSiteEventMessage(t, Envelope{
		EventID:    uuid.NewString(),
		EventType:  enums.SiteEventLeadCaptured,
		OccurredAt: time.Now().UTC(),
		Payload:    json.RawMessage(`{"lead_id":"abc"}`),
	}, nil)
}

func buildSiteEventMessage(t *testing.T, envelope Envelope, attrs map[string]string) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &gcppubsub.Message{
		ID:         "msg-1",
		Data:       data,
		Attributes: attrs,
	}
}

func newTestWorker(handler Handler, manager *stubManager) *Worker {
	return &Worker{
		handler: handler,
		manager: manager,
		logg:    logger.New(logger.Options{ServiceName: "analytics-test"}),
	}
}

type stubHandler struct {
	called   bool
	envelope Envelope
	err      error
}

func (h *stubHandler) Handle(ctx context.Context, envelope Envelope) error {
	h.called = true
	h.envelope = envelope
	return h.err
}

type stubManager struct {
	checkResult bool
	checkErr    error
	deleteErr   error
	checked     []uuid.UUID
	deleted     []uuid.UUID
}

func (s *stubManager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	s.checked = append(s.checked, eventID)
	return s.checkResult, s.checkErr
}

func (s *stubManager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	s.deleted = append(s.deleted, eventID)
	return s.deleteErr
}
