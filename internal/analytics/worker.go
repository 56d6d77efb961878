package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

const siteEventsConsumerName = "site-events"

// Handler defines how to process site-event envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope Envelope) error

// Handle calls the underlying function.
func (fn HandlerFunc) Handle(ctx context.Context, envelope Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Worker consumes site events from Pub/Sub while honoring Redis idempotency.
type Worker struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	manager      idempotencyChecker
	logg         *logger.Logger
}

// NewWorker creates a site events worker.
func NewWorker(subscription *gcppubsub.Subscriber, handler Handler, manager idempotencyChecker, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("site events subscription is required")
	}
	if handler == nil {
		return nil, errors.New("site events handler is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	return &Worker{
		subscription: subscription,
		handler:      handler,
		manager:      manager,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming site event messages until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if w.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (w *Worker) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{
		"message_id": msg.ID,
	}
	logCtx := w.logg.WithFields(ctx, fields)

	envelope, err := decodeEnvelope(msg)
	if err != nil {
		fields["error"] = err.Error()
		w.logg.Warn(w.logg.WithFields(ctx, fields), "invalid site event envelope")
		return processResult{}
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = envelope.EventType
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = w.logg.WithFields(ctx, fields)

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		w.logg.Warn(logCtx, "invalid event id")
		return processResult{}
	}

	already, err := w.manager.CheckAndMarkProcessed(logCtx, siteEventsConsumerName, eventID)
	if err != nil {
		w.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		w.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := w.handler.Handle(logCtx, *envelope); err != nil {
		w.logg.Error(logCtx, "handler error", err)
		_ = w.manager.Delete(logCtx, siteEventsConsumerName, eventID)
		return processResult{nack: true}
	}

	w.logg.Info(logCtx, "site event handled")
	return processResult{}
}

func decodeEnvelope(msg *gcppubsub.Message) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	if strings.TrimSpace(envelope.EventID) == "" {
		envelope.EventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if envelope.EventID == "" {
		return nil, errors.New("event_id missing")
	}

	if envelope.EventType == "" {
		parsed, err := enums.ParseSiteEventType(strings.TrimSpace(msg.Attributes["event_type"]))
		if err != nil {
			return nil, fmt.Errorf("event_type: %w", err)
		}
		envelope.EventType = parsed
	}
	if !envelope.EventType.IsValid() {
		return nil, fmt.Errorf("invalid site event type %q", envelope.EventType)
	}

	if envelope.OccurredAt.IsZero() {
		if raw := strings.TrimSpace(msg.Attributes["occurred_at"]); raw != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				envelope.OccurredAt = parsed
			}
		}
	}
	envelope.OccurredAt = envelope.OccurredAt.UTC()

	return &envelope, nil
}
