package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

const defaultPublishTimeout = 10 * time.Second

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type messagePublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// Publisher emits site-event envelopes to the configured Pub/Sub topic.
// Publishing is best-effort from the caller's perspective; request handlers
// log and continue when a publish fails.
type Publisher struct {
	pub     messagePublisher
	logg    *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewPublisher wraps a Pub/Sub publisher handle for site events.
func NewPublisher(pub *gcppubsub.Publisher, logg *logger.Logger) (*Publisher, error) {
	if pub == nil {
		return nil, errors.New("site events publisher is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Publisher{
		pub:     &gcpPublisher{Publisher: pub},
		logg:    logg,
		timeout: defaultPublishTimeout,
		now:     time.Now,
	}, nil
}

// PublishSiteEvent wraps the payload in an envelope and publishes it. The
// generated event id is returned so callers can correlate logs.
func (p *Publisher) PublishSiteEvent(ctx context.Context, eventType enums.SiteEventType, payload any) (string, error) {
	if !eventType.IsValid() {
		return "", fmt.Errorf("invalid site event type %q", eventType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal site event payload: %w", err)
	}

	envelope := Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: p.now().UTC(),
		Payload:    raw,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("marshal site event envelope: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":    envelope.EventID,
			"event_type":  string(envelope.EventType),
			"occurred_at": envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return "", errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return "", fmt.Errorf("publish site event: %w", err)
	}

	logCtx := p.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": envelope.EventType,
	})
	p.logg.Debug(logCtx, "site event published")
	return envelope.EventID, nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (g *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if g == nil || g.Publisher == nil {
		return nil
	}
	return g.Publisher.Publish(ctx, msg)
}
