package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
)

type rowWriter interface {
	InsertSiteEvent(ctx context.Context, row SiteEventRow) error
	InsertConversionOutcome(ctx context.Context, row ConversionOutcomeRow) error
}

// RowHandler maps site-event envelopes onto BigQuery rows. Every event lands
// in the site_events table; conversion dispatch events additionally fan out
// one audit row per platform.
type RowHandler struct {
	writer rowWriter
	now    func() time.Time
}

// NewRowHandler builds the envelope-to-row handler.
func NewRowHandler(writer rowWriter) (*RowHandler, error) {
	if writer == nil {
		return nil, errors.New("row writer is required")
	}
	return &RowHandler{writer: writer, now: time.Now}, nil
}

// Handle processes a single decoded envelope.
func (h *RowHandler) Handle(ctx context.Context, envelope Envelope) error {
	row, err := h.siteEventRow(envelope)
	if err != nil {
		return err
	}
	if err := h.writer.InsertSiteEvent(ctx, row); err != nil {
		return err
	}

	if envelope.EventType != enums.SiteEventConversionDispatched {
		return nil
	}
	return h.insertOutcomeRows(ctx, envelope)
}

func (h *RowHandler) siteEventRow(envelope Envelope) (SiteEventRow, error) {
	payload, err := EncodeJSON(envelope.Payload)
	if err != nil {
		return SiteEventRow{}, fmt.Errorf("encode payload: %w", err)
	}

	row := SiteEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt,
		Payload:    payload,
		ReceivedAt: h.now().UTC(),
	}

	fields, err := envelope.PayloadMap()
	if err != nil {
		return SiteEventRow{}, fmt.Errorf("decode payload: %w", err)
	}
	row.Path = stringField(fields, "path")
	row.CommunityID = stringField(fields, "community_id")
	row.UTMSource = stringField(fields, "utm_source")
	row.UTMMedium = stringField(fields, "utm_medium")
	row.UTMCampaign = stringField(fields, "utm_campaign")
	return row, nil
}

func (h *RowHandler) insertOutcomeRows(ctx context.Context, envelope Envelope) error {
	var event ConversionDispatchedEvent
	if err := json.Unmarshal(envelope.Payload, &event); err != nil {
		return fmt.Errorf("decode conversion dispatched payload: %w", err)
	}

	received := h.now().UTC()
	for _, outcome := range event.Outcomes {
		row := ConversionOutcomeRow{
			EventID:       envelope.EventID,
			TransactionID: event.TransactionID,
			LeadType:      event.LeadType,
			Platform:      outcome.Platform,
			Success:       outcome.Success,
			DispatchedAt:  event.DispatchedAt,
			ReceivedAt:    received,
		}
		if event.LeadID != "" {
			leadID := event.LeadID
			row.LeadID = &leadID
		}
		if outcome.Error != "" {
			msg := outcome.Error
			row.Error = &msg
		}
		if event.Value != "" {
			value := event.Value
			row.Value = &value
		}
		if event.Currency != "" {
			currency := event.Currency
			row.Currency = &currency
		}
		if err := h.writer.InsertConversionOutcome(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func stringField(fields map[string]any, key string) *string {
	value, ok := fields[key].(string)
	if !ok || value == "" {
		return nil
	}
	return &value
}
