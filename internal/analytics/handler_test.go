package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
)

type fakeRowWriter struct {
	siteEvents []SiteEventRow
	outcomes   []ConversionOutcomeRow
	siteErr    error
	outcomeErr error
}

func (f *fakeRowWriter) InsertSiteEvent(_ context.Context, row SiteEventRow) error {
	if f.siteErr != nil {
		return f.siteErr
	}
	f.siteEvents = append(f.siteEvents, row)
	return nil
}

func (f *fakeRowWriter) InsertConversionOutcome(_ context.Context, row ConversionOutcomeRow) error {
	if f.outcomeErr != nil {
		return f.outcomeErr
	}
	f.outcomes = append(f.outcomes, row)
	return nil
}

func TestHandlePageView(t *testing.T) {
	writer := &fakeRowWriter{}
	handler, err := NewRowHandler(writer)
	if err != nil {
		t.Fatalf("NewRowHandler: %v", err)
	}

	payload, _ := json.Marshal(PageViewEvent{
		Path:      "/communities/aspen-grove",
		UTMSource: ptr("google"),
	})
	envelope := Envelope{
		EventID:    uuid.NewString(),
		EventType:  enums.SiteEventPageView,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	if err := handler.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.siteEvents) != 1 {
		t.Fatalf("expected one site event row, got %d", len(writer.siteEvents))
	}
	row := writer.siteEvents[0]
	if row.Path == nil || *row.Path != "/communities/aspen-grove" {
		t.Fatalf("unexpected path %v", row.Path)
	}
	if row.UTMSource == nil || *row.UTMSource != "google" {
		t.Fatalf("unexpected utm source %v", row.UTMSource)
	}
	if len(writer.outcomes) != 0 {
		t.Fatalf("page view should not produce outcome rows")
	}
}

func TestHandleConversionDispatchedFansOutOutcomes(t *testing.T) {
	writer := &fakeRowWriter{}
	handler, err := NewRowHandler(writer)
	if err != nil {
		t.Fatalf("NewRowHandler: %v", err)
	}

	dispatched := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	payload, _ := json.Marshal(ConversionDispatchedEvent{
		LeadID:        uuid.NewString(),
		TransactionID: "txn-123",
		LeadType:      "lead_submit",
		Value:         "50",
		Currency:      "USD",
		DispatchedAt:  dispatched,
		Outcomes: []PlatformOutcome{
			{Platform: "google_ads", Success: true},
			{Platform: "meta", Success: false, Error: "credentials not configured"},
		},
	})
	envelope := Envelope{
		EventID:    uuid.NewString(),
		EventType:  enums.SiteEventConversionDispatched,
		OccurredAt: dispatched,
		Payload:    payload,
	}

	if err := handler.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.siteEvents) != 1 {
		t.Fatalf("expected one site event row, got %d", len(writer.siteEvents))
	}
	if len(writer.outcomes) != 2 {
		t.Fatalf("expected two outcome rows, got %d", len(writer.outcomes))
	}

	google := writer.outcomes[0]
	if google.Platform != "google_ads" || !google.Success {
		t.Fatalf("unexpected google outcome %+v", google)
	}
	if google.TransactionID != "txn-123" {
		t.Fatalf("unexpected transaction id %s", google.TransactionID)
	}
	if !google.DispatchedAt.Equal(dispatched) {
		t.Fatalf("unexpected dispatched at %v", google.DispatchedAt)
	}

	meta := writer.outcomes[1]
	if meta.Success {
		t.Fatal("expected meta outcome to be a failure")
	}
	if meta.Error == nil || *meta.Error != "credentials not configured" {
		t.Fatalf("unexpected meta error %v", meta.Error)
	}
}

func TestHandleSiteEventWriterError(t *testing.T) {
	writer := &fakeRowWriter{siteErr: context.DeadlineExceeded}
	handler, err := NewRowHandler(writer)
	if err != nil {
		t.Fatalf("NewRowHandler: %v", err)
	}

	envelope := Envelope{
		EventID:    uuid.NewString(),
		EventType:  enums.SiteEventFormView,
		OccurredAt: time.Now().UTC(),
		Payload:    json.RawMessage(`{"path":"/contact","form_id":"lead-form"}`),
	}
	if err := handler.Handle(context.Background(), envelope); err == nil {
		t.Fatal("expected writer error to surface")
	}
}

func ptr(s string) *string {
	return &s
}
