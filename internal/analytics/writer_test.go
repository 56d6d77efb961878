package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	pkgbigquery "github.com/sagebrookliving/sagebrook-backend/pkg/bigquery"
)

func TestNewWriterValidation(t *testing.T) {
	if _, err := NewWriter(nil, WriterConfig{}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := NewWriter(&pkgbigquery.Client{}, WriterConfig{SiteEventsTable: " ", ConversionOutcomesTable: "conversion_outcomes"}); err == nil {
		t.Fatal("expected error when site events table missing")
	}
	if _, err := NewWriter(&pkgbigquery.Client{}, WriterConfig{SiteEventsTable: "site_events", ConversionOutcomesTable: " "}); err == nil {
		t.Fatal("expected error when outcomes table missing")
	}
}

func TestEncodeJSON(t *testing.T) {
	raw := map[string]any{"foo": "bar"}
	nj, err := EncodeJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error encoding json: %v", err)
	}
	if !nj.Valid {
		t.Fatal("expected json to be marked valid")
	}

	nj, err = EncodeJSON(nil)
	if err != nil {
		t.Fatalf("unexpected error for nil json: %v", err)
	}
	if nj.Valid {
		t.Fatal("expected nil json to be invalid")
	}

	rawMessage := json.RawMessage(`{"foo":"baz"}`)
	nj, err = EncodeJSON(rawMessage)
	if err != nil {
		t.Fatalf("unexpected error encoding raw json: %v", err)
	}
	if nj.JSONVal != string(rawMessage) {
		t.Fatalf("expected raw json passed through, got %s", nj.JSONVal)
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.InsertSiteEvent(context.Background(), SiteEventRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != writer.siteEventsTable {
		t.Fatalf("expected site events table on retry, got %s", fake.calls[1].table)
	}
	if len(writer.siteEventBuffer) != 0 {
		t.Fatal("expected buffer to be empty after success")
	}
}

func TestWriterStopsWhenContextCancelled(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := writer.InsertSiteEvent(ctx, SiteEventRow{EventID: "1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no insert attempts after cancellation, got %d", len(fake.calls))
	}
}

func TestWriterPermanentErrorNotRetried(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusBadRequest},
	}

	if err := writer.InsertSiteEvent(context.Background(), SiteEventRow{EventID: "1"}); err == nil {
		t.Fatal("expected permanent error to surface")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single attempt, got %d", len(fake.calls))
	}
}

func TestWriterBatching(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 2

	if err := writer.InsertConversionOutcome(context.Background(), ConversionOutcomeRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error on first insert: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no insert before batch full, got %d", len(fake.calls))
	}

	if err := writer.InsertConversionOutcome(context.Background(), ConversionOutcomeRow{EventID: "2"}); err != nil {
		t.Fatalf("unexpected error on second insert: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected single insert after batch flush, got %d", len(fake.calls))
	}
	if fake.calls[0].rowCount != 2 {
		t.Fatalf("expected two rows inserted, got %d", fake.calls[0].rowCount)
	}
	if fake.calls[0].table != writer.conversionOutcomesTable {
		t.Fatalf("expected outcomes table, got %s", fake.calls[0].table)
	}
}

func TestWriterFlush(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 10
	if err := writer.InsertSiteEvent(context.Background(), SiteEventRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	if err := writer.InsertConversionOutcome(context.Background(), ConversionOutcomeRow{EventID: "1"}); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected flush to insert both tables, got %d", len(fake.calls))
	}
}

type insertCall struct {
	table    string
	rowCount int
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
	index     int
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rowCount: len(rows)})
	var err error
	if f.index < len(f.responses) {
		err = f.responses[f.index]
	}
	f.index++
	return err
}

func newWriterWithFakeInserter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{}
	writer, err := newWriter(fake, WriterConfig{
		SiteEventsTable:         "site_events",
		ConversionOutcomesTable: "conversion_outcomes",
	})
	if err != nil {
		t.Fatalf("construct writer: %v", err)
	}
	return writer, fake
}
