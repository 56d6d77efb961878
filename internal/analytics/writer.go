package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgbigquery "github.com/sagebrookliving/sagebrook-backend/pkg/bigquery"
)

const (
	defaultBatchSize      = 1
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

// WriterConfig controls the analytics writer behavior.
type WriterConfig struct {
	SiteEventsTable         string
	ConversionOutcomesTable string
	BatchSize               int
	RetryPolicy             RetryPolicy
}

// RetryPolicy controls how many times BigQuery inserts are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter inserts analytics rows into BigQuery with retries and
// optional batching.
type BigQueryWriter struct {
	client                  tableInserter
	siteEventsTable         string
	conversionOutcomesTable string
	batchSize               int
	retry                   RetryPolicy

	siteEventBuffer []SiteEventRow
	outcomeBuffer   []ConversionOutcomeRow
}

// NewWriter creates a BigQueryWriter backed by a shared client.
func NewWriter(client *pkgbigquery.Client, cfg WriterConfig) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	return newWriter(client, cfg)
}

func newWriter(client tableInserter, cfg WriterConfig) (*BigQueryWriter, error) {
	events := strings.TrimSpace(cfg.SiteEventsTable)
	if events == "" {
		return nil, errors.New("site events table is required")
	}
	outcomes := strings.TrimSpace(cfg.ConversionOutcomesTable)
	if outcomes == "" {
		return nil, errors.New("conversion outcomes table is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	retry := cfg.RetryPolicy
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultMaxAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = defaultInitialBackoff
	}
	if retry.MaximumBackoff <= 0 {
		retry.MaximumBackoff = defaultMaximumBackoff
	}
	if retry.MaximumBackoff < retry.InitialBackoff {
		retry.MaximumBackoff = retry.InitialBackoff
	}

	return &BigQueryWriter{
		client:                  client,
		siteEventsTable:         events,
		conversionOutcomesTable: outcomes,
		batchSize:               batchSize,
		retry:                   retry,
	}, nil
}

// InsertSiteEvent writes a single site event row (flushes when batch size reached).
func (w *BigQueryWriter) InsertSiteEvent(ctx context.Context, row SiteEventRow) error {
	w.siteEventBuffer = append(w.siteEventBuffer, row)
	if len(w.siteEventBuffer) >= w.batchSize {
		return w.flushSiteEvents(ctx)
	}
	return nil
}

// InsertConversionOutcome writes a single outcome row (flushes when batch size reached).
func (w *BigQueryWriter) InsertConversionOutcome(ctx context.Context, row ConversionOutcomeRow) error {
	w.outcomeBuffer = append(w.outcomeBuffer, row)
	if len(w.outcomeBuffer) >= w.batchSize {
		return w.flushOutcomes(ctx)
	}
	return nil
}

// Flush writes any buffered rows immediately.
func (w *BigQueryWriter) Flush(ctx context.Context) error {
	if err := w.flushSiteEvents(ctx); err != nil {
		return err
	}
	return w.flushOutcomes(ctx)
}

func (w *BigQueryWriter) flushSiteEvents(ctx context.Context) error {
	if len(w.siteEventBuffer) == 0 {
		return nil
	}
	rows := make([]any, len(w.siteEventBuffer))
	for i := range w.siteEventBuffer {
		rows[i] = &w.siteEventBuffer[i]
	}

	if err := w.insertWithRetry(ctx, w.siteEventsTable, rows); err != nil {
		return err
	}
	w.siteEventBuffer = w.siteEventBuffer[:0]
	return nil
}

func (w *BigQueryWriter) flushOutcomes(ctx context.Context) error {
	if len(w.outcomeBuffer) == 0 {
		return nil
	}
	rows := make([]any, len(w.outcomeBuffer))
	for i := range w.outcomeBuffer {
		rows[i] = &w.outcomeBuffer[i]
	}

	if err := w.insertWithRetry(ctx, w.conversionOutcomesTable, rows); err != nil {
		return err
	}
	w.outcomeBuffer = w.outcomeBuffer[:0]
	return nil
}

func (w *BigQueryWriter) insertWithRetry(ctx context.Context, table string, rows []any) error {
	if len(rows) == 0 {
		return nil
	}

	attempts := 0
	backoff := w.retry.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := w.client.InsertRows(ctx, table, rows)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= w.retry.MaxAttempts || !isRetryableBigQueryError(err) {
			return fmt.Errorf("insert %s rows: %w", table, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		timer.Stop()

		backoff = minDuration(backoff*2, w.retry.MaximumBackoff)
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}

	var multi *cbigquery.MultiError
	if errors.As(err, &multi) {
		if multi == nil || len(*multi) == 0 {
			return false
		}
		for _, inner := range *multi {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var pme *cbigquery.PutMultiError
	if errors.As(err, &pme) {
		if pme == nil || len(*pme) == 0 {
			return false
		}
		for _, rowErr := range *pme {
			if !isRetryableBigQueryError(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var rowErr *cbigquery.RowInsertionError
	if errors.As(err, &rowErr) {
		if rowErr == nil || len(rowErr.Errors) == 0 {
			return false
		}
		for _, inner := range rowErr.Errors {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return isRetryableHTTPCode(apiErr.Code)
	}

	var statusErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &statusErr) {
		if st := statusErr.GRPCStatus(); st != nil {
			return isRetryableGRPCCode(st.Code())
		}
	}

	return false
}

func isRetryableHTTPCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isRetryableGRPCCode(code codes.Code) bool {
	switch code {
	case codes.Aborted,
		codes.DeadlineExceeded,
		codes.Internal,
		codes.ResourceExhausted,
		codes.Unavailable:
		return true
	default:
		return false
	}
}

// EncodeJSON serializes the provided payload so it can be stored in BigQuery
// JSON columns.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	case []byte:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	}

	marshaled, err := json.Marshal(payload)
	if err != nil {
		return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
	}
	if len(marshaled) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(marshaled)}, nil
}
