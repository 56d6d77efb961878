package conversions

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	"github.com/sagebrookliving/sagebrook-backend/pkg/googleads"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

type fakeUploader struct {
	calls  []googleads.ClickConversion
	result *googleads.UploadResult
	err    error
}

func (f *fakeUploader) UploadClickConversion(ctx context.Context, conv googleads.ClickConversion) (*googleads.UploadResult, error) {
	f.calls = append(f.calls, conv)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &googleads.UploadResult{Accepted: 1}, nil
}

func configuredGoogleAds() config.GoogleAdsConfig {
	return config.GoogleAdsConfig{
		DeveloperToken:     "dev",
		CustomerID:         "123",
		ConversionActionID: "456",
		OAuthClientID:      "id",
		OAuthClientSecret:  "secret",
		OAuthRefreshToken:  "refresh",
	}
}

func testPayload() ConversionPayload {
	return ConversionPayload{
		TransactionID: "txn_1",
		LeadType:      enums.LeadTypeLeadSubmit,
		Value:         decimal.NewFromInt(50),
		Currency:      enums.CurrencyUSD,
		Email:         "A@Example.com ",
		Phone:         "(303) 555-0100",
		Tracking: Tracking{
			GCLID: "click-1",
		},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestGoogleAdapterSkipsWithoutCredentials(t *testing.T) {
	uploader := &fakeUploader{}
	adapter := NewGoogleAdapter(config.GoogleAdsConfig{}, uploader, config.ConversionsConfig{DefaultCountryCode: "1"}, testLogger())

	result := adapter.Dispatch(context.Background(), testPayload())
	if result.Success {
		t.Fatal("expected failure result")
	}
	if result.Error != ErrCredentialsNotConfigured {
		t.Fatalf("expected credentials message, got %q", result.Error)
	}
	if len(uploader.calls) != 0 {
		t.Fatal("expected no transport call without credentials")
	}
}

func TestGoogleAdapterSkipsWithoutUploader(t *testing.T) {
	adapter := NewGoogleAdapter(configuredGoogleAds(), nil, config.ConversionsConfig{DefaultCountryCode: "1"}, testLogger())

	result := adapter.Dispatch(context.Background(), testPayload())
	if result.Success {
		t.Fatal("expected failure result")
	}
	if result.Error != ErrCredentialsNotConfigured {
		t.Fatalf("expected credentials skip with nil uploader, got %q", result.Error)
	}
}

func TestGoogleAdapterHashesIdentifiersAndKeepsTransactionID(t *testing.T) {
	uploader := &fakeUploader{}
	adapter := NewGoogleAdapter(configuredGoogleAds(), uploader, config.ConversionsConfig{DefaultCountryCode: "1"}, testLogger())
	adapter.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

	result := adapter.Dispatch(context.Background(), testPayload())
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if len(uploader.calls) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(uploader.calls))
	}

	conv := uploader.calls[0]
	if conv.OrderID != "txn_1" {
		t.Fatalf("expected transaction id as order id, got %s", conv.OrderID)
	}
	if conv.GCLID != "click-1" {
		t.Fatalf("expected gclid passthrough, got %s", conv.GCLID)
	}
	if conv.HashedEmail != HashIdentifier("a@example.com") {
		t.Fatal("email was not normalized before hashing")
	}
	if conv.HashedPhoneNumber != HashPhone("3035550100", "1") {
		t.Fatal("phone was not normalized before hashing")
	}
	if conv.CurrencyCode != "USD" {
		t.Fatalf("unexpected currency %s", conv.CurrencyCode)
	}
}

func TestGoogleAdapterRepeatedDispatchHashesIdentically(t *testing.T) {
	uploader := &fakeUploader{}
	adapter := NewGoogleAdapter(configuredGoogleAds(), uploader, config.ConversionsConfig{DefaultCountryCode: "1"}, testLogger())

	payload := testPayload()
	adapter.Dispatch(context.Background(), payload)
	adapter.Dispatch(context.Background(), payload)

	if len(uploader.calls) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(uploader.calls))
	}
	if uploader.calls[0].HashedEmail != uploader.calls[1].HashedEmail {
		t.Fatal("repeated dispatch produced different email hashes")
	}
	if uploader.calls[0].HashedEmail != HashIdentifier("a@example.com") {
		t.Fatal("hash differs from normalized baseline")
	}
}

func TestGoogleAdapterTransportFailure(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("upstream unavailable")}
	adapter := NewGoogleAdapter(configuredGoogleAds(), uploader, config.ConversionsConfig{DefaultCountryCode: "1"}, testLogger())

	result := adapter.Dispatch(context.Background(), testPayload())
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error == "" || result.Error == ErrCredentialsNotConfigured {
		t.Fatalf("expected transport error message, got %q", result.Error)
	}
}

func TestGoogleAdapterPartialFailure(t *testing.T) {
	uploader := &fakeUploader{result: &googleads.UploadResult{PartialFailure: true, PartialFailureError: "bad action"}}
	adapter := NewGoogleAdapter(configuredGoogleAds(), uploader, config.ConversionsConfig{DefaultCountryCode: "1"}, testLogger())

	result := adapter.Dispatch(context.Background(), testPayload())
	if result.Success {
		t.Fatal("expected partial failure to surface as failure")
	}
}
