package conversions

import (
	"context"
	"fmt"
	"time"

	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/googleads"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

// clickConversionUploader is the transport surface the Google adapter needs.
type clickConversionUploader interface {
	UploadClickConversion(ctx context.Context, conv googleads.ClickConversion) (*googleads.UploadResult, error)
}

// GoogleAdapter translates payloads into Google Ads click-conversion uploads.
type GoogleAdapter struct {
	cfg                config.GoogleAdsConfig
	uploader           clickConversionUploader
	defaultCountryCode string
	logger             *logger.Logger
	now                func() time.Time
}

// NewGoogleAdapter wires the adapter. The uploader may be nil when the
// environment has no Google Ads credentials; Dispatch then reports the
// configuration condition without touching the network.
func NewGoogleAdapter(cfg config.GoogleAdsConfig, uploader clickConversionUploader, conv config.ConversionsConfig, logg *logger.Logger) *GoogleAdapter {
	return &GoogleAdapter{
		cfg:                cfg,
		uploader:           uploader,
		defaultCountryCode: conv.DefaultCountryCode,
		logger:             logg,
		now:                time.Now,
	}
}

func (a *GoogleAdapter) Name() string { return "google_ads" }

// Dispatch uploads one click conversion. The transaction id rides along as
// the order id, which is Google's dedup key against the browser-side tag.
func (a *GoogleAdapter) Dispatch(ctx context.Context, payload ConversionPayload) DispatchResult {
	if !a.cfg.Configured() || a.uploader == nil {
		if a.logger != nil {
			a.logger.Debug(ctx, "google ads credentials not configured, skipping dispatch")
		}
		return failure(ErrCredentialsNotConfigured)
	}

	conv := googleads.ClickConversion{
		GCLID:              payload.Tracking.GCLID,
		GBRAID:             payload.Tracking.GBRAID,
		WBRAID:             payload.Tracking.WBRAID,
		OrderID:            payload.TransactionID,
		ConversionDateTime: a.now(),
		Value:              payload.Value.InexactFloat64(),
		CurrencyCode:       payload.Currency.String(),
		HashedEmail:        HashIdentifier(payload.Email),
		HashedPhoneNumber:  HashPhone(payload.Phone, a.defaultCountryCode),
	}

	result, err := a.uploader.UploadClickConversion(ctx, conv)
	if err != nil {
		return failure(err.Error())
	}
	if result != nil && result.PartialFailure {
		return failure(fmt.Sprintf("partial failure: %s", result.PartialFailureError))
	}
	return success()
}
