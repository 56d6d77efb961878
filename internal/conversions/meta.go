package conversions

import (
	"context"
	"time"

	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
	"github.com/sagebrookliving/sagebrook-backend/pkg/metacapi"
)

// serverEventSender is the transport surface the Meta adapter needs.
type serverEventSender interface {
	SendEvent(ctx context.Context, event metacapi.ServerEvent) (*metacapi.SendResult, error)
}

// MetaAdapter translates payloads into Meta Conversions API server events.
type MetaAdapter struct {
	cfg                config.MetaConversionsConfig
	sender             serverEventSender
	defaultCountryCode string
	logger             *logger.Logger
	now                func() time.Time
}

// NewMetaAdapter wires the adapter. The sender may be nil when the
// environment has no Meta credentials; Dispatch then reports the
// configuration condition without touching the network.
func NewMetaAdapter(cfg config.MetaConversionsConfig, sender serverEventSender, conv config.ConversionsConfig, logg *logger.Logger) *MetaAdapter {
	return &MetaAdapter{
		cfg:                cfg,
		sender:             sender,
		defaultCountryCode: conv.DefaultCountryCode,
		logger:             logg,
		now:                time.Now,
	}
}

func (a *MetaAdapter) Name() string { return "meta" }

// Dispatch sends one server event. The transaction id becomes the event id,
// which is what lets Meta dedupe against a client-fired pixel using the same
// id. The event timestamp is dispatch time, not form-submission time;
// dispatch runs synchronously after persistence so the delta is negligible.
func (a *MetaAdapter) Dispatch(ctx context.Context, payload ConversionPayload) DispatchResult {
	if !a.cfg.Configured() || a.sender == nil {
		if a.logger != nil {
			a.logger.Debug(ctx, "meta credentials not configured, skipping dispatch")
		}
		return failure(ErrCredentialsNotConfigured)
	}

	event := metacapi.ServerEvent{
		EventName:      metaEventName(payload.LeadType),
		EventTime:      a.now(),
		EventID:        payload.TransactionID,
		EventSourceURL: payload.Tracking.EventSourceURL,
		User: metacapi.UserData{
			HashedEmail:     HashIdentifier(payload.Email),
			HashedPhone:     HashPhone(payload.Phone, a.defaultCountryCode),
			FBP:             payload.Tracking.FBP,
			FBC:             payload.Tracking.FBC,
			ClientIP:        payload.Tracking.ClientIPAddress,
			ClientUserAgent: payload.Tracking.ClientUserAgent,
		},
		Custom: metacapi.CustomData{
			Value:           payload.Value.InexactFloat64(),
			Currency:        payload.Currency.String(),
			ContentName:     payload.CommunityName,
			ContentCategory: payload.CareType,
		},
	}

	if _, err := a.sender.SendEvent(ctx, event); err != nil {
		return failure(err.Error())
	}
	return success()
}

// metaEventName maps the lead type onto Meta's standard event vocabulary.
func metaEventName(leadType enums.LeadType) string {
	switch leadType {
	case enums.LeadTypeScheduleTour:
		return "Schedule"
	case enums.LeadTypeBookingConfirmed:
		return "Purchase"
	default:
		return "Lead"
	}
}
