package controllers

import (
	"net/http"

	"github.com/sagebrookliving/sagebrook-backend/api/responses"
	"github.com/sagebrookliving/sagebrook-backend/api/validators"
	"github.com/sagebrookliving/sagebrook-backend/internal/analytics"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

type trackEventRequest struct {
	EventType     string `json:"event_type" validate:"required"`
	CommunitySlug string `json:"community_slug"`
	Path          string `json:"path"`
	Referrer      string `json:"referrer"`
	FormID        string `json:"form_id"`
	SessionID     string `json:"session_id"`
	UTMSource     string `json:"utm_source"`
	UTMMedium     string `json:"utm_medium"`
	UTMCampaign   string `json:"utm_campaign"`
}

type trackEventResponse struct {
	EventID string `json:"event_id"`
}

// TrackSiteEvent accepts page_view and form_view beacons from the public
// site and forwards them to the analytics stream. Lead lifecycle events are
// published server side and rejected here.
func TrackSiteEvent(publisher *analytics.Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if publisher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics publisher unavailable"))
			return
		}

		var body trackEventRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventType, err := enums.ParseSiteEventType(body.EventType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid event type"))
			return
		}

		var payload any
		switch eventType {
		case enums.SiteEventPageView:
			payload = analytics.PageViewEvent{
				Path:          body.Path,
				Referrer:      optionalField(body.Referrer),
				CommunitySlug: optionalField(body.CommunitySlug),
				UTMSource:     optionalField(body.UTMSource),
				UTMMedium:     optionalField(body.UTMMedium),
				UTMCampaign:   optionalField(body.UTMCampaign),
				SessionID:     optionalField(body.SessionID),
			}
		case enums.SiteEventFormView:
			payload = analytics.FormViewEvent{
				Path:          body.Path,
				FormID:        body.FormID,
				CommunitySlug: optionalField(body.CommunitySlug),
				SessionID:     optionalField(body.SessionID),
			}
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event type not accepted from the browser"))
			return
		}

		eventID, err := publisher.PublishSiteEvent(r.Context(), eventType, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, trackEventResponse{EventID: eventID})
	}
}

func optionalField(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
