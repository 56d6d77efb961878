package analytics

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
)

// Envelope is the canonical site-event message carried over Pub/Sub. The
// payload shape depends on the event type; attributes duplicate the header
// fields so subscribers can filter without decoding the body.
type Envelope struct {
	EventID    string              `json:"event_id"`
	EventType  enums.SiteEventType `json:"event_type"`
	OccurredAt time.Time           `json:"occurred_at"`
	Payload    json.RawMessage     `json:"payload"`
}

// PayloadMap converts the raw payload to a map for keyed access.
func (e Envelope) PayloadMap() (map[string]any, error) {
	if len(bytes.TrimSpace(e.Payload)) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(e.Payload, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// PageViewEvent records one page render on the marketing site.
type PageViewEvent struct {
	Path          string  `json:"path"`
	Referrer      *string `json:"referrer,omitempty"`
	CommunitySlug *string `json:"community_slug,omitempty"`
	UTMSource     *string `json:"utm_source,omitempty"`
	UTMMedium     *string `json:"utm_medium,omitempty"`
	UTMCampaign   *string `json:"utm_campaign,omitempty"`
	SessionID     *string `json:"session_id,omitempty"`
}

// FormViewEvent records a lead form becoming visible to a visitor.
type FormViewEvent struct {
	Path          string  `json:"path"`
	FormID        string  `json:"form_id"`
	CommunitySlug *string `json:"community_slug,omitempty"`
	SessionID     *string `json:"session_id,omitempty"`
}

// LeadCapturedEvent is emitted after a lead row is durably saved. It carries
// no plaintext contact fields; analytics rows only record presence flags.
type LeadCapturedEvent struct {
	LeadID        string  `json:"lead_id"`
	TransactionID string  `json:"transaction_id"`
	LeadType      string  `json:"lead_type"`
	CommunityID   *string `json:"community_id,omitempty"`
	Value         string  `json:"value"`
	Currency      string  `json:"currency"`
	HasEmail      bool    `json:"has_email"`
	HasPhone      bool    `json:"has_phone"`
	SourceURL     *string `json:"source_url,omitempty"`
	UTMSource     *string `json:"utm_source,omitempty"`
	UTMMedium     *string `json:"utm_medium,omitempty"`
	UTMCampaign   *string `json:"utm_campaign,omitempty"`
}

// PlatformOutcome is the per-platform result bundled into a conversion
// dispatched event.
type PlatformOutcome struct {
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// ConversionDispatchedEvent is emitted once the fan-out to the ad platforms
// has settled, regardless of per-platform success.
type ConversionDispatchedEvent struct {
	LeadID        string            `json:"lead_id"`
	TransactionID string            `json:"transaction_id"`
	LeadType      string            `json:"lead_type"`
	Value         string            `json:"value"`
	Currency      string            `json:"currency"`
	DispatchedAt  time.Time         `json:"dispatched_at"`
	Outcomes      []PlatformOutcome `json:"outcomes"`
}
