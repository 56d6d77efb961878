package analytics

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// SiteEventRow mirrors the site_events BigQuery schema.
type SiteEventRow struct {
	EventID     string             `bigquery:"event_id"`
	EventType   string             `bigquery:"event_type"`
	OccurredAt  time.Time          `bigquery:"occurred_at"`
	CommunityID *string            `bigquery:"community_id"`
	Path        *string            `bigquery:"path"`
	UTMSource   *string            `bigquery:"utm_source"`
	UTMMedium   *string            `bigquery:"utm_medium"`
	UTMCampaign *string            `bigquery:"utm_campaign"`
	Payload     cbigquery.NullJSON `bigquery:"payload"`
	ReceivedAt  time.Time          `bigquery:"received_at"`
}

// ConversionOutcomeRow mirrors the conversion_outcomes BigQuery schema. One
// row is written per platform per dispatch, keyed by transaction id so the
// audit trail lines up with platform-side dedup.
type ConversionOutcomeRow struct {
	EventID       string    `bigquery:"event_id"`
	TransactionID string    `bigquery:"transaction_id"`
	LeadID        *string   `bigquery:"lead_id"`
	LeadType      string    `bigquery:"lead_type"`
	Platform      string    `bigquery:"platform"`
	Success       bool      `bigquery:"success"`
	Error         *string   `bigquery:"error"`
	Value         *string   `bigquery:"value"`
	Currency      *string   `bigquery:"currency"`
	DispatchedAt  time.Time `bigquery:"dispatched_at"`
	ReceivedAt    time.Time `bigquery:"received_at"`
}
