package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
)

// Lead is an inbound prospect captured from a site form or call click.
// PII columns are nulled by the retention scrub once the lead ages out.
type Lead struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID string         `gorm:"column:transaction_id;type:text;not null;uniqueIndex"`
	LeadType      enums.LeadType `gorm:"column:lead_type;type:lead_type;not null"`
	CommunityID   *uuid.UUID     `gorm:"column:community_id;type:uuid"`

	FirstName *string `gorm:"column:first_name"`
	LastName  *string `gorm:"column:last_name"`
	Email     *string `gorm:"column:email"`
	Phone     *string `gorm:"column:phone"`
	Message   *string `gorm:"column:message"`

	CareTypes pq.StringArray `gorm:"column:care_types;type:text[]"`
	MoveInBy  *time.Time     `gorm:"column:move_in_by"`

	Value    decimal.Decimal `gorm:"column:value;type:numeric(12,2);not null"`
	Currency enums.Currency  `gorm:"column:currency;type:text;not null;default:'USD'"`

	SourceURL       *string `gorm:"column:source_url"`
	ClientIP        *string `gorm:"column:client_ip"`
	ClientUserAgent *string `gorm:"column:client_user_agent"`
	FBP             *string `gorm:"column:fbp"`
	FBC             *string `gorm:"column:fbc"`
	AdTrackingOK    bool    `gorm:"column:ad_tracking_ok;not null;default:true"`

	Status       enums.LeadStatus `gorm:"column:status;type:lead_status;not null;default:'new'"`
	DispatchedAt *time.Time       `gorm:"column:dispatched_at"`
	ScrubbedAt   *time.Time       `gorm:"column:scrubbed_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
