package conversions

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
)

// Tracking is the browser-collected ad metadata bundled with a submission.
// All fields are optional; they only improve platform-side match rates.
type Tracking struct {
	GCLID  string
	GBRAID string
	WBRAID string
	FBCLID string

	FBP string
	FBC string

	ClientUserAgent string
	ClientIPAddress string
	EventSourceURL  string

	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMTerm     string
	UTMContent  string
}

// ConversionPayload is the unit of work dispatched to both ad platforms.
// TransactionID doubles as the deduplication key shared with any client-side
// pixel fire for the same logical conversion. The payload is treated as
// immutable once built; adapters read it but never mutate it.
type ConversionPayload struct {
	TransactionID string
	LeadType      enums.LeadType
	Value         decimal.Decimal
	Currency      enums.Currency

	Email string
	Phone string

	CommunityID   *uuid.UUID
	CommunityName string
	CareType      string

	Tracking Tracking
}

// BuildInput carries everything the submission handler knows when the lead is
// durably saved and the conversion should be reported.
type BuildInput struct {
	TransactionID string
	LeadType      enums.LeadType
	Value         decimal.Decimal
	Currency      enums.Currency

	Email string
	Phone string

	CommunityID   *uuid.UUID
	CommunityName string
	CareType      string

	Tracking Tracking
}

// BuildPayload assembles and validates a ConversionPayload. A transaction id
// supplied by the caller is kept verbatim for dedup continuity with the
// browser pixel; one is generated only when the caller had none.
func BuildPayload(in BuildInput) (ConversionPayload, error) {
	payload := ConversionPayload{
		TransactionID: strings.TrimSpace(in.TransactionID),
		LeadType:      in.LeadType,
		Value:         in.Value,
		Currency:      in.Currency,
		Email:         in.Email,
		Phone:         in.Phone,
		CommunityID:   in.CommunityID,
		CommunityName: in.CommunityName,
		CareType:      in.CareType,
		Tracking:      in.Tracking,
	}
	if payload.TransactionID == "" {
		payload.TransactionID = uuid.NewString()
	}

	if err := payload.Validate(); err != nil {
		return ConversionPayload{}, err
	}
	return payload, nil
}

// Validate rejects payloads missing any mandatory field before any adapter
// network call can happen.
func (p ConversionPayload) Validate() error {
	if strings.TrimSpace(p.TransactionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversion payload requires a transaction id")
	}
	if !p.LeadType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversion payload requires a valid lead type")
	}
	if p.Value.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversion payload requires a positive value")
	}
	if !p.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "conversion payload requires a valid currency")
	}
	return nil
}

// Redacted returns log-safe fields for the payload with no plaintext PII.
func (p ConversionPayload) Redacted() map[string]any {
	return map[string]any{
		"transaction_id": p.TransactionID,
		"lead_type":      p.LeadType.String(),
		"value":          p.Value.String(),
		"currency":       p.Currency.String(),
		"has_email":      p.Email != "",
		"has_phone":      p.Phone != "",
		"has_gclid":      p.Tracking.GCLID != "",
		"has_fbclid":     p.Tracking.FBCLID != "",
		"community_name": p.CommunityName,
	}
}
