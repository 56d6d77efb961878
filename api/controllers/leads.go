package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sagebrookliving/sagebrook-backend/api/middleware"
	"github.com/sagebrookliving/sagebrook-backend/api/responses"
	"github.com/sagebrookliving/sagebrook-backend/api/validators"
	"github.com/sagebrookliving/sagebrook-backend/internal/conversions"
	"github.com/sagebrookliving/sagebrook-backend/internal/leads"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

// leadSubmitRequest is the public lead form payload. The transaction id comes
// from the browser pixel so the server-side dispatch dedupes against it.
type leadSubmitRequest struct {
	TransactionID string `json:"transaction_id"`
	LeadType      string `json:"lead_type" validate:"required"`

	CommunityID   string `json:"community_id"`
	CommunityName string `json:"community_name"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`

	CareTypes []string `json:"care_types"`
	MoveInBy  string   `json:"move_in_by"`

	Value    string `json:"value"`
	Currency string `json:"currency"`

	SourceURL    string `json:"source_url"`
	AdTrackingOK bool   `json:"ad_tracking_ok"`

	GCLID  string `json:"gclid"`
	GBRAID string `json:"gbraid"`
	WBRAID string `json:"wbraid"`
	FBCLID string `json:"fbclid"`
	FBP    string `json:"fbp"`
	FBC    string `json:"fbc"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMTerm     string `json:"utm_term"`
	UTMContent  string `json:"utm_content"`
}

type leadSubmitResponse struct {
	LeadID        uuid.UUID `json:"lead_id"`
	TransactionID string    `json:"transaction_id"`
	Duplicate     bool      `json:"duplicate"`
	Dispatched    bool      `json:"dispatched"`
}

// SubmitLead handles the public lead capture form.
func SubmitLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "leads service unavailable"))
			return
		}

		var body leadSubmitRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildSubmitInput(r, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Duplicate {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, leadSubmitResponse{
			LeadID:        result.Lead.ID,
			TransactionID: result.Lead.TransactionID,
			Duplicate:     result.Duplicate,
			Dispatched:    result.Dispatched,
		})
	}
}

func buildSubmitInput(r *http.Request, body leadSubmitRequest) (leads.SubmitInput, error) {
	leadType, err := enums.ParseLeadType(body.LeadType)
	if err != nil {
		return leads.SubmitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid lead type")
	}

	input := leads.SubmitInput{
		TransactionID:   body.TransactionID,
		LeadType:        leadType,
		CommunityName:   body.CommunityName,
		FirstName:       body.FirstName,
		LastName:        body.LastName,
		Email:           body.Email,
		Phone:           body.Phone,
		Message:         body.Message,
		CareTypes:       body.CareTypes,
		Currency:        body.Currency,
		SourceURL:       body.SourceURL,
		ClientIP:        middleware.ClientIP(r),
		ClientUserAgent: r.UserAgent(),
		AdTrackingOK:    body.AdTrackingOK,
		Tracking: conversions.Tracking{
			GCLID:       body.GCLID,
			GBRAID:      body.GBRAID,
			WBRAID:      body.WBRAID,
			FBCLID:      body.FBCLID,
			FBP:         body.FBP,
			FBC:         body.FBC,
			UTMSource:   body.UTMSource,
			UTMMedium:   body.UTMMedium,
			UTMCampaign: body.UTMCampaign,
			UTMTerm:     body.UTMTerm,
			UTMContent:  body.UTMContent,
		},
	}

	if body.CommunityID != "" {
		communityID, err := uuid.Parse(body.CommunityID)
		if err != nil {
			return leads.SubmitInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid community id")
		}
		input.CommunityID = &communityID
	}
	if body.MoveInBy != "" {
		moveIn, err := time.Parse("2006-01-02", body.MoveInBy)
		if err != nil {
			return leads.SubmitInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "move_in_by must be YYYY-MM-DD")
		}
		input.MoveInBy = &moveIn
	}
	if body.Value != "" {
		value, err := decimal.NewFromString(body.Value)
		if err != nil {
			return leads.SubmitInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "value must be a decimal string")
		}
		input.Value = &value
	}
	return input, nil
}
