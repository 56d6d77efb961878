package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sagebrookliving/sagebrook-backend/api/responses"
	"github.com/sagebrookliving/sagebrook-backend/api/validators"
	"github.com/sagebrookliving/sagebrook-backend/internal/leads"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pagination"
)

type leadStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminListLeads lists captured leads with optional status, type, and
// community filters.
func AdminListLeads(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := leads.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseLeadStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("lead_type")); raw != "" {
			leadType, err := enums.ParseLeadType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid lead type filter"))
				return
			}
			params.LeadType = &leadType
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("community_id")); raw != "" {
			communityID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid community filter"))
				return
			}
			params.CommunityID = &communityID
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminGetLead loads a single lead with full detail.
func AdminGetLead(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lead, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}

// AdminUpdateLeadStatus moves a lead through the follow-up workflow.
func AdminUpdateLeadStatus(svc leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body leadStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseLeadStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid lead status"))
			return
		}

		if err := svc.UpdateStatus(r.Context(), id, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": status.String()})
	}
}
