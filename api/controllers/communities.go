package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sagebrookliving/sagebrook-backend/api/responses"
	"github.com/sagebrookliving/sagebrook-backend/api/validators"
	"github.com/sagebrookliving/sagebrook-backend/internal/communities"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pagination"
	"github.com/sagebrookliving/sagebrook-backend/pkg/types"
)

// ListCommunities serves the public community directory.
func ListCommunities(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListPublished(r.Context(), communities.PublicListInput{
			CareType: strings.TrimSpace(r.URL.Query().Get("care_type")),
			Cursor:   strings.TrimSpace(r.URL.Query().Get("cursor")),
			Limit:    limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetCommunity serves the public community detail page by slug.
func GetCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		community, err := svc.GetPublishedBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, community)
	}
}

type communityCreateRequest struct {
	Slug          string        `json:"slug"`
	Name          string        `json:"name" validate:"required"`
	Tagline       string        `json:"tagline"`
	Description   string        `json:"description"`
	Phone         string        `json:"phone"`
	Email         string        `json:"email"`
	Address       types.Address `json:"address"`
	CareTypes     []string      `json:"care_types"`
	Amenities     []string      `json:"amenities"`
	HeroImageURL  string        `json:"hero_image_url"`
	StartingPrice *int          `json:"starting_price"`
}

type communityUpdateRequest struct {
	Name          *string        `json:"name"`
	Tagline       *string        `json:"tagline"`
	Description   *string        `json:"description"`
	Phone         *string        `json:"phone"`
	Email         *string        `json:"email"`
	Address       *types.Address `json:"address"`
	CareTypes     []string       `json:"care_types"`
	Amenities     []string       `json:"amenities"`
	HeroImageURL  *string        `json:"hero_image_url"`
	StartingPrice *int           `json:"starting_price"`
}

type publishRequest struct {
	Published bool `json:"published"`
}

// AdminListCommunities lists every community for the staff console.
func AdminListCommunities(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListAll(r.Context(), communities.AdminListInput{
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			Limit:  limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminCreateCommunity creates a new community draft.
func AdminCreateCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body communityCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		community, err := svc.Create(r.Context(), communities.CreateInput{
			Slug:          body.Slug,
			Name:          body.Name,
			Tagline:       body.Tagline,
			Description:   body.Description,
			Phone:         body.Phone,
			Email:         body.Email,
			Address:       body.Address,
			CareTypes:     body.CareTypes,
			Amenities:     body.Amenities,
			HeroImageURL:  body.HeroImageURL,
			StartingPrice: body.StartingPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, community)
	}
}

// AdminUpdateCommunity applies a partial update.
func AdminUpdateCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body communityUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		community, err := svc.Update(r.Context(), id, communities.UpdateInput{
			Name:          body.Name,
			Tagline:       body.Tagline,
			Description:   body.Description,
			Phone:         body.Phone,
			Email:         body.Email,
			Address:       body.Address,
			CareTypes:     body.CareTypes,
			Amenities:     body.Amenities,
			HeroImageURL:  body.HeroImageURL,
			StartingPrice: body.StartingPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, community)
	}
}

// AdminGetCommunity loads one community regardless of publish state.
func AdminGetCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		community, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, community)
	}
}

// AdminPublishCommunity flips the publish state.
func AdminPublishCommunity(svc communities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "communityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body publishRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetPublished(r.Context(), id, body.Published); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"published": body.Published})
	}
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier")
	}
	return id, nil
}
