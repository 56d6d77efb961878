package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sagebrookliving/sagebrook-backend/api/middleware"
	"github.com/sagebrookliving/sagebrook-backend/api/responses"
	"github.com/sagebrookliving/sagebrook-backend/api/validators"
	"github.com/sagebrookliving/sagebrook-backend/internal/blog"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pagination"
)

// ListPosts serves the public blog index.
func ListPosts(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListPublished(r.Context(), blog.PublicListInput{
			Tag:    strings.TrimSpace(r.URL.Query().Get("tag")),
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

// GetPost serves a published post by slug.
func GetPost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := svc.GetPublishedBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

type postCreateRequest struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title" validate:"required"`
	Excerpt  string   `json:"excerpt"`
	Body     string   `json:"body" validate:"required"`
	CoverURL string   `json:"cover_url"`
	Tags     []string `json:"tags"`
}

type postUpdateRequest struct {
	Title    *string  `json:"title"`
	Excerpt  *string  `json:"excerpt"`
	Body     *string  `json:"body"`
	CoverURL *string  `json:"cover_url"`
	Tags     []string `json:"tags"`
}

type postScheduleRequest struct {
	PublishAt time.Time `json:"publish_at" validate:"required"`
}

// AdminListPosts lists posts in any lifecycle state.
func AdminListPosts(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListAll(r.Context(), blog.AdminListInput{
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
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

// AdminCreatePost creates a draft owned by the authenticated editor.
func AdminCreatePost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body postCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Create(r.Context(), blog.CreateInput{
			Slug:     body.Slug,
			Title:    body.Title,
			Excerpt:  body.Excerpt,
			Body:     body.Body,
			CoverURL: body.CoverURL,
			Tags:     body.Tags,
			AuthorID: authorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, post)
	}
}

// AdminGetPost loads one post regardless of state.
func AdminGetPost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// AdminUpdatePost applies a partial edit.
func AdminUpdatePost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body postUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Update(r.Context(), id, blog.UpdateInput{
			Title:    body.Title,
			Excerpt:  body.Excerpt,
			Body:     body.Body,
			CoverURL: body.CoverURL,
			Tags:     body.Tags,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// AdminSchedulePost queues a draft for future publication.
func AdminSchedulePost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body postScheduleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Schedule(r.Context(), id, body.PublishAt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// AdminPublishPost publishes a post immediately.
func AdminPublishPost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.Publish(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// AdminArchivePost retires a post from the public site.
func AdminArchivePost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Archive(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "archived"})
	}
}
