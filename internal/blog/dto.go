package blog

import (
	"time"

	"github.com/google/uuid"

	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
)

// PostDTO is the representation returned to API callers.
type PostDTO struct {
	ID          uuid.UUID        `json:"id"`
	Slug        string           `json:"slug"`
	Title       string           `json:"title"`
	Excerpt     *string          `json:"excerpt,omitempty"`
	Body        string           `json:"body"`
	CoverURL    *string          `json:"cover_url,omitempty"`
	Tags        []string         `json:"tags"`
	Status      enums.PostStatus `json:"status"`
	AuthorID    uuid.UUID        `json:"author_id"`
	PublishAt   *time.Time       `json:"publish_at,omitempty"`
	PublishedAt *time.Time       `json:"published_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// FromModel maps a blog post row to its DTO.
func FromModel(post *models.BlogPost) *PostDTO {
	if post == nil {
		return nil
	}
	return &PostDTO{
		ID:          post.ID,
		Slug:        post.Slug,
		Title:       post.Title,
		Excerpt:     post.Excerpt,
		Body:        post.Body,
		CoverURL:    post.CoverURL,
		Tags:        post.Tags,
		Status:      post.Status,
		AuthorID:    post.AuthorID,
		PublishAt:   post.PublishAt,
		PublishedAt: post.PublishedAt,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}
}

// FromModels maps a page of blog post rows.
func FromModels(rows []models.BlogPost) []*PostDTO {
	out := make([]*PostDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
