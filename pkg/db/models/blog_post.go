package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
)

// BlogPost stores editorial content served on the public site.
type BlogPost struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Slug        string           `gorm:"type:text;not null;uniqueIndex"`
	Title       string           `gorm:"type:text;not null"`
	Excerpt     *string          `gorm:"type:text"`
	Body        string           `gorm:"type:text;not null"`
	CoverURL    *string          `gorm:"column:cover_url"`
	Tags        pq.StringArray   `gorm:"column:tags;type:text[]"`
	Status      enums.PostStatus `gorm:"column:status;type:post_status;not null;default:'draft'"`
	AuthorID    uuid.UUID        `gorm:"column:author_id;type:uuid;not null"`
	PublishAt   *time.Time       `gorm:"column:publish_at"`
	PublishedAt *time.Time       `gorm:"column:published_at"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
