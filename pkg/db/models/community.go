package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sagebrookliving/sagebrook-backend/pkg/types"
)

// Community represents a senior living location presented on the site.
type Community struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Slug          string         `gorm:"type:text;not null;uniqueIndex"`
	Name          string         `gorm:"type:text;not null"`
	Tagline       *string        `gorm:"type:text"`
	Description   *string        `gorm:"type:text"`
	Phone         *string        `gorm:"type:text"`
	Email         *string        `gorm:"type:text"`
	Address       types.Address  `gorm:"column:address;type:jsonb;not null;default:'{}'"`
	CareTypes     pq.StringArray `gorm:"column:care_types;type:text[]"`
	Amenities     pq.StringArray `gorm:"column:amenities;type:text[]"`
	HeroImageURL  *string        `gorm:"column:hero_image_url"`
	StartingPrice *int           `gorm:"column:starting_price"`
	IsPublished   bool           `gorm:"column:is_published;not null;default:false"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
