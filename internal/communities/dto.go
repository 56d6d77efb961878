package communities

import (
	"time"

	"github.com/google/uuid"

	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/types"
)

// CommunityDTO is the representation returned to API callers.
type CommunityDTO struct {
	ID            uuid.UUID     `json:"id"`
	Slug          string        `json:"slug"`
	Name          string        `json:"name"`
	Tagline       *string       `json:"tagline,omitempty"`
	Description   *string       `json:"description,omitempty"`
	Phone         *string       `json:"phone,omitempty"`
	Email         *string       `json:"email,omitempty"`
	Address       types.Address `json:"address"`
	CareTypes     []string      `json:"care_types"`
	Amenities     []string      `json:"amenities"`
	HeroImageURL  *string       `json:"hero_image_url,omitempty"`
	StartingPrice *int          `json:"starting_price,omitempty"`
	IsPublished   bool          `json:"is_published"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// FromModel maps a community row to its DTO.
func FromModel(community *models.Community) *CommunityDTO {
	if community == nil {
		return nil
	}
	return &CommunityDTO{
		ID:            community.ID,
		Slug:          community.Slug,
		Name:          community.Name,
		Tagline:       community.Tagline,
		Description:   community.Description,
		Phone:         community.Phone,
		Email:         community.Email,
		Address:       community.Address,
		CareTypes:     community.CareTypes,
		Amenities:     community.Amenities,
		HeroImageURL:  community.HeroImageURL,
		StartingPrice: community.StartingPrice,
		IsPublished:   community.IsPublished,
		CreatedAt:     community.CreatedAt,
		UpdatedAt:     community.UpdatedAt,
	}
}

// FromModels maps a page of community rows.
func FromModels(rows []models.Community) []*CommunityDTO {
	out := make([]*CommunityDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
