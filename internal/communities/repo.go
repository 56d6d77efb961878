package communities

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pagination"
)

// Repository defines persistence operations for community content.
type Repository interface {
	Create(ctx context.Context, community *models.Community) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
	GetBySlug(ctx context.Context, slug string) (*models.Community, error)
	List(ctx context.Context, params listCommunitiesParams) ([]models.Community, *pagination.Cursor, error)
	Update(ctx context.Context, community *models.Community) error
	SetPublished(ctx context.Context, id uuid.UUID, published bool, now time.Time) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

type listCommunitiesParams struct {
	PublishedOnly bool
	CareType      *enums.CareType
	Cursor        *pagination.Cursor
	Limit         int
}

// NewRepository builds a communities repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).Create(community).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	var community models.Community
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&community).Error
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *repositoryImpl) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&community).Error
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listCommunitiesParams) ([]models.Community, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Community{})
	if params.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if params.CareType != nil {
		query = query.Where("? = ANY(care_types)", params.CareType.String())
	}
	if params.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.Community
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	page, hasMore := pagination.TrimPage(rows, params.Limit)
	if !hasMore {
		return page, nil, nil
	}
	last := page[len(page)-1]
	return page, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

func (r *repositoryImpl) Update(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).Save(community).Error
}

func (r *repositoryImpl) SetPublished(ctx context.Context, id uuid.UUID, published bool, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_published": published,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
