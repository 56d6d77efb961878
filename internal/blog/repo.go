package blog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pagination"
)

// Repository defines persistence operations for blog posts.
type Repository interface {
	Create(ctx context.Context, post *models.BlogPost) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	List(ctx context.Context, params listPostsParams) ([]models.BlogPost, *pagination.Cursor, error)
	Update(ctx context.Context, post *models.BlogPost) error
	PublishDue(ctx context.Context, now time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

type listPostsParams struct {
	Status *enums.PostStatus
	Tag    string
	Cursor *pagination.Cursor
	Limit  int
}

// NewRepository builds a blog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Create(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repositoryImpl) GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listPostsParams) ([]models.BlogPost, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.BlogPost{})
	if params.Status != nil {
		query = query.Where("status = ?", params.Status.String())
	}
	if params.Tag != "" {
		query = query.Where("? = ANY(tags)", params.Tag)
	}
	if params.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.BlogPost
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

func (r *repositoryImpl) Update(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Save(post).Error
}

// PublishDue flips every scheduled post whose publish_at has passed to
// published in a single statement so the cron job stays idempotent.
func (r *repositoryImpl) PublishDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BlogPost{}).
		Where("status = ? AND publish_at IS NOT NULL AND publish_at <= ?", enums.PostStatusScheduled.String(), now).
		Updates(map[string]any{
			"status":       enums.PostStatusPublished.String(),
			"published_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
