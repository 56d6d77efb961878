package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pagination"
)

// Repository defines persistence operations for captured leads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Lead, error)
	List(ctx context.Context, params listLeadsParams) ([]models.Lead, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LeadStatus, now time.Time) (bool, error)
	MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) error
	ScrubPIIBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

type listLeadsParams struct {
	Status      *enums.LeadStatus
	LeadType    *enums.LeadType
	CommunityID *uuid.UUID
	Cursor      *pagination.Cursor
	Limit       int
}

// NewRepository builds a leads repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repositoryImpl) GetByTransactionID(ctx context.Context, transactionID string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listLeadsParams) ([]models.Lead, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	qb := r.db.WithContext(ctx).Model(&models.Lead{})
	if params.Status != nil {
		qb = qb.Where("status = ?", *params.Status)
	}
	if params.LeadType != nil {
		qb = qb.Where("lead_type = ?", *params.LeadType)
	}
	if params.CommunityID != nil {
		qb = qb.Where("community_id = ?", *params.CommunityID)
	}
	if params.Cursor != nil {
		qb = qb.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.Lead
	err := qb.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
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

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LeadStatus, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkDispatched(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"dispatched_at": at,
			"updated_at":    at,
		}).Error
}

// ScrubPIIBefore nulls the contact columns of at most limit leads created
// before the cutoff that have not been scrubbed yet. The lead row itself is
// kept for attribution reporting.
func (r *repositoryImpl) ScrubPIIBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		return 0, errors.New("scrub batch limit must be positive")
	}

	now := time.Now().UTC()
	sub := r.db.
		Model(&models.Lead{}).
		Select("id").
		Where("created_at < ?", cutoff).
		Where("scrubbed_at IS NULL").
		Limit(limit)

	result := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id IN (?)", sub).
		Updates(map[string]any{
			"first_name":  nil,
			"last_name":   nil,
			"email":       nil,
			"phone":       nil,
			"message":     nil,
			"client_ip":   nil,
			"fbp":         nil,
			"fbc":         nil,
			"scrubbed_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
