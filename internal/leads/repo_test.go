package leads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
)

func setupLeadsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS leads (
  id TEXT PRIMARY KEY,
  transaction_id TEXT NOT NULL UNIQUE,
  lead_type TEXT NOT NULL,
  community_id TEXT,
  first_name TEXT,
  last_name TEXT,
  email TEXT,
  phone TEXT,
  message TEXT,
  care_types TEXT,
  move_in_by DATETIME,
  value TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  source_url TEXT,
  client_ip TEXT,
  client_user_agent TEXT,
  fbp TEXT,
  fbc TEXT,
  ad_tracking_ok INTEGER NOT NULL DEFAULT 1,
  status TEXT NOT NULL DEFAULT 'new',
  dispatched_at DATETIME,
  scrubbed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM leads").Error)
	return db
}

func seedLead(t *testing.T, db *gorm.DB, lead *models.Lead) *models.Lead {
	t.Helper()
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.TransactionID == "" {
		lead.TransactionID = "txn-" + lead.ID.String()
	}
	if lead.LeadType == "" {
		lead.LeadType = enums.LeadTypeLeadSubmit
	}
	if lead.Status == "" {
		lead.Status = enums.LeadStatusNew
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func TestRepositoryCreateAndLookup(t *testing.T) {
	db := setupLeadsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	email := "mary@example.com"
	lead := &models.Lead{
		ID:            uuid.New(),
		TransactionID: "txn-lookup",
		LeadType:      enums.LeadTypeScheduleTour,
		Email:         &email,
		Value:         decimal.RequireFromString("125.00"),
		Currency:      enums.CurrencyUSD,
		Status:        enums.LeadStatusNew,
	}
	require.NoError(t, repo.Create(ctx, lead))

	byID, err := repo.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.TransactionID, byID.TransactionID)
	require.NotNil(t, byID.Email)
	assert.Equal(t, email, *byID.Email)

	byTxn, err := repo.GetByTransactionID(ctx, "txn-lookup")
	require.NoError(t, err)
	assert.Equal(t, lead.ID, byTxn.ID)

	_, err = repo.GetByTransactionID(ctx, "txn-missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupLeadsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	communityID := uuid.New()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedLead(t, db, &models.Lead{
			LeadType:    enums.LeadTypeScheduleTour,
			CommunityID: &communityID,
			Value:       decimal.Zero,
			Currency:    enums.CurrencyUSD,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
	}
	seedLead(t, db, &models.Lead{
		LeadType:  enums.LeadTypePhoneCallClick,
		Status:    enums.LeadStatusContacted,
		Value:     decimal.Zero,
		Currency:  enums.CurrencyUSD,
		CreatedAt: base.Add(time.Hour),
	})

	leadType := enums.LeadTypeScheduleTour
	page, cursor, err := repo.List(ctx, listLeadsParams{LeadType: &leadType, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, cursor)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	rest, next, err := repo.List(ctx, listLeadsParams{LeadType: &leadType, Cursor: cursor, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Nil(t, next)

	status := enums.LeadStatusContacted
	contacted, _, err := repo.List(ctx, listLeadsParams{Status: &status, Limit: 10})
	require.NoError(t, err)
	require.Len(t, contacted, 1)
	assert.Equal(t, enums.LeadTypePhoneCallClick, contacted[0].LeadType)

	scoped, _, err := repo.List(ctx, listLeadsParams{CommunityID: &communityID, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, scoped, 3)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	db := setupLeadsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	lead := seedLead(t, db, &models.Lead{Value: decimal.Zero, Currency: enums.CurrencyUSD})

	updated, err := repo.UpdateStatus(ctx, lead.ID, enums.LeadStatusTourBooked, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, updated)

	reloaded, err := repo.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LeadStatusTourBooked, reloaded.Status)

	missing, err := repo.UpdateStatus(ctx, uuid.New(), enums.LeadStatusWon, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, missing)
}

func TestRepositoryScrubPIIBefore(t *testing.T) {
	db := setupLeadsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	email := "old@example.com"
	phone := "555-0100"
	stale := seedLead(t, db, &models.Lead{
		Email:     &email,
		Phone:     &phone,
		Value:     decimal.Zero,
		Currency:  enums.CurrencyUSD,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	fresh := seedLead(t, db, &models.Lead{
		Email:     &email,
		Value:     decimal.Zero,
		Currency:  enums.CurrencyUSD,
		CreatedAt: time.Now().UTC(),
	})

	scrubbed, err := repo.ScrubPIIBefore(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), scrubbed)

	reloaded, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Email)
	assert.Nil(t, reloaded.Phone)
	require.NotNil(t, reloaded.ScrubbedAt)
	assert.Equal(t, stale.TransactionID, reloaded.TransactionID)

	untouched, err := repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, untouched.Email)

	again, err := repo.ScrubPIIBefore(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 50)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again)

	_, err = repo.ScrubPIIBefore(ctx, time.Now(), 0)
	assert.Error(t, err)
}
