package communities

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn       func(ctx context.Context, community *models.Community) error
	getByIDFn      func(ctx context.Context, id uuid.UUID) (*models.Community, error)
	getBySlugFn    func(ctx context.Context, slug string) (*models.Community, error)
	listFn         func(ctx context.Context, params listCommunitiesParams) ([]models.Community, *pagination.Cursor, error)
	updateFn       func(ctx context.Context, community *models.Community) error
	setPublishedFn func(ctx context.Context, id uuid.UUID, published bool, now time.Time) (bool, error)
}

func (f *fakeRepository) Create(ctx context.Context, community *models.Community) error {
	if f.createFn != nil {
		return f.createFn(ctx, community)
	}
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	if f.getBySlugFn != nil {
		return f.getBySlugFn(ctx, slug)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) List(ctx context.Context, params listCommunitiesParams) ([]models.Community, *pagination.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) Update(ctx context.Context, community *models.Community) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, community)
	}
	return nil
}

func (f *fakeRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool, now time.Time) (bool, error) {
	if f.setPublishedFn != nil {
		return f.setPublishedFn(ctx, id, published, now)
	}
	return true, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreate_GeneratesSlugFromName(t *testing.T) {
	var created *models.Community
	repo := &fakeRepository{
		createFn: func(ctx context.Context, community *models.Community) error {
			created = community
			return nil
		},
	}
	svc := newTestService(t, repo)

	dto, err := svc.Create(context.Background(), CreateInput{
		Name:      "  Sagebrook at Willow Creek  ",
		CareTypes: []string{"assisted_living", "memory_care"},
		Email:     "Willow@SagebrookLiving.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Slug != "sagebrook-at-willow-creek" {
		t.Fatalf("unexpected slug %q", created.Slug)
	}
	if dto.Slug != created.Slug {
		t.Fatal("dto should mirror the persisted slug")
	}
	if created.Email == nil || *created.Email != "willow@sagebrookliving.com" {
		t.Fatal("email should be lowercased")
	}
	if len(created.CareTypes) != 2 {
		t.Fatalf("unexpected care types %v", created.CareTypes)
	}
}

func TestCreate_RejectsUnknownCareType(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	_, err := svc.Create(context.Background(), CreateInput{
		Name:      "Sagebrook Meadows",
		CareTypes: []string{"luxury_spa"},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestCreate_SlugConflict(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, community *models.Community) error {
			return errors.New(`duplicate key value violates unique constraint "communities_slug_key"`)
		},
	}
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), CreateInput{Name: "Sagebrook Meadows"})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	existing := &models.Community{
		ID:   uuid.New(),
		Slug: "sagebrook-meadows",
		Name: "Sagebrook Meadows",
	}
	var saved *models.Community
	repo := &fakeRepository{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Community, error) {
			return existing, nil
		},
		updateFn: func(ctx context.Context, community *models.Community) error {
			saved = community
			return nil
		},
	}
	svc := newTestService(t, repo)

	tagline := "Assisted living in the foothills"
	dto, err := svc.Update(context.Background(), existing.ID, UpdateInput{Tagline: &tagline})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if saved.Name != "Sagebrook Meadows" {
		t.Fatal("name should be untouched")
	}
	if saved.Tagline == nil || *saved.Tagline != tagline {
		t.Fatal("tagline should be updated")
	}
	if dto.Slug != "sagebrook-meadows" {
		t.Fatal("slug never changes on update")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	_, err := svc.Update(context.Background(), uuid.New(), UpdateInput{})
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestGetPublishedBySlug_HidesUnpublished(t *testing.T) {
	repo := &fakeRepository{
		getBySlugFn: func(ctx context.Context, slug string) (*models.Community, error) {
			return &models.Community{ID: uuid.New(), Slug: slug, Name: "Draft", IsPublished: false}, nil
		},
	}
	svc := newTestService(t, repo)

	_, err := svc.GetPublishedBySlug(context.Background(), "draft")
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unpublished communities must look missing, got %v", err)
	}
}

func TestListPublished_CareTypeFilter(t *testing.T) {
	var gotParams listCommunitiesParams
	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listCommunitiesParams) ([]models.Community, *pagination.Cursor, error) {
			gotParams = params
			return []models.Community{{ID: uuid.New(), Slug: "a", Name: "A", IsPublished: true}}, nil, nil
		},
	}
	svc := newTestService(t, repo)

	result, err := svc.ListPublished(context.Background(), PublicListInput{CareType: "memory_care", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !gotParams.PublishedOnly {
		t.Fatal("public listing must filter to published rows")
	}
	if gotParams.CareType == nil || *gotParams.CareType != enums.CareTypeMemoryCare {
		t.Fatalf("unexpected care type filter %v", gotParams.CareType)
	}
	if len(result.Communities) != 1 || result.NextCursor != "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestListPublished_InvalidCareType(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	_, err := svc.ListPublished(context.Background(), PublicListInput{CareType: "penthouse"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestListAll_EncodesNextCursor(t *testing.T) {
	last := models.Community{ID: uuid.New(), Slug: "b", Name: "B", CreatedAt: time.Now().UTC()}
	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listCommunitiesParams) ([]models.Community, *pagination.Cursor, error) {
			return []models.Community{last}, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
		},
	}
	svc := newTestService(t, repo)

	result, err := svc.ListAll(context.Background(), AdminListInput{Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.NextCursor == "" {
		t.Fatal("expected next cursor")
	}
	cursor, err := pagination.ParseCursor(result.NextCursor)
	if err != nil || cursor == nil || cursor.ID != last.ID {
		t.Fatalf("cursor should round-trip, got %v err %v", cursor, err)
	}
}

func TestSetPublished_NotFound(t *testing.T) {
	repo := &fakeRepository{
		setPublishedFn: func(ctx context.Context, id uuid.UUID, published bool, now time.Time) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(t, repo)

	err := svc.SetPublished(context.Background(), uuid.New(), true)
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Sagebrook at Willow Creek": "sagebrook-at-willow-creek",
		"  Oak & Elm  ":             "oak-elm",
		"Already-Slugged":           "already-slugged",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}
