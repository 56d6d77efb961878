package communities

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sagebrookliving/sagebrook-backend/pkg/db"
	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pagination"
	"github.com/sagebrookliving/sagebrook-backend/pkg/types"
)

const slugUniqueConstraint = "communities_slug_key"

// Service defines community content operations for the public site and the
// admin console.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CommunityDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CommunityDTO, error)
	SetPublished(ctx context.Context, id uuid.UUID, published bool) error
	Get(ctx context.Context, id uuid.UUID) (*CommunityDTO, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*CommunityDTO, error)
	ListPublished(ctx context.Context, input PublicListInput) (*ListResult, error)
	ListAll(ctx context.Context, input AdminListInput) (*ListResult, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// CreateInput describes a new community entered by an admin.
type CreateInput struct {
	Slug          string
	Name          string
	Tagline       string
	Description   string
	Phone         string
	Email         string
	Address       types.Address
	CareTypes     []string
	Amenities     []string
	HeroImageURL  string
	StartingPrice *int
}

// UpdateInput carries partial updates; nil fields are left untouched.
type UpdateInput struct {
	Name          *string
	Tagline       *string
	Description   *string
	Phone         *string
	Email         *string
	Address       *types.Address
	CareTypes     []string
	Amenities     []string
	HeroImageURL  *string
	StartingPrice *int
}

// PublicListInput filters the published community listing.
type PublicListInput struct {
	CareType string
	Cursor   string
	Limit    int
}

// AdminListInput lists every community regardless of publish state.
type AdminListInput struct {
	Cursor string
	Limit  int
}

// ListResult is a cursor page of communities.
type ListResult struct {
	Communities []*CommunityDTO
	NextCursor  string
}

// NewService wires community content dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "communities repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CommunityDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community name required")
	}
	careTypes, err := normalizeCareTypes(input.CareTypes)
	if err != nil {
		return nil, err
	}
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	} else if slug != Slugify(slug) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug may only contain lowercase letters, digits and hyphens")
	}

	community := &models.Community{
		ID:            uuid.New(),
		Slug:          slug,
		Name:          name,
		Tagline:       optional(input.Tagline),
		Description:   optional(input.Description),
		Phone:         optional(input.Phone),
		Email:         optional(strings.ToLower(input.Email)),
		Address:       input.Address,
		CareTypes:     careTypes,
		Amenities:     trimmed(input.Amenities),
		HeroImageURL:  optional(input.HeroImageURL),
		StartingPrice: input.StartingPrice,
	}

	if err := s.repo.Create(ctx, community); err != nil {
		if db.IsUniqueViolation(err, slugUniqueConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create community")
	}
	return FromModel(community), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CommunityDTO, error) {
	community, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load community")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "community name required")
		}
		community.Name = name
	}
	if input.Tagline != nil {
		community.Tagline = optional(*input.Tagline)
	}
	if input.Description != nil {
		community.Description = optional(*input.Description)
	}
	if input.Phone != nil {
		community.Phone = optional(*input.Phone)
	}
	if input.Email != nil {
		community.Email = optional(strings.ToLower(*input.Email))
	}
	if input.Address != nil {
		community.Address = *input.Address
	}
	if input.CareTypes != nil {
		careTypes, err := normalizeCareTypes(input.CareTypes)
		if err != nil {
			return nil, err
		}
		community.CareTypes = careTypes
	}
	if input.Amenities != nil {
		community.Amenities = trimmed(input.Amenities)
	}
	if input.HeroImageURL != nil {
		community.HeroImageURL = optional(*input.HeroImageURL)
	}
	if input.StartingPrice != nil {
		community.StartingPrice = input.StartingPrice
	}
	community.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, community); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update community")
	}
	return FromModel(community), nil
}

func (s *service) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	found, err := s.repo.SetPublished(ctx, id, published, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update publish state")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CommunityDTO, error) {
	community, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load community")
	}
	return FromModel(community), nil
}

// GetPublishedBySlug serves the public detail page. Unpublished communities
// are indistinguishable from missing ones.
func (s *service) GetPublishedBySlug(ctx context.Context, slug string) (*CommunityDTO, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug required")
	}
	community, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load community")
	}
	if !community.IsPublished {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "community not found")
	}
	return FromModel(community), nil
}

func (s *service) ListPublished(ctx context.Context, input PublicListInput) (*ListResult, error) {
	params := listCommunitiesParams{
		PublishedOnly: true,
		Limit:         input.Limit,
	}
	if input.CareType != "" {
		careType, err := enums.ParseCareType(input.CareType)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid care type filter")
		}
		params.CareType = &careType
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	params.Cursor = cursor
	return s.list(ctx, params)
}

func (s *service) ListAll(ctx context.Context, input AdminListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	return s.list(ctx, listCommunitiesParams{Cursor: cursor, Limit: input.Limit})
}

func (s *service) list(ctx context.Context, params listCommunitiesParams) (*ListResult, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list communities")
	}
	result := &ListResult{Communities: FromModels(rows)}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the name and collapses runs of non-alphanumerics into
// single hyphens.
func Slugify(value string) string {
	slug := slugInvalidChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	return strings.Trim(slug, "-")
}

func normalizeCareTypes(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, value := range values {
		careType, err := enums.ParseCareType(strings.TrimSpace(value))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid care type "+value)
		}
		out = append(out, careType.String())
	}
	return out, nil
}

func trimmed(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
