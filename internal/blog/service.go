package blog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sagebrookliving/sagebrook-backend/internal/communities"
	"github.com/sagebrookliving/sagebrook-backend/pkg/db"
	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pagination"
)

const slugUniqueConstraint = "blog_posts_slug_key"

// Service defines blog post operations for the public site and the admin
// console.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*PostDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*PostDTO, error)
	Schedule(ctx context.Context, id uuid.UUID, publishAt time.Time) (*PostDTO, error)
	Publish(ctx context.Context, id uuid.UUID) (*PostDTO, error)
	Archive(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*PostDTO, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*PostDTO, error)
	ListPublished(ctx context.Context, input PublicListInput) (*ListResult, error)
	ListAll(ctx context.Context, input AdminListInput) (*ListResult, error)
	PublishDue(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// CreateInput describes a new draft post.
type CreateInput struct {
	Slug     string
	Title    string
	Excerpt  string
	Body     string
	CoverURL string
	Tags     []string
	AuthorID uuid.UUID
}

// UpdateInput carries partial updates; nil fields are left untouched.
type UpdateInput struct {
	Title    *string
	Excerpt  *string
	Body     *string
	CoverURL *string
	Tags     []string
}

// PublicListInput filters the published post listing.
type PublicListInput struct {
	Tag    string
	Cursor string
	Limit  int
}

// AdminListInput lists posts in any lifecycle state.
type AdminListInput struct {
	Status string
	Cursor string
	Limit  int
}

// ListResult is a cursor page of posts.
type ListResult struct {
	Posts      []*PostDTO
	NextCursor string
}

// NewService wires blog dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "blog repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*PostDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post title required")
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post body required")
	}
	if input.AuthorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author required")
	}
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = communities.Slugify(title)
	} else if slug != communities.Slugify(slug) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug may only contain lowercase letters, digits and hyphens")
	}

	post := &models.BlogPost{
		ID:       uuid.New(),
		Slug:     slug,
		Title:    title,
		Excerpt:  optional(input.Excerpt),
		Body:     input.Body,
		CoverURL: optional(input.CoverURL),
		Tags:     trimmed(input.Tags),
		Status:   enums.PostStatusDraft,
		AuthorID: input.AuthorID,
	}

	if err := s.repo.Create(ctx, post); err != nil {
		if db.IsUniqueViolation(err, slugUniqueConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create post")
	}
	return FromModel(post), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*PostDTO, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status == enums.PostStatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "archived posts cannot be edited")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "post title required")
		}
		post.Title = title
	}
	if input.Excerpt != nil {
		post.Excerpt = optional(*input.Excerpt)
	}
	if input.Body != nil {
		if strings.TrimSpace(*input.Body) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "post body required")
		}
		post.Body = *input.Body
	}
	if input.CoverURL != nil {
		post.CoverURL = optional(*input.CoverURL)
	}
	if input.Tags != nil {
		post.Tags = trimmed(input.Tags)
	}
	post.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update post")
	}
	return FromModel(post), nil
}

// Schedule queues a draft (or already scheduled) post for automatic publish.
func (s *service) Schedule(ctx context.Context, id uuid.UUID, publishAt time.Time) (*PostDTO, error) {
	now := s.now().UTC()
	if !publishAt.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "publish time must be in the future")
	}

	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != enums.PostStatusDraft && post.Status != enums.PostStatusScheduled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only draft posts can be scheduled")
	}

	publishAt = publishAt.UTC()
	post.Status = enums.PostStatusScheduled
	post.PublishAt = &publishAt
	post.UpdatedAt = now

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "schedule post")
	}
	return FromModel(post), nil
}

func (s *service) Publish(ctx context.Context, id uuid.UUID) (*PostDTO, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch post.Status {
	case enums.PostStatusPublished:
		return FromModel(post), nil
	case enums.PostStatusArchived:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "archived posts cannot be published")
	}

	now := s.now().UTC()
	post.Status = enums.PostStatusPublished
	post.PublishAt = nil
	post.PublishedAt = &now
	post.UpdatedAt = now

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "publish post")
	}
	return FromModel(post), nil
}

func (s *service) Archive(ctx context.Context, id uuid.UUID) error {
	post, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if post.Status == enums.PostStatusArchived {
		return nil
	}

	post.Status = enums.PostStatusArchived
	post.PublishAt = nil
	post.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, post); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "archive post")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PostDTO, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(post), nil
}

// GetPublishedBySlug serves the public article page. Drafts, scheduled and
// archived posts are indistinguishable from missing ones.
func (s *service) GetPublishedBySlug(ctx context.Context, slug string) (*PostDTO, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug required")
	}
	post, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load post")
	}
	if post.Status != enums.PostStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return FromModel(post), nil
}

func (s *service) ListPublished(ctx context.Context, input PublicListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	status := enums.PostStatusPublished
	return s.list(ctx, listPostsParams{
		Status: &status,
		Tag:    strings.TrimSpace(input.Tag),
		Cursor: cursor,
		Limit:  input.Limit,
	})
}

func (s *service) ListAll(ctx context.Context, input AdminListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	params := listPostsParams{Cursor: cursor, Limit: input.Limit}
	if input.Status != "" {
		status, err := enums.ParsePostStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		params.Status = &status
	}
	return s.list(ctx, params)
}

// PublishDue is invoked by the cron worker to promote scheduled posts whose
// publish time has arrived.
func (s *service) PublishDue(ctx context.Context) (int64, error) {
	count, err := s.repo.PublishDue(ctx, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "publish due posts")
	}
	return count, nil
}

func (s *service) list(ctx context.Context, params listPostsParams) (*ListResult, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list posts")
	}
	result := &ListResult{Posts: FromModels(rows)}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load post")
	}
	return post, nil
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
