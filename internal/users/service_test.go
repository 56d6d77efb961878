package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/db/models"
	"github.com/sagebrookliving/sagebrook-backend/pkg/enums"
	pkgerrors "github.com/sagebrookliving/sagebrook-backend/pkg/errors"
	"github.com/sagebrookliving/sagebrook-backend/pkg/security"
)

type fakeRepository struct {
	createFn         func(ctx context.Context, user *models.User) error
	findByIDFn       func(ctx context.Context, id uuid.UUID) (*models.User, error)
	updateRoleFn     func(ctx context.Context, id uuid.UUID, role string, now time.Time) (bool, error)
	setActiveFn      func(ctx context.Context, id uuid.UUID, active bool, now time.Time) (bool, error)
	updatePasswordFn func(ctx context.Context, id uuid.UUID, hash string, now time.Time) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, user *models.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, user)
	}
	user.ID = uuid.New()
	return nil
}

func (f *fakeRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) List(ctx context.Context) ([]models.User, error) {
	return nil, nil
}

func (f *fakeRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string, now time.Time) (bool, error) {
	if f.updateRoleFn != nil {
		return f.updateRoleFn(ctx, id, role, now)
	}
	return true, nil
}

func (f *fakeRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, now time.Time) (bool, error) {
	if f.setActiveFn != nil {
		return f.setActiveFn(ctx, id, active, now)
	}
	return true, nil
}

func (f *fakeRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, now time.Time) error {
	if f.updatePasswordFn != nil {
		return f.updatePasswordFn(ctx, id, hash, now)
	}
	return nil
}

func (f *fakeRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func newServiceWithRepo(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestInvite(t *testing.T) {
	var saved *models.User
	repo := &fakeRepository{
		createFn: func(ctx context.Context, user *models.User) error {
			user.ID = uuid.New()
			saved = user
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	result, err := svc.Invite(context.Background(), InviteInput{
		Email:     " Marketing@SagebrookLiving.com ",
		FirstName: "Dana",
		LastName:  "Whitfield",
		Role:      enums.MemberRoleEditor,
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if saved.Email != "marketing@sagebrookliving.com" {
		t.Fatalf("expected normalized email, got %s", saved.Email)
	}
	if len(result.TempPassword) != tempPasswordLength {
		t.Fatalf("expected %d char temp password, got %d", tempPasswordLength, len(result.TempPassword))
	}
	ok, err := security.VerifyPassword(result.TempPassword, saved.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("temp password should verify against stored hash (ok=%v err=%v)", ok, err)
	}
	if result.User.Role != enums.MemberRoleEditor {
		t.Fatalf("unexpected role %s", result.User.Role)
	}
}

func TestInvite_EmailConflict(t *testing.T) {
	repo := &fakeRepository{
		createFn: func(ctx context.Context, user *models.User) error {
			return errors.New(`duplicate key value violates unique constraint "idx_users_email"`)
		},
	}
	svc := newServiceWithRepo(t, repo)

	_, err := svc.Invite(context.Background(), InviteInput{
		Email:     "dupe@sagebrookliving.com",
		FirstName: "Dana",
		LastName:  "Whitfield",
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
}

func TestInvite_Validation(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})

	cases := []struct {
		name  string
		input InviteInput
	}{
		{"missing email", InviteInput{FirstName: "A", LastName: "B"}},
		{"bad email", InviteInput{Email: "not-an-email", FirstName: "A", LastName: "B"}},
		{"missing name", InviteInput{Email: "a@b.com"}},
		{"bad role", InviteInput{Email: "a@b.com", FirstName: "A", LastName: "B", Role: "superuser"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Invite(context.Background(), tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestUpdateRole_NotFound(t *testing.T) {
	repo := &fakeRepository{
		updateRoleFn: func(ctx context.Context, id uuid.UUID, role string, now time.Time) (bool, error) {
			return false, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	err := svc.UpdateRole(context.Background(), uuid.New(), enums.MemberRoleAdmin)
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	hash, err := security.HashPassword("original-password", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	userID := uuid.New()
	var storedHash string
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: userID, PasswordHash: hash}, nil
		},
		updatePasswordFn: func(ctx context.Context, id uuid.UUID, newHash string, now time.Time) error {
			storedHash = newHash
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	if err := svc.ChangePassword(context.Background(), userID, "original-password", "a-new-long-password"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	ok, err := security.VerifyPassword("a-new-long-password", storedHash)
	if err != nil || !ok {
		t.Fatalf("new password should verify (ok=%v err=%v)", ok, err)
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	hash, err := security.HashPassword("original-password", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			return &models.User{ID: id, PasswordHash: hash}, nil
		},
	}
	svc := newServiceWithRepo(t, repo)

	err = svc.ChangePassword(context.Background(), uuid.New(), "wrong-password", "a-new-long-password")
	if err == nil {
		t.Fatal("expected unauthorized error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized code, got %v", err)
	}
}

func TestChangePassword_TooShort(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})
	err := svc.ChangePassword(context.Background(), uuid.New(), "whatever", "short")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}
