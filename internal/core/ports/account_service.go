package ports

import (
	"context"

	"github.com/onboardhq/account-service/internal/core/domain"
)

// RegisterInput carries the registration payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateAccountInput is the partial admin update: empty fields keep the
// account's current values.
type UpdateAccountInput struct {
	Username string
	Email    string
	Password string
}

// AccountService defines the account-lifecycle use cases.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Account, error)
	VerifyEmail(ctx context.Context, id, token string) (*domain.Account, error)
	ResendVerification(ctx context.Context, email string) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
	SignOut(ctx context.Context, id string) (*domain.Account, error)
	ListLoggedIn(ctx context.Context) ([]*domain.Account, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) (*domain.Account, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, id, token, newPassword string) (*domain.Account, error)
	ListUsers(ctx context.Context) ([]*domain.Account, error)
	AdminUpdate(ctx context.Context, adminID, targetID string, in UpdateAccountInput) (*domain.Account, error)
	AdminDelete(ctx context.Context, adminID, targetID string) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
}
