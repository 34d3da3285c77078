package ports

import (
	"context"

	"github.com/onboardhq/account-service/internal/core/domain"
)

// ListAccountsFilter selects accounts by lifecycle flags. A nil field means
// "no filter on this flag".
type ListAccountsFilter struct {
	IsLoggedIn *bool
	IsAdmin    *bool
}

// AccountRepository defines the persistence operations for user accounts.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// FindByEmail matches on the stored (lower-cased) email.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Insert(ctx context.Context, account *domain.Account) (*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) (*domain.Account, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListAccountsFilter) ([]*domain.Account, error)
}
