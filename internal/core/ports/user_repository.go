package ports

import (
	"context"

	"github.com/raptiye/blog-api/internal/core/domain"
)

// UserRepository is the credential store contract. Lookups return
// domain.ErrUserNotFound when no record matches.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
