package ports

import (
	"context"

	"github.com/raptiye/blog-api/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (string, *domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}

// IdentityResolver loads the authoritative identity for a verified token
// subject. Called once per authenticated request, always hitting the store.
type IdentityResolver interface {
	Resolve(ctx context.Context, username string) (*domain.Identity, error)
}
