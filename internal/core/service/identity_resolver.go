package service

import (
	"context"

	"github.com/raptiye/blog-api/internal/core/domain"
	"github.com/raptiye/blog-api/internal/core/ports"
)

// IdentityResolver turns a verified token subject into the current identity.
// Every call hits the credential store so role revocation and account
// disabling take effect on the next request, even for tokens that remain
// cryptographically valid until expiry.
type IdentityResolver struct {
	users ports.UserRepository
}

func NewIdentityResolver(users ports.UserRepository) *IdentityResolver {
	return &IdentityResolver{users: users}
}

func (r *IdentityResolver) Resolve(ctx context.Context, username string) (*domain.Identity, error) {
	user, err := r.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &domain.Identity{
		Username: user.Username,
		Role:     user.Role,
		Enabled:  user.Enabled,
	}, nil
}
