package ports

import (
	"time"

	"github.com/raptiye/blog-api/internal/core/domain"
)

// TokenCodec issues and verifies signed access tokens. Verification checks
// the signature before trusting any claim, then claim shape, then expiry.
type TokenCodec interface {
	Issue(subject, role string, now time.Time) (string, error)
	Verify(raw string, now time.Time) (*domain.Claims, error)
	Subject(raw string, now time.Time) (string, error)
}
