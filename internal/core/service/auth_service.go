package service

import (
	"context"
	"errors"
	"time"

	"github.com/raptiye/blog-api/internal/core/domain"
	"github.com/raptiye/blog-api/internal/core/password"
	"github.com/raptiye/blog-api/internal/core/ports"
)

// AuthService implements registration and login.
type AuthService struct {
	users   ports.UserRepository
	hasher  *password.Hasher
	codec   ports.TokenCodec
	limiter ports.LoginLimiter
	auditor ports.AuditRecorder

	// dummyHash keeps the unknown-username path as expensive as a real
	// bcrypt comparison so response timing does not reveal whether the
	// username exists.
	dummyHash string
}

// NewAuthService wires the credential store, hasher and token codec.
// limiter and auditor may be nil, in which case throttling and audit
// recording are skipped.
func NewAuthService(users ports.UserRepository, hasher *password.Hasher, codec ports.TokenCodec, limiter ports.LoginLimiter, auditor ports.AuditRecorder) (*AuthService, error) {
	dummy, err := hasher.Hash("blog-api.login.padding")
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		codec:     codec,
		limiter:   limiter,
		auditor:   auditor,
		dummyHash: dummy,
	}, nil
}

// Register creates a new USER-role account and issues its first token.
// Uniqueness of username and email is checked before anything is persisted.
func (s *AuthService) Register(ctx context.Context, username, email, plaintext string) (string, *domain.User, error) {
	if username == "" || email == "" || plaintext == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if taken {
		s.audit(username, domain.AuditRegister, false, "duplicate username")
		return "", nil, domain.ErrUsernameTaken
	}

	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if taken {
		s.audit(username, domain.AuditRegister, false, "duplicate email")
		return "", nil, domain.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return "", nil, err
	}

	tok, err := s.codec.Issue(created.Username, created.Role, now)
	if err != nil {
		return "", nil, err
	}

	s.audit(username, domain.AuditRegister, true, "")
	return tok, created, nil
}

// Login verifies the credentials and issues a token embedding the stored
// role. Unknown username and wrong password are indistinguishable to the
// caller: both return domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, plaintext string) (string, *domain.User, error) {
	if username == "" || plaintext == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	if s.limiter != nil {
		// Limiter failures are ignored on purpose: a throttling outage
		// must not take logins down with it.
		if ok, err := s.limiter.Allow(ctx, username); err == nil && !ok {
			s.audit(username, domain.AuditLogin, false, "throttled")
			return "", nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(plaintext, s.dummyHash)
			return "", nil, s.loginFailed(ctx, username, "unknown username")
		}
		return "", nil, err
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		return "", nil, s.loginFailed(ctx, username, "wrong password")
	}
	if !user.Enabled {
		return "", nil, s.loginFailed(ctx, username, "account disabled")
	}

	tok, err := s.codec.Issue(user.Username, user.Role, time.Now().UTC())
	if err != nil {
		return "", nil, err
	}

	if s.limiter != nil {
		_ = s.limiter.Reset(ctx, username)
	}
	s.audit(username, domain.AuditLogin, true, "")
	return tok, user, nil
}

// loginFailed records the attempt for throttling and audit, then returns the
// single undifferentiated credentials error. The reason string stays internal.
func (s *AuthService) loginFailed(ctx context.Context, username, reason string) error {
	if s.limiter != nil {
		_ = s.limiter.RecordFailure(ctx, username)
	}
	s.audit(username, domain.AuditLogin, false, reason)
	return domain.ErrInvalidCredentials
}

func (s *AuthService) audit(username, action string, success bool, reason string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(domain.AuthEvent{
		Username: username,
		Action:   action,
		Success:  success,
		Reason:   reason,
		At:       time.Now().UTC(),
	})
}
