package service

import (
	"context"
	"errors"
	"testing"

	"github.com/raptiye/blog-api/internal/core/domain"
)

func TestIdentityResolver_Resolve(t *testing.T) {
	repo := newStubUserRepo()
	repo.users["alice"] = &domain.User{Username: "alice", Role: domain.RoleUser, Enabled: true}
	resolver := NewIdentityResolver(repo)

	id, err := resolver.Resolve(context.Background(), "alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.Username != "alice" || id.Role != domain.RoleUser || !id.Enabled {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestIdentityResolver_SeesCurrentState(t *testing.T) {
	repo := newStubUserRepo()
	repo.users["alice"] = &domain.User{Username: "alice", Role: domain.RoleUser, Enabled: true}
	resolver := NewIdentityResolver(repo)

	if _, err := resolver.Resolve(context.Background(), "alice"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// No caching: a role change and a disable are visible on the very
	// next resolution.
	repo.users["alice"].Role = domain.RoleAdmin
	repo.users["alice"].Enabled = false

	id, err := resolver.Resolve(context.Background(), "alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.Role != domain.RoleAdmin || id.Enabled {
		t.Fatalf("expected fresh store state, got %+v", id)
	}
}

func TestIdentityResolver_NotFound(t *testing.T) {
	resolver := NewIdentityResolver(newStubUserRepo())

	if _, err := resolver.Resolve(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
