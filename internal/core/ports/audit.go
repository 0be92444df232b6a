package ports

import (
	"context"

	"github.com/raptiye/blog-api/internal/core/domain"
)

// AuditRecorder accepts authentication events for asynchronous persistence.
// Record must never block the caller.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}

// AuditRepository persists and queries authentication events.
type AuditRepository interface {
	Insert(ctx context.Context, event domain.AuthEvent) error
	Recent(ctx context.Context, limit int64) ([]domain.AuthEvent, error)
}
