// Package command contains write operations (CQRS - Commands).
//
// Mutations change the in-memory store only. They are synchronous,
// last-write-wins and not transactional across entities. Every successful
// mutation drops the cached dashboards so the next read recomposes them.
package command

import (
	"context"
	"log/slog"

	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
)

// DashboardInvalidator drops cached dashboards.
type DashboardInvalidator interface {
	InvalidateDashboards(ctx context.Context) error
}

// invalidate drops cached dashboards. A cache failure does not undo the
// mutation; it is logged and the cache entries expire on their own.
func invalidate(ctx context.Context, cache DashboardInvalidator, logger *slog.Logger, op string) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateDashboards(ctx); err != nil {
		logger.Warn("dashboard cache invalidation failed", "op", op, "error", err)
	}
}

// requireOwner allows only school owners.
func requireOwner(actor school.Viewer, op string) error {
	if actor.Role != school.RoleSchoolOwner {
		return shared.NewDomainError("command", op, shared.ErrForbidden, "school owner role required")
	}
	return nil
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
