package ports

import (
	"context"
	"time"

	"github.com/versehub/console/internal/domain/analytics"
)

// VisitRepository persists visitor analytics.
type VisitRepository interface {
	Create(ctx context.Context, v *analytics.Visit) error
	List(ctx context.Context, opts analytics.VisitListOptions) ([]*analytics.Visit, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}
