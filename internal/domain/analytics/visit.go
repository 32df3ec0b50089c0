// Package analytics holds visitor analytics records derived from resolved geo records.
package analytics

import (
	"time"

	"github.com/versehub/console/internal/domain/geo"
)

// Visit is one resolved geo record observed for a navigation.
type Visit struct {
	ID        int64      `json:"id"`
	SubjectID string     `json:"subject_id,omitempty"`
	Path      string     `json:"path"`
	Record    geo.Record `json:"record"`
	CreatedAt time.Time  `json:"created_at"`
}

// VisitListOptions filters and paginates a visit listing.
type VisitListOptions struct {
	Country string
	Device  string
	Since   *time.Time
	Limit   int
	Offset  int
}

const (
	DefaultVisitLimit = 50
	MaxVisitLimit     = 500
)

// Normalize clamps pagination values.
func (o VisitListOptions) Normalize() VisitListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultVisitLimit
	}
	if o.Limit > MaxVisitLimit {
		o.Limit = MaxVisitLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
