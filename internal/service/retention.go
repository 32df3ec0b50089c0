package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/versehub/console/config"
	"github.com/versehub/console/internal/ports"
)

// RetentionServiceOptions groups dependencies for RetentionService.
type RetentionServiceOptions struct {
	Repo   ports.VisitRepository  // Required: visit repository
	Config config.AnalyticsConfig // Required: retention configuration
	Logger *slog.Logger           // Optional: structured logger
	Now    func() time.Time       // Optional: clock
}

// RetentionService deletes visits older than the configured max age on a ticker.
type RetentionService struct {
	repo   ports.VisitRepository
	config config.AnalyticsConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewRetentionService constructs a new RetentionService.
func NewRetentionService(opts RetentionServiceOptions) (*RetentionService, error) {
	if opts.Repo == nil {
		return nil, errors.New("VisitRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RetentionService{
		repo:   opts.Repo,
		config: opts.Config,
		logger: logger.With("component", "retention_service"),
		now:    now,
	}, nil
}

// Run starts the retention loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *RetentionService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting retention service",
		"interval", s.config.RetentionInterval,
		"max_age", s.config.RetentionMaxAge,
	)

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.RetentionInterval)
	defer ticker.Stop()

	if _, err := s.Sweep(ctx); err != nil && !isContextCancellation(err) {
		s.logger.ErrorContext(ctx, "initial retention sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "retention service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !isContextCancellation(err) {
				s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
			}
		}
	}
}

// Sweep deletes expired visits in batches until none remain and returns the total deleted.
func (s *RetentionService) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.RetentionMaxAge)
	var total int64
	for {
		n, err := s.repo.DeleteOlderThan(ctx, cutoff, s.config.BatchSize)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			break
		}
		// Check context between batches
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
	if total > 0 {
		s.logger.InfoContext(ctx, "deleted expired visits", "count", total, "cutoff", cutoff)
	}
	return total, nil
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *RetentionService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.RetentionInterval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	// Use modulo on uint64 before converting to avoid overflow
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
