package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/versehub/console/internal/domain/analytics"
	"github.com/versehub/console/internal/domain/geo"
	"github.com/versehub/console/internal/ports"
)

// VisitServiceOptions groups dependencies for VisitService.
type VisitServiceOptions struct {
	Repo          ports.VisitRepository // Required: visit persistence
	RecordTimeout time.Duration         // Optional: bound for detached inserts
	Logger        *slog.Logger          // Optional: structured logger
	Now           func() time.Time      // Optional: clock
}

// VisitService records and lists visitor analytics.
type VisitService struct {
	repo          ports.VisitRepository
	recordTimeout time.Duration
	logger        *slog.Logger
	now           func() time.Time
	wg            sync.WaitGroup
}

// NewVisitService constructs a VisitService.
func NewVisitService(opts VisitServiceOptions) (*VisitService, error) {
	if opts.Repo == nil {
		return nil, errors.New("VisitRepository is required")
	}
	s := &VisitService{
		repo:          opts.Repo,
		recordTimeout: opts.RecordTimeout,
		logger:        opts.Logger,
		now:           opts.Now,
	}
	if s.recordTimeout <= 0 {
		s.recordTimeout = 3 * time.Second
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "visit_service")
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Record persists one visit synchronously.
func (s *VisitService) Record(ctx context.Context, subjectID, path string, rec geo.Record) error {
	v := &analytics.Visit{
		SubjectID: subjectID,
		Path:      path,
		Record:    rec,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// RecordAsync persists a visit in the background, detached from the request context.
// Failures are logged and dropped.
func (s *VisitService) RecordAsync(subjectID, path string, rec geo.Record) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.recordTimeout)
		defer cancel()
		if err := s.Record(ctx, subjectID, path, rec); err != nil {
			s.logger.Warn("visit not recorded", "error", err, "path", path)
		}
	}()
}

// Wait blocks until background inserts started by RecordAsync finish.
func (s *VisitService) Wait() { s.wg.Wait() }

// List returns a page of visits, newest first.
func (s *VisitService) List(ctx context.Context, opts analytics.VisitListOptions) ([]*analytics.Visit, error) {
	visits, err := s.repo.List(ctx, opts.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return visits, nil
}
