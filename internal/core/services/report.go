package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
)

// Ensure ReportService implements the interface.
var _ driving.ReportService = (*ReportService)(nil)

// ReportService reads run history.
type ReportService struct {
	runStore driven.RunStore
}

// NewReportService creates a report service. runStore may be nil, in which
// case there is no history.
func NewReportService(runStore driven.RunStore) *ReportService {
	return &ReportService{runStore: runStore}
}

// List returns recent runs, newest first.
func (s *ReportService) List(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if s.runStore == nil {
		return nil, nil
	}
	runs, err := s.runStore.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run by ID.
func (s *ReportService) Get(ctx context.Context, id string) (*domain.RunReport, error) {
	if s.runStore == nil {
		return nil, domain.ErrNotFound
	}
	return s.runStore.Get(ctx, id)
}

// Latest returns the most recent run.
func (s *ReportService) Latest(ctx context.Context) (*domain.RunReport, error) {
	runs, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &runs[0], nil
}
