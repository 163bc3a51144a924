// Package audit reads back the audit log written by the domain services.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	// DefaultRange is the window used when the caller gives no start date.
	DefaultRange = 7 * 24 * time.Hour
	// MaxRange bounds a single query.
	MaxRange = 90 * 24 * time.Hour
	// exportLimit caps CSV exports.
	exportLimit = 5000
)

// Repository reads audit rows.
type Repository interface {
	Timeline(ctx context.Context, q Query) ([]TimelineRow, error)
}

// Service pages through the audit log.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of entries, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if err := validateFilters(filters); err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	q := toQuery(filters)
	q.Offset = (page - 1) * pageSize
	q.Limit = pageSize + 1
	rows, err := s.repo.Timeline(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("audit: timeline: %w", err)
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every entry matching filters up to the export cap.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}
	q := toQuery(filters)
	q.Limit = exportLimit
	rows, err := s.repo.Timeline(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("audit: export: %w", err)
	}
	return rows, nil
}

func validateFilters(f TimelineFilters) error {
	if f.From.IsZero() || f.To.IsZero() {
		return shared.Validation("range", nil, "from and to are required")
	}
	if f.From.After(f.To) {
		return shared.Validation("range", nil, "from must not be after to")
	}
	if f.To.Sub(f.From) > MaxRange {
		return shared.Validation("range", nil, "range must not exceed %d days", int(MaxRange.Hours()/24))
	}
	return nil
}

func toQuery(f TimelineFilters) Query {
	return Query{
		From:     f.From,
		To:       f.To,
		ActorID:  f.ActorID,
		Entity:   strings.TrimSpace(f.Entity),
		EntityID: strings.TrimSpace(f.EntityID),
		Action:   strings.TrimSpace(f.Action),
	}
}
