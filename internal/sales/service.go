package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Storage is the persistence surface the service reads sales through.
// *Store implements it against Postgres.
type Storage interface {
	Get(ctx context.Context, id uuid.UUID) (Sale, error)
	List(ctx context.Context, params ListParams) ([]Sale, int64, error)
	Summary(ctx context.Context, from, to time.Time) (DailySummary, error)
}

// Service serves the sales history surface of the API.
type Service struct {
	Store        Storage
	Location     *time.Location
	DefaultLimit int
	MaxLimit     int
}

func (s *Service) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// Get loads one sale with its line items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Sale, error) {
	return s.Store.Get(ctx, id)
}

// List returns sales newest first within the optional date range.
func (s *Service) List(ctx context.Context, params ListParams) ([]Sale, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = s.DefaultLimit
	}
	return s.Store.List(ctx, params)
}

// DaySummary aggregates the business day named by date ("2006-01-02") in the
// store's local timezone.
func (s *Service) DaySummary(ctx context.Context, date string) (DailySummary, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.location())
	if err != nil {
		return DailySummary{}, fmt.Errorf("parse summary date: %w", err)
	}
	return s.Store.Summary(ctx, day, day.AddDate(0, 0, 1))
}

// ParseDay interprets a YYYY-MM-DD query value in the service's timezone.
// An empty value means today.
func (s *Service) ParseDay(value string, now time.Time) (string, error) {
	if value == "" {
		return now.In(s.location()).Format("2006-01-02"), nil
	}
	if _, err := time.ParseInLocation("2006-01-02", value, s.location()); err != nil {
		return "", err
	}
	return value, nil
}
