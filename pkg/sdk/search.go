package staydex

import (
	"context"
	"fmt"
	"time"
)

// SearchService runs unit and property searches.
type SearchService struct {
	svc searchUseCase
	obs *observer
}

// Units returns one page of matching units. When strict matching
// under-returns, filters are relaxed and Strategy reports how.
func (s *SearchService) Units(ctx context.Context, req SearchRequest) (page Page[Unit], err error) {
	start := time.Now()
	defer func() {
		s.obs.observe("search_units", start, err, "level", page.Strategy.Level, "results", page.Total)
	}()

	res, err := s.svc.SearchUnits(ctx, toParams(&req))
	if err != nil {
		return Page[Unit]{}, fmt.Errorf("search units: %w", err)
	}
	return fromPage(&res, fromUnit), nil
}

// Properties returns one page of properties, each with its matching units.
func (s *SearchService) Properties(ctx context.Context, req SearchRequest) (page Page[Property], err error) {
	start := time.Now()
	defer func() {
		s.obs.observe("search_properties", start, err, "level", page.Strategy.Level, "results", page.Total)
	}()

	res, err := s.svc.SearchPropertiesWithUnits(ctx, toParams(&req))
	if err != nil {
		return Page[Property]{}, fmt.Errorf("search properties: %w", err)
	}
	return fromPage(&res, fromProperty), nil
}
