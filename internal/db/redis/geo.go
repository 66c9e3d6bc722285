package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/staydex/internal/db"
)

// GeoAdd upserts a member position.
func (s *Store) GeoAdd(ctx context.Context, key string, lon, lat float64, member string) error {
	cmd := s.b().Geoadd().Key(key).LongitudeLatitudeMember().LongitudeLatitudeMember(lon, lat, member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpGeoAdd, Err: err}
	}
	return nil
}

// GeoRadius returns members within radiusKm of (lon, lat), nearest first.
func (s *Store) GeoRadius(ctx context.Context, key string, lon, lat, radiusKm float64) ([]string, error) {
	cmd := s.b().Arbitrary("GEOSEARCH").Keys(key).Args(
		"FROMLONLAT", formatFloat(lon), formatFloat(lat),
		"BYRADIUS", formatFloat(radiusKm), "km",
		"ASC",
	).ReadOnly()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpGeoSearch, Err: err}
	}
	return members, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
