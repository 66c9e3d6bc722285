package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	staydex "github.com/kailas-cloud/staydex/pkg/sdk"
)

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "city", Usage: "City name"},
		&cli.StringFlag{Name: "property-type", Usage: "Property type ID"},
		&cli.StringFlag{Name: "unit-type", Usage: "Unit type ID"},
		&cli.IntFlag{Name: "guests", Usage: "Minimum guest capacity"},
		&cli.FloatFlag{Name: "min-rating", Usage: "Minimum average rating"},
		&cli.FloatFlag{Name: "min-price", Usage: "Minimum nightly price"},
		&cli.FloatFlag{Name: "max-price", Usage: "Maximum nightly price"},
		&cli.FloatFlag{Name: "lat", Usage: "Latitude of the search center"},
		&cli.FloatFlag{Name: "lon", Usage: "Longitude of the search center"},
		&cli.FloatFlag{Name: "radius", Usage: "Search radius in km", Value: 10},
		&cli.StringSliceFlag{Name: "amenity", Usage: "Required amenity ID (repeatable)"},
		&cli.StringSliceFlag{Name: "service", Usage: "Required service ID (repeatable)"},
		&cli.StringSliceFlag{Name: "field", Usage: "Dynamic field filter: name=value or name=min..max (repeatable)"},
		&cli.StringFlag{Name: "text", Usage: "Free-text query"},
		&cli.StringFlag{Name: "check-in", Usage: "Check-in date (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "check-out", Usage: "Check-out date (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "sort", Usage: "rating, newest, popular, price_asc, price_desc or distance"},
		&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
		&cli.IntFlag{Name: "page-size", Usage: "Results per page", Value: 20},
		&cli.BoolFlag{Name: "properties", Usage: "Group results by property"},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search units, relaxing filters when too few match",
		Flags: searchFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			req, err := buildSearchRequest(c)
			if err != nil {
				return err
			}

			client, err := connect(ctx, c, false)
			if err != nil {
				return err
			}
			defer client.Close()

			if c.Bool("properties") {
				page, err := client.Search().Properties(ctx, req)
				if err != nil {
					return fmt.Errorf("searching properties: %w", err)
				}
				if c.Bool("json") {
					return printJSON(page)
				}
				fmt.Println(renderProperties(page))
				return nil
			}

			page, err := client.Search().Units(ctx, req)
			if err != nil {
				return fmt.Errorf("searching units: %w", err)
			}
			if c.Bool("json") {
				return printJSON(page)
			}
			fmt.Println(renderUnits(page))
			return nil
		},
	}
}

func floatPtr(c *cli.Command, name string) *float64 {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Float(name)
	return &v
}

// buildSearchRequest maps search flags onto an SDK request. Value checks are
// left to the search service.
func buildSearchRequest(c *cli.Command) (staydex.SearchRequest, error) {
	req := staydex.SearchRequest{
		City:           c.String("city"),
		PropertyTypeID: c.String("property-type"),
		UnitTypeID:     c.String("unit-type"),
		Guests:         c.Int("guests"),
		MinRating:      floatPtr(c, "min-rating"),
		MinPrice:       floatPtr(c, "min-price"),
		MaxPrice:       floatPtr(c, "max-price"),
		AmenityIDs:     c.StringSlice("amenity"),
		ServiceIDs:     c.StringSlice("service"),
		Text:           c.String("text"),
		CheckIn:        c.String("check-in"),
		CheckOut:       c.String("check-out"),
		Sort:           staydex.SortKey(c.String("sort")),
		Page:           c.Int("page"),
		PageSize:       c.Int("page-size"),
	}

	if c.IsSet("lat") != c.IsSet("lon") {
		return req, fmt.Errorf("--lat and --lon must be given together")
	}
	if c.IsSet("lat") {
		req.Geo = &staydex.GeoFilter{
			Latitude:  c.Float("lat"),
			Longitude: c.Float("lon"),
			RadiusKm:  c.Float("radius"),
		}
	}

	for _, raw := range c.StringSlice("field") {
		f, err := parseFieldFilter(raw)
		if err != nil {
			return req, err
		}
		req.Fields = append(req.Fields, f)
	}
	return req, nil
}

// parseFieldFilter reads "name=value" as an exact match and "name=min..max"
// as a range; either range bound may be omitted.
func parseFieldFilter(raw string) (staydex.FieldFilter, error) {
	name, value, ok := strings.Cut(raw, "=")
	if !ok || name == "" {
		return staydex.FieldFilter{}, fmt.Errorf("invalid --field %q: want name=value or name=min..max", raw)
	}
	lo, hi, isRange := strings.Cut(value, "..")
	if !isRange {
		return staydex.FieldFilter{Name: name, Match: value}, nil
	}

	f := staydex.FieldFilter{Name: name}
	bound := func(s string) (*float64, error) {
		if s == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --field %q: %w", raw, err)
		}
		return &v, nil
	}
	var err error
	if f.Min, err = bound(lo); err != nil {
		return staydex.FieldFilter{}, err
	}
	if f.Max, err = bound(hi); err != nil {
		return staydex.FieldFilter{}, err
	}
	if f.Min == nil && f.Max == nil {
		return staydex.FieldFilter{}, fmt.Errorf("invalid --field %q: range needs a bound", raw)
	}
	return f, nil
}
