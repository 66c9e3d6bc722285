// Package postgres reads the source-of-truth catalog (properties, units,
// amenities, services, dynamic fields and daily schedules) from PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staydex/internal/domain"
	"github.com/kailas-cloud/staydex/internal/domain/catalog"
	"github.com/kailas-cloud/staydex/internal/domain/period"
)

// Connect opens a connection pool and checks it with a ping.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Repo implements every catalog reader over one pool.
type Repo struct {
	db  *pgxpool.Pool
	log *zap.Logger
}

// New creates a catalog reader.
func New(db *pgxpool.Pool, log *zap.Logger) *Repo {
	return &Repo{db: db, log: log}
}

// Ping checks the database connection.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

const unitColumns = `
	id, property_id, unit_type_id, name,
	max_capacity, adults_capacity, children_capacity,
	pricing_method, base_price, booking_count,
	is_active, is_deleted, created_at`

func scanUnit(row pgx.CollectableRow) (catalog.Unit, error) {
	var u catalog.Unit
	var method string
	var unitTypeID *string
	var basePrice *float64
	err := row.Scan(
		&u.ID, &u.PropertyID, &unitTypeID, &u.Name,
		&u.MaxCapacity, &u.AdultsCapacity, &u.ChildrenCapacity,
		&method, &basePrice, &u.BookingCount,
		&u.Active, &u.Deleted, &u.CreatedAt,
	)
	if err != nil {
		return catalog.Unit{}, err
	}
	// Units without a type carry no dynamic fields.
	if unitTypeID != nil {
		u.UnitTypeID = *unitTypeID
	}
	u.PricingMethod = catalog.PricingMethod(method)
	if basePrice != nil {
		u.BasePrice = *basePrice
	}
	return u, nil
}

// GetUnit returns a unit, deleted or not.
func (r *Repo) GetUnit(ctx context.Context, id string) (catalog.Unit, error) {
	const op = "postgres.GetUnit"

	rows, err := r.db.Query(ctx, `SELECT `+unitColumns+` FROM units WHERE id = $1`, id)
	if err != nil {
		return catalog.Unit{}, fmt.Errorf("%s: %w", op, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUnit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Unit{}, fmt.Errorf("%s: unit %s: %w", op, id, domain.ErrSourceEntityMissing)
		}
		return catalog.Unit{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListUnitsByProperty returns every unit of a property.
func (r *Repo) ListUnitsByProperty(ctx context.Context, propertyID string) ([]catalog.Unit, error) {
	const op = "postgres.ListUnitsByProperty"

	rows, err := r.db.Query(ctx,
		`SELECT `+unitColumns+` FROM units WHERE property_id = $1 ORDER BY id`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	units, err := pgx.CollectRows(rows, scanUnit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return units, nil
}

// ListUnitsByUnitType returns every unit of a unit type.
func (r *Repo) ListUnitsByUnitType(ctx context.Context, unitTypeID string) ([]catalog.Unit, error) {
	const op = "postgres.ListUnitsByUnitType"

	rows, err := r.db.Query(ctx,
		`SELECT `+unitColumns+` FROM units WHERE unit_type_id = $1 ORDER BY id`, unitTypeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	units, err := pgx.CollectRows(rows, scanUnit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return units, nil
}

// ListIndexableUnits pages through active, non-deleted units by id. Pass the
// last id of the previous page as afterID; an empty page ends the walk.
func (r *Repo) ListIndexableUnits(ctx context.Context, afterID string, limit int) ([]catalog.Unit, error) {
	const op = "postgres.ListIndexableUnits"

	rows, err := r.db.Query(ctx, `
		SELECT `+unitColumns+`
		FROM units
		WHERE is_active AND NOT is_deleted AND id > $1
		ORDER BY id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	units, err := pgx.CollectRows(rows, scanUnit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return units, nil
}

// GetProperty returns a property. Inactive properties are returned with
// Active=false.
func (r *Repo) GetProperty(ctx context.Context, id string) (catalog.Property, error) {
	const op = "postgres.GetProperty"

	query := `
		SELECT
			id, name, city, property_type_id, star_rating, average_rating,
			latitude, longitude, is_approved, is_active, created_at
		FROM properties
		WHERE id = $1
	`

	var p catalog.Property
	var avg, lat, lon *float64
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.City,
		&p.PropertyTypeID,
		&p.StarRating,
		&avg,
		&lat,
		&lon,
		&p.Approved,
		&p.Active,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Property{}, fmt.Errorf("%s: property %s: %w", op, id, domain.ErrSourceEntityMissing)
		}
		return catalog.Property{}, fmt.Errorf("%s: %w", op, err)
	}
	p.AverageRating = deref(avg)
	p.Latitude = deref(lat)
	p.Longitude = deref(lon)
	return p, nil
}

// ListAmenitiesByUnit returns the amenities attached to a unit.
func (r *Repo) ListAmenitiesByUnit(ctx context.Context, unitID string) ([]catalog.Amenity, error) {
	const op = "postgres.ListAmenitiesByUnit"

	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.name
		FROM unit_amenities ua
		JOIN amenities a ON a.id = ua.amenity_id
		WHERE ua.unit_id = $1
		ORDER BY a.id`, unitID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	amenities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Amenity, error) {
		var a catalog.Amenity
		err := row.Scan(&a.ID, &a.Name)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return amenities, nil
}

// ListServicesByUnit returns the services offered with a unit.
func (r *Repo) ListServicesByUnit(ctx context.Context, unitID string) ([]catalog.Service, error) {
	const op = "postgres.ListServicesByUnit"

	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.name
		FROM unit_services us
		JOIN services s ON s.id = us.service_id
		WHERE us.unit_id = $1
		ORDER BY s.id`, unitID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	services, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Service, error) {
		var s catalog.Service
		err := row.Scan(&s.ID, &s.Name)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return services, nil
}

// ListFieldDefinitions returns the dynamic fields of a unit type.
func (r *Repo) ListFieldDefinitions(ctx context.Context, unitTypeID string) ([]catalog.FieldDefinition, error) {
	const op = "postgres.ListFieldDefinitions"

	rows, err := r.db.Query(ctx, `
		SELECT id, unit_type_id, name, field_type, is_primary_filter
		FROM unit_type_fields
		WHERE unit_type_id = $1
		ORDER BY name`, unitTypeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.FieldDefinition, error) {
		var d catalog.FieldDefinition
		var kind string
		if err := row.Scan(&d.ID, &d.UnitTypeID, &d.Name, &kind, &d.IsPrimaryFilter); err != nil {
			return catalog.FieldDefinition{}, err
		}
		d.Kind = fieldKind(kind)
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return defs, nil
}

// ListFieldValues returns the dynamic field values a unit holds.
func (r *Repo) ListFieldValues(ctx context.Context, unitID string) ([]catalog.FieldValue, error) {
	const op = "postgres.ListFieldValues"

	rows, err := r.db.Query(ctx, `
		SELECT field_id, value
		FROM unit_field_values
		WHERE unit_id = $1 AND value IS NOT NULL`, unitID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	values, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.FieldValue, error) {
		var v catalog.FieldValue
		err := row.Scan(&v.FieldID, &v.Value)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return values, nil
}

// ListSchedule returns the unit's schedule days within [from, to), by date.
func (r *Repo) ListSchedule(ctx context.Context, unitID string, from, to time.Time) ([]period.Day, error) {
	const op = "postgres.ListSchedule"

	rows, err := r.db.Query(ctx, `
		SELECT date, price, status
		FROM unit_daily_schedules
		WHERE unit_id = $1 AND date >= $2 AND date < $3
		ORDER BY date`, unitID, period.Midnight(from), period.Midnight(to))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (period.Day, error) {
		var d period.Day
		var status string
		if err := row.Scan(&d.Date, &d.Price, &status); err != nil {
			return period.Day{}, err
		}
		d.Date = period.Midnight(d.Date)
		d.Status = r.status(unitID, status)
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return days, nil
}

// status maps a stored status onto a known one. Unknown statuses block the
// day; an empty status means available.
func (r *Repo) status(unitID, raw string) period.Status {
	s := parseStatus(raw)
	if n := normalize(raw); n != "" && !period.Status(n).IsValid() {
		r.log.Warn("unknown schedule status, treating as blocked",
			zap.String("unit_id", unitID), zap.String("status", raw))
	}
	return s
}

func parseStatus(raw string) period.Status {
	s := period.Status(normalize(raw))
	if s == "" {
		return period.StatusAvailable
	}
	if s.IsValid() {
		return s
	}
	return period.StatusBlocked
}

func fieldKind(raw string) catalog.FieldKind {
	switch k := catalog.FieldKind(normalize(raw)); k {
	case catalog.FieldText, catalog.FieldNumber, catalog.FieldBoolean, catalog.FieldSelect:
		return k
	case "numeric", "integer", "decimal":
		return catalog.FieldNumber
	case "bool":
		return catalog.FieldBoolean
	default:
		return catalog.FieldText
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
