package staydex

// SortKey controls result ordering.
type SortKey string

// Sort keys. SortRating is the default.
const (
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
	SortPopular   SortKey = "popular"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortDistance  SortKey = "distance"
)

// Relaxation level names reported in Strategy.Level.
const (
	LevelExact                  = "exact"
	LevelMinor                  = "minor_relaxation"
	LevelModerate               = "moderate_relaxation"
	LevelMajor                  = "major_relaxation"
	LevelAlternativeSuggestions = "alternative_suggestions"
)

// SearchRequest is a unit or property search. Zero values leave a filter unset.
type SearchRequest struct {
	City           string
	PropertyTypeID string
	UnitTypeID     string
	Guests         int
	MinRating      *float64
	MinPrice       *float64
	MaxPrice       *float64
	Geo            *GeoFilter
	AmenityIDs     []string
	ServiceIDs     []string
	Fields         []FieldFilter
	Text           string
	CheckIn        string // YYYY-MM-DD, together with CheckOut
	CheckOut       string
	Sort           SortKey
	Page           int
	PageSize       int
}

// GeoFilter restricts results to a radius around a point.
type GeoFilter struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// FieldFilter matches a dynamic unit-type field, either exactly or by range.
type FieldFilter struct {
	Name  string
	Match string
	Min   *float64
	Max   *float64
}

// Capacity is the guest capacity of a unit.
type Capacity struct {
	Total    int `json:"total"`
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

// Quote prices a stay.
type Quote struct {
	Total           float64 `json:"total"`
	Nights          int     `json:"nights"`
	AveragePerNight float64 `json:"average_per_night"`
	Extrapolated    bool    `json:"extrapolated,omitempty"`
	MissingDays     int     `json:"missing_days,omitempty"`
}

// Unit is a matched unit.
type Unit struct {
	UnitID         string             `json:"unit_id"`
	PropertyID     string             `json:"property_id"`
	UnitName       string             `json:"unit_name"`
	PropertyName   string             `json:"property_name"`
	City           string             `json:"city"`
	PropertyTypeID string             `json:"property_type_id"`
	UnitTypeID     string             `json:"unit_type_id"`
	StarRating     int                `json:"star_rating"`
	AverageRating  float64            `json:"average_rating"`
	Latitude       float64            `json:"latitude"`
	Longitude      float64            `json:"longitude"`
	Capacity       Capacity           `json:"capacity"`
	AmenityIDs     []string           `json:"amenity_ids"`
	ServiceIDs     []string           `json:"service_ids"`
	TextFields     map[string]string  `json:"text_fields,omitempty"`
	NumericFields  map[string]float64 `json:"numeric_fields,omitempty"`
	BookingCount   int64              `json:"booking_count"`
	NightlyPrice   float64            `json:"nightly_price"`
	Quote          *Quote             `json:"quote,omitempty"`
	DistanceKm     *float64           `json:"distance_km,omitempty"`
}

// Property is a property with its matched units.
type Property struct {
	PropertyID     string   `json:"property_id"`
	Name           string   `json:"name"`
	City           string   `json:"city"`
	PropertyTypeID string   `json:"property_type_id"`
	StarRating     int      `json:"star_rating"`
	AverageRating  float64  `json:"average_rating"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	MinPrice       float64  `json:"min_price"`
	MaxPrice       float64  `json:"max_price"`
	DistanceKm     *float64 `json:"distance_km,omitempty"`
	Units          []Unit   `json:"units"`
}

// Strategy describes how far a search was relaxed.
type Strategy struct {
	Level          string   `json:"level"`
	Description    string   `json:"description"`
	RelaxedFilters []string `json:"relaxed_filters"`
	IsSuggestion   bool     `json:"is_suggestion"`
}

// Page is one page of results.
type Page[T any] struct {
	Items      []T      `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
	Strategy   Strategy `json:"strategy"`
}

// RebuildReport summarizes a full rebuild.
type RebuildReport struct {
	Indexed int      `json:"indexed"`
	Removed int      `json:"removed"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// CleanupReport summarizes an orphan cleanup.
type CleanupReport struct {
	OrphanDocuments int `json:"orphan_documents"`
	IndexesScanned  int `json:"indexes_scanned"`
	StaleReferences int `json:"stale_references"`
}

// IndexStats describes the index contents.
type IndexStats struct {
	Documents  int64             `json:"documents"`
	Approved   int64             `json:"approved"`
	Geo        int64             `json:"geo"`
	Priced     int64             `json:"priced"`
	ByCity     map[string]int64  `json:"by_city"`
	ByUnitType map[string]int64  `json:"by_unit_type"`
	Meta       map[string]string `json:"meta"`
	IndexKeys  int               `json:"index_keys"`
	KeyPrefix  string            `json:"key_prefix"`
}
