package sortby

// Key is the result ordering.
type Key string

// Sort keys. Rating is the default.
const (
	Rating    Key = "rating"
	Newest    Key = "newest"
	Popular   Key = "popular"
	PriceAsc  Key = "price_asc"
	PriceDesc Key = "price_desc"
	// Distance orders by distance from the geo center and requires one.
	Distance Key = "distance"
)

// IsValid checks if the key is one of the supported values.
func (k Key) IsValid() bool {
	switch k {
	case Rating, Newest, Popular, PriceAsc, PriceDesc, Distance:
		return true
	}
	return false
}
