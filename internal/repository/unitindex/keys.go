package unitindex

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/staydex/internal/domain/search/filter"
)

// DefaultKeyPrefix namespaces every key the index writes.
const DefaultKeyPrefix = "staydex:"

// Keys renders the index key layout under a prefix.
type Keys struct {
	prefix string
}

// NewKeys creates a key layout. An empty prefix uses DefaultKeyPrefix.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return Keys{prefix: prefix}
}

// Prefix returns the key namespace.
func (k Keys) Prefix() string { return k.prefix }

// Doc is the document key of a unit.
func (k Keys) Doc(propertyID, unitID string) string {
	return fmt.Sprintf("%sproperty:%s:unit:%s", k.prefix, propertyID, unitID)
}

// DocPattern matches every document key.
func (k Keys) DocPattern() string { return k.prefix + "property:*:unit:*" }

// PropertyDocPattern matches the document keys of one property.
func (k Keys) PropertyDocPattern(propertyID string) string {
	return k.prefix + "property:" + propertyID + ":unit:*"
}

// ParseDoc extracts property and unit ids from a document key.
func (k Keys) ParseDoc(key string) (propertyID, unitID string, ok bool) {
	rest, found := strings.CutPrefix(key, k.prefix+"property:")
	if !found {
		return "", "", false
	}
	propertyID, unitID, ok = strings.Cut(rest, ":unit:")
	if !ok || propertyID == "" || unitID == "" {
		return "", "", false
	}
	return propertyID, unitID, true
}

// Membership sets.

func (k Keys) Approved() string { return k.prefix + "index:approved" }
func (k Keys) City(city string) string { return k.prefix + "index:city:" + Normalize(city) }
func (k Keys) UnitType(id string) string { return k.prefix + "index:unittype:" + id }
func (k Keys) PropertyType(id string) string { return k.prefix + "index:proptype:" + id }
func (k Keys) Amenity(id string) string { return k.prefix + "index:amenity:" + id }
func (k Keys) Service(id string) string { return k.prefix + "index:service:" + id }
func (k Keys) Keyword(token string) string { return k.prefix + "index:keyword:" + token }
func (k Keys) Property(propertyID string) string { return k.prefix + "index:property:" + propertyID }
func (k Keys) Unit(unitID string) string { return k.prefix + "index:unit:" + unitID }

// Field is the membership set of a text dynamic-field value.
func (k Keys) Field(name, value string) string {
	return k.prefix + "index:field:" + name + ":" + Normalize(value)
}

// Ordered sets.

func (k Keys) PriceMin() string { return k.prefix + "index:price:min" }
func (k Keys) PriceMax() string { return k.prefix + "index:price:max" }
func (k Keys) Rating() string { return k.prefix + "index:rating" }
func (k Keys) Popularity() string { return k.prefix + "index:popularity" }
func (k Keys) Newest() string { return k.prefix + "index:newest" }
func (k Keys) FieldNum(name string) string { return k.prefix + "index:fieldnum:" + name }

// Blocked holds one member per blocked interval, scored by interval end.
func (k Keys) Blocked() string { return k.prefix + "index:blocked" }

// Geo is the geo index of document locations.
func (k Keys) Geo() string { return k.prefix + "index:geo" }

// Meta is the maintenance metadata hash.
func (k Keys) Meta() string { return k.prefix + "meta:index" }

// IndexPattern matches every secondary index key.
func (k Keys) IndexPattern() string { return k.prefix + "index:*" }

// CityPattern matches every city membership set.
func (k Keys) CityPattern() string { return k.prefix + "index:city:*" }

// UnitTypePattern matches every unit type membership set.
func (k Keys) UnitTypePattern() string { return k.prefix + "index:unittype:*" }

// IsOrdered reports whether key names a sorted set (including geo).
func (k Keys) IsOrdered(key string) bool {
	switch key {
	case k.PriceMin(), k.PriceMax(), k.Rating(), k.Popularity(), k.Newest(), k.Blocked(), k.Geo():
		return true
	}
	return strings.HasPrefix(key, k.prefix+"index:fieldnum:")
}

// Normalize folds a dimension value for use inside a key. Text filters fold
// their match values identically.
func Normalize(v string) string { return filter.Fold(v) }
