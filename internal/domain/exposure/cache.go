package exposure

import (
	"fmt"
	"time"
)

// Fetch reasons reported by shouldFetch. They surface in logs and metrics.
const (
	ReasonLocationChanged = "location_changed"
	ReasonCacheExpired    = "cache_expired"
	ReasonCacheValid      = "cache_valid"
)

// LocationKey rounds each coordinate component to 4 decimal places and
// joins them, so nearby fixes from device geolocation map to one key.
func LocationKey(c Coordinate) string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// shouldFetch decides whether cached results can be served. Pure function
// of session state and the supplied clock; no side effects.
func shouldFetch(c Coordinate, cached *CacheEntry, now time.Time, ttl time.Duration) (bool, string) {
	if cached == nil || cached.LocationKey != LocationKey(c) {
		return true, ReasonLocationChanged
	}
	if cached.ComputedAt.IsZero() || now.Sub(cached.ComputedAt) >= ttl {
		return true, ReasonCacheExpired
	}
	return false, ReasonCacheValid
}
