package exposure

import "time"

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// UVReading carries the two candidate daily maxima returned by the UV
// provider. A nil field means the provider had no usable series for it.
type UVReading struct {
	ClearSkyMax  *float64
	CloudySkyMax *float64
}

// Empty reports whether the provider returned no usable UV data at all.
func (r UVReading) Empty() bool {
	return r.ClearSkyMax == nil && r.CloudySkyMax == nil
}

// WeatherSnapshot is the normalized weather provider result. Sunrise and
// Sunset are unix timestamps; zero means "unknown".
type WeatherSnapshot struct {
	CloudIndex           int
	LocationName         string
	ConditionMain        string
	ConditionDescription string
	ConditionIcon        string
	Sunrise              int64
	Sunset               int64
}

// DisplayContext is the full set of fields handed to presentation. It is
// always assembled as one unit; partial contexts are never cached.
type DisplayContext struct {
	UVIndex              *float64 `json:"uvIndex"`
	Advice               string   `json:"advice"`
	CloudIndex           *int     `json:"cloudIndex"`
	LocationName         string   `json:"locationName"`
	ConditionMain        string   `json:"conditionMain"`
	ConditionDescription string   `json:"conditionDescription"`
	ConditionIcon        string   `json:"conditionIcon"`
	GeneratedAdvice      string   `json:"generatedAdvice"`
	Nighttime            bool     `json:"nighttime"`
	FromCache            bool     `json:"fromCache"`
}

// CacheEntry is the single cached result a session may hold. It is
// replaced wholesale on store and discarded on location change or expiry.
type CacheEntry struct {
	LocationKey string         `json:"locationKey"`
	ComputedAt  time.Time      `json:"computedAt"`
	Context     DisplayContext `json:"context"`
}

// SessionState is the per-session state threaded through the pipeline.
// The web layer owns persistence; Report returns the updated copy.
type SessionState struct {
	Coordinate Coordinate  `json:"coordinate"`
	Cache      *CacheEntry `json:"cache,omitempty"`
}

// Config wires runtime knobs for the exposure domain.
type Config struct {
	CacheTTL          time.Duration
	ProviderTimeout   time.Duration
	AdviceTimeout     time.Duration
	AdvicePrompt      string
	AdviceTokenBudget int
}
