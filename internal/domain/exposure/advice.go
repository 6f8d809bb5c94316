package exposure

import "time"

// Fixed advice strings used when the pipeline cannot produce a real
// recommendation. The exact wording is load-bearing for the frontend.
const (
	AdviceUVUnavailable      = "Could not fetch UV data. Please try again later."
	AdviceWeatherUnavailable = "Could not fetch weather data. Please try again later."
	AdviceNighttime          = "It's nighttime. No UV protection needed."
	AdviceNoData             = "UV data unavailable."

	generatedAdviceNighttime = "The sun is down. Enjoy your evening!"
)

var sunnyAdvice = [...]string{
	"Low UV (sunny): Light clothing, no hat needed.",
	"Moderate UV (sunny): Cover shoulders, wear a hat.",
	"High UV (sunny): Sunglasses, hat, and long sleeves recommended.",
	"Very High UV (sunny): Avoid midday sun, full coverage.",
	"Extreme UV (sunny): Stay indoors if possible.",
}

var cloudyAdvice = [...]string{
	"Low UV (cloudy): Light clothing is fine, clouds help a little.",
	"Moderate UV (cloudy): UV gets through clouds, cover shoulders and wear a hat.",
	"High UV (cloudy): Don't trust the clouds, wear sunglasses, a hat, and long sleeves.",
	"Very High UV (cloudy): Clouds won't save you, avoid midday sun and cover up.",
	"Extreme UV (cloudy): Stay indoors if possible, even under cloud.",
}

// clothingAdvice maps an effective UV index to one of five severity
// bands with inclusive upper bounds. Band boundaries are identical for
// the cloudy and sunny tables; only the framing differs. Never fails,
// never performs I/O.
func clothingAdvice(uv *float64, cloudy bool) string {
	if uv == nil {
		return AdviceNoData
	}
	table := &sunnyAdvice
	if cloudy {
		table = &cloudyAdvice
	}
	switch {
	case *uv <= 2:
		return table[0]
	case *uv <= 5:
		return table[1]
	case *uv <= 7:
		return table[2]
	case *uv <= 10:
		return table[3]
	default:
		return table[4]
	}
}

// effectiveUV selects the single UV index for the request: the cloudy-sky
// maximum when cloud coverage is at or above 50%, the clear-sky maximum
// otherwise. Returns nil when the selected source is absent, even if the
// other candidate is present.
func effectiveUV(r UVReading, cloudIndex int) *float64 {
	if cloudIndex >= 50 {
		return r.CloudySkyMax
	}
	return r.ClearSkyMax
}

// isNighttime reports whether now falls outside [sunrise, sunset]. A zero
// sunrise or sunset means the provider did not supply one; that defaults
// to daytime so advice is never suppressed on incomplete data.
func isNighttime(sunrise, sunset int64, now time.Time) bool {
	if sunrise == 0 || sunset == 0 {
		return false
	}
	ts := now.Unix()
	return ts < sunrise || ts > sunset
}
