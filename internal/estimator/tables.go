package estimator

import "strings"

// baseYields holds historical averages in kg/ha by crop and season.
var baseYields = map[string]map[string]float64{
	"rice":      {"kharif": 2540, "rabi": 2820, "summer": 2210},
	"wheat":     {"kharif": 1850, "rabi": 3280, "summer": 2430},
	"maize":     {"kharif": 2270, "rabi": 2610, "summer": 1980},
	"sugarcane": {"kharif": 68520, "rabi": 72050, "summer": 65080},
	"cotton":    {"kharif": 1280, "rabi": 1520, "summer": 1140},
}

const defaultBaseYield = 2000.0

// cropAverages are the fallback per-crop yields in kg/ha.
var cropAverages = map[string]float64{
	"rice":      2500,
	"wheat":     3000,
	"maize":     4000,
	"sugarcane": 65000,
	"cotton":    1500,
}

const defaultCropAverage = 2500.0

// cropKey normalizes crop names like "Cotton(lint)" to table keys.
func cropKey(crop string) string {
	k := strings.ToLower(strings.TrimSpace(crop))
	if i := strings.IndexByte(k, '('); i > 0 {
		k = strings.TrimSpace(k[:i])
	}
	return k
}

func seasonKey(season string) string {
	return strings.ToLower(strings.TrimSpace(season))
}

func lookupBaseYield(crop, season string) float64 {
	if bySeason, ok := baseYields[cropKey(crop)]; ok {
		if y, ok := bySeason[seasonKey(season)]; ok {
			return y
		}
	}
	return defaultBaseYield
}
