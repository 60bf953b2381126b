package prediction

import "github.com/fasalneeti/yield-service/internal/domain"

// Response is the result returned to API callers. Yields are kg/ha and
// TotalProduction is kg.
type Response struct {
	State    string  `json:"state"`
	District string  `json:"district"`
	Crop     string  `json:"crop"`
	Season   string  `json:"season"`
	Year     int     `json:"year"`
	Area     float64 `json:"area"`

	PredictedYield  float64          `json:"predictedYield"`
	ConfidencePct   float64          `json:"confidencePct"`
	ModelUsed       string           `json:"modelUsed"`
	Tier            string           `json:"tier"`
	Unit            string           `json:"unit"`
	TotalProduction float64          `json:"totalProduction"`
	Factors         Factors          `json:"factors"`
	Weather         domain.Weather   `json:"weather"`
	Accuracy        *domain.Accuracy `json:"accuracy,omitempty"`
	Alerts          []domain.Alert   `json:"alerts"`
	PredictionID    string           `json:"predictionId,omitempty"`
}

// Factors is the subset of environmental factors echoed in a Response.
type Factors struct {
	VegetationIndex float64 `json:"ndvi"`
	TemperatureAvg  float64 `json:"tempAvg"`
	HumidityPct     float64 `json:"humidity"`
	SoilPH          float64 `json:"soilPh"`
	Source          string  `json:"source"`
}

func newResponse(req domain.PredictionRequest, f domain.EnvironmentalFactors, r domain.EstimationResult) Response {
	return Response{
		State:           req.Location.State,
		District:        req.Location.District,
		Crop:            req.Crop,
		Season:          req.Season,
		Year:            req.Year,
		Area:            req.Area,
		PredictedYield:  r.PredictedYield,
		ConfidencePct:   r.ConfidencePct,
		ModelUsed:       r.ModelUsed,
		Tier:            r.Tier,
		Unit:            domain.UnitKgPerHectare,
		TotalProduction: r.PredictedYield * req.Area,
		Factors: Factors{
			VegetationIndex: f.VegetationIndex,
			TemperatureAvg:  f.TemperatureAvg,
			HumidityPct:     f.HumidityPct,
			SoilPH:          f.SoilPH,
			Source:          f.Source,
		},
		Weather:  f.Weather(),
		Accuracy: r.Accuracy,
		Alerts:   domain.DeriveAlerts(req.Location.District, f.Weather()),
	}
}
