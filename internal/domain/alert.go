package domain

// Alert thresholds mirror the weather warnings farmers receive on the dashboard.
const (
	HighTemperatureC = 35.0
	LowHumidityPct   = 30.0
)

// Alert is a weather-driven advisory attached to a prediction.
type Alert struct {
	Type     string `json:"type"`     // weather, pest, disease, irrigation
	Severity string `json:"severity"` // low, medium, high, critical
	Title    string `json:"title"`
	Message  string `json:"message"`
	District string `json:"district,omitempty"`
}

// DeriveAlerts returns the advisories triggered by the given weather.
// Returns an empty, non-nil slice when nothing fires.
func DeriveAlerts(district string, w Weather) []Alert {
	alerts := []Alert{}
	if w.TemperatureAvg > HighTemperatureC {
		alerts = append(alerts, Alert{
			Type:     "weather",
			Severity: "high",
			Title:    "High Temperature Alert",
			Message:  "Temperature exceeds 35°C - consider irrigation and shade protection",
			District: district,
		})
	}
	if w.HumidityPct < LowHumidityPct {
		alerts = append(alerts, Alert{
			Type:     "weather",
			Severity: "medium",
			Title:    "Low Humidity Warning",
			Message:  "Low humidity detected - drought risk, monitor soil moisture",
			District: district,
		})
	}
	return alerts
}
