package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/environment"
	"github.com/fasalneeti/yield-service/internal/prediction"
)

const maxBodyBytes = 64 << 10

// predictBody accepts the nested location form and the flat form.
type predictBody struct {
	Location *domain.Location `json:"location"`
	State    string           `json:"state"`
	District string           `json:"district"`
	Crop     string           `json:"crop"`
	Season   string           `json:"season"`
	Year     flexNumber       `json:"year"`
	Area     flexNumber       `json:"area"`
}

func (b predictBody) toRequest() (domain.PredictionRequest, error) {
	loc := domain.Location{State: b.State, District: b.District}
	if b.Location != nil {
		if b.Location.State != "" {
			loc.State = b.Location.State
		}
		if b.Location.District != "" {
			loc.District = b.Location.District
		}
	}
	year := float64(b.Year)
	if year != math.Trunc(year) || year > math.MaxInt32 {
		return domain.PredictionRequest{}, &domain.ValidationError{Field: "year", Reason: "must be a whole number"}
	}
	return domain.PredictionRequest{
		Location: loc,
		Crop:     b.Crop,
		Season:   b.Season,
		Year:     int(year),
		Area:     float64(b.Area),
	}, nil
}

// flexNumber decodes a JSON number or a numeric string. Form-driven clients
// send both.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*n = flexNumber(f)
	return nil
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var body predictBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := body.toRequest()
	if err != nil {
		writeValidationError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	resp, err := s.svc.Predict(ctx, req, s.auth.OwnerID(r))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			writeValidationError(w, err)
			return
		}
		s.logger.Error("prediction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeValidationError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	writeJSON(w, http.StatusBadRequest, body)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	owner := s.auth.OwnerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	preds, err := s.svc.Recent(r.Context(), owner, limit)
	switch {
	case errors.Is(err, prediction.ErrHistoryUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.logger.Error("list predictions failed", "owner_id", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list predictions")
		return
	}
	if preds == nil {
		preds = []domain.Prediction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": preds})
}

func (s *Server) handleDistricts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"districts": environment.Districts()})
}

type weatherBody struct {
	State    string                      `json:"state,omitempty"`
	District string                      `json:"district"`
	Factors  domain.EnvironmentalFactors `json:"factors"`
	Alerts   []domain.Alert              `json:"alerts"`
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	loc := domain.Location{
		State:    strings.TrimSpace(r.URL.Query().Get("state")),
		District: strings.TrimSpace(r.PathValue("district")),
	}
	if loc.District == "" {
		writeError(w, http.StatusBadRequest, "district is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	f := s.svc.Factors(ctx, loc)
	writeJSON(w, http.StatusOK, weatherBody{
		State:    loc.State,
		District: loc.District,
		Factors:  f,
		Alerts:   domain.DeriveAlerts(loc.District, f.Weather()),
	})
}
