package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/fasalneeti/yield-service/internal/domain"
)

// Environment variables carrying resolved factors to the model process.
const (
	EnvVegetationIndex = "FASALNEETI_NDVI"
	EnvSoilPH          = "FASALNEETI_SOIL_PH"
	EnvTemperatureC    = "FASALNEETI_TEMP_C"
	EnvHumidityPct     = "FASALNEETI_HUMIDITY"
	EnvRainfallMm      = "FASALNEETI_RAINFALL_MM"
)

const (
	defaultWaitDelay = 500 * time.Millisecond
	defaultModelName = "External Model"
	maxStderrInError = 256
)

// ProcessConfig configures the external model tier.
type ProcessConfig struct {
	// Command is the argv prefix; request fields are appended as
	// state district crop season year area.
	Command []string
	Timeout time.Duration
	// OutputUnit is assumed when the process omits "unit".
	OutputUnit string
	// WaitDelay bounds pipe draining after the process is killed.
	WaitDelay time.Duration
	// Env is appended to the inherited environment.
	Env []string
}

// Process runs an external model once per request and parses its last
// stdout line as JSON.
type Process struct {
	cfg ProcessConfig
}

// NewProcess validates cfg and returns the primary tier.
func NewProcess(cfg ProcessConfig) (*Process, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, errors.New("estimator command is empty")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("estimator timeout must be positive")
	}
	if cfg.OutputUnit == "" {
		cfg.OutputUnit = domain.UnitKgPerHectare
	}
	if _, err := domain.ConvertYield(1, cfg.OutputUnit); err != nil {
		return nil, err
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = defaultWaitDelay
	}
	return &Process{cfg: cfg}, nil
}

func (*Process) Name() string { return TierPrimary }

func (p *Process) Estimate(ctx context.Context, req domain.PredictionRequest, f domain.EnvironmentalFactors) (domain.EstimationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	args := make([]string, 0, len(p.cfg.Command)+5)
	args = append(args, p.cfg.Command[1:]...)
	args = append(args,
		req.Location.State,
		req.Location.District,
		req.Crop,
		req.Season,
		strconv.Itoa(req.Year),
		strconv.FormatFloat(req.Area, 'f', -1, 64),
	)

	cmd := exec.CommandContext(ctx, p.cfg.Command[0], args...)
	// Wrapper scripts spawn their own children; kill the whole group on timeout.
	killProcessGroup(cmd)
	cmd.WaitDelay = p.cfg.WaitDelay
	cmd.Env = append(os.Environ(), p.cfg.Env...)
	cmd.Env = append(cmd.Env, factorEnv(f)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.EstimationResult{}, fmt.Errorf("estimator process timed out after %s", p.cfg.Timeout)
		}
		if ctx.Err() != nil {
			return domain.EstimationResult{}, fmt.Errorf("estimator process cancelled: %w", ctx.Err())
		}
		return domain.EstimationResult{}, fmt.Errorf("run estimator process: %w%s", err, stderrSuffix(stderr.String()))
	}

	return parseProcessOutput(stdout.Bytes(), p.cfg.OutputUnit)
}

// processOutput is the JSON line the model process prints.
type processOutput struct {
	PredictedYield *float64 `json:"predicted_yield"`
	Confidence     *float64 `json:"confidence"`
	ModelUsed      string   `json:"model_used"`
	MAE            *float64 `json:"mae"`
	R2             *float64 `json:"r2_score"`
	Unit           string   `json:"unit"`
	Error          string   `json:"error"`
}

func parseProcessOutput(out []byte, defaultUnit string) (domain.EstimationResult, error) {
	line := lastNonEmptyLine(out)
	if line == "" {
		return domain.EstimationResult{}, errors.New("estimator process produced no output")
	}

	var o processOutput
	if err := json.Unmarshal([]byte(line), &o); err != nil {
		return domain.EstimationResult{}, fmt.Errorf("decode estimator output: %w", err)
	}
	if o.Error != "" {
		return domain.EstimationResult{}, fmt.Errorf("estimator reported error: %s", o.Error)
	}
	if o.PredictedYield == nil {
		return domain.EstimationResult{}, errors.New("estimator output missing predicted_yield")
	}
	if o.Confidence == nil {
		return domain.EstimationResult{}, errors.New("estimator output missing confidence")
	}

	unit := o.Unit
	if unit == "" {
		unit = defaultUnit
	}
	yield, err := domain.ConvertYield(*o.PredictedYield, unit)
	if err != nil {
		return domain.EstimationResult{}, err
	}
	if math.IsNaN(yield) || math.IsInf(yield, 0) || yield <= 0 {
		return domain.EstimationResult{}, fmt.Errorf("estimator returned non-positive yield %v", *o.PredictedYield)
	}

	confidence := *o.Confidence
	if confidence >= 0 && confidence <= 1 {
		confidence *= 100
	}

	model := o.ModelUsed
	if model == "" {
		model = defaultModelName
	}

	res := domain.EstimationResult{
		PredictedYield: yield,
		ConfidencePct:  domain.ClampConfidence(confidence),
		ModelUsed:      model,
		Tier:           TierPrimary,
	}
	if o.MAE != nil || o.R2 != nil {
		res.Accuracy = &domain.Accuracy{}
		if o.MAE != nil {
			res.Accuracy.MAE = *o.MAE
		}
		if o.R2 != nil {
			res.Accuracy.R2 = *o.R2
		}
	}
	return res, nil
}

func lastNonEmptyLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

func factorEnv(f domain.EnvironmentalFactors) []string {
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		EnvVegetationIndex + "=" + format(f.VegetationIndex),
		EnvSoilPH + "=" + format(f.SoilPH),
		EnvTemperatureC + "=" + format(f.TemperatureAvg),
		EnvHumidityPct + "=" + format(f.HumidityPct),
		EnvRainfallMm + "=" + format(f.RainfallMm),
	}
}

func stderrSuffix(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > maxStderrInError {
		s = s[:maxStderrInError] + "..."
	}
	return ": " + s
}
