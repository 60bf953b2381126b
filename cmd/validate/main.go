// Command validate scores the estimator chain against historical APY crop
// records and checks every prediction it makes for internal consistency.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -records data/apy_sample.csv \
//	  -estimator-command "go run ./cmd/apymodel" \
//	  -max-mae 800
//
// The CSV needs a header with state, district, crop, crop_year, season, area
// (hectares) and production (tonnes) columns. Environmental factors come from
// the static tables only, so runs are reproducible.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/environment"
	"github.com/fasalneeti/yield-service/internal/estimator"
	"github.com/fasalneeti/yield-service/internal/observability"
	"github.com/fasalneeti/yield-service/internal/prediction"
)

var requiredColumns = []string{"state", "district", "crop", "crop_year", "season", "area", "production"}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// record is one historical observation with its actual yield in kg/ha.
type record struct {
	lineNum     int
	req         domain.PredictionRequest
	actualYield float64
}

type options struct {
	recordsPath string
	command     []string
	outputUnit  string
	timeout     time.Duration
	parallelism int
	maxMAE      float64
	minR2       float64
	checkR2     bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	records, parsing, err := loadRecords(opts.recordsPath)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load records: %v\n", err)
		return 1
	}

	svc, err := newService(opts)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "=== Yield Estimator Validation ===")
	fmt.Fprintln(stdout)

	responses, err := predictAll(context.Background(), svc, records, opts.parallelism)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: predict: %v\n", err)
		return 1
	}

	acc := accuracy(records, responses)
	phases := []*phase{
		parsing,
		validateInvariants(records, responses),
		validateAccuracy(acc, opts),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(stdout, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Records: %d scored\n", len(records))
	fmt.Fprintf(stdout, "MAE: %.2f kg/ha  R2: %.4f\n", acc.mae, acc.r2)
	for tier, n := range acc.tiers {
		fmt.Fprintf(stdout, "  tier %-12s %d\n", tier, n)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(stdout, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(stdout, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(stdout, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(stdout, "\nValidation FAILED.")
	return 1
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	var command string
	fs.StringVar(&opts.recordsPath, "records", "", "CSV of historical APY records")
	fs.StringVar(&command, "estimator-command", "", "primary-tier model command; statistical tier only when empty")
	fs.StringVar(&opts.outputUnit, "estimator-unit", domain.UnitKgPerHectare, "yield unit assumed when the model omits one")
	fs.DurationVar(&opts.timeout, "estimator-timeout", 5*time.Second, "per-invocation model timeout")
	fs.IntVar(&opts.parallelism, "parallelism", 8, "concurrent predictions")
	fs.Float64Var(&opts.maxMAE, "max-mae", 0, "fail when MAE in kg/ha exceeds this; 0 disables")
	fs.Float64Var(&opts.minR2, "min-r2", 0, "fail when R2 falls below this; unchecked unless set")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "min-r2" {
			opts.checkR2 = true
		}
	})
	if opts.recordsPath == "" {
		fs.Usage()
		return opts, errors.New("-records is required")
	}
	if opts.parallelism < 1 {
		opts.parallelism = 1
	}
	opts.command = strings.Fields(command)
	return opts, nil
}

func newService(opts options) (*prediction.Service, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Unregistered collectors; nothing is scraped from a one-shot run.
	metrics := observability.NewMetricsForTesting()

	var tiers []estimator.Estimator
	if len(opts.command) > 0 {
		proc, err := estimator.NewProcess(estimator.ProcessConfig{
			Command:    opts.command,
			Timeout:    opts.timeout,
			OutputUnit: opts.outputUnit,
		})
		if err != nil {
			return nil, fmt.Errorf("estimator command: %w", err)
		}
		tiers = append(tiers, proc)
	}
	tiers = append(tiers, estimator.NewStatistical())

	chain := estimator.NewChain(tiers, estimator.NewFallback(nil), logger, metrics)
	provider := environment.NewProvider(environment.Sources{}, nil, logger, metrics)
	return prediction.NewService(provider, chain, logger, metrics), nil
}

// loadRecords parses the CSV. Rows that fail to parse are reported in the
// returned phase and skipped.
func loadRecords(path string) ([]record, *phase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", c)
		}
	}

	p := &phase{name: "Record parsing"}
	var records []record
	line := 1
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			p.errorf("line %d: %v", line, err)
			continue
		}
		rec, err := parseRecord(row, cols)
		if err != nil {
			p.errorf("line %d: %v", line, err)
			continue
		}
		rec.lineNum = line
		records = append(records, rec)
	}
	if len(records) == 0 {
		p.errorf("no usable records")
	}
	return records, p, nil
}

func parseRecord(row []string, cols map[string]int) (record, error) {
	get := func(name string) string { return strings.TrimSpace(row[cols[name]]) }

	year, err := strconv.Atoi(get("crop_year"))
	if err != nil {
		return record{}, fmt.Errorf("crop_year %q: not an integer", get("crop_year"))
	}
	area, err := strconv.ParseFloat(get("area"), 64)
	if err != nil || area <= 0 {
		return record{}, fmt.Errorf("area %q: must be a positive number", get("area"))
	}
	production, err := strconv.ParseFloat(get("production"), 64)
	if err != nil || production < 0 {
		return record{}, fmt.Errorf("production %q: must be a non-negative number", get("production"))
	}

	req := domain.PredictionRequest{
		Location: domain.Location{State: get("state"), District: get("district")},
		Crop:     get("crop"),
		Season:   get("season"),
		Year:     year,
		Area:     area,
	}.Normalize()
	if err := req.Validate(); err != nil {
		return record{}, err
	}
	return record{req: req, actualYield: production * 1000 / area}, nil
}

func predictAll(ctx context.Context, svc *prediction.Service, records []record, parallelism int) ([]prediction.Response, error) {
	out := make([]prediction.Response, len(records))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, rec := range records {
		g.Go(func() error {
			resp, err := svc.Predict(ctx, rec.req, "")
			if err != nil {
				return fmt.Errorf("line %d: %w", rec.lineNum, err)
			}
			out[i] = resp
			return nil
		})
	}
	return out, g.Wait()
}

func validateInvariants(records []record, responses []prediction.Response) *phase {
	p := &phase{name: "Prediction invariants"}
	for i, resp := range responses {
		line := records[i].lineNum
		if resp.PredictedYield <= 0 || math.IsNaN(resp.PredictedYield) {
			p.errorf("line %d: predicted yield %v is not positive", line, resp.PredictedYield)
		}
		if resp.ConfidencePct < 0 || resp.ConfidencePct > 100 {
			p.errorf("line %d: confidence %v outside [0, 100]", line, resp.ConfidencePct)
		}
		if !floatEq(resp.TotalProduction, resp.PredictedYield*resp.Area) {
			p.errorf("line %d: total production %v != yield %v * area %v", line, resp.TotalProduction, resp.PredictedYield, resp.Area)
		}
		if resp.Tier == "" || resp.ModelUsed == "" {
			p.errorf("line %d: missing tier or model label", line)
		}
		if resp.Factors.Source == "" {
			p.errorf("line %d: missing factor source", line)
		}
		if resp.Unit != domain.UnitKgPerHectare {
			p.errorf("line %d: unit %q, want %q", line, resp.Unit, domain.UnitKgPerHectare)
		}
	}
	return p
}

type accuracyReport struct {
	mae   float64
	r2    float64
	tiers map[string]int
}

func accuracy(records []record, responses []prediction.Response) accuracyReport {
	rep := accuracyReport{tiers: make(map[string]int)}
	n := float64(len(records))
	if n == 0 {
		return rep
	}

	var mean float64
	for _, r := range records {
		mean += r.actualYield
	}
	mean /= n

	var absErr, ssRes, ssTot float64
	for i, r := range records {
		diff := responses[i].PredictedYield - r.actualYield
		absErr += math.Abs(diff)
		ssRes += diff * diff
		ssTot += (r.actualYield - mean) * (r.actualYield - mean)
		rep.tiers[responses[i].Tier]++
	}
	rep.mae = absErr / n
	if ssTot > 0 {
		rep.r2 = 1 - ssRes/ssTot
	}
	return rep
}

func validateAccuracy(acc accuracyReport, opts options) *phase {
	p := &phase{name: "Accuracy thresholds"}
	if opts.maxMAE > 0 && acc.mae > opts.maxMAE {
		p.errorf("MAE %.2f kg/ha exceeds %.2f", acc.mae, opts.maxMAE)
	}
	if opts.checkR2 && acc.r2 < opts.minR2 {
		p.errorf("R2 %.4f below %.4f", acc.r2, opts.minR2)
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Abs(b))
}
