package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/prediction"
)

func TestRun_SampleRecordsPass(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-records", "testdata/apy_sample.csv"}, &stdout, &stderr)

	require.Equal(t, 0, code, "stdout:\n%s\nstderr:\n%s", stdout.String(), stderr.String())
	assert.Contains(t, stdout.String(), "Records: 5 scored")
	assert.Contains(t, stdout.String(), "All validations passed.")
	assert.Contains(t, stdout.String(), "tier statistical")
}

func TestRun_BadRowsFailParsingPhase(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-records", "testdata/apy_bad_rows.csv"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Records: 1 scored")
	assert.Contains(t, stdout.String(), "--- Record parsing ---")
	assert.Contains(t, stdout.String(), "line 3: crop_year")
	assert.Contains(t, stdout.String(), "line 4: area")
}

func TestRun_MAEThreshold(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-records", "testdata/apy_sample.csv", "-max-mae", "0.001"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "--- Accuracy thresholds ---")
}

func TestRun_MissingRecordsFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
}

func TestRun_MissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"-records", "testdata/nope.csv"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "load records")
}

func TestAccuracy(t *testing.T) {
	records := []record{{actualYield: 1000}, {actualYield: 3000}}
	responses := []prediction.Response{
		{PredictedYield: 1000, Tier: "statistical"},
		{PredictedYield: 3000, Tier: "statistical"},
	}
	acc := accuracy(records, responses)
	assert.InDelta(t, 0, acc.mae, 1e-9)
	assert.InDelta(t, 1, acc.r2, 1e-9)
	assert.Equal(t, 2, acc.tiers["statistical"])

	responses[1].PredictedYield = 2000
	acc = accuracy(records, responses)
	assert.InDelta(t, 500, acc.mae, 1e-9)
	assert.InDelta(t, 0.5, acc.r2, 1e-9)
}

func TestValidateInvariants(t *testing.T) {
	records := []record{{lineNum: 2}}
	good := prediction.Response{
		PredictedYield: 2500, ConfidencePct: 85, Area: 2, TotalProduction: 5000,
		Tier: "statistical", ModelUsed: "Statistical Heuristic", Unit: domain.UnitKgPerHectare,
		Factors: prediction.Factors{Source: domain.SourceStaticTable},
	}
	assert.True(t, validateInvariants(records, []prediction.Response{good}).passed())

	bad := good
	bad.TotalProduction = 1
	bad.ConfidencePct = 120
	p := validateInvariants(records, []prediction.Response{bad})
	assert.Len(t, p.errors, 2)
}
