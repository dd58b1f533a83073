package mcp

import (
	"github.com/nvandessel/causalsim/internal/experiment"
	"github.com/nvandessel/causalsim/internal/output"
)

// DesignsInput defines the input for causalsim_designs tool.
type DesignsInput struct {
	Design string `json:"design,omitempty" jsonschema:"Restrict the listing to one design (psm, iv, did)"`
}

// DesignsOutput defines the output for causalsim_designs tool.
type DesignsOutput struct {
	Designs []experiment.Design `json:"designs" jsonschema:"Built-in data-generating processes with their estimators and preset parameters"`
	Count   int                 `json:"count" jsonschema:"Number of designs listed"`
}

// RunInput defines the input for causalsim_run tool. Zero values fall back
// to the design preset.
type RunInput struct {
	Design       string    `json:"design" jsonschema:"Design to simulate: psm, iv or did"`
	SampleSizes  []int     `json:"sample_sizes,omitempty" jsonschema:"Sample sizes N; one scenario per size"`
	Replications int       `json:"replications,omitempty" jsonschema:"Monte Carlo replications per scenario"`
	Seed         uint64    `json:"seed,omitempty" jsonschema:"Base seed; scenarios of one request step by 10000"`
	Effect       *float64  `json:"effect,omitempty" jsonschema:"True treatment effect"`
	Strengths    []float64 `json:"strengths,omitempty" jsonschema:"Instrument strengths (iv only)"`
	Violations   []bool    `json:"violations,omitempty" jsonschema:"Parallel-trend violation flags (did only)"`
	Labels       []string  `json:"labels,omitempty" jsonschema:"Estimator labels, one per estimator of the design"`
}

// RunOutput defines the output for causalsim_run tool.
type RunOutput struct {
	RunID      string                 `json:"run_id" jsonschema:"Identifier stamped on the run's trace events"`
	Scenarios  []string               `json:"scenarios" jsonschema:"Scenario names in run order"`
	Summaries  []output.SummaryDoc    `json:"summaries" jsonschema:"One row per scenario and estimator; NaN statistics are null"`
	FirstStage []output.FirstStageDoc `json:"first_stage,omitempty" jsonschema:"First-stage F distribution of instrumented scenarios"`
}
