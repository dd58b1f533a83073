package mcp

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/causalsim/internal/config"
	"github.com/nvandessel/causalsim/internal/experiment"
	"github.com/nvandessel/causalsim/internal/output"
	"github.com/nvandessel/causalsim/internal/ratelimit"
	"github.com/nvandessel/causalsim/internal/simerr"
	"github.com/nvandessel/causalsim/internal/simulation"
)

// registerTools registers all causalsim MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolDesigns,
		Description: "List the built-in causal designs, their true effects, estimators and preset parameters",
	}, s.handleDesigns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolRun,
		Description: "Run a Monte Carlo simulation of one design and report bias, variance, MSE and CI coverage per estimator",
	}, s.handleRun)
}

func (s *Server) handleDesigns(ctx context.Context, req *sdk.CallToolRequest, args DesignsInput) (_ *sdk.CallToolResult, _ DesignsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolDesigns, "", start, retErr, map[string]any{"design": args.Design})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolDesigns); err != nil {
		return nil, DesignsOutput{}, err
	}

	if args.Design != "" {
		d, ok := experiment.Lookup(args.Design)
		if !ok {
			return nil, DesignsOutput{}, simerr.InvalidConfig("design", "unknown design %q (valid: %v)", args.Design, experiment.DesignNames())
		}
		return nil, DesignsOutput{Designs: []experiment.Design{d}, Count: 1}, nil
	}

	designs := experiment.Designs()
	return nil, DesignsOutput{Designs: designs, Count: len(designs)}, nil
}

func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	start := time.Now()
	callID := uuid.NewString()
	var reps int
	defer func() {
		s.auditTool(ratelimit.ToolRun, callID, start, retErr, map[string]any{
			"design":       args.Design,
			"sample_sizes": args.SampleSizes,
			"replications": reps,
			"seed":         args.Seed,
		})
	}()

	cfg := *s.base
	cfg.Scenarios = []config.ScenarioConfig{{
		Design:       args.Design,
		SampleSizes:  args.SampleSizes,
		Replications: args.Replications,
		Seed:         args.Seed,
		Effect:       args.Effect,
		Strengths:    args.Strengths,
		Violations:   args.Violations,
		Labels:       args.Labels,
	}}
	if err := cfg.Validate(); err != nil {
		return nil, RunOutput{}, err
	}
	specs, err := cfg.Expand()
	if err != nil {
		return nil, RunOutput{}, err
	}
	for _, sp := range specs {
		if reps > math.MaxInt-sp.Replications {
			reps = math.MaxInt
			break
		}
		reps += sp.Replications
	}
	if err := ratelimit.CheckCost(s.toolLimiters, ratelimit.ToolRun, reps); err != nil {
		return nil, RunOutput{}, err
	}
	set, err := cfg.Settings()
	if err != nil {
		return nil, RunOutput{}, err
	}

	outcomes, err := experiment.RunAll(ctx, simulation.Options{
		Workers: cfg.Workers,
		Logger:  s.logger,
		Events:  s.events,
		Metrics: s.metrics,
	}, specs, set)
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("running %s: %w", args.Design, err)
	}

	doc := output.NewDocument(output.NewReport(outcomes))
	out := RunOutput{
		RunID:      callID,
		Summaries:  doc.Summaries,
		FirstStage: doc.FirstStage,
	}
	for _, sp := range specs {
		out.Scenarios = append(out.Scenarios, sp.Name)
	}
	return nil, out, nil
}
