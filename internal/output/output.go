// Package output renders simulation summaries as a terminal table, JSON,
// CSV, or an Arrow IPC stream.
package output

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nvandessel/causalsim/internal/aggregate"
	"github.com/nvandessel/causalsim/internal/experiment"
	"github.com/nvandessel/causalsim/internal/simerr"
)

// Format specifies the output format for summaries.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatArrow Format = "arrow"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatTable, FormatJSON, FormatCSV, FormatArrow}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", simerr.InvalidConfig("format", "unknown output format %q (valid: table, json, csv, arrow)", s)
}

// DefaultPrecision is the number of decimals printed by the text formats.
const DefaultPrecision = 4

// Options control rendering.
type Options struct {
	Format Format
	// Precision is the number of decimals in table and CSV cells; zero
	// means DefaultPrecision. JSON and Arrow carry full precision.
	Precision int
}

func (o Options) precision() int {
	if o.Precision <= 0 {
		return DefaultPrecision
	}
	return o.Precision
}

// Row is one (scenario, estimator) line of a report.
type Row struct {
	Scenario        string
	Label           string
	Estimator       string
	N               int
	Replications    int
	Truth           float64
	MeanEstimate    float64
	Bias            float64
	Variance        float64
	MSE             float64
	Coverage        float64
	MeanStdErr      float64
	MeanFirstStageF float64
	Redraws         int
}

// FirstStageRow describes the first-stage F distribution of one scenario.
type FirstStageRow struct {
	Scenario string
	Label    string
	aggregate.FirstStage
}

// Report is everything a writer renders.
type Report struct {
	Rows       []Row
	FirstStage []FirstStageRow
}

// NewReport flattens outcomes in run order.
func NewReport(outcomes []*experiment.Outcome) Report {
	var rep Report
	for _, o := range outcomes {
		for _, s := range o.Result.Summaries {
			rep.Rows = append(rep.Rows, Row{
				Scenario:        s.Scenario,
				Label:           o.Spec.Label,
				Estimator:       s.Estimator,
				N:               o.Spec.N,
				Replications:    s.Replications,
				Truth:           s.Truth,
				MeanEstimate:    s.MeanEstimate,
				Bias:            s.Bias,
				Variance:        s.Variance,
				MSE:             s.MSE,
				Coverage:        s.Coverage,
				MeanStdErr:      s.MeanStdErr,
				MeanFirstStageF: s.MeanFirstStageF,
				Redraws:         s.Redraws,
			})
		}
		if o.FirstStage != nil {
			rep.FirstStage = append(rep.FirstStage, FirstStageRow{
				Scenario:   o.Spec.Name,
				Label:      o.Spec.Label,
				FirstStage: *o.FirstStage,
			})
		}
	}
	return rep
}

// Write renders outcomes to w in the requested format.
func Write(w io.Writer, outcomes []*experiment.Outcome, opts Options) error {
	rep := NewReport(outcomes)
	switch opts.Format {
	case FormatTable, "":
		return writeTable(w, rep, opts.precision())
	case FormatJSON:
		return writeJSON(w, rep)
	case FormatCSV:
		return writeCSV(w, rep, opts.precision())
	case FormatArrow:
		return writeArrow(w, rep)
	default:
		return simerr.InvalidConfig("format", "unknown output format %q", opts.Format)
	}
}

// columns are the header names shared by the table and CSV writers.
var columns = []string{
	"scenario", "estimator", "n", "reps", "truth", "mean", "bias",
	"variance", "mse", "coverage", "mean_se", "mean_f", "redraws",
}

func (r Row) cells(prec int) []string {
	return []string{
		r.Scenario,
		r.Estimator,
		strconv.Itoa(r.N),
		strconv.Itoa(r.Replications),
		formatFloat(r.Truth, prec),
		formatFloat(r.MeanEstimate, prec),
		formatFloat(r.Bias, prec),
		formatFloat(r.Variance, prec),
		formatFloat(r.MSE, prec),
		formatFloat(r.Coverage, prec),
		formatFloat(r.MeanStdErr, prec),
		formatFloat(r.MeanFirstStageF, prec),
		strconv.Itoa(r.Redraws),
	}
}

// formatFloat prints NaN as an empty cell.
func formatFloat(v float64, prec int) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// nullable maps NaN and ±Inf to nil for JSON.
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func errWrite(format string, err error) error {
	return fmt.Errorf("writing %s output: %w", format, err)
}
