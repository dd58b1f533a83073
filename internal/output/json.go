package output

import (
	"encoding/json"
	"io"
)

// SummaryDoc is the JSON form of a Row. NaN statistics are null.
type SummaryDoc struct {
	Scenario        string   `json:"scenario"`
	Label           string   `json:"label,omitempty"`
	Estimator       string   `json:"estimator"`
	N               int      `json:"n"`
	Replications    int      `json:"replications"`
	Truth           *float64 `json:"truth"`
	MeanEstimate    *float64 `json:"mean_estimate"`
	Bias            *float64 `json:"bias"`
	Variance        *float64 `json:"variance"`
	MSE             *float64 `json:"mse"`
	Coverage        *float64 `json:"coverage"`
	MeanStdErr      *float64 `json:"mean_std_err"`
	MeanFirstStageF *float64 `json:"mean_first_stage_f"`
	Redraws         int      `json:"redraws"`
}

// FirstStageDoc is the JSON form of a FirstStageRow.
type FirstStageDoc struct {
	Scenario string   `json:"scenario"`
	Label    string   `json:"label,omitempty"`
	Count    int      `json:"count"`
	Mean     *float64 `json:"mean"`
	Median   *float64 `json:"median"`
	StdDev   *float64 `json:"std_dev"`
	P5       *float64 `json:"p5"`
	P95      *float64 `json:"p95"`
}

// Document is the JSON form of a Report.
type Document struct {
	Summaries  []SummaryDoc    `json:"summaries"`
	FirstStage []FirstStageDoc `json:"first_stage,omitempty"`
}

// NewDocument converts a report to its JSON form.
func NewDocument(rep Report) Document {
	out := Document{Summaries: make([]SummaryDoc, 0, len(rep.Rows))}
	for _, r := range rep.Rows {
		out.Summaries = append(out.Summaries, SummaryDoc{
			Scenario:        r.Scenario,
			Label:           r.Label,
			Estimator:       r.Estimator,
			N:               r.N,
			Replications:    r.Replications,
			Truth:           nullable(r.Truth),
			MeanEstimate:    nullable(r.MeanEstimate),
			Bias:            nullable(r.Bias),
			Variance:        nullable(r.Variance),
			MSE:             nullable(r.MSE),
			Coverage:        nullable(r.Coverage),
			MeanStdErr:      nullable(r.MeanStdErr),
			MeanFirstStageF: nullable(r.MeanFirstStageF),
			Redraws:         r.Redraws,
		})
	}
	for _, f := range rep.FirstStage {
		out.FirstStage = append(out.FirstStage, FirstStageDoc{
			Scenario: f.Scenario,
			Label:    f.Label,
			Count:    f.Count,
			Mean:     nullable(f.Mean),
			Median:   nullable(f.Median),
			StdDev:   nullable(f.StdDev),
			P5:       nullable(f.P5),
			P95:      nullable(f.P95),
		})
	}
	return out
}

// writeJSON emits the report as one indented document.
func writeJSON(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(rep)); err != nil {
		return errWrite("json", err)
	}
	return nil
}
