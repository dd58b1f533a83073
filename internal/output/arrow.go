package output

import (
	"io"
	"math"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// SummarySchema is the Arrow schema of the summary stream. NaN statistics
// are written as nulls.
var SummarySchema = arrow.NewSchema([]arrow.Field{
	{Name: "scenario", Type: arrow.BinaryTypes.String},
	{Name: "label", Type: arrow.BinaryTypes.String},
	{Name: "estimator", Type: arrow.BinaryTypes.String},
	{Name: "n", Type: arrow.PrimitiveTypes.Int64},
	{Name: "replications", Type: arrow.PrimitiveTypes.Int64},
	{Name: "truth", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "mean_estimate", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "bias", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "variance", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "mse", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "coverage", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "mean_std_err", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "mean_first_stage_f", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "redraws", Type: arrow.PrimitiveTypes.Int64},
}, nil)

// writeArrow emits one record batch holding every row as an Arrow IPC
// stream.
func writeArrow(w io.Writer, rep Report) error {
	b := array.NewRecordBuilder(memory.DefaultAllocator, SummarySchema)
	defer b.Release()

	for _, r := range rep.Rows {
		b.Field(0).(*array.StringBuilder).Append(r.Scenario)
		b.Field(1).(*array.StringBuilder).Append(r.Label)
		b.Field(2).(*array.StringBuilder).Append(r.Estimator)
		b.Field(3).(*array.Int64Builder).Append(int64(r.N))
		b.Field(4).(*array.Int64Builder).Append(int64(r.Replications))
		for i, v := range []float64{r.Truth, r.MeanEstimate, r.Bias, r.Variance, r.MSE, r.Coverage, r.MeanStdErr, r.MeanFirstStageF} {
			fb := b.Field(5 + i).(*array.Float64Builder)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				fb.AppendNull()
			} else {
				fb.Append(v)
			}
		}
		b.Field(13).(*array.Int64Builder).Append(int64(r.Redraws))
	}

	rec := b.NewRecord()
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(SummarySchema))
	if err := iw.Write(rec); err != nil {
		_ = iw.Close()
		return errWrite("arrow", err)
	}
	if err := iw.Close(); err != nil {
		return errWrite("arrow", err)
	}
	return nil
}
