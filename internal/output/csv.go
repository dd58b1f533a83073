package output

import (
	"encoding/csv"
	"io"
)

// writeCSV emits one header line and one line per row. NaN is an empty
// field.
func writeCSV(w io.Writer, rep Report, prec int) error {
	cw := csv.NewWriter(w)
	header := append([]string{"label"}, columns...)
	if err := cw.Write(header); err != nil {
		return errWrite("csv", err)
	}
	for _, r := range rep.Rows {
		if err := cw.Write(append([]string{r.Label}, r.cells(prec)...)); err != nil {
			return errWrite("csv", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errWrite("csv", err)
	}
	return nil
}
