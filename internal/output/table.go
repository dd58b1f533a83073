package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

func writeTable(w io.Writer, rep Report, prec int) error {
	rows := make([][]string, 0, len(rep.Rows))
	for _, r := range rep.Rows {
		rows = append(rows, r.cells(prec))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return errWrite("table", err)
	}

	if len(rep.FirstStage) == 0 {
		return nil
	}
	fs := make([][]string, 0, len(rep.FirstStage))
	for _, f := range rep.FirstStage {
		fs = append(fs, []string{
			f.Scenario,
			f.Label,
			fmt.Sprint(f.Count),
			formatFloat(f.Mean, prec),
			formatFloat(f.Median, prec),
			formatFloat(f.StdDev, prec),
			formatFloat(f.P5, prec),
			formatFloat(f.P95, prec),
		})
	}
	ft := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("scenario", "instrument", "count", "mean", "median", "sd", "p5", "p95").
		Rows(fs...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	if _, err := fmt.Fprintf(w, "\n%s\n%s\n", titleStyle.Render("First-stage F"), ft.Render()); err != nil {
		return errWrite("table", err)
	}
	return nil
}
