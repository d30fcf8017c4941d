package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table renders rows with go-pretty. Text mode draws a light box table,
// markdown mode emits a pipe table. JSON mode writes nothing; callers
// serialize their own records.
func (r *Renderer) Table(header []string, rows [][]string) {
	mode := r.EffectiveMode()
	if mode == ModeJSON {
		return
	}

	t := table.NewWriter()
	t.AppendHeader(toRow(header))
	for _, row := range rows {
		t.AppendRow(toRow(row))
	}

	if mode == ModeMarkdown {
		r.Println(t.RenderMarkdown())
		return
	}

	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	r.Println(t.Render())
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
