package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/umi-ai/umi/internal/model"
)

// TablePrinter prints pipeline output in a human-friendly table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintResults prints processed tasks with their suggestions.
func (p *TablePrinter) PrintResults(tasks []*model.Task) error {
	w := tabwriter.NewWriter(p.writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tLINE\tPATTERN\tIMPACT\tFIX")
	for _, t := range tasks {
		for _, s := range t.FinalSuggestions {
			fmt.Fprintf(w, "%s\t%d\t%s\t%.2f\t%s\n",
				t.FilePath, s.Line, s.Pattern, s.ImpactScore, truncate(s.Fix, 60))
		}
	}
	return w.Flush()
}

// PrintInteractions prints telemetry interactions.
func (p *TablePrinter) PrintInteractions(interactions []model.Interaction) error {
	w := tabwriter.NewWriter(p.writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tEVENT\tSUGGESTION\tUSER")
	for _, i := range interactions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			i.Timestamp.UTC().Format("2006-01-02 15:04:05"), i.EventType, i.SuggestionID, i.AnonymizedUserID)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
