package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemasync/internal/schema"
)

// TextFormatter formats a model as compact text
type TextFormatter struct {
	writer io.Writer
	opts   Options
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer, opts Options) *TextFormatter {
	return &TextFormatter{writer: w, opts: opts}
}

// Format writes every table in compact text format
func (f *TextFormatter) Format(db *schema.Database) error {
	for i, table := range tableViews(db, f.opts) {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}
		f.formatTable(table)
	}
	return nil
}

func (f *TextFormatter) formatTable(table tableView) {
	pkStr := ""
	if len(table.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", joinColumns(table.PrimaryKey))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s%s\n", table.Name, pkStr, textPending(table.Pending))

	for _, col := range table.Columns {
		parts := append([]string{col.Name + ":", col.Type}, col.Flags...)
		_, _ = fmt.Fprintf(f.writer, "  %s%s\n", strings.Join(parts, " "), textPending(col.Pending))
	}

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.(%s) (%s%s)%s\n",
				joinColumns(rel.Columns), rel.TargetTable, joinColumns(rel.TargetColumns),
				rel.Cardinality, identifying(rel.Kind), textPending(rel.Pending))
		}
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			unique := ""
			if idx.Unique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s%s\n", idx.Name, joinColumns(idx.Columns), unique, textPending(idx.Pending))
		}
	}

	if len(table.Constraints) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  CONSTRAINTS:")
		for _, c := range table.Constraints {
			_, _ = fmt.Fprintf(f.writer, "    %s %s%s\n", c.Name, constraintBody(c), textPending(c.Pending))
		}
	}
}

func textPending(p bool) string {
	if p {
		return " [pending]"
	}
	return ""
}

func identifying(kind schema.RelationshipKind) string {
	if kind == schema.Identifying {
		return ", identifying"
	}
	return ""
}

// constraintBody renders a multi-column or expression constraint
func constraintBody(c constraintView) string {
	kind := strings.ReplaceAll(string(c.Kind), "_", " ")
	body := kind
	if len(c.Columns) > 0 {
		body += " (" + joinColumns(c.Columns) + ")"
	}
	if c.Expression != "" {
		body += " " + c.Expression
	}
	return body
}
