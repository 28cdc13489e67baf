package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemasync/internal/schema"
)

// MarkdownFormatter formats a model as markdown
type MarkdownFormatter struct {
	writer io.Writer
	opts   Options
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer, opts Options) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w, opts: opts}
}

// Format writes the model in markdown format
func (f *MarkdownFormatter) Format(db *schema.Database) error {
	if db.Name != "" {
		_, _ = fmt.Fprintf(f.writer, "# Database Schema: %s\n\n", db.Name)
	} else {
		_, _ = fmt.Fprintln(f.writer, "# Database Schema")
		_, _ = fmt.Fprintln(f.writer)
	}

	for _, table := range tableViews(db, f.opts) {
		f.formatTable(table)
	}
	return nil
}

func (f *MarkdownFormatter) formatTable(table tableView) {
	_, _ = fmt.Fprintf(f.writer, "## %s%s\n\n", table.Name, markdownPending(table.Pending))
	if table.Comment != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", table.Comment)
	}

	f.formatColumns(table)
	f.formatRelations(table.Relations)
	f.formatIndexes(table.Indexes)
	f.formatConstraints(table.Constraints)
}

func (f *MarkdownFormatter) formatColumns(table tableView) {
	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)

	for _, col := range table.Columns {
		if len(col.Flags) > 0 {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s%s\n", col.Name, col.Type, strings.Join(col.Flags, ", "), markdownPending(col.Pending))
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s%s\n", col.Name, col.Type, markdownPending(col.Pending))
		}
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) formatRelations(relations []relationView) {
	if len(relations) == 0 {
		return
	}
	_, _ = fmt.Fprintln(f.writer, "### References")
	_, _ = fmt.Fprintln(f.writer)
	for _, rel := range relations {
		_, _ = fmt.Fprintf(f.writer, "- %s: %s → %s.(%s) (%s%s)%s\n",
			rel.Name,
			joinColumns(rel.Columns),
			rel.TargetTable,
			joinColumns(rel.TargetColumns),
			rel.Cardinality,
			identifying(rel.Kind),
			markdownPending(rel.Pending))
	}
	_, _ = fmt.Fprintln(f.writer)
}

// formatIncoming lists relationships that reference the table
func (f *MarkdownFormatter) formatIncoming(incoming []relationView) {
	if len(incoming) == 0 {
		return
	}
	_, _ = fmt.Fprintf(f.writer, "### Referenced by\n\n")
	for _, rel := range incoming {
		_, _ = fmt.Fprintf(f.writer, "- %s.(%s) → (%s) (%s)\n",
			rel.SourceTable, joinColumns(rel.Columns),
			joinColumns(rel.TargetColumns),
			describeCardinality(rel.Cardinality, rel.SourceTable, rel.TargetTable))
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) formatIndexes(indexes []indexView) {
	if len(indexes) == 0 {
		return
	}
	_, _ = fmt.Fprintln(f.writer, "### Idx")
	_, _ = fmt.Fprintln(f.writer)
	for _, idx := range indexes {
		if idx.Unique {
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique%s\n", idx.Name, joinColumns(idx.Columns), markdownPending(idx.Pending))
		} else {
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s)%s\n", idx.Name, joinColumns(idx.Columns), markdownPending(idx.Pending))
		}
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) formatConstraints(constraints []constraintView) {
	if len(constraints) == 0 {
		return
	}
	_, _ = fmt.Fprintln(f.writer, "### Constraints")
	_, _ = fmt.Fprintln(f.writer)
	for _, c := range constraints {
		_, _ = fmt.Fprintf(f.writer, "- %s: %s%s\n", c.Name, constraintBody(c), markdownPending(c.Pending))
	}
	_, _ = fmt.Fprintln(f.writer)
}

func markdownPending(p bool) string {
	if p {
		return " _(pending)_"
	}
	return ""
}
