package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/schemasync/internal/schema"
)

// MultiFileFormatter writes a model to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
	Options      Options
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string, opts Options) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
		Options:      opts,
	}
}

// Format writes an overview plus one file per table
func (f *MultiFileFormatter) Format(db *schema.Database) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tables := tableViews(db, f.Options)
	if err := f.writeOverview(tables); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range tables {
		if err := f.writeTableFile(table); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
	}
	return nil
}

func (f *MultiFileFormatter) writeOverview(tables []tableView) error {
	file, err := os.Create(filepath.Join(f.OutputDir, "_overview"+f.getFileExtension()))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	sorted := make([]tableView, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	markdown := f.OutputFormat == FormatMarkdown
	if markdown {
		_, _ = fmt.Fprintf(file, "# Schema Overview\n\n")
		_, _ = fmt.Fprintf(file, "Each table has a corresponding file: `<table_name>%s`\n\n", f.getFileExtension())
		_, _ = fmt.Fprintf(file, "## Tables\n\n")
	} else {
		_, _ = fmt.Fprintf(file, "SCHEMA OVERVIEW\n")
		_, _ = fmt.Fprintf(file, "Each table has a file: <table_name>%s\n\n", f.getFileExtension())
	}

	for _, table := range sorted {
		if markdown {
			_, _ = fmt.Fprintf(file, "- **%s**", table.Name)
		} else {
			_, _ = fmt.Fprintf(file, "%s", table.Name)
		}
		if len(table.Relations) > 0 {
			var targets []string
			for _, rel := range table.Relations {
				targets = append(targets, rel.TargetTable)
			}
			_, _ = fmt.Fprintf(file, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintln(file)
	}
	return nil
}

func (f *MultiFileFormatter) writeTableFile(table tableView) error {
	file, err := os.Create(filepath.Join(f.OutputDir, table.Name+f.getFileExtension()))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == FormatMarkdown {
		md := NewMarkdownFormatter(file, f.Options)
		md.formatTable(table)
		md.formatIncoming(table.Incoming)
		return nil
	}

	NewTextFormatter(file, f.Options).formatTable(table)
	if len(table.Incoming) > 0 {
		_, _ = fmt.Fprintln(file)
		_, _ = fmt.Fprintln(file, "  REFERENCED BY:")
		for _, rel := range table.Incoming {
			_, _ = fmt.Fprintf(file, "    %s.(%s) (%s)\n", rel.SourceTable, joinColumns(rel.Columns), rel.Cardinality)
		}
	}
	return nil
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}
