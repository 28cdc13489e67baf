package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemasync/internal/schema"
)

// Output formats
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Formatter renders a model
type Formatter interface {
	Format(db *schema.Database) error
}

// Options are shared by all formatters
type Options struct {
	// Pending reports entities whose edits are not confirmed yet; they are
	// marked in the output. Nil marks nothing.
	Pending func(id string) bool
}

// New returns the single-file formatter for format
func New(format string, w io.Writer, opts Options) (Formatter, error) {
	switch format {
	case FormatMarkdown, "":
		return NewMarkdownFormatter(w, opts), nil
	case FormatText:
		return NewTextFormatter(w, opts), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// tableView is a table with every identifier resolved to a name
type tableView struct {
	Name        string
	Comment     string
	Pending     bool
	PrimaryKey  []string
	Columns     []columnView
	Relations   []relationView
	Incoming    []relationView
	Indexes     []indexView
	Constraints []constraintView
}

type columnView struct {
	Name    string
	Type    string
	Flags   []string
	Pending bool
}

type relationView struct {
	Name          string
	SourceTable   string
	Columns       []string
	TargetTable   string
	TargetColumns []string
	Cardinality   schema.Cardinality
	Kind          schema.RelationshipKind
	Pending       bool
	targetID      string
}

type indexView struct {
	Name    string
	Columns []string
	Unique  bool
	Pending bool
}

type constraintView struct {
	Name       string
	Kind       schema.ConstraintKind
	Columns    []string
	Expression string
	Pending    bool
}

// tableViews resolves every table of db. Table names are qualified with the
// schema when the database has more than one.
func tableViews(db *schema.Database, opts Options) []tableView {
	pending := opts.Pending
	if pending == nil {
		pending = func(string) bool { return false }
	}
	qualify := len(db.Schemas) > 1
	name := func(s *schema.Schema, t *schema.Table) string {
		if qualify {
			return s.Name + "." + t.Name
		}
		return t.Name
	}
	tableName := func(id string) string {
		t, s, err := db.Table(id)
		if err != nil {
			return id
		}
		return name(s, t)
	}

	var views []tableView
	byID := make(map[string]int)
	for _, s := range db.Schemas {
		for _, t := range s.Tables {
			byID[t.ID] = len(views)
			views = append(views, newTableView(db, t, name(s, t), tableName, pending))
		}
	}
	for i := range views {
		for _, rel := range views[i].Relations {
			if j, ok := byID[rel.targetID]; ok {
				views[j].Incoming = append(views[j].Incoming, rel)
			}
		}
	}
	return views
}

func newTableView(db *schema.Database, t *schema.Table, name string, tableName func(string) string, pending func(string) bool) tableView {
	v := tableView{Name: name, Comment: t.Comment, Pending: pending(t.ID)}
	colName := func(id string) string {
		if c, _, err := db.Column(id); err == nil {
			return c.Name
		}
		return id
	}

	flags := make(map[string][]string)
	if pk := t.PrimaryKey(); pk != nil {
		for _, cc := range pk.Columns {
			v.PrimaryKey = append(v.PrimaryKey, colName(cc.ColumnID))
			flags[cc.ColumnID] = append(flags[cc.ColumnID], "PK")
		}
	}
	for _, c := range t.Constraints {
		if c.Kind == schema.PrimaryKey {
			continue
		}
		if len(c.Columns) == 1 && (c.Kind == schema.Unique || c.Kind == schema.Check) {
			id := c.Columns[0].ColumnID
			if c.Kind == schema.Unique {
				flags[id] = append(flags[id], "UNIQUE")
			} else {
				flags[id] = append(flags[id], fmt.Sprintf("CHECK(%s)", c.Expression))
			}
			continue
		}
		cv := constraintView{Name: c.Name, Kind: c.Kind, Expression: c.Expression, Pending: pending(c.ID)}
		for _, cc := range c.Columns {
			cv.Columns = append(cv.Columns, colName(cc.ColumnID))
		}
		v.Constraints = append(v.Constraints, cv)
	}

	for _, c := range t.Columns {
		cv := columnView{Name: c.Name, Type: c.DataType, Pending: pending(c.ID)}
		cv.Flags = append(cv.Flags, flags[c.ID]...)
		if !c.Nullable {
			cv.Flags = append(cv.Flags, "NOT NULL")
		}
		if c.Default != nil {
			cv.Flags = append(cv.Flags, "DEFAULT "+*c.Default)
		}
		v.Columns = append(v.Columns, cv)
	}

	for _, r := range t.Relationships {
		rv := relationView{
			Name:        r.Name,
			SourceTable: name,
			TargetTable: tableName(r.TargetTableID),
			Cardinality: r.Cardinality,
			Kind:        r.Kind,
			Pending:     pending(r.ID),
			targetID:    r.TargetTableID,
		}
		for _, rc := range r.Columns {
			rv.Columns = append(rv.Columns, colName(rc.FKColumnID))
			rv.TargetColumns = append(rv.TargetColumns, colName(rc.RefColumnID))
		}
		v.Relations = append(v.Relations, rv)
	}

	for _, idx := range t.Indexes {
		iv := indexView{Name: idx.Name, Unique: idx.Unique, Pending: pending(idx.ID)}
		for _, ic := range idx.Columns {
			col := colName(ic.ColumnID)
			if ic.Sort == schema.Desc {
				col += " DESC"
			}
			iv.Columns = append(iv.Columns, col)
		}
		v.Indexes = append(v.Indexes, iv)
	}
	return v
}

// describeCardinality phrases a relationship from the referenced side
func describeCardinality(card schema.Cardinality, source, target string) string {
	if card == schema.OneToOne {
		return fmt.Sprintf("one %s per %s", source, target)
	}
	return fmt.Sprintf("many %s per %s", source, target)
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
