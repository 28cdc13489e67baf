package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tordrt/schemasync/internal/schema"
)

// Extractor reads table descriptions from a live database
type Extractor interface {
	// ExtractTables describes the named tables, or every table when tables is empty
	ExtractTables(ctx context.Context, tables []string) ([]TableInfo, error)
}

// TableInfo is one table as read from a catalog. Everything is addressed by name.
type TableInfo struct {
	Name        string
	Columns     []ColumnInfo
	PrimaryKey  KeyInfo
	ForeignKeys []ForeignKeyInfo
	Indexes     []IndexInfo
}

// ColumnInfo describes a table column
type ColumnInfo struct {
	Name         string
	Type         string
	Nullable     bool
	DefaultValue *string
	IsUnique     bool
	EnumValues   []string
}

// KeyInfo is a named, ordered list of columns. Name may be empty.
type KeyInfo struct {
	Name    string
	Columns []string
}

// ForeignKeyInfo is one column pair of a foreign key; multi-column keys
// share a Name
type ForeignKeyInfo struct {
	Name         string
	SourceColumn string
	TargetTable  string
	TargetColumn string
}

// IndexInfo describes a secondary index
type IndexInfo struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// SnapshotOptions configures Snapshot
type SnapshotOptions struct {
	DatabaseName string
	SchemaName   string
	// NewID issues identifiers; defaults to uuid.NewString
	NewID func() string
}

// Snapshot builds a model holding one schema with the given tables. Primary
// keys, single-column unique flags and enum value lists become constraints.
// Foreign keys pointing at a table that was not extracted are left out.
func Snapshot(tables []TableInfo, opts SnapshotOptions) (*schema.Database, error) {
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	schemaName := opts.SchemaName
	if schemaName == "" {
		schemaName = "main"
	}

	db := &schema.Database{ID: newID(), Name: opts.DatabaseName}
	s := &schema.Schema{ID: newID(), Name: schemaName}
	db.AddSchema(s)

	b := &snapshotBuilder{db: db, schemaID: s.ID, newID: newID, names: make(map[string]bool)}
	for i, info := range tables {
		if err := b.table(info, i); err != nil {
			return nil, fmt.Errorf("failed to add table %s: %w", info.Name, err)
		}
	}
	for _, info := range tables {
		if err := b.relationships(info); err != nil {
			return nil, fmt.Errorf("failed to add foreign keys of %s: %w", info.Name, err)
		}
	}
	return db, nil
}

type snapshotBuilder struct {
	db       *schema.Database
	schemaID string
	newID    func() string
	// constraint names are unique per schema
	names map[string]bool
}

func (b *snapshotBuilder) constraintName(want string) string {
	name := want
	for i := 2; b.names[name]; i++ {
		name = fmt.Sprintf("%s_%d", want, i)
	}
	b.names[name] = true
	return name
}

func (b *snapshotBuilder) table(info TableInfo, seqNo int) error {
	id := b.newID()
	if err := b.db.AddTable(b.schemaID, &schema.Table{ID: id, Name: info.Name, SeqNo: seqNo}); err != nil {
		return err
	}
	t, _, err := b.db.Table(id)
	if err != nil {
		return err
	}

	for i, ci := range info.Columns {
		col := &schema.Column{
			ID:       b.newID(),
			Name:     ci.Name,
			DataType: ci.Type,
			Nullable: ci.Nullable,
			Default:  ci.DefaultValue,
			SeqNo:    i,
		}
		if err := b.db.AddColumn(t.ID, col); err != nil {
			return err
		}
	}

	if len(info.PrimaryKey.Columns) > 0 {
		name := info.PrimaryKey.Name
		if name == "" || name == "PRIMARY" {
			name = "pk_" + info.Name
		}
		if err := b.constraint(t, name, schema.PrimaryKey, "", info.PrimaryKey.Columns); err != nil {
			return err
		}
	}
	for _, ci := range info.Columns {
		if ci.IsUnique {
			if err := b.constraint(t, info.Name+"_"+ci.Name+"_key", schema.Unique, "", []string{ci.Name}); err != nil {
				return err
			}
		}
		if len(ci.EnumValues) > 0 {
			if err := b.constraint(t, info.Name+"_"+ci.Name+"_check", schema.Check, enumExpression(ci), []string{ci.Name}); err != nil {
				return err
			}
		}
	}

	for _, ii := range info.Indexes {
		idx := &schema.Index{ID: b.newID(), Name: ii.Name, Unique: ii.IsUnique}
		for i, name := range ii.Columns {
			col, err := t.ColumnByName(name)
			if err != nil {
				return fmt.Errorf("index %s: %w", ii.Name, err)
			}
			idx.Columns = append(idx.Columns, &schema.IndexColumn{ID: b.newID(), ColumnID: col.ID, SeqNo: i, Sort: schema.Asc})
		}
		if err := b.db.AddIndex(t.ID, idx); err != nil {
			return err
		}
	}
	return nil
}

func (b *snapshotBuilder) constraint(t *schema.Table, name string, kind schema.ConstraintKind, expr string, columns []string) error {
	c := &schema.Constraint{ID: b.newID(), Name: b.constraintName(name), Kind: kind, Expression: expr}
	for i, colName := range columns {
		col, err := t.ColumnByName(colName)
		if err != nil {
			return fmt.Errorf("constraint %s: %w", name, err)
		}
		c.Columns = append(c.Columns, &schema.ConstraintColumn{ID: b.newID(), ColumnID: col.ID, SeqNo: i})
	}
	return b.db.AddConstraint(t.ID, c)
}

func enumExpression(ci ColumnInfo) string {
	quoted := make([]string, len(ci.EnumValues))
	for i, v := range ci.EnumValues {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return fmt.Sprintf("%s IN (%s)", ci.Name, strings.Join(quoted, ", "))
}

func (b *snapshotBuilder) relationships(info TableInfo) error {
	s, err := b.db.Schema(b.schemaID)
	if err != nil {
		return err
	}
	src, err := s.TableByName(info.Name)
	if err != nil {
		return err
	}

	for _, fk := range groupForeignKeys(info) {
		tgt, err := s.TableByName(fk.targetTable)
		if err != nil {
			continue
		}
		rel := &schema.Relationship{
			ID:            b.newID(),
			Name:          fk.name,
			Kind:          schema.NonIdentifying,
			Cardinality:   schema.OneToMany,
			TargetTableID: tgt.ID,
		}
		var fkColumns []string
		for i, pair := range fk.pairs {
			fkCol, err := src.ColumnByName(pair[0])
			if err != nil {
				return fmt.Errorf("foreign key %s: %w", fk.name, err)
			}
			refCol, err := referencedColumn(tgt, pair[1], i)
			if err != nil {
				return fmt.Errorf("foreign key %s: %w", fk.name, err)
			}
			rel.Columns = append(rel.Columns, &schema.RelationshipColumn{ID: b.newID(), FKColumnID: fkCol.ID, RefColumnID: refCol.ID, SeqNo: i})
			fkColumns = append(fkColumns, pair[0])
		}
		if containsAll(info.PrimaryKey.Columns, fkColumns) {
			rel.Kind = schema.Identifying
		}
		if sameSet(info.PrimaryKey.Columns, fkColumns) || (len(fkColumns) == 1 && uniqueColumn(info, fkColumns[0])) {
			rel.Cardinality = schema.OneToOne
		}
		if err := b.db.AddRelationship(src.ID, rel); err != nil {
			return err
		}
	}
	return nil
}

// referencedColumn resolves a target column by name, or by position in the
// target's primary key when the name is empty
func referencedColumn(t *schema.Table, name string, pos int) (*schema.Column, error) {
	if name != "" {
		return t.ColumnByName(name)
	}
	if pk := t.PrimaryKey(); pk != nil && pos < len(pk.Columns) {
		if col := t.FindColumn(pk.Columns[pos].ColumnID); col != nil {
			return col, nil
		}
	}
	return nil, fmt.Errorf("key column %d of %s: %w", pos, t.Name, schema.ErrNotFound)
}

type foreignKey struct {
	name        string
	targetTable string
	pairs       [][2]string
}

// groupForeignKeys folds per-column rows into keys, in first-seen order
func groupForeignKeys(info TableInfo) []*foreignKey {
	var out []*foreignKey
	byName := make(map[string]*foreignKey)
	for i, row := range info.ForeignKeys {
		name := row.Name
		if name == "" {
			name = fmt.Sprintf("fk_%s_%d", info.Name, i)
		}
		fk, ok := byName[name]
		if !ok {
			fk = &foreignKey{name: name, targetTable: row.TargetTable}
			byName[name] = fk
			out = append(out, fk)
		}
		fk.pairs = append(fk.pairs, [2]string{row.SourceColumn, row.TargetColumn})
	}
	return out
}

func containsAll(set, items []string) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		found := false
		for _, s := range set {
			if s == it {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	return len(a) == len(b) && containsAll(a, b)
}

func uniqueColumn(info TableInfo, name string) bool {
	for _, c := range info.Columns {
		if c.Name == name {
			return c.IsUnique
		}
	}
	return false
}
