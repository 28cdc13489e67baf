// Package script decodes YAML edit scripts. Steps address entities by name
// and are turned into commands against the current local model, so a step
// can refer to anything an earlier step created.
package script

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemasync/internal/command"
	"github.com/tordrt/schemasync/internal/schema"
)

// Operations understood by Step.Build
const (
	OpCreateSchema          = "create_schema"
	OpCreateTable           = "create_table"
	OpAddColumn             = "add_column"
	OpRetypeColumn          = "retype_column"
	OpSetNullable           = "set_nullable"
	OpMoveColumn            = "move_column"
	OpRename                = "rename"
	OpDelete                = "delete"
	OpCreateIndex           = "create_index"
	OpAddIndexColumn        = "add_index_column"
	OpSortIndexColumn       = "sort_index_column"
	OpCreateConstraint      = "create_constraint"
	OpAddConstraintColumn   = "add_constraint_column"
	OpCreateRelationship    = "create_relationship"
	OpSetCardinality        = "set_cardinality"
	OpAddRelationshipColumn = "add_relationship_column"
)

// Script is an ordered list of edits
type Script struct {
	Edits []Step `yaml:"edits"`
}

// Step is one edit. Which fields are read depends on Op.
type Step struct {
	Op string `yaml:"op"`

	// Address. Schema may be omitted when the table name is unique.
	Schema       string `yaml:"schema,omitempty"`
	Table        string `yaml:"table,omitempty"`
	Column       string `yaml:"column,omitempty"`
	Index        string `yaml:"index,omitempty"`
	Constraint   string `yaml:"constraint,omitempty"`
	Relationship string `yaml:"relationship,omitempty"`
	// Entity selects what rename and delete address: schema, table, column,
	// index, constraint, relationship, index_column, constraint_column or
	// relationship_column
	Entity string `yaml:"entity,omitempty"`

	Name        string   `yaml:"name,omitempty"`
	Comment     string   `yaml:"comment,omitempty"`
	Type        string   `yaml:"type,omitempty"`
	Nullable    bool     `yaml:"nullable,omitempty"`
	Default     *string  `yaml:"default,omitempty"`
	Position    *int     `yaml:"position,omitempty"`
	Unique      bool     `yaml:"unique,omitempty"`
	Columns     []string `yaml:"columns,omitempty"`
	Kind        string   `yaml:"kind,omitempty"`
	Expression  string   `yaml:"expression,omitempty"`
	Target      string   `yaml:"target,omitempty"`
	Ref         string   `yaml:"ref,omitempty"`
	Cardinality string   `yaml:"cardinality,omitempty"`
	Sort        string   `yaml:"sort,omitempty"`
}

// Parse decodes a script
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	for i, step := range s.Edits {
		if step.Op == "" {
			return nil, fmt.Errorf("edit %d has no op", i+1)
		}
	}
	return &s, nil
}

// Load reads and decodes a script file
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(data)
}

// String is a short description used in logs
func (s Step) String() string {
	parts := []string{s.Op}
	for _, p := range []string{s.Schema, s.Table, s.Column, s.Index, s.Constraint, s.Relationship} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if s.Name != "" {
		parts = append(parts, "→", s.Name)
	}
	return strings.Join(parts, " ")
}

// Build resolves the step's names in db and returns the command it describes
func (s Step) Build(b *command.Builder, db *schema.Database) (command.Command, error) {
	r := resolver{db: db, step: s}
	switch s.Op {
	case OpCreateSchema:
		return wrap(b.CreateSchema(db, s.Name))

	case OpCreateTable:
		sc, err := r.schema()
		if err != nil {
			return nil, err
		}
		return wrap(b.CreateTable(db, sc.ID, s.Name, s.Comment))

	case OpAddColumn:
		t, err := r.table()
		if err != nil {
			return nil, err
		}
		spec := command.ColumnSpec{Name: s.Name, DataType: s.Type, Nullable: s.Nullable, Default: s.Default, SeqNo: -1}
		if s.Position != nil {
			spec.SeqNo = *s.Position
		}
		return wrap(b.CreateColumn(db, t.ID, spec))

	case OpRetypeColumn:
		c, err := r.column()
		if err != nil {
			return nil, err
		}
		return wrap(b.RetypeColumn(db, c.ID, s.Type))

	case OpSetNullable:
		c, err := r.column()
		if err != nil {
			return nil, err
		}
		return wrap(b.SetColumnNullable(db, c.ID, s.Nullable))

	case OpMoveColumn:
		c, err := r.column()
		if err != nil {
			return nil, err
		}
		if s.Position == nil {
			return nil, fmt.Errorf("%s needs a position: %w", s.Op, command.ErrInvalid)
		}
		return wrap(b.MoveColumn(db, c.ID, *s.Position))

	case OpRename:
		typ, id, err := r.entity()
		if err != nil {
			return nil, err
		}
		return wrap(b.Rename(db, typ, id, s.Name))

	case OpDelete:
		typ, id, err := r.entity()
		if err != nil {
			return nil, err
		}
		return wrap(b.Delete(db, typ, id))

	case OpCreateIndex:
		t, err := r.table()
		if err != nil {
			return nil, err
		}
		ids, err := r.columnIDs(t, s.Columns)
		if err != nil {
			return nil, err
		}
		return wrap(b.CreateIndex(db, t.ID, s.Name, s.Unique, ids))

	case OpAddIndexColumn:
		t, idx, err := r.index()
		if err != nil {
			return nil, err
		}
		c, err := t.ColumnByName(s.Column)
		if err != nil {
			return nil, err
		}
		dir, err := sortDirection(s.Sort)
		if err != nil {
			return nil, err
		}
		return wrap(b.AddIndexColumn(db, idx.ID, c.ID, dir))

	case OpSortIndexColumn:
		_, id, err := r.indexColumn()
		if err != nil {
			return nil, err
		}
		dir, err := sortDirection(s.Sort)
		if err != nil {
			return nil, err
		}
		return wrap(b.SortIndexColumn(db, id, dir))

	case OpCreateConstraint:
		t, err := r.table()
		if err != nil {
			return nil, err
		}
		kind := schema.ConstraintKind(enumValue(s.Kind))
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown constraint kind %q: %w", s.Kind, command.ErrInvalid)
		}
		ids, err := r.columnIDs(t, s.Columns)
		if err != nil {
			return nil, err
		}
		return wrap(b.CreateConstraint(db, t.ID, s.Name, kind, s.Expression, ids))

	case OpAddConstraintColumn:
		t, cons, err := r.constraint()
		if err != nil {
			return nil, err
		}
		c, err := t.ColumnByName(s.Column)
		if err != nil {
			return nil, err
		}
		return wrap(b.AddConstraintColumn(db, cons.ID, c.ID))

	case OpCreateRelationship:
		src, err := r.table()
		if err != nil {
			return nil, err
		}
		tgt, err := r.tableNamed(s.Target)
		if err != nil {
			return nil, err
		}
		kind, err := relationshipKind(s.Kind)
		if err != nil {
			return nil, err
		}
		card, err := cardinality(s.Cardinality)
		if err != nil {
			return nil, err
		}
		return wrap(b.CreateRelationship(db, src.ID, tgt.ID, s.Name, kind, card))

	case OpSetCardinality:
		_, rel, err := r.relationship()
		if err != nil {
			return nil, err
		}
		card, err := cardinality(s.Cardinality)
		if err != nil {
			return nil, err
		}
		return wrap(b.SetRelationshipCardinality(db, rel.ID, card))

	case OpAddRelationshipColumn:
		src, rel, err := r.relationship()
		if err != nil {
			return nil, err
		}
		fk, err := src.ColumnByName(s.Column)
		if err != nil {
			return nil, err
		}
		tgt, _, err := db.Table(rel.TargetTableID)
		if err != nil {
			return nil, err
		}
		ref, err := tgt.ColumnByName(s.Ref)
		if err != nil {
			return nil, err
		}
		return wrap(b.AddRelationshipColumn(db, rel.ID, fk.ID, ref.ID))
	}
	return nil, fmt.Errorf("unknown op %q: %w", s.Op, command.ErrInvalid)
}

func wrap[T command.Command](cmd T, err error) (command.Command, error) {
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

// enumValue turns "primary_key" or "non-identifying" into the model's spelling
func enumValue(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
}

func sortDirection(s string) (schema.SortDirection, error) {
	switch dir := schema.SortDirection(enumValue(s)); dir {
	case "":
		return schema.Asc, nil
	case schema.Asc, schema.Desc:
		return dir, nil
	}
	return "", fmt.Errorf("unknown sort %q: %w", s, command.ErrInvalid)
}

func relationshipKind(s string) (schema.RelationshipKind, error) {
	switch kind := schema.RelationshipKind(enumValue(s)); kind {
	case "":
		return schema.NonIdentifying, nil
	case schema.Identifying, schema.NonIdentifying:
		return kind, nil
	}
	return "", fmt.Errorf("unknown relationship kind %q: %w", s, command.ErrInvalid)
}

func cardinality(s string) (schema.Cardinality, error) {
	switch card := schema.Cardinality(strings.ToUpper(s)); card {
	case "":
		return schema.OneToMany, nil
	case schema.OneToOne, schema.OneToMany:
		return card, nil
	}
	return "", fmt.Errorf("unknown cardinality %q: %w", s, command.ErrInvalid)
}
