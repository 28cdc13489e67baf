package script

import (
	"fmt"

	"github.com/tordrt/schemasync/internal/command"
	"github.com/tordrt/schemasync/internal/schema"
)

// resolver turns the names of one step into entities of db
type resolver struct {
	db   *schema.Database
	step Step
}

func (r resolver) schema() (*schema.Schema, error) {
	if r.step.Schema != "" {
		return r.db.SchemaByName(r.step.Schema)
	}
	if len(r.db.Schemas) == 1 {
		return r.db.Schemas[0], nil
	}
	return nil, fmt.Errorf("%s needs a schema: %w", r.step.Op, command.ErrInvalid)
}

func (r resolver) table() (*schema.Table, error) {
	return r.tableNamed(r.step.Table)
}

// tableNamed looks in the step's schema, or in every schema when none is given
func (r resolver) tableNamed(name string) (*schema.Table, error) {
	if r.step.Schema != "" {
		s, err := r.db.SchemaByName(r.step.Schema)
		if err != nil {
			return nil, err
		}
		return s.TableByName(name)
	}

	var found *schema.Table
	for _, s := range r.db.Schemas {
		t, err := s.TableByName(name)
		if err != nil {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("table %q exists in more than one schema: %w", name, command.ErrInvalid)
		}
		found = t
	}
	if found == nil {
		return nil, fmt.Errorf("%s named %q: %w", schema.EntityTable, name, schema.ErrNotFound)
	}
	return found, nil
}

func (r resolver) column() (*schema.Column, error) {
	t, err := r.table()
	if err != nil {
		return nil, err
	}
	return t.ColumnByName(r.step.Column)
}

func (r resolver) columnIDs(t *schema.Table, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		c, err := t.ColumnByName(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (r resolver) index() (*schema.Table, *schema.Index, error) {
	t, err := r.table()
	if err != nil {
		return nil, nil, err
	}
	idx, err := t.IndexByName(r.step.Index)
	return t, idx, err
}

func (r resolver) constraint() (*schema.Table, *schema.Constraint, error) {
	t, err := r.table()
	if err != nil {
		return nil, nil, err
	}
	c, err := t.ConstraintByName(r.step.Constraint)
	return t, c, err
}

func (r resolver) relationship() (*schema.Table, *schema.Relationship, error) {
	t, err := r.table()
	if err != nil {
		return nil, nil, err
	}
	rel, err := t.RelationshipByName(r.step.Relationship)
	return t, rel, err
}

// indexColumn finds the entry of the step's index that covers the step's column
func (r resolver) indexColumn() (schema.EntityType, string, error) {
	t, idx, err := r.index()
	if err != nil {
		return "", "", err
	}
	c, err := t.ColumnByName(r.step.Column)
	if err != nil {
		return "", "", err
	}
	for _, ic := range idx.Columns {
		if ic.ColumnID == c.ID {
			return schema.EntityIndexColumn, ic.ID, nil
		}
	}
	return "", "", fmt.Errorf("column %q in index %q: %w", c.Name, idx.Name, schema.ErrNotFound)
}

// entity resolves the address of a rename or delete
func (r resolver) entity() (schema.EntityType, string, error) {
	typ := schema.EntityType(enumValue(r.step.Entity))
	switch typ {
	case schema.EntitySchema:
		s, err := r.db.SchemaByName(r.step.Schema)
		if err != nil {
			return "", "", err
		}
		return typ, s.ID, nil

	case schema.EntityTable:
		t, err := r.table()
		if err != nil {
			return "", "", err
		}
		return typ, t.ID, nil

	case schema.EntityColumn:
		c, err := r.column()
		if err != nil {
			return "", "", err
		}
		return typ, c.ID, nil

	case schema.EntityIndex:
		_, idx, err := r.index()
		if err != nil {
			return "", "", err
		}
		return typ, idx.ID, nil

	case schema.EntityIndexColumn:
		return r.indexColumn()

	case schema.EntityConstraint:
		_, c, err := r.constraint()
		if err != nil {
			return "", "", err
		}
		return typ, c.ID, nil

	case schema.EntityConstraintColumn:
		t, c, err := r.constraint()
		if err != nil {
			return "", "", err
		}
		col, err := t.ColumnByName(r.step.Column)
		if err != nil {
			return "", "", err
		}
		for _, cc := range c.Columns {
			if cc.ColumnID == col.ID {
				return typ, cc.ID, nil
			}
		}
		return "", "", fmt.Errorf("column %q in constraint %q: %w", col.Name, c.Name, schema.ErrNotFound)

	case schema.EntityRelationship:
		_, rel, err := r.relationship()
		if err != nil {
			return "", "", err
		}
		return typ, rel.ID, nil

	case schema.EntityRelationshipColumn:
		t, rel, err := r.relationship()
		if err != nil {
			return "", "", err
		}
		col, err := t.ColumnByName(r.step.Column)
		if err != nil {
			return "", "", err
		}
		for _, rc := range rel.Columns {
			if rc.FKColumnID == col.ID {
				return typ, rc.ID, nil
			}
		}
		return "", "", fmt.Errorf("column %q in relationship %q: %w", col.Name, rel.Name, schema.ErrNotFound)
	}
	return "", "", fmt.Errorf("unknown entity %q: %w", r.step.Entity, command.ErrInvalid)
}
