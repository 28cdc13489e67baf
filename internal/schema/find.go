package schema

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an addressed entity does not exist in the model
var ErrNotFound = errors.New("not found")

func notFound(typ EntityType, id string) error {
	return fmt.Errorf("%s %q: %w", typ, id, ErrNotFound)
}

// Schema returns the schema with the given id
func (d *Database) Schema(id string) (*Schema, error) {
	for _, s := range d.Schemas {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, notFound(EntitySchema, id)
}

// SchemaByName returns the schema with the given name
func (d *Database) SchemaByName(name string) (*Schema, error) {
	for _, s := range d.Schemas {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%s named %q: %w", EntitySchema, name, ErrNotFound)
}

// Table returns the table with the given id and the schema that owns it
func (d *Database) Table(id string) (*Table, *Schema, error) {
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			if t.ID == id {
				return t, s, nil
			}
		}
	}
	return nil, nil, notFound(EntityTable, id)
}

// Column returns the column with the given id and its table
func (d *Database) Column(id string) (*Column, *Table, error) {
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			for _, c := range t.Columns {
				if c.ID == id {
					return c, t, nil
				}
			}
		}
	}
	return nil, nil, notFound(EntityColumn, id)
}

// Index returns the index with the given id and its table
func (d *Database) Index(id string) (*Index, *Table, error) {
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			for _, idx := range t.Indexes {
				if idx.ID == id {
					return idx, t, nil
				}
			}
		}
	}
	return nil, nil, notFound(EntityIndex, id)
}

// Constraint returns the constraint with the given id, its table and schema
func (d *Database) Constraint(id string) (*Constraint, *Table, *Schema, error) {
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			for _, c := range t.Constraints {
				if c.ID == id {
					return c, t, s, nil
				}
			}
		}
	}
	return nil, nil, nil, notFound(EntityConstraint, id)
}

// Relationship returns the relationship with the given id and its source table
func (d *Database) Relationship(id string) (*Relationship, *Table, error) {
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			for _, r := range t.Relationships {
				if r.ID == id {
					return r, t, nil
				}
			}
		}
	}
	return nil, nil, notFound(EntityRelationship, id)
}

// Contains reports whether an entity of the given type and id exists anywhere in the tree
func (d *Database) Contains(typ EntityType, id string) bool {
	found := false
	d.walk(func(t EntityType, entityID string) {
		if t == typ && entityID == id {
			found = true
		}
	})
	return found
}

// walk visits every entity identifier in the tree
func (d *Database) walk(fn func(EntityType, string)) {
	for _, s := range d.Schemas {
		fn(EntitySchema, s.ID)
		for _, t := range s.Tables {
			fn(EntityTable, t.ID)
			for _, c := range t.Columns {
				fn(EntityColumn, c.ID)
			}
			for _, idx := range t.Indexes {
				fn(EntityIndex, idx.ID)
				for _, ic := range idx.Columns {
					fn(EntityIndexColumn, ic.ID)
				}
			}
			for _, c := range t.Constraints {
				fn(EntityConstraint, c.ID)
				for _, cc := range c.Columns {
					fn(EntityConstraintColumn, cc.ID)
				}
			}
			for _, r := range t.Relationships {
				fn(EntityRelationship, r.ID)
				for _, rc := range r.Columns {
					fn(EntityRelationshipColumn, rc.ID)
				}
			}
		}
	}
}

// References counts every occurrence of id in the tree, including back-references
func (d *Database) References(id string) int {
	n := 0
	d.walk(func(_ EntityType, entityID string) {
		if entityID == id {
			n++
		}
	})
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			for _, idx := range t.Indexes {
				for _, ic := range idx.Columns {
					if ic.ColumnID == id {
						n++
					}
				}
			}
			for _, c := range t.Constraints {
				for _, cc := range c.Columns {
					if cc.ColumnID == id {
						n++
					}
				}
			}
			for _, r := range t.Relationships {
				if r.SourceTableID == id {
					n++
				}
				if r.TargetTableID == id {
					n++
				}
				for _, rc := range r.Columns {
					if rc.FKColumnID == id {
						n++
					}
					if rc.RefColumnID == id {
						n++
					}
				}
			}
		}
	}
	return n
}

// PrimaryKey returns the table's primary key constraint, or nil
func (t *Table) PrimaryKey() *Constraint {
	for _, c := range t.Constraints {
		if c.Kind == PrimaryKey {
			return c
		}
	}
	return nil
}

// TableByName returns the table with the given name
func (s *Schema) TableByName(name string) (*Table, error) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%s named %q in schema %q: %w", EntityTable, name, s.Name, ErrNotFound)
}

// ColumnByName returns the column with the given name
func (t *Table) ColumnByName(name string) (*Column, error) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%s named %q in table %q: %w", EntityColumn, name, t.Name, ErrNotFound)
}

// FindColumn returns the column with the given id on this table
func (t *Table) FindColumn(id string) *Column {
	for _, c := range t.Columns {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// IndexByName returns the index with the given name
func (t *Table) IndexByName(name string) (*Index, error) {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx, nil
		}
	}
	return nil, fmt.Errorf("%s named %q in table %q: %w", EntityIndex, name, t.Name, ErrNotFound)
}

// ConstraintByName returns the constraint with the given name
func (t *Table) ConstraintByName(name string) (*Constraint, error) {
	for _, c := range t.Constraints {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%s named %q in table %q: %w", EntityConstraint, name, t.Name, ErrNotFound)
}

// RelationshipByName returns the relationship with the given name
func (t *Table) RelationshipByName(name string) (*Relationship, error) {
	for _, r := range t.Relationships {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s named %q in table %q: %w", EntityRelationship, name, t.Name, ErrNotFound)
}

// HasConstraintName reports whether any table in the schema defines a constraint with this name
func (s *Schema) HasConstraintName(name string) bool {
	for _, t := range s.Tables {
		for _, c := range t.Constraints {
			if c.Name == name {
				return true
			}
		}
	}
	return false
}

// IncomingRelationships returns every relationship whose target is the given table
func (d *Database) IncomingRelationships(tableID string) []*Relationship {
	var rels []*Relationship
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			for _, r := range t.Relationships {
				if r.TargetTableID == tableID {
					rels = append(rels, r)
				}
			}
		}
	}
	return rels
}

// IndexColumn returns the index column with the given id, its index and table
func (d *Database) IndexColumn(id string) (*IndexColumn, *Index, *Table, error) {
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			for _, idx := range t.Indexes {
				for _, ic := range idx.Columns {
					if ic.ID == id {
						return ic, idx, t, nil
					}
				}
			}
		}
	}
	return nil, nil, nil, notFound(EntityIndexColumn, id)
}

// ConstraintColumn returns the constraint column with the given id, its constraint and table
func (d *Database) ConstraintColumn(id string) (*ConstraintColumn, *Constraint, *Table, error) {
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			for _, c := range t.Constraints {
				for _, cc := range c.Columns {
					if cc.ID == id {
						return cc, c, t, nil
					}
				}
			}
		}
	}
	return nil, nil, nil, notFound(EntityConstraintColumn, id)
}

// RelationshipColumn returns the relationship column with the given id, its relationship and table
func (d *Database) RelationshipColumn(id string) (*RelationshipColumn, *Relationship, *Table, error) {
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			for _, r := range t.Relationships {
				for _, rc := range r.Columns {
					if rc.ID == id {
						return rc, r, t, nil
					}
				}
			}
		}
	}
	return nil, nil, nil, notFound(EntityRelationshipColumn, id)
}
