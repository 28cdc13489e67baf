package schema

import "reflect"

// Clone returns a deep copy of the database
func (d *Database) Clone() *Database {
	if d == nil {
		return nil
	}
	cp := &Database{ID: d.ID, Name: d.Name, Schemas: make([]*Schema, 0, len(d.Schemas))}
	for _, s := range d.Schemas {
		cp.Schemas = append(cp.Schemas, s.clone())
	}
	return cp
}

// Equal reports whether two models are deeply equal
func Equal(a, b *Database) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// normalize maps empty child slices to nil so a freshly built tree compares
// equal to its clone
func normalize(d *Database) *Database {
	if d == nil {
		return nil
	}
	cp := d.Clone()
	if len(cp.Schemas) == 0 {
		cp.Schemas = nil
	}
	for _, s := range cp.Schemas {
		if len(s.Tables) == 0 {
			s.Tables = nil
		}
		for _, t := range s.Tables {
			if len(t.Columns) == 0 {
				t.Columns = nil
			}
			if len(t.Indexes) == 0 {
				t.Indexes = nil
			}
			if len(t.Constraints) == 0 {
				t.Constraints = nil
			}
			if len(t.Relationships) == 0 {
				t.Relationships = nil
			}
			for _, idx := range t.Indexes {
				if len(idx.Columns) == 0 {
					idx.Columns = nil
				}
			}
			for _, c := range t.Constraints {
				if len(c.Columns) == 0 {
					c.Columns = nil
				}
			}
			for _, r := range t.Relationships {
				if len(r.Columns) == 0 {
					r.Columns = nil
				}
			}
		}
	}
	return cp
}

func (s *Schema) clone() *Schema {
	cp := *s
	cp.Tables = make([]*Table, 0, len(s.Tables))
	for _, t := range s.Tables {
		cp.Tables = append(cp.Tables, t.clone())
	}
	return &cp
}

func (t *Table) clone() *Table {
	cp := *t
	cp.Columns = make([]*Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		cp.Columns = append(cp.Columns, c.clone())
	}
	cp.Indexes = make([]*Index, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		cp.Indexes = append(cp.Indexes, idx.clone())
	}
	cp.Constraints = make([]*Constraint, 0, len(t.Constraints))
	for _, c := range t.Constraints {
		cp.Constraints = append(cp.Constraints, c.clone())
	}
	cp.Relationships = make([]*Relationship, 0, len(t.Relationships))
	for _, r := range t.Relationships {
		cp.Relationships = append(cp.Relationships, r.clone())
	}
	return &cp
}

func (c *Column) clone() *Column {
	cp := *c
	if c.Default != nil {
		v := *c.Default
		cp.Default = &v
	}
	return &cp
}

func (idx *Index) clone() *Index {
	cp := *idx
	cp.Columns = make([]*IndexColumn, 0, len(idx.Columns))
	for _, ic := range idx.Columns {
		v := *ic
		cp.Columns = append(cp.Columns, &v)
	}
	return &cp
}

func (c *Constraint) clone() *Constraint {
	cp := *c
	cp.Columns = make([]*ConstraintColumn, 0, len(c.Columns))
	for _, cc := range c.Columns {
		v := *cc
		cp.Columns = append(cp.Columns, &v)
	}
	return &cp
}

func (r *Relationship) clone() *Relationship {
	cp := *r
	cp.Columns = make([]*RelationshipColumn, 0, len(r.Columns))
	for _, rc := range r.Columns {
		v := *rc
		cp.Columns = append(cp.Columns, &v)
	}
	return &cp
}
