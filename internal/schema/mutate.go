package schema

import "fmt"

// Mutators keep child seqNo contiguous from 0. Adding an id that is already
// present and removing a missing id are both no-ops, so applying the same
// mutation twice to one model leaves it unchanged.

// AddSchema appends a schema to the database
func (d *Database) AddSchema(s *Schema) {
	if d.Contains(EntitySchema, s.ID) {
		return
	}
	d.Schemas = insertAt(d.Schemas, s.clone(), s.SeqNo)
	renumber(d.Schemas, func(s *Schema, i int) { s.SeqNo = i })
}

// RemoveSchema drops a schema and every relationship that targets one of its tables
func (d *Database) RemoveSchema(id string) {
	s, err := d.Schema(id)
	if err != nil {
		return
	}
	for _, t := range s.Tables {
		d.dropIncoming(t.ID)
	}
	d.Schemas, _ = removeWhere(d.Schemas, func(s *Schema) bool { return s.ID == id })
	renumber(d.Schemas, func(s *Schema, i int) { s.SeqNo = i })
}

// AddTable inserts a table into a schema at its seqNo
func (d *Database) AddTable(schemaID string, t *Table) error {
	s, err := d.Schema(schemaID)
	if err != nil {
		return err
	}
	if d.Contains(EntityTable, t.ID) {
		return nil
	}
	s.Tables = insertAt(s.Tables, t.clone(), t.SeqNo)
	renumber(s.Tables, func(t *Table, i int) { t.SeqNo = i })
	return nil
}

// RemoveTable drops a table and every relationship that targets it
func (d *Database) RemoveTable(id string) {
	_, s, err := d.Table(id)
	if err != nil {
		return
	}
	d.dropIncoming(id)
	s.Tables, _ = removeWhere(s.Tables, func(t *Table) bool { return t.ID == id })
	renumber(s.Tables, func(t *Table, i int) { t.SeqNo = i })
}

func (d *Database) dropIncoming(tableID string) {
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			if t.ID == tableID {
				continue
			}
			t.Relationships, _ = removeWhere(t.Relationships, func(r *Relationship) bool {
				return r.TargetTableID == tableID
			})
		}
	}
}

// AddColumn inserts a column at its seqNo, or appends it when seqNo is out of range
func (d *Database) AddColumn(tableID string, c *Column) error {
	t, _, err := d.Table(tableID)
	if err != nil {
		return err
	}
	if t.FindColumn(c.ID) != nil {
		return nil
	}
	t.Columns = insertAt(t.Columns, c.clone(), c.SeqNo)
	renumberColumns(t)
	return nil
}

// RemoveColumn drops a column and every index, constraint and relationship entry that uses it
func (d *Database) RemoveColumn(id string) {
	_, t, err := d.Column(id)
	if err != nil {
		return
	}
	t.Columns, _ = removeWhere(t.Columns, func(c *Column) bool { return c.ID == id })
	renumberColumns(t)

	for _, idx := range t.Indexes {
		var removed bool
		idx.Columns, removed = removeWhere(idx.Columns, func(ic *IndexColumn) bool { return ic.ColumnID == id })
		if removed {
			renumberIndexColumns(idx)
		}
	}
	for _, c := range t.Constraints {
		var removed bool
		c.Columns, removed = removeWhere(c.Columns, func(cc *ConstraintColumn) bool { return cc.ColumnID == id })
		if removed {
			renumberConstraintColumns(c)
		}
	}
	for _, s := range d.Schemas {
		for _, other := range s.Tables {
			for _, r := range other.Relationships {
				var removed bool
				r.Columns, removed = removeWhere(r.Columns, func(rc *RelationshipColumn) bool {
					return rc.FKColumnID == id || rc.RefColumnID == id
				})
				if removed {
					renumberRelationshipColumns(r)
				}
			}
		}
	}
}

// MoveColumn repositions a column within its table
func (d *Database) MoveColumn(id string, seqNo int) error {
	c, t, err := d.Column(id)
	if err != nil {
		return err
	}
	t.Columns, _ = removeWhere(t.Columns, func(c *Column) bool { return c.ID == id })
	t.Columns = insertAt(t.Columns, c, seqNo)
	renumberColumns(t)
	return nil
}

// SetColumnType changes a column's data type
func (d *Database) SetColumnType(id, dataType string) error {
	c, _, err := d.Column(id)
	if err != nil {
		return err
	}
	c.DataType = dataType
	return nil
}

// SetColumnNullable changes a column's nullability
func (d *Database) SetColumnNullable(id string, nullable bool) error {
	c, _, err := d.Column(id)
	if err != nil {
		return err
	}
	c.Nullable = nullable
	return nil
}

// AddIndex appends an index to a table
func (d *Database) AddIndex(tableID string, idx *Index) error {
	t, _, err := d.Table(tableID)
	if err != nil {
		return err
	}
	if d.Contains(EntityIndex, idx.ID) {
		return nil
	}
	cp := idx.clone()
	renumberIndexColumns(cp)
	t.Indexes = append(t.Indexes, cp)
	return nil
}

// RemoveIndex drops an index
func (d *Database) RemoveIndex(id string) {
	_, t, err := d.Index(id)
	if err != nil {
		return
	}
	t.Indexes, _ = removeWhere(t.Indexes, func(idx *Index) bool { return idx.ID == id })
}

// AddIndexColumn inserts an index column at its seqNo
func (d *Database) AddIndexColumn(indexID string, ic *IndexColumn) error {
	idx, _, err := d.Index(indexID)
	if err != nil {
		return err
	}
	if d.Contains(EntityIndexColumn, ic.ID) {
		return nil
	}
	cp := *ic
	if cp.Sort == "" {
		cp.Sort = Asc
	}
	idx.Columns = insertAt(idx.Columns, &cp, ic.SeqNo)
	renumberIndexColumns(idx)
	return nil
}

// RemoveIndexColumn drops an index column
func (d *Database) RemoveIndexColumn(id string) {
	for _, idx := range d.indexes() {
		var removed bool
		idx.Columns, removed = removeWhere(idx.Columns, func(ic *IndexColumn) bool { return ic.ID == id })
		if removed {
			renumberIndexColumns(idx)
			return
		}
	}
}

// SetIndexColumnSort changes the sort direction of an index column
func (d *Database) SetIndexColumnSort(id string, dir SortDirection) error {
	for _, idx := range d.indexes() {
		for _, ic := range idx.Columns {
			if ic.ID == id {
				ic.Sort = dir
				return nil
			}
		}
	}
	return notFound(EntityIndexColumn, id)
}

// AddConstraint appends a constraint to a table
func (d *Database) AddConstraint(tableID string, c *Constraint) error {
	t, _, err := d.Table(tableID)
	if err != nil {
		return err
	}
	if d.Contains(EntityConstraint, c.ID) {
		return nil
	}
	cp := c.clone()
	renumberConstraintColumns(cp)
	t.Constraints = append(t.Constraints, cp)
	return nil
}

// RemoveConstraint drops a constraint
func (d *Database) RemoveConstraint(id string) {
	_, t, _, err := d.Constraint(id)
	if err != nil {
		return
	}
	t.Constraints, _ = removeWhere(t.Constraints, func(c *Constraint) bool { return c.ID == id })
}

// AddConstraintColumn inserts a constraint column at its seqNo, or appends it
func (d *Database) AddConstraintColumn(constraintID string, cc *ConstraintColumn) error {
	c, _, _, err := d.Constraint(constraintID)
	if err != nil {
		return err
	}
	if d.Contains(EntityConstraintColumn, cc.ID) {
		return nil
	}
	cp := *cc
	c.Columns = insertAt(c.Columns, &cp, cc.SeqNo)
	renumberConstraintColumns(c)
	return nil
}

// RemoveConstraintColumn drops a constraint column
func (d *Database) RemoveConstraintColumn(id string) {
	for _, c := range d.constraints() {
		var removed bool
		c.Columns, removed = removeWhere(c.Columns, func(cc *ConstraintColumn) bool { return cc.ID == id })
		if removed {
			renumberConstraintColumns(c)
			return
		}
	}
}

// AddRelationship appends a relationship to its source table
func (d *Database) AddRelationship(tableID string, r *Relationship) error {
	t, _, err := d.Table(tableID)
	if err != nil {
		return err
	}
	if d.Contains(EntityRelationship, r.ID) {
		return nil
	}
	cp := r.clone()
	cp.SourceTableID = t.ID
	renumberRelationshipColumns(cp)
	t.Relationships = append(t.Relationships, cp)
	return nil
}

// RemoveRelationship drops a relationship; its foreign key columns stay on the table
func (d *Database) RemoveRelationship(id string) {
	_, t, err := d.Relationship(id)
	if err != nil {
		return
	}
	t.Relationships, _ = removeWhere(t.Relationships, func(r *Relationship) bool { return r.ID == id })
}

// AddRelationshipColumn inserts a relationship column at its seqNo, or appends it
func (d *Database) AddRelationshipColumn(relationshipID string, rc *RelationshipColumn) error {
	r, _, err := d.Relationship(relationshipID)
	if err != nil {
		return err
	}
	if d.Contains(EntityRelationshipColumn, rc.ID) {
		return nil
	}
	cp := *rc
	r.Columns = insertAt(r.Columns, &cp, rc.SeqNo)
	renumberRelationshipColumns(r)
	return nil
}

// RemoveRelationshipColumn drops a relationship column
func (d *Database) RemoveRelationshipColumn(id string) {
	for _, r := range d.relationships() {
		var removed bool
		r.Columns, removed = removeWhere(r.Columns, func(rc *RelationshipColumn) bool { return rc.ID == id })
		if removed {
			renumberRelationshipColumns(r)
			return
		}
	}
}

// SetRelationshipCardinality changes a relationship's cardinality
func (d *Database) SetRelationshipCardinality(id string, card Cardinality) error {
	r, _, err := d.Relationship(id)
	if err != nil {
		return err
	}
	r.Cardinality = card
	return nil
}

// Rename sets the name of any named entity
func (d *Database) Rename(typ EntityType, id, name string) error {
	switch typ {
	case EntitySchema:
		s, err := d.Schema(id)
		if err != nil {
			return err
		}
		s.Name = name
	case EntityTable:
		t, _, err := d.Table(id)
		if err != nil {
			return err
		}
		t.Name = name
	case EntityColumn:
		c, _, err := d.Column(id)
		if err != nil {
			return err
		}
		c.Name = name
	case EntityIndex:
		idx, _, err := d.Index(id)
		if err != nil {
			return err
		}
		idx.Name = name
	case EntityConstraint:
		c, _, _, err := d.Constraint(id)
		if err != nil {
			return err
		}
		c.Name = name
	case EntityRelationship:
		r, _, err := d.Relationship(id)
		if err != nil {
			return err
		}
		r.Name = name
	default:
		return fmt.Errorf("cannot rename %s", typ)
	}
	return nil
}

func (d *Database) indexes() []*Index {
	var out []*Index
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			out = append(out, t.Indexes...)
		}
	}
	return out
}

func (d *Database) constraints() []*Constraint {
	var out []*Constraint
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			out = append(out, t.Constraints...)
		}
	}
	return out
}

func (d *Database) relationships() []*Relationship {
	var out []*Relationship
	for _, s := range d.Schemas {
		for _, t := range s.Tables {
			out = append(out, t.Relationships...)
		}
	}
	return out
}

func renumberColumns(t *Table) {
	renumber(t.Columns, func(c *Column, i int) { c.SeqNo = i })
}

func renumberIndexColumns(idx *Index) {
	renumber(idx.Columns, func(ic *IndexColumn, i int) { ic.SeqNo = i })
}

func renumberConstraintColumns(c *Constraint) {
	renumber(c.Columns, func(cc *ConstraintColumn, i int) { cc.SeqNo = i })
}

func renumberRelationshipColumns(r *Relationship) {
	renumber(r.Columns, func(rc *RelationshipColumn, i int) { rc.SeqNo = i })
}

func renumber[T any](items []*T, set func(*T, int)) {
	for i, item := range items {
		set(item, i)
	}
}

// insertAt places item at pos, appending when pos is outside [0, len)
func insertAt[T any](items []*T, item *T, pos int) []*T {
	if pos < 0 || pos >= len(items) {
		return append(items, item)
	}
	items = append(items, nil)
	copy(items[pos+1:], items[pos:])
	items[pos] = item
	return items
}

func removeWhere[T any](items []*T, match func(*T) bool) ([]*T, bool) {
	kept := items[:0]
	removed := false
	for _, item := range items {
		if match(item) {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	// Clear the tail so dropped entries are not retained by the backing array
	for i := len(kept); i < len(items); i++ {
		items[i] = nil
	}
	return kept, removed
}
