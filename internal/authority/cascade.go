package authority

import (
	"github.com/tordrt/schemasync/internal/command"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

// cascade accumulates the entities one request creates on other tables.
// The snapshot is never modified, so it also counts what has been added per
// table, relationship and constraint to keep names and positions consistent.
type cascade struct {
	sim  *Simulator
	db   *schema.Database
	src  remote.Source
	prop *remote.Propagated

	names   map[string]map[string]bool
	columns map[string]int
	entries map[string]int
	keys    map[string]int
}

func newCascade(sim *Simulator, db *schema.Database, src remote.Source) *cascade {
	return &cascade{
		sim:     sim,
		db:      db,
		src:     src,
		prop:    &remote.Propagated{},
		names:   make(map[string]map[string]bool),
		columns: make(map[string]int),
		entries: make(map[string]int),
		keys:    make(map[string]int),
	}
}

type mirrorColumn struct {
	ID, Name, DataType string
}

// column adds a foreign key column on t that mirrors ref of table refTable
func (c *cascade) column(t *schema.Table, refTable string, ref *schema.Column, nullable bool) mirrorColumn {
	if c.names[t.ID] == nil {
		c.names[t.ID] = make(map[string]bool)
	}
	name := command.MirrorColumnName(t, refTable+"_"+ref.Name, c.names[t.ID])
	c.names[t.ID][name] = true

	m := mirrorColumn{ID: c.sim.id(), Name: name, DataType: ref.DataType}
	c.prop.Columns = append(c.prop.Columns, remote.PropagatedColumn{
		Source:             c.src,
		ID:                 m.ID,
		TableID:            t.ID,
		Name:               name,
		DataType:           ref.DataType,
		Nullable:           nullable,
		SeqNo:              len(t.Columns) + c.columns[t.ID],
		ReferencedColumnID: ref.ID,
	})
	c.columns[t.ID]++
	return m
}

// keyColumn appends columnID to the primary key constraintID
func (c *cascade) keyColumn(constraintID, columnID string) {
	base := 0
	if cons, _, _, err := c.db.Constraint(constraintID); err == nil {
		base = len(cons.Columns)
	}
	c.prop.ConstraintColumns = append(c.prop.ConstraintColumns, remote.PropagatedConstraintColumn{
		Source:       c.src,
		ID:           c.sim.id(),
		ConstraintID: constraintID,
		ColumnID:     columnID,
		SeqNo:        base + c.keys[constraintID],
	})
	c.keys[constraintID]++
}

// key mirrors a new key column of t into every table referencing t, and
// recurses through identifying relationships. seen guards against cycles.
func (c *cascade) key(t *schema.Table, colID, colName, dataType string, seen map[string]bool) {
	ref := &schema.Column{ID: colID, Name: colName, DataType: dataType}
	for _, rel := range c.db.IncomingRelationships(t.ID) {
		child, _, err := c.db.Table(rel.SourceTableID)
		if err != nil {
			continue
		}
		mirror := c.column(child, t.Name, ref, rel.Kind != schema.Identifying)
		c.prop.RelationshipColumns = append(c.prop.RelationshipColumns, remote.PropagatedRelationshipColumn{
			Source:         c.src,
			ID:             c.sim.id(),
			RelationshipID: rel.ID,
			FKColumnID:     mirror.ID,
			RefColumnID:    colID,
			SeqNo:          len(rel.Columns) + c.entries[rel.ID],
		})
		c.entries[rel.ID]++

		if rel.Kind != schema.Identifying || seen[child.ID] {
			continue
		}
		pk := child.PrimaryKey()
		if pk == nil {
			continue
		}
		c.keyColumn(pk.ID, mirror.ID)
		seen[child.ID] = true
		c.key(child, mirror.ID, mirror.Name, mirror.DataType, seen)
	}
}
