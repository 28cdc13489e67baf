package command

import (
	"fmt"

	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/schema"
)

// Mirror is one speculative foreign-key cascade: a column on the referencing
// table, the relationship column pairing it with a referenced key column, and
// for identifying relationships a constraint column on the referencing table's
// primary key. The authority creates the same entities on its own and reports
// them as propagated; these placeholders are what they get matched against.
type Mirror struct {
	TableID            string
	RelationshipID     string
	Column             schema.Column
	RelationshipColumn schema.RelationshipColumn
	ConstraintID       string
	ConstraintColumn   *schema.ConstraintColumn
}

func (m Mirror) apply(db *schema.Database) error {
	col := m.Column
	if err := db.AddColumn(m.TableID, &col); err != nil {
		return fmt.Errorf("failed to add mirror column %q: %w", col.Name, err)
	}
	rc := m.RelationshipColumn
	if err := db.AddRelationshipColumn(m.RelationshipID, &rc); err != nil {
		return fmt.Errorf("failed to add mirror relationship column: %w", err)
	}
	if m.ConstraintColumn != nil {
		cc := *m.ConstraintColumn
		if err := db.AddConstraintColumn(m.ConstraintID, &cc); err != nil {
			return fmt.Errorf("failed to add mirror key column: %w", err)
		}
	}
	return nil
}

func (m Mirror) remapped(r idmap.Resolver) Mirror {
	m.TableID = r.Resolve(m.TableID)
	m.RelationshipID = r.Resolve(m.RelationshipID)
	m.Column.ID = r.Resolve(m.Column.ID)
	m.RelationshipColumn.ID = r.Resolve(m.RelationshipColumn.ID)
	m.RelationshipColumn.FKColumnID = r.Resolve(m.RelationshipColumn.FKColumnID)
	m.RelationshipColumn.RefColumnID = r.Resolve(m.RelationshipColumn.RefColumnID)
	if m.ConstraintColumn != nil {
		cc := *m.ConstraintColumn
		cc.ID = r.Resolve(cc.ID)
		cc.ColumnID = r.Resolve(cc.ColumnID)
		m.ConstraintColumn = &cc
		m.ConstraintID = r.Resolve(m.ConstraintID)
	}
	return m
}

func applyMirrors(db *schema.Database, mirrors []Mirror) error {
	for _, m := range mirrors {
		if err := m.apply(db); err != nil {
			return err
		}
	}
	return nil
}

func remapMirrors(mirrors []Mirror, r idmap.Resolver) []Mirror {
	if mirrors == nil {
		return nil
	}
	out := make([]Mirror, len(mirrors))
	for i, m := range mirrors {
		out[i] = m.remapped(r)
	}
	return out
}
