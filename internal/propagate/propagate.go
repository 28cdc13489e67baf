// Package propagate matches entities the authority created as side effects of
// a command against the placeholders the client created speculatively.
//
// The authority never sees the client's placeholder ids, so matching is
// structural: relationship columns by position, foreign key columns by the key
// column they reference, constraints by name and kind, and constraint columns
// by position from the end. Only placeholders are candidates; entities that
// were confirmed before the command are never taken over. Anything left
// unmatched is accepted on its real id.
package propagate

import (
	"sort"

	"go.uber.org/zap"

	"github.com/tordrt/schemasync/internal/reconcile"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

// group holds everything one source command caused
type group struct {
	sourceType  remote.SourceType
	sourceID    string
	columns     []remote.PropagatedColumn
	relColumns  []remote.PropagatedRelationshipColumn
	constraints []remote.PropagatedConstraint
	consColumns []remote.PropagatedConstraintColumn
}

type resolver struct {
	rw  *reconcile.Rewriter
	log *zap.SugaredLogger
}

// Resolve folds prop into the rewriter's models
func Resolve(rw *reconcile.Rewriter, prop *remote.Propagated, log *zap.SugaredLogger) {
	if prop.Empty() {
		return
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := &resolver{rw: rw, log: log}

	for _, g := range groupBySource(prop) {
		switch g.sourceType {
		case remote.SourceRelationship:
			if len(g.relColumns) > 0 {
				r.remapRelationshipColumns(g)
			} else {
				r.remapColumns(g)
			}
		case remote.SourceConstraint:
			r.remapColumns(g)
			r.remapRelationshipColumns(g)
		default:
			log.Warnw("Unknown propagation source type", "sourceType", g.sourceType, "sourceId", g.sourceID)
		}
		r.remapConstraints(g)
		r.accept(g)
	}
}

// groupBySource buckets propagated entities by source id in first-seen order
func groupBySource(p *remote.Propagated) []*group {
	var order []*group
	byID := make(map[string]*group)
	get := func(src remote.Source) *group {
		g, ok := byID[src.SourceID]
		if !ok {
			g = &group{sourceType: src.SourceType, sourceID: src.SourceID}
			byID[src.SourceID] = g
			order = append(order, g)
		}
		return g
	}

	for _, c := range p.Columns {
		g := get(c.Source)
		g.columns = append(g.columns, c)
	}
	for _, rc := range p.RelationshipColumns {
		g := get(rc.Source)
		g.relColumns = append(g.relColumns, rc)
	}
	for _, c := range p.Constraints {
		g := get(c.Source)
		g.constraints = append(g.constraints, c)
	}
	for _, cc := range p.ConstraintColumns {
		g := get(cc.Source)
		g.consColumns = append(g.consColumns, cc)
	}
	return order
}

// remapRelationshipColumns pairs each propagated relationship column with the
// local one at the same seqNo in the same relationship
func (r *resolver) remapRelationshipColumns(g *group) {
	db := r.rw.Primary()
	for _, prc := range g.relColumns {
		rel, _, err := db.Relationship(r.rw.Resolve(prc.RelationshipID))
		if err != nil {
			r.log.Debugw("No local relationship for propagated column", "relationship", prc.RelationshipID)
			continue
		}
		var local *schema.RelationshipColumn
		for _, rc := range rel.Columns {
			if rc.SeqNo == prc.SeqNo && r.rw.Placeholder(schema.EntityRelationshipColumn, rc.ID) {
				local = rc
				break
			}
		}
		if local == nil {
			continue
		}
		localID, localFK := local.ID, local.FKColumnID
		r.rw.Remap(schema.EntityRelationshipColumn, localID, prc.ID)
		if prc.FKColumnID != "" && r.rw.Placeholder(schema.EntityColumn, localFK) {
			r.rw.Remap(schema.EntityColumn, localFK, prc.FKColumnID)
		}
	}
}

// remapColumns finds, for each propagated column, the local foreign key column
// that references the same key column and takes over the propagated id. When
// the source relationship is on the table, only its columns are considered.
func (r *resolver) remapColumns(g *group) {
	db := r.rw.Primary()
	preferred := ""
	if g.sourceType == remote.SourceRelationship {
		preferred = r.rw.Resolve(g.sourceID)
	}
	for _, pc := range g.columns {
		t, _, err := db.Table(r.rw.Resolve(pc.TableID))
		if err != nil {
			continue
		}
		ref := r.rw.Resolve(pc.ReferencedColumnID)
		fk := r.matchForeignKey(t, ref, preferred)
		if fk == "" {
			continue
		}
		r.rw.Remap(schema.EntityColumn, fk, pc.ID)
	}
}

// matchForeignKey returns the first placeholder column of t that references
// refColumnID. A column that took over a propagated id stops being a
// placeholder, so each one is matched once.
func (r *resolver) matchForeignKey(t *schema.Table, refColumnID, preferred string) string {
	find := func(onlyPreferred bool) string {
		for _, rel := range t.Relationships {
			if onlyPreferred && rel.ID != preferred {
				continue
			}
			for _, rc := range rel.Columns {
				if rc.RefColumnID == refColumnID && r.rw.Placeholder(schema.EntityColumn, rc.FKColumnID) {
					return rc.FKColumnID
				}
			}
		}
		return ""
	}
	for _, rel := range t.Relationships {
		if rel.ID == preferred {
			return find(true)
		}
	}
	return find(false)
}

// remapConstraints matches propagated constraints by name and kind on their
// table, then pairs propagated constraint columns with the trailing local ones
func (r *resolver) remapConstraints(g *group) {
	db := r.rw.Primary()
	for _, pcons := range g.constraints {
		t, _, err := db.Table(r.rw.Resolve(pcons.TableID))
		if err != nil {
			continue
		}
		for _, c := range t.Constraints {
			if c.Name == pcons.Name && c.Kind == pcons.Kind && r.rw.Placeholder(schema.EntityConstraint, c.ID) {
				r.rw.Remap(schema.EntityConstraint, c.ID, pcons.ID)
				break
			}
		}
	}

	var order []string
	byConstraint := make(map[string][]remote.PropagatedConstraintColumn)
	for _, pcc := range g.consColumns {
		id := r.rw.Resolve(pcc.ConstraintID)
		if _, ok := byConstraint[id]; !ok {
			order = append(order, id)
		}
		byConstraint[id] = append(byConstraint[id], pcc)
	}

	for _, id := range order {
		c, _, _, err := db.Constraint(id)
		if err != nil {
			continue
		}
		props := byConstraint[id]
		sort.SliceStable(props, func(i, j int) bool { return props[i].SeqNo < props[j].SeqNo })

		// Constraint columns are only ever appended, so the newest local
		// placeholders are the last ones
		var local []*schema.ConstraintColumn
		for _, cc := range c.Columns {
			if r.rw.Placeholder(schema.EntityConstraintColumn, cc.ID) {
				local = append(local, cc)
			}
		}
		n := min(len(props), len(local))
		for k := 1; k <= n; k++ {
			lc, pc := local[len(local)-k], props[len(props)-k]
			localID, localCol := lc.ID, lc.ColumnID
			r.rw.Remap(schema.EntityConstraintColumn, localID, pc.ID)
			if pc.ColumnID != "" && localCol != pc.ColumnID && r.rw.Placeholder(schema.EntityColumn, localCol) {
				r.rw.Remap(schema.EntityColumn, localCol, pc.ColumnID)
			}
		}
	}
}

// accept inserts every propagated entity that is still missing after matching
func (r *resolver) accept(g *group) {
	db := r.rw.Primary()
	rs := r.rw.Resolve

	for _, pc := range g.columns {
		if db.Contains(schema.EntityColumn, pc.ID) {
			continue
		}
		r.insert(g, schema.EntityColumn, pc.ID, func(m *schema.Database) error {
			return m.AddColumn(rs(pc.TableID), &schema.Column{
				ID:       pc.ID,
				Name:     pc.Name,
				DataType: pc.DataType,
				Nullable: pc.Nullable,
				SeqNo:    pc.SeqNo,
			})
		})
	}
	for _, pcons := range g.constraints {
		if db.Contains(schema.EntityConstraint, pcons.ID) {
			continue
		}
		r.insert(g, schema.EntityConstraint, pcons.ID, func(m *schema.Database) error {
			return m.AddConstraint(rs(pcons.TableID), &schema.Constraint{ID: pcons.ID, Name: pcons.Name, Kind: pcons.Kind})
		})
	}
	for _, prc := range g.relColumns {
		if db.Contains(schema.EntityRelationshipColumn, prc.ID) {
			continue
		}
		r.insert(g, schema.EntityRelationshipColumn, prc.ID, func(m *schema.Database) error {
			return m.AddRelationshipColumn(rs(prc.RelationshipID), &schema.RelationshipColumn{
				ID:          prc.ID,
				FKColumnID:  rs(prc.FKColumnID),
				RefColumnID: rs(prc.RefColumnID),
				SeqNo:       prc.SeqNo,
			})
		})
	}
	for _, pcc := range g.consColumns {
		if db.Contains(schema.EntityConstraintColumn, pcc.ID) {
			continue
		}
		r.insert(g, schema.EntityConstraintColumn, pcc.ID, func(m *schema.Database) error {
			return m.AddConstraintColumn(rs(pcc.ConstraintID), &schema.ConstraintColumn{
				ID:       pcc.ID,
				ColumnID: rs(pcc.ColumnID),
				SeqNo:    pcc.SeqNo,
			})
		})
	}
}

func (r *resolver) insert(g *group, typ schema.EntityType, id string, fn func(*schema.Database) error) {
	if err := r.rw.Insert(fn); err != nil {
		r.log.Warnw("Dropped propagated entity without parent",
			"type", typ, "id", id, "sourceType", g.sourceType, "sourceId", g.sourceID, "error", err)
		return
	}
	r.log.Infow("Accepted propagated entity without local placeholder",
		"type", typ, "id", id, "sourceType", g.sourceType, "sourceId", g.sourceID)
}
