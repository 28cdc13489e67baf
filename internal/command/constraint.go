package command

import (
	"context"

	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

// CreateConstraint adds a constraint, with its initial columns, to a table
type CreateConstraint struct {
	base
	TableID    string
	Name       string
	ConsKind   schema.ConstraintKind
	Expression string
	Columns    []schema.ConstraintColumn
}

// Apply adds the constraint and its columns to db
func (c *CreateConstraint) Apply(db *schema.Database) error {
	cons := &schema.Constraint{ID: c.entityID, Name: c.Name, Kind: c.ConsKind, Expression: c.Expression}
	for i := range c.Columns {
		cc := c.Columns[i]
		cons.Columns = append(cons.Columns, &cc)
	}
	return db.AddConstraint(c.TableID, cons)
}

// Execute sends the constraint to the authority
func (c *CreateConstraint) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	p := ConstraintPayload{
		ID:         c.entityID,
		TableID:    c.TableID,
		Name:       c.Name,
		Kind:       c.ConsKind,
		Expression: c.Expression,
	}
	for _, cc := range c.Columns {
		p.Columns = append(p.Columns, ConstraintColumnPayload{
			ID:           cc.ID,
			ConstraintID: c.entityID,
			ColumnID:     cc.ColumnID,
			SeqNo:        cc.SeqNo,
		})
	}
	return c.execute(ctx, a, synced, p)
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *CreateConstraint) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	cp.TableID = r.Resolve(c.TableID)
	if c.Columns != nil {
		cp.Columns = make([]schema.ConstraintColumn, len(c.Columns))
	}
	for i, cc := range c.Columns {
		cc.ID = r.Resolve(cc.ID)
		cc.ColumnID = r.Resolve(cc.ColumnID)
		cp.Columns[i] = cc
	}
	return &cp
}

// AddConstraintColumn appends a column to a constraint. On a primary key the
// builder also fills Mirrors with one cascade per relationship that references
// the table, following identifying relationships on to their own referencers.
type AddConstraintColumn struct {
	base
	ConstraintID string
	ColumnID     string
	SeqNo        int
	Mirrors      []Mirror
}

// Apply adds the constraint column and its mirrors to db
func (c *AddConstraintColumn) Apply(db *schema.Database) error {
	err := db.AddConstraintColumn(c.ConstraintID, &schema.ConstraintColumn{
		ID:       c.entityID,
		ColumnID: c.ColumnID,
		SeqNo:    c.SeqNo,
	})
	if err != nil {
		return err
	}
	return applyMirrors(db, c.Mirrors)
}

// Execute sends the constraint column without its mirrors to the authority
func (c *AddConstraintColumn) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, ConstraintColumnPayload{
		ID:           c.entityID,
		ConstraintID: c.ConstraintID,
		ColumnID:     c.ColumnID,
		SeqNo:        c.SeqNo,
	})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *AddConstraintColumn) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	cp.ConstraintID = r.Resolve(c.ConstraintID)
	cp.ColumnID = r.Resolve(c.ColumnID)
	cp.Mirrors = remapMirrors(c.Mirrors, r)
	return &cp
}
