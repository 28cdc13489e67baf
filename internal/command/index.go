package command

import (
	"context"

	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

// CreateIndex adds an index, with its initial columns, to a table
type CreateIndex struct {
	base
	TableID string
	Name    string
	Unique  bool
	Columns []schema.IndexColumn
}

// Apply adds the index and its columns to db
func (c *CreateIndex) Apply(db *schema.Database) error {
	idx := &schema.Index{ID: c.entityID, Name: c.Name, Unique: c.Unique}
	for i := range c.Columns {
		ic := c.Columns[i]
		idx.Columns = append(idx.Columns, &ic)
	}
	return db.AddIndex(c.TableID, idx)
}

// Execute sends the index to the authority
func (c *CreateIndex) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	p := IndexPayload{ID: c.entityID, TableID: c.TableID, Name: c.Name, Unique: c.Unique}
	for _, ic := range c.Columns {
		p.Columns = append(p.Columns, IndexColumnPayload{
			ID:       ic.ID,
			IndexID:  c.entityID,
			ColumnID: ic.ColumnID,
			SeqNo:    ic.SeqNo,
			Sort:     ic.Sort,
		})
	}
	return c.execute(ctx, a, synced, p)
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *CreateIndex) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	cp.TableID = r.Resolve(c.TableID)
	if c.Columns != nil {
		cp.Columns = make([]schema.IndexColumn, len(c.Columns))
	}
	for i, ic := range c.Columns {
		ic.ID = r.Resolve(ic.ID)
		ic.ColumnID = r.Resolve(ic.ColumnID)
		cp.Columns[i] = ic
	}
	return &cp
}

// AddIndexColumn appends a column to an index
type AddIndexColumn struct {
	base
	IndexID  string
	ColumnID string
	SeqNo    int
	Sort     schema.SortDirection
}

// Apply adds the index column to db
func (c *AddIndexColumn) Apply(db *schema.Database) error {
	return db.AddIndexColumn(c.IndexID, &schema.IndexColumn{
		ID:       c.entityID,
		ColumnID: c.ColumnID,
		SeqNo:    c.SeqNo,
		Sort:     c.Sort,
	})
}

// Execute sends the index column to the authority
func (c *AddIndexColumn) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, IndexColumnPayload{
		ID:       c.entityID,
		IndexID:  c.IndexID,
		ColumnID: c.ColumnID,
		SeqNo:    c.SeqNo,
		Sort:     c.Sort,
	})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *AddIndexColumn) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	cp.IndexID = r.Resolve(c.IndexID)
	cp.ColumnID = r.Resolve(c.ColumnID)
	return &cp
}

// SortIndexColumn changes the sort direction of an index column
type SortIndexColumn struct {
	base
	Sort schema.SortDirection
}

// Apply writes the new sort direction into db
func (c *SortIndexColumn) Apply(db *schema.Database) error {
	return db.SetIndexColumnSort(c.entityID, c.Sort)
}

// Execute sends the sort change to the authority
func (c *SortIndexColumn) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, SortPayload{ID: c.entityID, Sort: c.Sort})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *SortIndexColumn) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	return &cp
}
