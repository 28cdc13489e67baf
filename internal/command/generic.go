package command

import (
	"context"
	"fmt"

	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

var deleteKinds = map[schema.EntityType]Kind{
	schema.EntitySchema:             KindDeleteSchema,
	schema.EntityTable:              KindDeleteTable,
	schema.EntityColumn:             KindDeleteColumn,
	schema.EntityIndex:              KindDeleteIndex,
	schema.EntityIndexColumn:        KindRemoveIndexColumn,
	schema.EntityConstraint:         KindDeleteConstraint,
	schema.EntityConstraintColumn:   KindRemoveConstraintColumn,
	schema.EntityRelationship:       KindDeleteRelationship,
	schema.EntityRelationshipColumn: KindRemoveRelationshipColumn,
}

// Rename changes the name of a schema, table, column, index, constraint or relationship
type Rename struct {
	base
	Name string
}

// Apply writes the new name into db
func (c *Rename) Apply(db *schema.Database) error {
	return db.Rename(c.typ, c.entityID, c.Name)
}

// Execute sends the rename to the authority
func (c *Rename) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, RenamePayload{Type: c.typ, ID: c.entityID, Name: c.Name})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *Rename) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	return &cp
}

// Delete removes any entity together with whatever depends on it
type Delete struct {
	base
}

// Apply removes the entity and everything it owns from db
func (c *Delete) Apply(db *schema.Database) error {
	id := c.entityID
	switch c.typ {
	case schema.EntitySchema:
		db.RemoveSchema(id)
	case schema.EntityTable:
		db.RemoveTable(id)
	case schema.EntityColumn:
		db.RemoveColumn(id)
	case schema.EntityIndex:
		db.RemoveIndex(id)
	case schema.EntityIndexColumn:
		db.RemoveIndexColumn(id)
	case schema.EntityConstraint:
		db.RemoveConstraint(id)
	case schema.EntityConstraintColumn:
		db.RemoveConstraintColumn(id)
	case schema.EntityRelationship:
		db.RemoveRelationship(id)
	case schema.EntityRelationshipColumn:
		db.RemoveRelationshipColumn(id)
	default:
		return fmt.Errorf("cannot delete %s", c.typ)
	}
	return nil
}

// Execute sends the removal to the authority
func (c *Delete) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, DeletePayload{Type: c.typ, ID: c.entityID})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *Delete) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	return &cp
}
