package command

import (
	"context"

	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

// CreateRelationship adds a foreign-key relationship from SourceTableID to
// TargetTableID together with its speculative mirror columns
type CreateRelationship struct {
	base
	SourceTableID string
	TargetTableID string
	Name          string
	RelKind       schema.RelationshipKind
	Cardinality   schema.Cardinality
	Mirrors       []Mirror
	// NewPrimaryKey is set when an identifying relationship needs a key on a
	// source table that has none yet
	NewPrimaryKey *schema.Constraint
}

// Apply adds the relationship and its mirror columns to db
func (c *CreateRelationship) Apply(db *schema.Database) error {
	if c.NewPrimaryKey != nil {
		if err := db.AddConstraint(c.SourceTableID, c.NewPrimaryKey); err != nil {
			return err
		}
	}
	err := db.AddRelationship(c.SourceTableID, &schema.Relationship{
		ID:            c.entityID,
		Name:          c.Name,
		Kind:          c.RelKind,
		Cardinality:   c.Cardinality,
		SourceTableID: c.SourceTableID,
		TargetTableID: c.TargetTableID,
	})
	if err != nil {
		return err
	}
	return applyMirrors(db, c.Mirrors)
}

// Execute sends the relationship without its mirrors to the authority
func (c *CreateRelationship) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, RelationshipPayload{
		ID:            c.entityID,
		Name:          c.Name,
		Kind:          c.RelKind,
		Cardinality:   c.Cardinality,
		SourceTableID: c.SourceTableID,
		TargetTableID: c.TargetTableID,
	})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *CreateRelationship) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	cp.SourceTableID = r.Resolve(c.SourceTableID)
	cp.TargetTableID = r.Resolve(c.TargetTableID)
	cp.Mirrors = remapMirrors(c.Mirrors, r)
	if c.NewPrimaryKey != nil {
		pk := *c.NewPrimaryKey
		pk.ID = r.Resolve(pk.ID)
		cp.NewPrimaryKey = &pk
	}
	return &cp
}

// SetRelationshipCardinality changes a relationship between 1:1 and 1:N
type SetRelationshipCardinality struct {
	base
	Cardinality schema.Cardinality
}

// Apply writes the new cardinality into db
func (c *SetRelationshipCardinality) Apply(db *schema.Database) error {
	return db.SetRelationshipCardinality(c.entityID, c.Cardinality)
}

// Execute sends the cardinality change to the authority
func (c *SetRelationshipCardinality) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, CardinalityPayload{ID: c.entityID, Cardinality: c.Cardinality})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *SetRelationshipCardinality) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	return &cp
}

// AddRelationshipColumn pairs an existing foreign-key column with a referenced key column
type AddRelationshipColumn struct {
	base
	RelationshipID string
	FKColumnID     string
	RefColumnID    string
	SeqNo          int
}

// Apply adds the relationship column to db
func (c *AddRelationshipColumn) Apply(db *schema.Database) error {
	return db.AddRelationshipColumn(c.RelationshipID, &schema.RelationshipColumn{
		ID:          c.entityID,
		FKColumnID:  c.FKColumnID,
		RefColumnID: c.RefColumnID,
		SeqNo:       c.SeqNo,
	})
}

// Execute sends the relationship column to the authority
func (c *AddRelationshipColumn) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, RelationshipColumnPayload{
		ID:             c.entityID,
		RelationshipID: c.RelationshipID,
		FKColumnID:     c.FKColumnID,
		RefColumnID:    c.RefColumnID,
		SeqNo:          c.SeqNo,
	})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *AddRelationshipColumn) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	cp.RelationshipID = r.Resolve(c.RelationshipID)
	cp.FKColumnID = r.Resolve(c.FKColumnID)
	cp.RefColumnID = r.Resolve(c.RefColumnID)
	return &cp
}
