// Package command describes every mutation of the schema model as a
// self-contained value that can be applied locally, sent to the authority and
// rewritten when provisional identifiers resolve.
package command

import (
	"context"
	"errors"
	"time"

	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

// ErrInvalid is returned by the builder when an edit violates a model rule
var ErrInvalid = errors.New("invalid edit")

// Kind is the mutation tag of a command
type Kind string

const (
	KindCreateSchema               Kind = "CREATE_SCHEMA"
	KindRenameSchema               Kind = "RENAME_SCHEMA"
	KindDeleteSchema               Kind = "DELETE_SCHEMA"
	KindCreateTable                Kind = "CREATE_TABLE"
	KindRenameTable                Kind = "RENAME_TABLE"
	KindDeleteTable                Kind = "DELETE_TABLE"
	KindCreateColumn               Kind = "CREATE_COLUMN"
	KindRenameColumn               Kind = "RENAME_COLUMN"
	KindRetypeColumn               Kind = "RETYPE_COLUMN"
	KindSetColumnNullable          Kind = "SET_COLUMN_NULLABLE"
	KindMoveColumn                 Kind = "MOVE_COLUMN"
	KindDeleteColumn               Kind = "DELETE_COLUMN"
	KindCreateIndex                Kind = "CREATE_INDEX"
	KindRenameIndex                Kind = "RENAME_INDEX"
	KindDeleteIndex                Kind = "DELETE_INDEX"
	KindAddIndexColumn             Kind = "ADD_INDEX_COLUMN"
	KindRemoveIndexColumn          Kind = "REMOVE_INDEX_COLUMN"
	KindSortIndexColumn            Kind = "SORT_INDEX_COLUMN"
	KindCreateConstraint           Kind = "CREATE_CONSTRAINT"
	KindRenameConstraint           Kind = "RENAME_CONSTRAINT"
	KindDeleteConstraint           Kind = "DELETE_CONSTRAINT"
	KindAddConstraintColumn        Kind = "ADD_CONSTRAINT_COLUMN"
	KindRemoveConstraintColumn     Kind = "REMOVE_CONSTRAINT_COLUMN"
	KindCreateRelationship         Kind = "CREATE_RELATIONSHIP"
	KindRenameRelationship         Kind = "RENAME_RELATIONSHIP"
	KindSetRelationshipCardinality Kind = "SET_RELATIONSHIP_CARDINALITY"
	KindDeleteRelationship         Kind = "DELETE_RELATIONSHIP"
	KindAddRelationshipColumn      Kind = "ADD_RELATIONSHIP_COLUMN"
	KindRemoveRelationshipColumn   Kind = "REMOVE_RELATIONSHIP_COLUMN"
)

var renameKinds = map[schema.EntityType]Kind{
	schema.EntitySchema:       KindRenameSchema,
	schema.EntityTable:        KindRenameTable,
	schema.EntityColumn:       KindRenameColumn,
	schema.EntityIndex:        KindRenameIndex,
	schema.EntityConstraint:   KindRenameConstraint,
	schema.EntityRelationship: KindRenameRelationship,
}

// Command is one mutation. The set of implementations is closed to this package.
type Command interface {
	// ID is the stable, locally assigned identity of the command
	ID() string
	Kind() Kind
	EntityType() schema.EntityType
	// EntityID is the primary entity the command concerns
	EntityID() string
	Timestamp() time.Time

	// Apply mutates db without touching the network. Applying twice to the
	// same model is the same as applying once.
	Apply(db *schema.Database) error

	// Execute sends the command to the authority, together with the synced
	// snapshot, and returns the identifiers it assigned
	Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error)

	// WithRemappedIDs returns a copy with every held identifier resolved through r
	WithRemappedIDs(r idmap.Resolver) Command

	// Scope is the addressing context used to route results
	Scope() remote.Scope

	sealed()
}

type base struct {
	id       string
	kind     Kind
	typ      schema.EntityType
	entityID string
	at       time.Time
	scope    remote.Scope
}

// The base accessors implement the shared part of Command

func (b base) ID() string                    { return b.id }
func (b base) Kind() Kind                    { return b.kind }
func (b base) EntityType() schema.EntityType { return b.typ }
func (b base) EntityID() string              { return b.entityID }
func (b base) Timestamp() time.Time          { return b.at }
func (b base) Scope() remote.Scope           { return b.scope }
func (base) sealed()                         {}

func (b base) remapped(r idmap.Resolver) base {
	b.entityID = r.Resolve(b.entityID)
	b.scope = remapScope(b.scope, r)
	return b
}

func (b base) execute(ctx context.Context, a remote.Authority, synced *schema.Database, payload any) (*remote.Result, error) {
	return remote.Call(ctx, a, &remote.Request{
		Kind:     string(b.kind),
		Scope:    b.scope,
		Database: synced,
		Payload:  payload,
	})
}

func remapScope(s remote.Scope, r idmap.Resolver) remote.Scope {
	return remote.Scope{
		SchemaID:       resolveOpt(r, s.SchemaID),
		TableID:        resolveOpt(r, s.TableID),
		RelationshipID: resolveOpt(r, s.RelationshipID),
		ConstraintID:   resolveOpt(r, s.ConstraintID),
		IndexID:        resolveOpt(r, s.IndexID),
	}
}

func resolveOpt(r idmap.Resolver, id string) string {
	if id == "" {
		return ""
	}
	return r.Resolve(id)
}
