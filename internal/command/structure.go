package command

import (
	"context"

	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

// CreateSchema adds a schema to the database
type CreateSchema struct {
	base
	Name  string
	SeqNo int
}

// Apply adds the schema to db
func (c *CreateSchema) Apply(db *schema.Database) error {
	db.AddSchema(&schema.Schema{ID: c.entityID, Name: c.Name, SeqNo: c.SeqNo})
	return nil
}

// Execute sends a new schema to the authority
func (c *CreateSchema) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, SchemaPayload{ID: c.entityID, Name: c.Name, SeqNo: c.SeqNo})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *CreateSchema) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	return &cp
}

// CreateTable adds a table to a schema
type CreateTable struct {
	base
	SchemaID string
	Name     string
	Comment  string
	SeqNo    int
}

// Apply adds the table to db
func (c *CreateTable) Apply(db *schema.Database) error {
	return db.AddTable(c.SchemaID, &schema.Table{ID: c.entityID, Name: c.Name, Comment: c.Comment, SeqNo: c.SeqNo})
}

// Execute sends the table to the authority
func (c *CreateTable) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, TablePayload{
		ID:       c.entityID,
		SchemaID: c.SchemaID,
		Name:     c.Name,
		Comment:  c.Comment,
		SeqNo:    c.SeqNo,
	})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *CreateTable) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	cp.SchemaID = r.Resolve(c.SchemaID)
	return &cp
}

// CreateColumn adds a column to a table
type CreateColumn struct {
	base
	TableID  string
	Name     string
	DataType string
	Nullable bool
	Default  *string
	SeqNo    int
}

// Apply adds the column to db
func (c *CreateColumn) Apply(db *schema.Database) error {
	return db.AddColumn(c.TableID, &schema.Column{
		ID:       c.entityID,
		Name:     c.Name,
		DataType: c.DataType,
		Nullable: c.Nullable,
		Default:  c.Default,
		SeqNo:    c.SeqNo,
	})
}

// Execute sends the column to the authority
func (c *CreateColumn) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, ColumnPayload{
		ID:       c.entityID,
		TableID:  c.TableID,
		Name:     c.Name,
		DataType: c.DataType,
		Nullable: c.Nullable,
		Default:  c.Default,
		SeqNo:    c.SeqNo,
	})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *CreateColumn) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	cp.TableID = r.Resolve(c.TableID)
	return &cp
}

// RetypeColumn changes a column's data type
type RetypeColumn struct {
	base
	DataType string
}

// Apply writes the new data type into db
func (c *RetypeColumn) Apply(db *schema.Database) error {
	return db.SetColumnType(c.entityID, c.DataType)
}

// Execute sends the type change to the authority
func (c *RetypeColumn) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, RetypePayload{ID: c.entityID, DataType: c.DataType})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *RetypeColumn) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	return &cp
}

// SetColumnNullable changes a column's nullability
type SetColumnNullable struct {
	base
	Nullable bool
}

// Apply writes the nullability change into db
func (c *SetColumnNullable) Apply(db *schema.Database) error {
	return db.SetColumnNullable(c.entityID, c.Nullable)
}

// Execute sends the nullability change to the authority
func (c *SetColumnNullable) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, NullablePayload{ID: c.entityID, Nullable: c.Nullable})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *SetColumnNullable) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	return &cp
}

// MoveColumn repositions a column within its table
type MoveColumn struct {
	base
	SeqNo int
}

// Apply writes the column at its new position into db
func (c *MoveColumn) Apply(db *schema.Database) error {
	return db.MoveColumn(c.entityID, c.SeqNo)
}

// Execute sends the move to the authority
func (c *MoveColumn) Execute(ctx context.Context, a remote.Authority, synced *schema.Database) (*remote.Result, error) {
	return c.execute(ctx, a, synced, MovePayload{ID: c.entityID, SeqNo: c.SeqNo})
}

// WithRemappedIDs returns a copy holding resolved ids
func (c *MoveColumn) WithRemappedIDs(r idmap.Resolver) Command {
	cp := *c
	cp.base = c.remapped(r)
	return &cp
}
