package command

import "github.com/tordrt/schemasync/internal/schema"

// Payloads are the entity-specific part of a remote request. They carry only
// identifiers the authority is expected to know or assign; speculative cascade
// entities never appear here.

// SchemaPayload creates a schema
type SchemaPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	SeqNo int    `json:"seqNo"`
}

// TablePayload creates a table
type TablePayload struct {
	ID       string `json:"id"`
	SchemaID string `json:"schemaId"`
	Name     string `json:"name"`
	Comment  string `json:"comment,omitempty"`
	SeqNo    int    `json:"seqNo"`
}

// ColumnPayload creates a column
type ColumnPayload struct {
	ID       string  `json:"id"`
	TableID  string  `json:"tableId"`
	Name     string  `json:"name"`
	DataType string  `json:"dataType"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
	SeqNo    int     `json:"seqNo"`
}

// RenamePayload renames any entity
type RenamePayload struct {
	Type schema.EntityType `json:"type"`
	ID   string            `json:"id"`
	Name string            `json:"name"`
}

// DeletePayload removes any entity
type DeletePayload struct {
	Type schema.EntityType `json:"type"`
	ID   string            `json:"id"`
}

// RetypePayload changes a column's data type
type RetypePayload struct {
	ID       string `json:"id"`
	DataType string `json:"dataType"`
}

// NullablePayload changes a column's nullability
type NullablePayload struct {
	ID       string `json:"id"`
	Nullable bool   `json:"nullable"`
}

// MovePayload moves a column
type MovePayload struct {
	ID    string `json:"id"`
	SeqNo int    `json:"seqNo"`
}

// IndexPayload creates an index with its columns
type IndexPayload struct {
	ID      string               `json:"id"`
	TableID string               `json:"tableId"`
	Name    string               `json:"name"`
	Unique  bool                 `json:"unique"`
	Columns []IndexColumnPayload `json:"columns"`
}

// IndexColumnPayload adds a column to an index
type IndexColumnPayload struct {
	ID       string               `json:"id"`
	IndexID  string               `json:"indexId"`
	ColumnID string               `json:"columnId"`
	SeqNo    int                  `json:"seqNo"`
	Sort     schema.SortDirection `json:"sort"`
}

// SortPayload changes an index column's sort direction
type SortPayload struct {
	ID   string               `json:"id"`
	Sort schema.SortDirection `json:"sort"`
}

// ConstraintPayload creates a constraint with its columns
type ConstraintPayload struct {
	ID         string                    `json:"id"`
	TableID    string                    `json:"tableId"`
	Name       string                    `json:"name"`
	Kind       schema.ConstraintKind     `json:"kind"`
	Expression string                    `json:"expression,omitempty"`
	Columns    []ConstraintColumnPayload `json:"columns"`
}

// ConstraintColumnPayload adds a column to a constraint
type ConstraintColumnPayload struct {
	ID           string `json:"id"`
	ConstraintID string `json:"constraintId"`
	ColumnID     string `json:"columnId"`
	SeqNo        int    `json:"seqNo"`
}

// RelationshipPayload creates a relationship
type RelationshipPayload struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Kind          schema.RelationshipKind `json:"kind"`
	Cardinality   schema.Cardinality      `json:"cardinality"`
	SourceTableID string                  `json:"sourceTableId"`
	TargetTableID string                  `json:"targetTableId"`
}

// CardinalityPayload changes a relationship's cardinality
type CardinalityPayload struct {
	ID          string             `json:"id"`
	Cardinality schema.Cardinality `json:"cardinality"`
}

// RelationshipColumnPayload adds a column pair to a relationship
type RelationshipColumnPayload struct {
	ID             string `json:"id"`
	RelationshipID string `json:"relationshipId"`
	FKColumnID     string `json:"fkColumnId"`
	RefColumnID    string `json:"refColumnId"`
	SeqNo          int    `json:"seqNo"`
}
