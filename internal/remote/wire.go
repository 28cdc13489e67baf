// Package remote defines the boundary with the authority that validates edits,
// assigns permanent identifiers and reports cascaded entities.
package remote

import (
	"context"
	"fmt"

	"github.com/tordrt/schemasync/internal/schema"
)

// SourceType names the kind of command that caused a propagated entity
type SourceType string

const (
	SourceRelationship SourceType = "RELATIONSHIP"
	SourceConstraint   SourceType = "CONSTRAINT"
)

// Scope is the minimal addressing context of a command
type Scope struct {
	SchemaID       string `json:"schemaId,omitempty"`
	TableID        string `json:"tableId,omitempty"`
	RelationshipID string `json:"relationshipId,omitempty"`
	ConstraintID   string `json:"constraintId,omitempty"`
	IndexID        string `json:"indexId,omitempty"`
}

// Request is one mutation sent to the authority
type Request struct {
	Kind     string           `json:"kind"`
	Scope    Scope            `json:"scope"`
	Database *schema.Database `json:"database"`
	Payload  any              `json:"payload"`
}

// Response is the authority's answer
type Response struct {
	Success bool    `json:"success"`
	Result  *Result `json:"result,omitempty"`
	Error   *Error  `json:"error,omitempty"`
}

// Error is a rejection reported by the authority
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements error
func (e *Error) Error() string {
	return fmt.Sprintf("remote rejected: %s: %s", e.Code, e.Message)
}

// Nested maps parent id -> provisional id -> real id
type Nested map[string]map[string]string

// Add records one pair under parent
func (n Nested) Add(parent, provisional, real string) {
	if n[parent] == nil {
		n[parent] = make(map[string]string)
	}
	n[parent][provisional] = real
}

// Result lists the identifiers the authority assigned, per collection
type Result struct {
	Schemas             map[string]string `json:"schemas,omitempty"`
	Tables              map[string]string `json:"tables,omitempty"`
	Columns             Nested            `json:"columns,omitempty"`
	Indexes             Nested            `json:"indexes,omitempty"`
	IndexColumns        Nested            `json:"indexColumns,omitempty"`
	Constraints         Nested            `json:"constraints,omitempty"`
	ConstraintColumns   Nested            `json:"constraintColumns,omitempty"`
	Relationships       Nested            `json:"relationships,omitempty"`
	RelationshipColumns Nested            `json:"relationshipColumns,omitempty"`
	Propagated          *Propagated       `json:"propagated,omitempty"`
}

// Propagated lists entities the authority created as a side effect
type Propagated struct {
	Columns             []PropagatedColumn             `json:"columns,omitempty"`
	RelationshipColumns []PropagatedRelationshipColumn `json:"relationshipColumns,omitempty"`
	Constraints         []PropagatedConstraint         `json:"constraints,omitempty"`
	ConstraintColumns   []PropagatedConstraintColumn   `json:"constraintColumns,omitempty"`
}

// Empty reports whether nothing was propagated
func (p *Propagated) Empty() bool {
	return p == nil || len(p.Columns)+len(p.RelationshipColumns)+len(p.Constraints)+len(p.ConstraintColumns) == 0
}

// Source identifies the command that caused a propagated entity
type Source struct {
	SourceType SourceType `json:"sourceType"`
	SourceID   string     `json:"sourceId"`
}

// PropagatedColumn is a foreign key column created on a referencing table
type PropagatedColumn struct {
	Source
	ID                 string `json:"id"`
	TableID            string `json:"tableId"`
	Name               string `json:"name"`
	DataType           string `json:"dataType"`
	Nullable           bool   `json:"nullable"`
	SeqNo              int    `json:"seqNo"`
	ReferencedColumnID string `json:"referencedColumnId"`
}

// PropagatedRelationshipColumn is a relationship entry created by the authority
type PropagatedRelationshipColumn struct {
	Source
	ID             string `json:"id"`
	RelationshipID string `json:"relationshipId"`
	FKColumnID     string `json:"fkColumnId"`
	RefColumnID    string `json:"refColumnId"`
	SeqNo          int    `json:"seqNo"`
}

// PropagatedConstraint is a constraint created on a referencing table
type PropagatedConstraint struct {
	Source
	ID      string                `json:"id"`
	TableID string                `json:"tableId"`
	Name    string                `json:"name"`
	Kind    schema.ConstraintKind `json:"kind"`
}

// PropagatedConstraintColumn is a constraint entry created by the authority
type PropagatedConstraintColumn struct {
	Source
	ID           string `json:"id"`
	ConstraintID string `json:"constraintId"`
	ColumnID     string `json:"columnId"`
	SeqNo        int    `json:"seqNo"`
}

// Authority is the remote side that accepts or rejects one mutation at a time
type Authority interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// AuthorityFunc adapts a function to Authority
type AuthorityFunc func(ctx context.Context, req *Request) (*Response, error)

// Execute implements Authority
func (f AuthorityFunc) Execute(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Call sends req and converts a non-success response into an *Error
func Call(ctx context.Context, a Authority, req *Request) (*Result, error) {
	resp, err := a.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", req.Kind, err)
	}
	if resp == nil {
		return nil, &Error{Code: "EMPTY_RESPONSE", Message: fmt.Sprintf("no response for %s", req.Kind)}
	}
	if !resp.Success {
		if resp.Error == nil {
			return nil, &Error{Code: "UNKNOWN", Message: fmt.Sprintf("%s failed without an error", req.Kind)}
		}
		return nil, resp.Error
	}
	if resp.Result == nil {
		return &Result{}, nil
	}
	return resp.Result, nil
}
