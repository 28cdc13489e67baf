package schema

// EntityType tags every identifier so mappings can be routed to the right collection
type EntityType string

const (
	EntitySchema             EntityType = "SCHEMA"
	EntityTable              EntityType = "TABLE"
	EntityColumn             EntityType = "COLUMN"
	EntityIndex              EntityType = "INDEX"
	EntityIndexColumn        EntityType = "INDEX_COLUMN"
	EntityConstraint         EntityType = "CONSTRAINT"
	EntityConstraintColumn   EntityType = "CONSTRAINT_COLUMN"
	EntityRelationship       EntityType = "RELATIONSHIP"
	EntityRelationshipColumn EntityType = "RELATIONSHIP_COLUMN"
)

// ConstraintKind is the kind of a table constraint
type ConstraintKind string

const (
	PrimaryKey ConstraintKind = "PRIMARY_KEY"
	Unique     ConstraintKind = "UNIQUE"
	NotNull    ConstraintKind = "NOT_NULL"
	Check      ConstraintKind = "CHECK"
	Default    ConstraintKind = "DEFAULT"
)

// Valid reports whether k is a known constraint kind
func (k ConstraintKind) Valid() bool {
	switch k {
	case PrimaryKey, Unique, NotNull, Check, Default:
		return true
	}
	return false
}

// RelationshipKind tells whether the foreign key is part of the child's identity
type RelationshipKind string

const (
	Identifying    RelationshipKind = "IDENTIFYING"
	NonIdentifying RelationshipKind = "NON_IDENTIFYING"
)

// Cardinality of a relationship, seen from the referenced table
type Cardinality string

const (
	OneToOne  Cardinality = "1:1"
	OneToMany Cardinality = "1:N"
)

// SortDirection of an index column
type SortDirection string

const (
	Asc  SortDirection = "ASC"
	Desc SortDirection = "DESC"
)

// Database is the root of the model
type Database struct {
	ID      string    `json:"id" yaml:"id"`
	Name    string    `json:"name" yaml:"name"`
	Schemas []*Schema `json:"schemas" yaml:"schemas"`
}

// Schema groups tables
type Schema struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	SeqNo  int      `json:"seqNo" yaml:"seqNo"`
	Tables []*Table `json:"tables" yaml:"tables"`
}

// Table represents a database table
type Table struct {
	ID            string          `json:"id" yaml:"id"`
	Name          string          `json:"name" yaml:"name"`
	Comment       string          `json:"comment,omitempty" yaml:"comment,omitempty"`
	SeqNo         int             `json:"seqNo" yaml:"seqNo"`
	Columns       []*Column       `json:"columns" yaml:"columns"`
	Indexes       []*Index        `json:"indexes" yaml:"indexes"`
	Constraints   []*Constraint   `json:"constraints" yaml:"constraints"`
	Relationships []*Relationship `json:"relationships" yaml:"relationships"`
}

// Column represents a table column
type Column struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	DataType string  `json:"dataType" yaml:"dataType"`
	Nullable bool    `json:"nullable" yaml:"nullable"`
	Default  *string `json:"default,omitempty" yaml:"default,omitempty"`
	SeqNo    int     `json:"seqNo" yaml:"seqNo"`
}

// Index represents a database index
type Index struct {
	ID      string         `json:"id" yaml:"id"`
	Name    string         `json:"name" yaml:"name"`
	Unique  bool           `json:"unique" yaml:"unique"`
	Columns []*IndexColumn `json:"columns" yaml:"columns"`
}

// IndexColumn is one ordered entry of an index
type IndexColumn struct {
	ID       string        `json:"id" yaml:"id"`
	ColumnID string        `json:"columnId" yaml:"columnId"`
	SeqNo    int           `json:"seqNo" yaml:"seqNo"`
	Sort     SortDirection `json:"sort" yaml:"sort"`
}

// Constraint represents a table constraint
type Constraint struct {
	ID         string              `json:"id" yaml:"id"`
	Name       string              `json:"name" yaml:"name"`
	Kind       ConstraintKind      `json:"kind" yaml:"kind"`
	Expression string              `json:"expression,omitempty" yaml:"expression,omitempty"`
	Columns    []*ConstraintColumn `json:"columns" yaml:"columns"`
}

// ConstraintColumn is one ordered entry of a constraint
type ConstraintColumn struct {
	ID       string `json:"id" yaml:"id"`
	ColumnID string `json:"columnId" yaml:"columnId"`
	SeqNo    int    `json:"seqNo" yaml:"seqNo"`
}

// Relationship represents a foreign key owned by the source (referencing) table
type Relationship struct {
	ID            string                `json:"id" yaml:"id"`
	Name          string                `json:"name" yaml:"name"`
	Kind          RelationshipKind      `json:"kind" yaml:"kind"`
	Cardinality   Cardinality           `json:"cardinality" yaml:"cardinality"`
	SourceTableID string                `json:"sourceTableId" yaml:"sourceTableId"`
	TargetTableID string                `json:"targetTableId" yaml:"targetTableId"`
	Columns       []*RelationshipColumn `json:"columns" yaml:"columns"`
}

// RelationshipColumn pairs a foreign key column with the primary key column it references
type RelationshipColumn struct {
	ID          string `json:"id" yaml:"id"`
	FKColumnID  string `json:"fkColumnId" yaml:"fkColumnId"`
	RefColumnID string `json:"refColumnId" yaml:"refColumnId"`
	SeqNo       int    `json:"seqNo" yaml:"seqNo"`
}
