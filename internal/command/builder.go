package command

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

// Builder constructs commands against the Local Model. Every constructor
// validates its scope first, so a command that would address a missing entity
// or break a naming rule is never queued.
type Builder struct {
	NewID func() string
	Clock clock.Clock
}

// NewBuilder creates a builder issuing uuid provisional ids. A nil clock uses the wall clock.
func NewBuilder(clk clock.Clock) *Builder {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Builder{NewID: uuid.NewString, Clock: clk}
}

// ColumnSpec describes a new column. A negative SeqNo appends.
type ColumnSpec struct {
	Name     string
	DataType string
	Nullable bool
	Default  *string
	SeqNo    int
}

func (b *Builder) base(kind Kind, typ schema.EntityType, entityID string, scope remote.Scope) base {
	return base{
		id:       b.NewID(),
		kind:     kind,
		typ:      typ,
		entityID: entityID,
		at:       b.Clock.Now(),
		scope:    scope,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalid)
}

// CreateSchema builds a command adding a schema at the end of the database
func (b *Builder) CreateSchema(db *schema.Database, name string) (*CreateSchema, error) {
	if name == "" {
		return nil, invalid("schema name is empty")
	}
	if _, err := db.SchemaByName(name); err == nil {
		return nil, invalid("schema %q already exists", name)
	}
	id := b.NewID()
	return &CreateSchema{
		base:  b.base(KindCreateSchema, schema.EntitySchema, id, remote.Scope{SchemaID: id}),
		Name:  name,
		SeqNo: len(db.Schemas),
	}, nil
}

// CreateTable builds a command adding a table at the end of a schema
func (b *Builder) CreateTable(db *schema.Database, schemaID, name, comment string) (*CreateTable, error) {
	s, err := db.Schema(schemaID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalid("table name is empty")
	}
	if _, err := s.TableByName(name); err == nil {
		return nil, invalid("table %q already exists in schema %q", name, s.Name)
	}
	id := b.NewID()
	return &CreateTable{
		base:     b.base(KindCreateTable, schema.EntityTable, id, remote.Scope{SchemaID: s.ID, TableID: id}),
		SchemaID: s.ID,
		Name:     name,
		Comment:  comment,
		SeqNo:    len(s.Tables),
	}, nil
}

// CreateColumn builds a command adding a column to a table
func (b *Builder) CreateColumn(db *schema.Database, tableID string, spec ColumnSpec) (*CreateColumn, error) {
	t, s, err := db.Table(tableID)
	if err != nil {
		return nil, err
	}
	if spec.Name == "" {
		return nil, invalid("column name is empty")
	}
	if spec.DataType == "" {
		return nil, invalid("column %q has no data type", spec.Name)
	}
	if _, err := t.ColumnByName(spec.Name); err == nil {
		return nil, invalid("column %q already exists in table %q", spec.Name, t.Name)
	}
	seqNo := spec.SeqNo
	if seqNo < 0 || seqNo > len(t.Columns) {
		seqNo = len(t.Columns)
	}
	id := b.NewID()
	return &CreateColumn{
		base:     b.base(KindCreateColumn, schema.EntityColumn, id, remote.Scope{SchemaID: s.ID, TableID: t.ID}),
		TableID:  t.ID,
		Name:     spec.Name,
		DataType: spec.DataType,
		Nullable: spec.Nullable,
		Default:  spec.Default,
		SeqNo:    seqNo,
	}, nil
}

// RetypeColumn builds a command changing a column's data type
func (b *Builder) RetypeColumn(db *schema.Database, columnID, dataType string) (*RetypeColumn, error) {
	scope, err := ScopeOf(db, schema.EntityColumn, columnID)
	if err != nil {
		return nil, err
	}
	if dataType == "" {
		return nil, invalid("data type is empty")
	}
	return &RetypeColumn{
		base:     b.base(KindRetypeColumn, schema.EntityColumn, columnID, scope),
		DataType: dataType,
	}, nil
}

// SetColumnNullable builds a command changing a column's nullability
func (b *Builder) SetColumnNullable(db *schema.Database, columnID string, nullable bool) (*SetColumnNullable, error) {
	scope, err := ScopeOf(db, schema.EntityColumn, columnID)
	if err != nil {
		return nil, err
	}
	return &SetColumnNullable{
		base:     b.base(KindSetColumnNullable, schema.EntityColumn, columnID, scope),
		Nullable: nullable,
	}, nil
}

// MoveColumn builds a command repositioning a column within its table
func (b *Builder) MoveColumn(db *schema.Database, columnID string, seqNo int) (*MoveColumn, error) {
	_, t, err := db.Column(columnID)
	if err != nil {
		return nil, err
	}
	if seqNo < 0 || seqNo >= len(t.Columns) {
		return nil, invalid("position %d out of range for table %q", seqNo, t.Name)
	}
	scope, err := ScopeOf(db, schema.EntityColumn, columnID)
	if err != nil {
		return nil, err
	}
	return &MoveColumn{
		base:  b.base(KindMoveColumn, schema.EntityColumn, columnID, scope),
		SeqNo: seqNo,
	}, nil
}

// Rename builds a command renaming a schema, table, column, index, constraint or relationship
func (b *Builder) Rename(db *schema.Database, typ schema.EntityType, id, name string) (*Rename, error) {
	kind, ok := renameKinds[typ]
	if !ok {
		return nil, invalid("%s cannot be renamed", typ)
	}
	scope, err := ScopeOf(db, typ, id)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalid("%s name is empty", typ)
	}
	if err := checkName(db, typ, id, name); err != nil {
		return nil, err
	}
	return &Rename{base: b.base(kind, typ, id, scope), Name: name}, nil
}

// Delete builds a command removing any entity
func (b *Builder) Delete(db *schema.Database, typ schema.EntityType, id string) (*Delete, error) {
	kind, ok := deleteKinds[typ]
	if !ok {
		return nil, invalid("%s cannot be deleted", typ)
	}
	scope, err := ScopeOf(db, typ, id)
	if err != nil {
		return nil, err
	}
	return &Delete{base: b.base(kind, typ, id, scope)}, nil
}

// CreateIndex builds a command adding an index over the given columns, in order
func (b *Builder) CreateIndex(db *schema.Database, tableID, name string, unique bool, columnIDs []string) (*CreateIndex, error) {
	t, s, err := db.Table(tableID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalid("index name is empty")
	}
	if _, err := t.IndexByName(name); err == nil {
		return nil, invalid("index %q already exists in table %q", name, t.Name)
	}
	if err := checkDistinctColumns(t, columnIDs); err != nil {
		return nil, err
	}
	id := b.NewID()
	c := &CreateIndex{
		base:    b.base(KindCreateIndex, schema.EntityIndex, id, remote.Scope{SchemaID: s.ID, TableID: t.ID, IndexID: id}),
		TableID: t.ID,
		Name:    name,
		Unique:  unique,
	}
	for i, colID := range columnIDs {
		c.Columns = append(c.Columns, schema.IndexColumn{ID: b.NewID(), ColumnID: colID, SeqNo: i, Sort: schema.Asc})
	}
	return c, nil
}

// AddIndexColumn builds a command appending a column to an index
func (b *Builder) AddIndexColumn(db *schema.Database, indexID, columnID string, sort schema.SortDirection) (*AddIndexColumn, error) {
	idx, t, err := db.Index(indexID)
	if err != nil {
		return nil, err
	}
	if t.FindColumn(columnID) == nil {
		return nil, fmt.Errorf("column %q in table %q: %w", columnID, t.Name, schema.ErrNotFound)
	}
	for _, ic := range idx.Columns {
		if ic.ColumnID == columnID {
			return nil, invalid("column %q is already part of index %q", columnID, idx.Name)
		}
	}
	if sort == "" {
		sort = schema.Asc
	}
	scope, err := ScopeOf(db, schema.EntityIndex, indexID)
	if err != nil {
		return nil, err
	}
	return &AddIndexColumn{
		base:     b.base(KindAddIndexColumn, schema.EntityIndexColumn, b.NewID(), scope),
		IndexID:  idx.ID,
		ColumnID: columnID,
		SeqNo:    len(idx.Columns),
		Sort:     sort,
	}, nil
}

// SortIndexColumn builds a command changing an index column's sort direction
func (b *Builder) SortIndexColumn(db *schema.Database, indexColumnID string, sort schema.SortDirection) (*SortIndexColumn, error) {
	if sort != schema.Asc && sort != schema.Desc {
		return nil, invalid("unknown sort direction %q", sort)
	}
	scope, err := ScopeOf(db, schema.EntityIndexColumn, indexColumnID)
	if err != nil {
		return nil, err
	}
	return &SortIndexColumn{
		base: b.base(KindSortIndexColumn, schema.EntityIndexColumn, indexColumnID, scope),
		Sort: sort,
	}, nil
}

// CreateConstraint builds a command adding a constraint over the given columns
func (b *Builder) CreateConstraint(db *schema.Database, tableID, name string, kind schema.ConstraintKind, expression string, columnIDs []string) (*CreateConstraint, error) {
	t, s, err := db.Table(tableID)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, invalid("unknown constraint kind %q", kind)
	}
	if name == "" {
		return nil, invalid("constraint name is empty")
	}
	if s.HasConstraintName(name) {
		return nil, invalid("constraint %q already exists in schema %q", name, s.Name)
	}
	if kind == schema.PrimaryKey && t.PrimaryKey() != nil {
		return nil, invalid("table %q already has a primary key", t.Name)
	}
	if kind == schema.Check && expression == "" {
		return nil, invalid("check constraint %q has no expression", name)
	}
	if err := checkDistinctColumns(t, columnIDs); err != nil {
		return nil, err
	}
	id := b.NewID()
	c := &CreateConstraint{
		base:       b.base(KindCreateConstraint, schema.EntityConstraint, id, remote.Scope{SchemaID: s.ID, TableID: t.ID, ConstraintID: id}),
		TableID:    t.ID,
		Name:       name,
		ConsKind:   kind,
		Expression: expression,
	}
	for i, colID := range columnIDs {
		c.Columns = append(c.Columns, schema.ConstraintColumn{ID: b.NewID(), ColumnID: colID, SeqNo: i})
	}
	return c, nil
}

// AddConstraintColumn builds a command appending a column to a constraint.
// Adding to a primary key also mirrors the column into every table that
// references this one, and on through identifying relationships.
func (b *Builder) AddConstraintColumn(db *schema.Database, constraintID, columnID string) (*AddConstraintColumn, error) {
	cons, t, s, err := db.Constraint(constraintID)
	if err != nil {
		return nil, err
	}
	col := t.FindColumn(columnID)
	if col == nil {
		return nil, fmt.Errorf("column %q in table %q: %w", columnID, t.Name, schema.ErrNotFound)
	}
	for _, cc := range cons.Columns {
		if cc.ColumnID == columnID {
			return nil, invalid("column %q is already part of constraint %q", col.Name, cons.Name)
		}
	}

	c := &AddConstraintColumn{
		base:         b.base(KindAddConstraintColumn, schema.EntityConstraintColumn, b.NewID(), remote.Scope{SchemaID: s.ID, TableID: t.ID, ConstraintID: cons.ID}),
		ConstraintID: cons.ID,
		ColumnID:     columnID,
		SeqNo:        len(cons.Columns),
	}
	if cons.Kind != schema.PrimaryKey {
		return c, nil
	}

	mirrors, err := b.cascadeKey(db, newNameSet(), t, *col, map[string]bool{t.ID: true})
	if err != nil {
		return nil, err
	}
	c.Mirrors = mirrors
	return c, nil
}

// cascadeKey mirrors ref, a new key column of t, into every table that
// references t. Where the relationship is identifying the mirror joins the
// child's primary key and is cascaded again from there. seen holds the tables
// whose key already received a column from this command.
func (b *Builder) cascadeKey(db *schema.Database, names *nameSet, t *schema.Table, ref schema.Column, seen map[string]bool) ([]Mirror, error) {
	var mirrors []Mirror
	for _, rel := range db.IncomingRelationships(t.ID) {
		child, _, err := db.Table(rel.SourceTableID)
		if err != nil {
			return nil, err
		}
		colName := names.unique(child, t.Name+"_"+ref.Name)
		m := Mirror{
			TableID:        child.ID,
			RelationshipID: rel.ID,
			Column: schema.Column{
				ID:       b.NewID(),
				Name:     colName,
				DataType: ref.DataType,
				Nullable: rel.Kind != schema.Identifying,
				SeqNo:    len(child.Columns) + names.added(child.ID) - 1,
			},
		}
		m.RelationshipColumn = schema.RelationshipColumn{
			ID:          b.NewID(),
			FKColumnID:  m.Column.ID,
			RefColumnID: ref.ID,
			SeqNo:       len(rel.Columns) + names.entry(rel.ID),
		}

		var pk *schema.Constraint
		if rel.Kind == schema.Identifying && !seen[child.ID] {
			pk = child.PrimaryKey()
		}
		if pk == nil {
			mirrors = append(mirrors, m)
			continue
		}
		m.ConstraintID = pk.ID
		m.ConstraintColumn = &schema.ConstraintColumn{
			ID:       b.NewID(),
			ColumnID: m.Column.ID,
			SeqNo:    len(pk.Columns) + names.keyed(pk.ID),
		}
		mirrors = append(mirrors, m)

		seen[child.ID] = true
		deeper, err := b.cascadeKey(db, names, child, m.Column, seen)
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, deeper...)
	}
	return mirrors, nil
}

// CreateRelationship builds a command adding a relationship from source to
// target. One mirror column per target key column is added to the source
// table; an identifying relationship also makes them part of the source key.
func (b *Builder) CreateRelationship(db *schema.Database, sourceTableID, targetTableID, name string, kind schema.RelationshipKind, card schema.Cardinality) (*CreateRelationship, error) {
	src, s, err := db.Table(sourceTableID)
	if err != nil {
		return nil, err
	}
	tgt, _, err := db.Table(targetTableID)
	if err != nil {
		return nil, err
	}
	if kind != schema.Identifying && kind != schema.NonIdentifying {
		return nil, invalid("unknown relationship kind %q", kind)
	}
	if card != schema.OneToOne && card != schema.OneToMany {
		return nil, invalid("unknown cardinality %q", card)
	}
	if name == "" {
		return nil, invalid("relationship name is empty")
	}
	if _, err := src.RelationshipByName(name); err == nil {
		return nil, invalid("relationship %q already exists in table %q", name, src.Name)
	}
	key := tgt.PrimaryKey()
	if key == nil || len(key.Columns) == 0 {
		return nil, invalid("table %q has no primary key to reference", tgt.Name)
	}

	id := b.NewID()
	c := &CreateRelationship{
		base:          b.base(KindCreateRelationship, schema.EntityRelationship, id, remote.Scope{SchemaID: s.ID, TableID: src.ID, RelationshipID: id}),
		SourceTableID: src.ID,
		TargetTableID: tgt.ID,
		Name:          name,
		RelKind:       kind,
		Cardinality:   card,
	}

	var pkID string
	var pkLen int
	if kind == schema.Identifying {
		if pk := src.PrimaryKey(); pk != nil {
			pkID, pkLen = pk.ID, len(pk.Columns)
		} else {
			c.NewPrimaryKey = &schema.Constraint{
				ID:   b.NewID(),
				Name: PrimaryKeyName(s, src.Name),
				Kind: schema.PrimaryKey,
			}
			pkID = c.NewPrimaryKey.ID
		}
	}

	names := newNameSet()
	for i, kc := range key.Columns {
		ref := tgt.FindColumn(kc.ColumnID)
		if ref == nil {
			return nil, fmt.Errorf("key column %q of table %q: %w", kc.ColumnID, tgt.Name, schema.ErrNotFound)
		}
		colName := names.unique(src, tgt.Name+"_"+ref.Name)
		m := Mirror{
			TableID:        src.ID,
			RelationshipID: id,
			Column: schema.Column{
				ID:       b.NewID(),
				Name:     colName,
				DataType: ref.DataType,
				Nullable: kind != schema.Identifying,
				SeqNo:    len(src.Columns) + names.added(src.ID) - 1,
			},
		}
		m.RelationshipColumn = schema.RelationshipColumn{
			ID:          b.NewID(),
			FKColumnID:  m.Column.ID,
			RefColumnID: ref.ID,
			SeqNo:       i,
		}
		if pkID == "" {
			c.Mirrors = append(c.Mirrors, m)
			continue
		}
		m.ConstraintID = pkID
		m.ConstraintColumn = &schema.ConstraintColumn{ID: b.NewID(), ColumnID: m.Column.ID, SeqNo: pkLen + names.keyed(pkID)}
		c.Mirrors = append(c.Mirrors, m)

		// The source key grew, so tables keyed on it grow too
		deeper, err := b.cascadeKey(db, names, src, m.Column, map[string]bool{src.ID: true})
		if err != nil {
			return nil, err
		}
		c.Mirrors = append(c.Mirrors, deeper...)
	}
	return c, nil
}

// SetRelationshipCardinality builds a command changing a relationship's cardinality
func (b *Builder) SetRelationshipCardinality(db *schema.Database, relationshipID string, card schema.Cardinality) (*SetRelationshipCardinality, error) {
	if card != schema.OneToOne && card != schema.OneToMany {
		return nil, invalid("unknown cardinality %q", card)
	}
	scope, err := ScopeOf(db, schema.EntityRelationship, relationshipID)
	if err != nil {
		return nil, err
	}
	return &SetRelationshipCardinality{
		base:        b.base(KindSetRelationshipCardinality, schema.EntityRelationship, relationshipID, scope),
		Cardinality: card,
	}, nil
}

// AddRelationshipColumn builds a command pairing a foreign-key column on the
// source table with a key column of the target table
func (b *Builder) AddRelationshipColumn(db *schema.Database, relationshipID, fkColumnID, refColumnID string) (*AddRelationshipColumn, error) {
	rel, src, err := db.Relationship(relationshipID)
	if err != nil {
		return nil, err
	}
	if src.FindColumn(fkColumnID) == nil {
		return nil, fmt.Errorf("column %q in table %q: %w", fkColumnID, src.Name, schema.ErrNotFound)
	}
	tgt, _, err := db.Table(rel.TargetTableID)
	if err != nil {
		return nil, err
	}
	if !inKey(tgt, refColumnID) {
		return nil, invalid("column %q is not part of the primary key of table %q", refColumnID, tgt.Name)
	}
	for _, rc := range rel.Columns {
		if rc.FKColumnID == fkColumnID || rc.RefColumnID == refColumnID {
			return nil, invalid("relationship %q already pairs one of these columns", rel.Name)
		}
	}
	scope, err := ScopeOf(db, schema.EntityRelationship, relationshipID)
	if err != nil {
		return nil, err
	}
	return &AddRelationshipColumn{
		base:           b.base(KindAddRelationshipColumn, schema.EntityRelationshipColumn, b.NewID(), scope),
		RelationshipID: rel.ID,
		FKColumnID:     fkColumnID,
		RefColumnID:    refColumnID,
		SeqNo:          len(rel.Columns),
	}, nil
}

// ScopeOf returns the addressing context of an existing entity
func ScopeOf(db *schema.Database, typ schema.EntityType, id string) (remote.Scope, error) {
	switch typ {
	case schema.EntitySchema:
		s, err := db.Schema(id)
		if err != nil {
			return remote.Scope{}, err
		}
		return remote.Scope{SchemaID: s.ID}, nil
	case schema.EntityTable:
		t, s, err := db.Table(id)
		if err != nil {
			return remote.Scope{}, err
		}
		return remote.Scope{SchemaID: s.ID, TableID: t.ID}, nil
	case schema.EntityColumn:
		_, t, err := db.Column(id)
		if err != nil {
			return remote.Scope{}, err
		}
		return ScopeOf(db, schema.EntityTable, t.ID)
	case schema.EntityIndex:
		idx, t, err := db.Index(id)
		if err != nil {
			return remote.Scope{}, err
		}
		sc, err := ScopeOf(db, schema.EntityTable, t.ID)
		sc.IndexID = idx.ID
		return sc, err
	case schema.EntityIndexColumn:
		_, idx, _, err := db.IndexColumn(id)
		if err != nil {
			return remote.Scope{}, err
		}
		return ScopeOf(db, schema.EntityIndex, idx.ID)
	case schema.EntityConstraint:
		c, t, s, err := db.Constraint(id)
		if err != nil {
			return remote.Scope{}, err
		}
		return remote.Scope{SchemaID: s.ID, TableID: t.ID, ConstraintID: c.ID}, nil
	case schema.EntityConstraintColumn:
		_, c, _, err := db.ConstraintColumn(id)
		if err != nil {
			return remote.Scope{}, err
		}
		return ScopeOf(db, schema.EntityConstraint, c.ID)
	case schema.EntityRelationship:
		r, t, err := db.Relationship(id)
		if err != nil {
			return remote.Scope{}, err
		}
		sc, err := ScopeOf(db, schema.EntityTable, t.ID)
		sc.RelationshipID = r.ID
		return sc, err
	case schema.EntityRelationshipColumn:
		_, r, _, err := db.RelationshipColumn(id)
		if err != nil {
			return remote.Scope{}, err
		}
		return ScopeOf(db, schema.EntityRelationship, r.ID)
	}
	return remote.Scope{}, invalid("unknown entity type %q", typ)
}

// PrimaryKeyName returns pk_<table>, suffixed until it is free within the schema
func PrimaryKeyName(s *schema.Schema, table string) string {
	name := "pk_" + table
	for i := 2; s.HasConstraintName(name); i++ {
		name = "pk_" + table + "_" + strconv.Itoa(i)
	}
	return name
}

// MirrorColumnName returns want, suffixed until no column of t and nothing in taken uses it
func MirrorColumnName(t *schema.Table, want string, taken map[string]bool) string {
	name := want
	for i := 2; ; i++ {
		if _, err := t.ColumnByName(name); err != nil && !taken[name] {
			return name
		}
		name = want + "_" + strconv.Itoa(i)
	}
}

// nameSet tracks mirror columns and key columns handed out within one
// command, where several mirrors may land on the same table
type nameSet struct {
	taken   map[string]map[string]bool
	count   map[string]int
	entries map[string]int
	keys    map[string]int
}

func newNameSet() *nameSet {
	return &nameSet{
		taken:   make(map[string]map[string]bool),
		count:   make(map[string]int),
		entries: make(map[string]int),
		keys:    make(map[string]int),
	}
}

func (n *nameSet) unique(t *schema.Table, want string) string {
	if n.taken[t.ID] == nil {
		n.taken[t.ID] = make(map[string]bool)
	}
	name := MirrorColumnName(t, want, n.taken[t.ID])
	n.taken[t.ID][name] = true
	n.count[t.ID]++
	return name
}

// added returns how many mirror columns have been named for a table so far
func (n *nameSet) added(tableID string) int {
	return n.count[tableID]
}

// entry returns how many relationship columns were handed out for a relationship before this one
func (n *nameSet) entry(relationshipID string) int {
	k := n.entries[relationshipID]
	n.entries[relationshipID]++
	return k
}

// keyed returns how many key columns were handed out for a constraint before this one
func (n *nameSet) keyed(constraintID string) int {
	k := n.keys[constraintID]
	n.keys[constraintID]++
	return k
}

func checkName(db *schema.Database, typ schema.EntityType, id, name string) error {
	switch typ {
	case schema.EntitySchema:
		if s, err := db.SchemaByName(name); err == nil && s.ID != id {
			return invalid("schema %q already exists", name)
		}
	case schema.EntityTable:
		_, s, _ := db.Table(id)
		if t, err := s.TableByName(name); err == nil && t.ID != id {
			return invalid("table %q already exists in schema %q", name, s.Name)
		}
	case schema.EntityColumn:
		_, t, _ := db.Column(id)
		if c, err := t.ColumnByName(name); err == nil && c.ID != id {
			return invalid("column %q already exists in table %q", name, t.Name)
		}
	case schema.EntityIndex:
		_, t, _ := db.Index(id)
		if idx, err := t.IndexByName(name); err == nil && idx.ID != id {
			return invalid("index %q already exists in table %q", name, t.Name)
		}
	case schema.EntityConstraint:
		c, _, s, _ := db.Constraint(id)
		if c.Name != name && s.HasConstraintName(name) {
			return invalid("constraint %q already exists in schema %q", name, s.Name)
		}
	case schema.EntityRelationship:
		_, t, _ := db.Relationship(id)
		if r, err := t.RelationshipByName(name); err == nil && r.ID != id {
			return invalid("relationship %q already exists in table %q", name, t.Name)
		}
	}
	return nil
}

func checkDistinctColumns(t *schema.Table, columnIDs []string) error {
	seen := make(map[string]bool, len(columnIDs))
	for _, id := range columnIDs {
		if t.FindColumn(id) == nil {
			return fmt.Errorf("column %q in table %q: %w", id, t.Name, schema.ErrNotFound)
		}
		if seen[id] {
			return invalid("column %q listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

func inKey(t *schema.Table, columnID string) bool {
	pk := t.PrimaryKey()
	if pk == nil {
		return false
	}
	for _, cc := range pk.Columns {
		if cc.ColumnID == columnID {
			return true
		}
	}
	return false
}
