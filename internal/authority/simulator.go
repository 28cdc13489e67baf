// Package authority provides an in-process stand-in for the remote authority.
//
// The simulator validates each request against the synced snapshot it is
// sent, issues real identifiers from a counter and reports the foreign key
// cascades a real backend would create. It keeps no model of its own.
package authority

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/tordrt/schemasync/internal/command"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
)

// Error codes reported by the simulator
const (
	CodeNotFound = "NOT_FOUND"
	CodeConflict = "CONFLICT"
	CodeRejected = "REJECTED"
	CodeInvalid  = "INVALID"
)

// Options configures a Simulator
type Options struct {
	Clock clock.Clock
	// Latency is waited before every answer
	Latency time.Duration
	// RejectNames are names the simulator refuses, to exercise rollbacks
	RejectNames []string
	// IDPrefix is prepended to issued ids; defaults to "srv-"
	IDPrefix string
}

// Simulator implements remote.Authority
type Simulator struct {
	log    *zap.SugaredLogger
	clock  clock.Clock
	delay  time.Duration
	prefix string
	reject map[string]bool

	mu   sync.Mutex
	next int
}

// NewSimulator creates a simulator
func NewSimulator(log *zap.SugaredLogger, opts Options) *Simulator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.IDPrefix == "" {
		opts.IDPrefix = "srv-"
	}
	reject := make(map[string]bool, len(opts.RejectNames))
	for _, n := range opts.RejectNames {
		reject[n] = true
	}
	return &Simulator{
		log:    log,
		clock:  opts.Clock,
		delay:  opts.Latency,
		prefix: opts.IDPrefix,
		reject: reject,
	}
}

// Execute implements remote.Authority
func (s *Simulator) Execute(ctx context.Context, req *remote.Request) (*remote.Response, error) {
	if s.delay > 0 {
		select {
		case <-s.clock.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db := req.Database
	if db == nil {
		db = &schema.Database{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, rerr := s.handle(db, req.Payload)
	if rerr != nil {
		s.log.Infow("Rejected request", "kind", req.Kind, "code", rerr.Code, "message", rerr.Message)
		return &remote.Response{Success: false, Error: rerr}, nil
	}
	s.log.Debugw("Accepted request", "kind", req.Kind)
	return &remote.Response{Success: true, Result: res}, nil
}

func (s *Simulator) id() string {
	s.next++
	return s.prefix + strconv.Itoa(s.next)
}

func fail(code, format string, args ...any) *remote.Error {
	return &remote.Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func missing(typ schema.EntityType, id string) *remote.Error {
	return fail(CodeNotFound, "%s %q does not exist", typ, id)
}

func (s *Simulator) checkName(name string) *remote.Error {
	if s.reject[name] {
		return fail(CodeRejected, "name %q is not allowed", name)
	}
	return nil
}

func (s *Simulator) handle(db *schema.Database, payload any) (*remote.Result, *remote.Error) {
	switch p := payload.(type) {
	case command.SchemaPayload:
		return s.createSchema(db, p)
	case command.TablePayload:
		return s.createTable(db, p)
	case command.ColumnPayload:
		return s.createColumn(db, p)
	case command.RenamePayload:
		return s.rename(db, p)
	case command.DeletePayload:
		if !db.Contains(p.Type, p.ID) {
			return nil, missing(p.Type, p.ID)
		}
		return &remote.Result{}, nil
	case command.RetypePayload:
		return s.touchColumn(db, p.ID)
	case command.NullablePayload:
		return s.touchColumn(db, p.ID)
	case command.MovePayload:
		return s.touchColumn(db, p.ID)
	case command.IndexPayload:
		return s.createIndex(db, p)
	case command.IndexColumnPayload:
		return s.addIndexColumn(db, p)
	case command.SortPayload:
		if !db.Contains(schema.EntityIndexColumn, p.ID) {
			return nil, missing(schema.EntityIndexColumn, p.ID)
		}
		return &remote.Result{}, nil
	case command.ConstraintPayload:
		return s.createConstraint(db, p)
	case command.ConstraintColumnPayload:
		return s.addConstraintColumn(db, p)
	case command.RelationshipPayload:
		return s.createRelationship(db, p)
	case command.CardinalityPayload:
		if !db.Contains(schema.EntityRelationship, p.ID) {
			return nil, missing(schema.EntityRelationship, p.ID)
		}
		return &remote.Result{}, nil
	case command.RelationshipColumnPayload:
		return s.addRelationshipColumn(db, p)
	}
	return nil, fail(CodeInvalid, "unsupported payload %T", payload)
}

func (s *Simulator) createSchema(db *schema.Database, p command.SchemaPayload) (*remote.Result, *remote.Error) {
	if err := s.checkName(p.Name); err != nil {
		return nil, err
	}
	if _, err := db.SchemaByName(p.Name); err == nil {
		return nil, fail(CodeConflict, "schema %q already exists", p.Name)
	}
	return &remote.Result{Schemas: map[string]string{p.ID: s.id()}}, nil
}

func (s *Simulator) createTable(db *schema.Database, p command.TablePayload) (*remote.Result, *remote.Error) {
	sc, err := db.Schema(p.SchemaID)
	if err != nil {
		return nil, missing(schema.EntitySchema, p.SchemaID)
	}
	if rerr := s.checkName(p.Name); rerr != nil {
		return nil, rerr
	}
	if _, err := sc.TableByName(p.Name); err == nil {
		return nil, fail(CodeConflict, "table %q already exists", p.Name)
	}
	return &remote.Result{Tables: map[string]string{p.ID: s.id()}}, nil
}

func (s *Simulator) createColumn(db *schema.Database, p command.ColumnPayload) (*remote.Result, *remote.Error) {
	t, _, err := db.Table(p.TableID)
	if err != nil {
		return nil, missing(schema.EntityTable, p.TableID)
	}
	if rerr := s.checkName(p.Name); rerr != nil {
		return nil, rerr
	}
	if _, err := t.ColumnByName(p.Name); err == nil {
		return nil, fail(CodeConflict, "column %q already exists in %q", p.Name, t.Name)
	}
	res := &remote.Result{Columns: remote.Nested{}}
	res.Columns.Add(t.ID, p.ID, s.id())
	return res, nil
}

func (s *Simulator) rename(db *schema.Database, p command.RenamePayload) (*remote.Result, *remote.Error) {
	if !db.Contains(p.Type, p.ID) {
		return nil, missing(p.Type, p.ID)
	}
	if err := s.checkName(p.Name); err != nil {
		return nil, err
	}
	return &remote.Result{}, nil
}

func (s *Simulator) touchColumn(db *schema.Database, id string) (*remote.Result, *remote.Error) {
	if !db.Contains(schema.EntityColumn, id) {
		return nil, missing(schema.EntityColumn, id)
	}
	return &remote.Result{}, nil
}

func (s *Simulator) createIndex(db *schema.Database, p command.IndexPayload) (*remote.Result, *remote.Error) {
	t, _, err := db.Table(p.TableID)
	if err != nil {
		return nil, missing(schema.EntityTable, p.TableID)
	}
	if rerr := s.checkName(p.Name); rerr != nil {
		return nil, rerr
	}
	if _, err := t.IndexByName(p.Name); err == nil {
		return nil, fail(CodeConflict, "index %q already exists in %q", p.Name, t.Name)
	}
	res := &remote.Result{Indexes: remote.Nested{}, IndexColumns: remote.Nested{}}
	res.Indexes.Add(t.ID, p.ID, s.id())
	for _, ic := range p.Columns {
		if t.FindColumn(ic.ColumnID) == nil {
			return nil, missing(schema.EntityColumn, ic.ColumnID)
		}
		res.IndexColumns.Add(p.ID, ic.ID, s.id())
	}
	return res, nil
}

func (s *Simulator) addIndexColumn(db *schema.Database, p command.IndexColumnPayload) (*remote.Result, *remote.Error) {
	_, t, err := db.Index(p.IndexID)
	if err != nil {
		return nil, missing(schema.EntityIndex, p.IndexID)
	}
	if t.FindColumn(p.ColumnID) == nil {
		return nil, missing(schema.EntityColumn, p.ColumnID)
	}
	res := &remote.Result{IndexColumns: remote.Nested{}}
	res.IndexColumns.Add(p.IndexID, p.ID, s.id())
	return res, nil
}

func (s *Simulator) createConstraint(db *schema.Database, p command.ConstraintPayload) (*remote.Result, *remote.Error) {
	t, sc, err := db.Table(p.TableID)
	if err != nil {
		return nil, missing(schema.EntityTable, p.TableID)
	}
	if rerr := s.checkName(p.Name); rerr != nil {
		return nil, rerr
	}
	if sc.HasConstraintName(p.Name) {
		return nil, fail(CodeConflict, "constraint %q already exists in schema %q", p.Name, sc.Name)
	}
	if p.Kind == schema.PrimaryKey && t.PrimaryKey() != nil {
		return nil, fail(CodeConflict, "table %q already has a primary key", t.Name)
	}
	res := &remote.Result{Constraints: remote.Nested{}, ConstraintColumns: remote.Nested{}}
	res.Constraints.Add(t.ID, p.ID, s.id())
	for _, cc := range p.Columns {
		if t.FindColumn(cc.ColumnID) == nil {
			return nil, missing(schema.EntityColumn, cc.ColumnID)
		}
		res.ConstraintColumns.Add(p.ID, cc.ID, s.id())
	}
	return res, nil
}

func (s *Simulator) addConstraintColumn(db *schema.Database, p command.ConstraintColumnPayload) (*remote.Result, *remote.Error) {
	c, t, _, err := db.Constraint(p.ConstraintID)
	if err != nil {
		return nil, missing(schema.EntityConstraint, p.ConstraintID)
	}
	col := t.FindColumn(p.ColumnID)
	if col == nil {
		return nil, missing(schema.EntityColumn, p.ColumnID)
	}
	res := &remote.Result{ConstraintColumns: remote.Nested{}}
	res.ConstraintColumns.Add(c.ID, p.ID, s.id())

	if c.Kind == schema.PrimaryKey {
		cs := newCascade(s, db, remote.Source{SourceType: remote.SourceConstraint, SourceID: c.ID})
		cs.key(t, col.ID, col.Name, col.DataType, map[string]bool{t.ID: true})
		if !cs.prop.Empty() {
			res.Propagated = cs.prop
		}
	}
	return res, nil
}

func (s *Simulator) createRelationship(db *schema.Database, p command.RelationshipPayload) (*remote.Result, *remote.Error) {
	src, sc, err := db.Table(p.SourceTableID)
	if err != nil {
		return nil, missing(schema.EntityTable, p.SourceTableID)
	}
	tgt, _, err := db.Table(p.TargetTableID)
	if err != nil {
		return nil, missing(schema.EntityTable, p.TargetTableID)
	}
	if rerr := s.checkName(p.Name); rerr != nil {
		return nil, rerr
	}
	if _, err := src.RelationshipByName(p.Name); err == nil {
		return nil, fail(CodeConflict, "relationship %q already exists in %q", p.Name, src.Name)
	}
	key := tgt.PrimaryKey()
	if key == nil || len(key.Columns) == 0 {
		return nil, fail(CodeConflict, "table %q has no primary key", tgt.Name)
	}

	relID := s.id()
	res := &remote.Result{Relationships: remote.Nested{}}
	res.Relationships.Add(src.ID, p.ID, relID)

	cs := newCascade(s, db, remote.Source{SourceType: remote.SourceRelationship, SourceID: relID})
	var pkID string
	if p.Kind == schema.Identifying {
		if pk := src.PrimaryKey(); pk != nil {
			pkID = pk.ID
		} else {
			pkID = s.id()
			cs.prop.Constraints = append(cs.prop.Constraints, remote.PropagatedConstraint{
				Source:  cs.src,
				ID:      pkID,
				TableID: src.ID,
				Name:    command.PrimaryKeyName(sc, src.Name),
				Kind:    schema.PrimaryKey,
			})
		}
	}

	for i, kc := range key.Columns {
		ref := tgt.FindColumn(kc.ColumnID)
		if ref == nil {
			continue
		}
		mirror := cs.column(src, tgt.Name, ref, p.Kind != schema.Identifying)
		cs.prop.RelationshipColumns = append(cs.prop.RelationshipColumns, remote.PropagatedRelationshipColumn{
			Source:         cs.src,
			ID:             s.id(),
			RelationshipID: relID,
			FKColumnID:     mirror.ID,
			RefColumnID:    ref.ID,
			SeqNo:          i,
		})
		if pkID != "" {
			cs.keyColumn(pkID, mirror.ID)
			cs.key(src, mirror.ID, mirror.Name, mirror.DataType, map[string]bool{src.ID: true})
		}
	}
	res.Propagated = cs.prop
	return res, nil
}

func (s *Simulator) addRelationshipColumn(db *schema.Database, p command.RelationshipColumnPayload) (*remote.Result, *remote.Error) {
	rel, src, err := db.Relationship(p.RelationshipID)
	if err != nil {
		return nil, missing(schema.EntityRelationship, p.RelationshipID)
	}
	if src.FindColumn(p.FKColumnID) == nil {
		return nil, missing(schema.EntityColumn, p.FKColumnID)
	}
	if !db.Contains(schema.EntityColumn, p.RefColumnID) {
		return nil, missing(schema.EntityColumn, p.RefColumnID)
	}
	res := &remote.Result{RelationshipColumns: remote.Nested{}}
	res.RelationshipColumns.Add(rel.ID, p.ID, s.id())
	return res, nil
}
