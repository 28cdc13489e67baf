package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/schema/schematest"
)

// withProvisional adds table T1(C1, C2) with index I1 over C1 and a relationship
// R1 to users, all on provisional ids
func withProvisional(t *testing.T) *schema.Database {
	t.Helper()
	db := schematest.Shop()
	require.NoError(t, db.AddTable("s1", &schema.Table{ID: "T1", Name: "payments", SeqNo: 2}))
	require.NoError(t, db.AddColumn("T1", &schema.Column{ID: "C1", Name: "id", DataType: "bigint"}))
	require.NoError(t, db.AddColumn("T1", &schema.Column{ID: "C2", Name: "user_id", DataType: "bigint", SeqNo: 1}))
	require.NoError(t, db.AddIndex("T1", &schema.Index{
		ID: "I1", Name: "idx_payments",
		Columns: []*schema.IndexColumn{{ID: "IC1", ColumnID: "C1"}},
	}))
	require.NoError(t, db.AddRelationship("T1", &schema.Relationship{
		ID: "R1", Name: "fk_payments_users", TargetTableID: "users",
		Columns: []*schema.RelationshipColumn{{ID: "RC1", FKColumnID: "C2", RefColumnID: "users.id"}},
	}))
	return db
}

func observed() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func TestReconcileLeavesNoProvisionalReferences(t *testing.T) {
	synced := withProvisional(t)
	local := synced.Clone()
	ids := idmap.NewTable()
	log, logs := observed()

	res := &remote.Result{
		Tables:              map[string]string{"T1": "T1-real"},
		Columns:             remote.Nested{"T1": {"C1": "C1-real", "C2": "C2-real"}},
		Indexes:             remote.Nested{"T1": {"I1": "I1-real"}},
		IndexColumns:        remote.Nested{"I1": {"IC1": "IC1-real"}},
		Relationships:       remote.Nested{"T1": {"R1": "R1-real"}},
		RelationshipColumns: remote.Nested{"R1": {"RC1": "RC1-real"}},
	}

	rw := NewRewriter(ids, log, synced, local)
	Reconcile(rw, res, remote.Scope{SchemaID: "s1", TableID: "T1"})

	records := make(map[string]idmap.Record)
	for _, rec := range ids.Since(0) {
		records[rec.Provisional] = rec
	}
	assert.Len(t, records, 7)
	for _, prov := range []string{"T1", "C1", "C2", "I1", "IC1", "R1", "RC1"} {
		assert.Zero(t, synced.References(prov), "synced still references %s", prov)
		assert.Zero(t, local.References(prov), "local still references %s", prov)

		rec, ok := records[prov]
		require.True(t, ok, "no record for %s", prov)
		assert.Equal(t, prov+"-real", rec.Real)
	}
	assert.True(t, schema.Equal(synced, local))
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())

	rel, _, err := synced.Relationship("R1-real")
	require.NoError(t, err)
	assert.Equal(t, "T1-real", rel.SourceTableID)
	assert.Equal(t, "C2-real", rel.Columns[0].FKColumnID)

	assert.Equal(t, schema.EntityRelationshipColumn, records["RC1"].Type)
}

func TestReconcileIsRepeatable(t *testing.T) {
	synced := withProvisional(t)
	ids := idmap.NewTable()
	res := &remote.Result{Tables: map[string]string{"T1": "T1-real"}}

	Reconcile(NewRewriter(ids, nil, synced), res, remote.Scope{})
	after := synced.Clone()

	gen := ids.Generation()
	Reconcile(NewRewriter(ids, nil, synced), res, remote.Scope{})
	assert.True(t, schema.Equal(after, synced))
	assert.Empty(t, ids.Since(gen))
	assert.Len(t, ids.Since(0), 1)
}

func TestReconcileSkipsIdentityPairs(t *testing.T) {
	synced := schematest.Shop()
	before := synced.Clone()
	ids := idmap.NewTable()

	rw := NewRewriter(ids, nil, synced)
	Reconcile(rw, &remote.Result{Tables: map[string]string{"users": "users"}}, remote.Scope{})

	assert.True(t, schema.Equal(before, synced))
	assert.Empty(t, ids.Since(0))
}

func TestReconcileWarnsOnUnknownParent(t *testing.T) {
	synced := withProvisional(t)
	log, logs := observed()

	res := &remote.Result{Columns: remote.Nested{"ghost": {"C1": "C1-real"}}}
	Reconcile(NewRewriter(idmap.NewTable(), log, synced), res, remote.Scope{})

	assert.Zero(t, synced.References("C1"), "pairs are applied even when the parent key is unknown")
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestReconcileResolvesParentThroughRound(t *testing.T) {
	synced := withProvisional(t)
	log, logs := observed()

	// Parent key is the table's provisional id, rewritten earlier in the same response
	res := &remote.Result{
		Tables:  map[string]string{"T1": "T1-real"},
		Columns: remote.Nested{"T1": {"C1": "C1-real"}},
	}
	Reconcile(NewRewriter(idmap.NewTable(), log, synced), res, remote.Scope{})
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestRewriterInsertToleratesMissingParentInSecondary(t *testing.T) {
	synced := withProvisional(t)
	local := schematest.Shop()
	rw := NewRewriter(idmap.NewTable(), nil, synced, local)

	err := rw.Insert(func(db *schema.Database) error {
		return db.AddColumn("T1", &schema.Column{ID: "X", Name: "x", DataType: "int", SeqNo: -1})
	})
	require.NoError(t, err)
	assert.True(t, synced.Contains(schema.EntityColumn, "X"))
	assert.False(t, local.Contains(schema.EntityColumn, "X"))

	err = rw.Insert(func(db *schema.Database) error {
		return db.AddColumn("nowhere", &schema.Column{ID: "Y", Name: "y", DataType: "int"})
	})
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestRewriterPlaceholder(t *testing.T) {
	synced := withProvisional(t)
	rw := NewRewriter(idmap.NewTable(), nil, synced)
	assert.True(t, rw.Placeholder(schema.EntityColumn, "users.id"), "nothing is settled yet")

	rw.Settle(schematest.Shop())
	assert.False(t, rw.Placeholder(schema.EntityColumn, "users.id"))
	assert.False(t, rw.Placeholder(schema.EntityConstraintColumn, "pk_users.0"))
	assert.True(t, rw.Placeholder(schema.EntityColumn, "C1"))

	rw.Remap(schema.EntityColumn, "C1", "C1-real")
	assert.False(t, rw.Placeholder(schema.EntityColumn, "C1-real"), "a real id is not a placeholder")
}
