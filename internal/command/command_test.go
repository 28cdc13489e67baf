package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemasync/internal/idmap"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/schema/schematest"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newBuilder() *Builder {
	b := NewBuilder(testclock.NewClock(epoch))
	b.NewID = schematest.Seq("p")
	return b
}

// sampleCommands builds one command of each shape that holds nested ids
func sampleCommands(t *testing.T) []Command {
	t.Helper()
	db := schematest.Shop()
	b := newBuilder()

	table, err := b.CreateTable(db, "s1", "items", "")
	require.NoError(t, err)
	require.NoError(t, table.Apply(db))

	col, err := b.CreateColumn(db, table.EntityID(), ColumnSpec{Name: "id", DataType: "bigint", SeqNo: -1})
	require.NoError(t, err)
	require.NoError(t, col.Apply(db))

	idx, err := b.CreateIndex(db, "orders", "idx_both", true, []string{"orders.id", "orders.user_id"})
	require.NoError(t, err)

	rel, err := b.CreateRelationship(db, table.EntityID(), "orders", "fk_items_orders", schema.Identifying, schema.OneToMany)
	require.NoError(t, err)

	pkCol, err := b.AddConstraintColumn(db, "pk_users", "users.email")
	require.NoError(t, err)

	return []Command{table, col, idx, rel, pkCol}
}

func TestWithRemappedIDsIsIdempotent(t *testing.T) {
	mapping := idmap.Map{
		"p1":          "T-real",
		"p3":          "C-real",
		"orders":      "orders-real",
		"users.id":    "users.id-real",
		"pk_users":    "pk_users-real",
		"users.email": "email-real",
	}

	for _, cmd := range sampleCommands(t) {
		t.Run(string(cmd.Kind()), func(t *testing.T) {
			once := cmd.WithRemappedIDs(mapping)
			twice := once.WithRemappedIDs(mapping)
			assert.Equal(t, once, twice)

			assert.Equal(t, cmd, cmd.WithRemappedIDs(idmap.Map{}))
			assert.Equal(t, cmd.ID(), once.ID(), "command identity is stable")
		})
	}
}

func TestWithRemappedIDsRewritesNestedIDs(t *testing.T) {
	cmds := sampleCommands(t)
	col := cmds[1].(*CreateColumn)
	rel := cmds[3].(*CreateRelationship)

	mapping := idmap.Map{col.TableID: "T-real", rel.Mirrors[0].Column.ID: "M-real"}

	got := col.WithRemappedIDs(mapping).(*CreateColumn)
	assert.Equal(t, "T-real", got.TableID)
	assert.Equal(t, "T-real", got.Scope().TableID)
	assert.NotEqual(t, "T-real", col.TableID, "original is not modified")

	gotRel := rel.WithRemappedIDs(mapping).(*CreateRelationship)
	assert.Equal(t, "T-real", gotRel.SourceTableID)
	assert.Equal(t, "M-real", gotRel.Mirrors[0].Column.ID)
	assert.Equal(t, "M-real", gotRel.Mirrors[0].RelationshipColumn.FKColumnID)
	assert.Equal(t, "M-real", gotRel.Mirrors[0].ConstraintColumn.ColumnID)
	assert.NotEqual(t, "M-real", rel.Mirrors[0].ConstraintColumn.ColumnID)
}

func TestApplyIsIdempotent(t *testing.T) {
	db := schematest.Shop()
	b := newBuilder()

	rel, err := b.CreateRelationship(db, "orders", "users", "fk_orders_users_2", schema.Identifying, schema.OneToOne)
	require.NoError(t, err)
	require.NoError(t, rel.Apply(db))
	once := db.Clone()

	require.NoError(t, rel.Apply(db))
	assert.True(t, schema.Equal(once, db))
}

func TestBuilderStampsCommands(t *testing.T) {
	db := schematest.Shop()
	b := newBuilder()

	c, err := b.CreateSchema(db, "audit")
	require.NoError(t, err)
	assert.Equal(t, KindCreateSchema, c.Kind())
	assert.Equal(t, schema.EntitySchema, c.EntityType())
	assert.Equal(t, epoch, c.Timestamp())
	assert.Equal(t, 1, c.SeqNo)
	assert.NotEqual(t, c.ID(), c.EntityID())
	assert.Equal(t, remote.Scope{SchemaID: c.EntityID()}, c.Scope())

	r, err := b.Rename(db, schema.EntityColumn, "orders.user_id", "customer_id")
	require.NoError(t, err)
	assert.Equal(t, KindRenameColumn, r.Kind())
	assert.Equal(t, remote.Scope{SchemaID: "s1", TableID: "orders"}, r.Scope())

	d, err := b.Delete(db, schema.EntityRelationshipColumn, "fk.0")
	require.NoError(t, err)
	assert.Equal(t, KindRemoveRelationshipColumn, d.Kind())
	assert.Equal(t, "fk_orders_users", d.Scope().RelationshipID)
}

func TestBuilderValidation(t *testing.T) {
	b := newBuilder()

	tests := []struct {
		name  string
		build func(db *schema.Database) error
		want  error
	}{
		{
			name: "table in missing schema",
			build: func(db *schema.Database) error {
				_, err := b.CreateTable(db, "nope", "t", "")
				return err
			},
			want: schema.ErrNotFound,
		},
		{
			name: "duplicate table name",
			build: func(db *schema.Database) error {
				_, err := b.CreateTable(db, "s1", "users", "")
				return err
			},
			want: ErrInvalid,
		},
		{
			name: "duplicate column name",
			build: func(db *schema.Database) error {
				_, err := b.CreateColumn(db, "users", ColumnSpec{Name: "email", DataType: "text"})
				return err
			},
			want: ErrInvalid,
		},
		{
			name: "constraint name taken elsewhere in schema",
			build: func(db *schema.Database) error {
				_, err := b.CreateConstraint(db, "orders", "pk_users", schema.Unique, "", []string{"orders.id"})
				return err
			},
			want: ErrInvalid,
		},
		{
			name: "second primary key",
			build: func(db *schema.Database) error {
				_, err := b.CreateConstraint(db, "users", "pk2", schema.PrimaryKey, "", []string{"users.email"})
				return err
			},
			want: ErrInvalid,
		},
		{
			name: "constraint over foreign column",
			build: func(db *schema.Database) error {
				_, err := b.CreateConstraint(db, "users", "uq", schema.Unique, "", []string{"orders.id"})
				return err
			},
			want: schema.ErrNotFound,
		},
		{
			name: "relationship to keyless table",
			build: func(db *schema.Database) error {
				db.Schemas[0].Tables[0].Constraints = nil
				_, err := b.CreateRelationship(db, "orders", "users", "fk", schema.NonIdentifying, schema.OneToMany)
				return err
			},
			want: ErrInvalid,
		},
		{
			name: "relationship column referencing non key column",
			build: func(db *schema.Database) error {
				_, err := b.AddRelationshipColumn(db, "fk_orders_users", "orders.id", "users.email")
				return err
			},
			want: ErrInvalid,
		},
		{
			name: "rename to sibling name",
			build: func(db *schema.Database) error {
				_, err := b.Rename(db, schema.EntityColumn, "users.email", "id")
				return err
			},
			want: ErrInvalid,
		},
		{
			name: "rename index column",
			build: func(db *schema.Database) error {
				_, err := b.Rename(db, schema.EntityIndexColumn, "idx_user.0", "x")
				return err
			},
			want: ErrInvalid,
		},
		{
			name: "delete missing column",
			build: func(db *schema.Database) error {
				_, err := b.Delete(db, schema.EntityColumn, "ghost")
				return err
			},
			want: schema.ErrNotFound,
		},
		{
			name: "move out of range",
			build: func(db *schema.Database) error {
				_, err := b.MoveColumn(db, "users.id", 2)
				return err
			},
			want: ErrInvalid,
		},
		{
			name: "index column already present",
			build: func(db *schema.Database) error {
				_, err := b.AddIndexColumn(db, "idx_user", "orders.user_id", schema.Desc)
				return err
			},
			want: ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build(schematest.Shop())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCreateRelationshipMirrorsKeyColumns(t *testing.T) {
	db := schematest.Shop()
	b := newBuilder()

	rel, err := b.CreateRelationship(db, "orders", "users", "fk_orders_owner", schema.Identifying, schema.OneToMany)
	require.NoError(t, err)
	require.Len(t, rel.Mirrors, 1)
	assert.Nil(t, rel.NewPrimaryKey, "orders already has a key")

	m := rel.Mirrors[0]
	assert.Equal(t, "users_id", m.Column.Name)
	assert.Equal(t, "bigint", m.Column.DataType)
	assert.False(t, m.Column.Nullable)
	assert.Equal(t, "users.id", m.RelationshipColumn.RefColumnID)
	assert.Equal(t, "pk_orders", m.ConstraintID)
	require.NotNil(t, m.ConstraintColumn)
	assert.Equal(t, 1, m.ConstraintColumn.SeqNo)

	require.NoError(t, rel.Apply(db))

	orders, _, err := db.Table("orders")
	require.NoError(t, err)
	assert.Len(t, orders.Columns, 3)
	assert.Len(t, orders.PrimaryKey().Columns, 2)

	got, _, err := db.Relationship(rel.EntityID())
	require.NoError(t, err)
	require.Len(t, got.Columns, 1)
	assert.Equal(t, m.Column.ID, got.Columns[0].FKColumnID)
}

func TestIdentifyingRelationshipCreatesKey(t *testing.T) {
	db := schematest.Shop()
	b := newBuilder()

	tbl, err := b.CreateTable(db, "s1", "notes", "")
	require.NoError(t, err)
	require.NoError(t, tbl.Apply(db))

	rel, err := b.CreateRelationship(db, tbl.EntityID(), "users", "fk_notes_users", schema.Identifying, schema.OneToMany)
	require.NoError(t, err)
	require.NotNil(t, rel.NewPrimaryKey)
	assert.Equal(t, "pk_notes", rel.NewPrimaryKey.Name)
	require.NoError(t, rel.Apply(db))

	notes, _, err := db.Table(tbl.EntityID())
	require.NoError(t, err)
	pk := notes.PrimaryKey()
	require.NotNil(t, pk)
	require.Len(t, pk.Columns, 1)
	assert.Equal(t, notes.Columns[0].ID, pk.Columns[0].ColumnID)
}

func TestAddKeyColumnCascadesToReferencingTables(t *testing.T) {
	db := schematest.Shop()
	b := newBuilder()

	c, err := b.AddConstraintColumn(db, "pk_users", "users.email")
	require.NoError(t, err)
	require.Len(t, c.Mirrors, 1)

	m := c.Mirrors[0]
	assert.Equal(t, "orders", m.TableID)
	assert.Equal(t, "users_email", m.Column.Name)
	assert.True(t, m.Column.Nullable)
	assert.Equal(t, 1, m.RelationshipColumn.SeqNo)
	assert.Nil(t, m.ConstraintColumn, "non-identifying relationships leave the child key alone")

	require.NoError(t, c.Apply(db))
	rel, _, err := db.Relationship("fk_orders_users")
	require.NoError(t, err)
	require.Len(t, rel.Columns, 2)
	assert.Equal(t, "users.email", rel.Columns[1].RefColumnID)

	u, err := b.AddConstraintColumn(db, "pk_orders", "orders.user_id")
	require.NoError(t, err)
	assert.Empty(t, u.Mirrors, "nothing references orders")
}

func TestAddKeyColumnCascadesThroughIdentifyingChain(t *testing.T) {
	db := schematest.Chain()
	b := newBuilder()

	c, err := b.AddConstraintColumn(db, "pk_a", "a.code")
	require.NoError(t, err)
	require.Len(t, c.Mirrors, 2)

	onB, onC := c.Mirrors[0], c.Mirrors[1]
	assert.Equal(t, "b", onB.TableID)
	assert.Equal(t, "a_code", onB.Column.Name)
	assert.Equal(t, "pk_b", onB.ConstraintID)
	require.NotNil(t, onB.ConstraintColumn)
	assert.Equal(t, 2, onB.ConstraintColumn.SeqNo)

	assert.Equal(t, "c", onC.TableID)
	assert.Equal(t, "fk_c_b", onC.RelationshipID)
	assert.Equal(t, "b_a_code", onC.Column.Name)
	assert.Equal(t, "text", onC.Column.DataType)
	assert.Equal(t, onB.Column.ID, onC.RelationshipColumn.RefColumnID)
	assert.Equal(t, 2, onC.RelationshipColumn.SeqNo)
	assert.Equal(t, "pk_c", onC.ConstraintID)
	require.NotNil(t, onC.ConstraintColumn)
	assert.Equal(t, 3, onC.ConstraintColumn.SeqNo)

	require.NoError(t, c.Apply(db))
	tc, _, err := db.Table("c")
	require.NoError(t, err)
	require.Len(t, tc.Columns, 4)
	assert.Equal(t, "c.b_a_id", tc.Columns[2].ID)
	assert.False(t, tc.Columns[3].Nullable)
	assert.Len(t, tc.PrimaryKey().Columns, 4)
}

func TestIdentifyingRelationshipCascadesToReferencingTables(t *testing.T) {
	db := schematest.Chain()
	b := newBuilder()

	rel, err := b.CreateRelationship(db, "b", "a", "fk_b_a_again", schema.Identifying, schema.OneToOne)
	require.NoError(t, err)
	require.Len(t, rel.Mirrors, 2)

	onB, onC := rel.Mirrors[0], rel.Mirrors[1]
	assert.Equal(t, "a_id_2", onB.Column.Name)
	assert.Equal(t, 2, onB.ConstraintColumn.SeqNo)
	assert.Equal(t, "c", onC.TableID)
	assert.Equal(t, "b_a_id_2", onC.Column.Name)
	assert.Equal(t, onB.Column.ID, onC.RelationshipColumn.RefColumnID)
	assert.Equal(t, 3, onC.ConstraintColumn.SeqNo)

	require.NoError(t, rel.Apply(db))
	fk, _, err := db.Relationship("fk_c_b")
	require.NoError(t, err)
	assert.Len(t, fk.Columns, 3)
}

func TestMirrorNamesAvoidCollisions(t *testing.T) {
	db := schematest.Shop()
	b := newBuilder()

	col, err := b.CreateColumn(db, "orders", ColumnSpec{Name: "users_id", DataType: "int", SeqNo: -1})
	require.NoError(t, err)
	require.NoError(t, col.Apply(db))

	rel, err := b.CreateRelationship(db, "orders", "users", "fk_again", schema.NonIdentifying, schema.OneToMany)
	require.NoError(t, err)
	assert.Equal(t, "users_id_2", rel.Mirrors[0].Column.Name)
}

func TestExecuteSendsSyncedSnapshotWithoutMirrors(t *testing.T) {
	db := schematest.Shop()
	b := newBuilder()

	rel, err := b.CreateRelationship(db, "orders", "users", "fk2", schema.NonIdentifying, schema.OneToMany)
	require.NoError(t, err)

	var got *remote.Request
	auth := remote.AuthorityFunc(func(_ context.Context, req *remote.Request) (*remote.Response, error) {
		got = req
		return &remote.Response{Success: true, Result: &remote.Result{
			Relationships: remote.Nested{"orders": {rel.EntityID(): "R-real"}},
		}}, nil
	})

	res, err := rel.Execute(context.Background(), auth, db)
	require.NoError(t, err)
	assert.Equal(t, "R-real", res.Relationships["orders"][rel.EntityID()])

	require.NotNil(t, got)
	assert.Equal(t, string(KindCreateRelationship), got.Kind)
	assert.Same(t, db, got.Database)
	assert.Equal(t, RelationshipPayload{
		ID:            rel.EntityID(),
		Name:          "fk2",
		Kind:          schema.NonIdentifying,
		Cardinality:   schema.OneToMany,
		SourceTableID: "orders",
		TargetTableID: "users",
	}, got.Payload)
}

func TestExecuteSurfacesRejection(t *testing.T) {
	db := schematest.Shop()
	c, err := newBuilder().RetypeColumn(db, "users.email", "varchar(320)")
	require.NoError(t, err)

	auth := remote.AuthorityFunc(func(context.Context, *remote.Request) (*remote.Response, error) {
		return &remote.Response{Error: &remote.Error{Code: "CONFLICT", Message: "no"}}, nil
	})
	_, err = c.Execute(context.Background(), auth, db)

	var rerr *remote.Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "CONFLICT", rerr.Code)
}
