package script

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemasync/internal/command"
	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/schema/schematest"
)

const shopEdits = `
edits:
  - op: create_table
    name: items
    comment: line items
  - op: add_column
    table: items
    name: sku
    type: text
  - op: add_column
    table: items
    name: qty
    type: integer
    nullable: true
    default: "1"
    position: 0
  - op: create_constraint
    table: items
    name: pk_items
    kind: primary_key
    columns: [sku]
  - op: create_index
    table: items
    name: idx_items_qty
    unique: true
    columns: [qty]
  - op: sort_index_column
    table: items
    index: idx_items_qty
    column: qty
    sort: desc
  - op: create_relationship
    table: items
    target: orders
    name: fk_items_orders
    kind: non-identifying
    cardinality: "1:1"
  - op: rename
    entity: column
    table: users
    column: email
    name: mail
  - op: set_nullable
    table: users
    column: mail
    nullable: true
  - op: retype_column
    table: users
    column: mail
    type: citext
  - op: delete
    entity: index
    table: orders
    index: idx_orders_user
`

func newBuilder() *command.Builder {
	b := command.NewBuilder(testclock.NewClock(time.Time{}))
	b.NewID = schematest.Seq("p")
	return b
}

// run builds and applies every step in order
func run(t *testing.T, s *Script, db *schema.Database) []command.Command {
	t.Helper()
	b := newBuilder()
	var cmds []command.Command
	for _, step := range s.Edits {
		cmd, err := step.Build(b, db)
		require.NoError(t, err, step.String())
		require.NoError(t, cmd.Apply(db), step.String())
		cmds = append(cmds, cmd)
	}
	return cmds
}

func TestParseAndBuild(t *testing.T) {
	s, err := Parse([]byte(shopEdits))
	require.NoError(t, err)
	require.Len(t, s.Edits, 11)

	db := schematest.Shop()
	cmds := run(t, s, db)
	assert.Equal(t, command.KindCreateTable, cmds[0].Kind())
	assert.Equal(t, command.KindDeleteIndex, cmds[10].Kind())

	items, err := db.Schemas[0].TableByName("items")
	require.NoError(t, err)
	assert.Equal(t, "line items", items.Comment)
	require.Len(t, items.Columns, 3, "sku, qty and the mirrored orders key")
	assert.Equal(t, "qty", items.Columns[0].Name)
	assert.True(t, items.Columns[0].Nullable)
	require.NotNil(t, items.Columns[0].Default)
	assert.Equal(t, "1", *items.Columns[0].Default)

	pk := items.PrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, "pk_items", pk.Name)

	idx, err := items.IndexByName("idx_items_qty")
	require.NoError(t, err)
	assert.True(t, idx.Unique)
	assert.Equal(t, schema.Desc, idx.Columns[0].Sort)

	rel, err := items.RelationshipByName("fk_items_orders")
	require.NoError(t, err)
	assert.Equal(t, schema.NonIdentifying, rel.Kind)
	assert.Equal(t, schema.OneToOne, rel.Cardinality)

	users, _, err := db.Table("users")
	require.NoError(t, err)
	mail, err := users.ColumnByName("mail")
	require.NoError(t, err)
	assert.True(t, mail.Nullable)
	assert.Equal(t, "citext", mail.DataType)

	orders, _, err := db.Table("orders")
	require.NoError(t, err)
	assert.Empty(t, orders.Indexes)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		step Step
		want error
	}{
		{"unknown op", Step{Op: "explode"}, command.ErrInvalid},
		{"unknown table", Step{Op: OpAddColumn, Table: "nope", Name: "x", Type: "int"}, schema.ErrNotFound},
		{"unknown schema", Step{Op: OpCreateTable, Schema: "nope", Name: "x"}, schema.ErrNotFound},
		{"unknown column", Step{Op: OpRetypeColumn, Table: "users", Column: "nope", Type: "int"}, schema.ErrNotFound},
		{"move without position", Step{Op: OpMoveColumn, Table: "users", Column: "email"}, command.ErrInvalid},
		{"bad constraint kind", Step{Op: OpCreateConstraint, Table: "users", Name: "c", Kind: "foreign"}, command.ErrInvalid},
		{"bad cardinality", Step{Op: OpCreateRelationship, Table: "orders", Target: "users", Name: "r", Cardinality: "N:M"}, command.ErrInvalid},
		{"bad sort", Step{Op: OpAddIndexColumn, Table: "orders", Index: "idx_orders_user", Column: "id", Sort: "up"}, command.ErrInvalid},
		{"bad entity", Step{Op: OpDelete, Entity: "view", Table: "users"}, command.ErrInvalid},
		{"column not in index", Step{Op: OpSortIndexColumn, Table: "orders", Index: "idx_orders_user", Column: "id"}, schema.ErrNotFound},
		{"builder rule", Step{Op: OpCreateTable, Name: "users"}, command.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.step.Build(newBuilder(), schematest.Shop())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuildAddressesNestedEntries(t *testing.T) {
	db := schematest.Shop()
	b := newBuilder()

	cmd, err := Step{Op: OpDelete, Entity: "relationship_column", Table: "orders", Relationship: "fk_orders_users", Column: "user_id"}.Build(b, db)
	require.NoError(t, err)
	assert.Equal(t, "fk.0", cmd.EntityID())

	cmd, err = Step{Op: OpDelete, Entity: "constraint_column", Table: "users", Constraint: "pk_users", Column: "id"}.Build(b, db)
	require.NoError(t, err)
	assert.Equal(t, "pk_users.0", cmd.EntityID())

	cmd, err = Step{Op: OpDelete, Entity: "index_column", Table: "orders", Index: "idx_orders_user", Column: "user_id"}.Build(b, db)
	require.NoError(t, err)
	assert.Equal(t, "idx_user.0", cmd.EntityID())

	cmd, err = Step{Op: OpAddConstraintColumn, Table: "users", Constraint: "pk_users", Column: "email"}.Build(b, db)
	require.NoError(t, err)
	assert.Equal(t, command.KindAddConstraintColumn, cmd.Kind())

	cmd, err = Step{Op: OpSetCardinality, Table: "orders", Relationship: "fk_orders_users", Cardinality: "1:1"}.Build(b, db)
	require.NoError(t, err)
	assert.Equal(t, command.KindSetRelationshipCardinality, cmd.Kind())
}

func TestTableLookupAcrossSchemas(t *testing.T) {
	db := schematest.Shop()
	db.AddSchema(&schema.Schema{ID: "s2", Name: "audit", SeqNo: 1})
	require.NoError(t, db.AddTable("s2", &schema.Table{ID: "audit.users", Name: "users"}))

	_, err := Step{Op: OpAddColumn, Table: "users", Name: "x", Type: "int"}.Build(newBuilder(), db)
	assert.ErrorIs(t, err, command.ErrInvalid, "ambiguous without a schema")

	cmd, err := Step{Op: OpAddColumn, Schema: "audit", Table: "users", Name: "x", Type: "int"}.Build(newBuilder(), db)
	require.NoError(t, err)
	assert.Equal(t, "audit.users", cmd.(*command.CreateColumn).TableID)

	_, err = Step{Op: OpCreateTable, Name: "t"}.Build(newBuilder(), db)
	assert.ErrorIs(t, err, command.ErrInvalid, "schema required once there are two")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shopEdits), 0644))
	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Edits, 11)

	_, err = Parse([]byte("edits:\n  - table: users\n"))
	assert.ErrorContains(t, err, "edit 1 has no op")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStepString(t *testing.T) {
	s := Step{Op: OpRename, Table: "users", Column: "email", Name: "mail"}
	assert.Equal(t, "rename users email → mail", s.String())
}
