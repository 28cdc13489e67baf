package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/schema/schematest"
)

func strPtr(s string) *string { return &s }

func shopTables() []TableInfo {
	return []TableInfo{
		{
			Name: "users",
			Columns: []ColumnInfo{
				{Name: "id", Type: "bigint"},
				{Name: "email", Type: "text", IsUnique: true},
				{Name: "status", Type: "user_status", EnumValues: []string{"active", "it's off"}},
			},
			PrimaryKey: KeyInfo{Name: "users_pkey", Columns: []string{"id"}},
		},
		{
			Name: "orders",
			Columns: []ColumnInfo{
				{Name: "id", Type: "bigint"},
				{Name: "user_id", Type: "bigint", Nullable: true, DefaultValue: strPtr("0")},
			},
			PrimaryKey:  KeyInfo{Columns: []string{"id"}},
			ForeignKeys: []ForeignKeyInfo{{Name: "orders_user_id_fkey", SourceColumn: "user_id", TargetTable: "users", TargetColumn: "id"}},
			Indexes:     []IndexInfo{{Name: "idx_orders_user", Columns: []string{"user_id"}}},
		},
		{
			Name: "order_items",
			Columns: []ColumnInfo{
				{Name: "order_id", Type: "bigint"},
				{Name: "line", Type: "integer"},
			},
			PrimaryKey: KeyInfo{Columns: []string{"order_id", "line"}},
			// SQLite reports an omitted target column as empty
			ForeignKeys: []ForeignKeyInfo{{Name: "fk_order_items_0", SourceColumn: "order_id", TargetTable: "orders"}},
		},
	}
}

func TestSnapshotBuildsModel(t *testing.T) {
	db, err := Snapshot(shopTables(), SnapshotOptions{DatabaseName: "shop", SchemaName: "public", NewID: schematest.Seq("id")})
	require.NoError(t, err)

	assert.Equal(t, "shop", db.Name)
	s, err := db.SchemaByName("public")
	require.NoError(t, err)
	require.Len(t, s.Tables, 3)
	assert.Equal(t, "users", s.Tables[0].Name)
	assert.Equal(t, "order_items", s.Tables[2].Name)

	users := s.Tables[0]
	require.Len(t, users.Columns, 3)
	pk := users.PrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, "users_pkey", pk.Name)

	unique, err := users.ConstraintByName("users_email_key")
	require.NoError(t, err)
	assert.Equal(t, schema.Unique, unique.Kind)

	check, err := users.ConstraintByName("users_status_check")
	require.NoError(t, err)
	assert.Equal(t, schema.Check, check.Kind)
	assert.Equal(t, "status IN ('active', 'it''s off')", check.Expression)

	orders := s.Tables[1]
	assert.Equal(t, "pk_orders", orders.PrimaryKey().Name)
	userID, err := orders.ColumnByName("user_id")
	require.NoError(t, err)
	require.NotNil(t, userID.Default)
	assert.Equal(t, "0", *userID.Default)
	assert.True(t, userID.Nullable)

	idx, err := orders.IndexByName("idx_orders_user")
	require.NoError(t, err)
	require.Len(t, idx.Columns, 1)
	assert.Equal(t, userID.ID, idx.Columns[0].ColumnID)
	assert.Equal(t, schema.Asc, idx.Columns[0].Sort)

	rel, err := orders.RelationshipByName("orders_user_id_fkey")
	require.NoError(t, err)
	assert.Equal(t, users.ID, rel.TargetTableID)
	assert.Equal(t, schema.NonIdentifying, rel.Kind)
	assert.Equal(t, schema.OneToMany, rel.Cardinality)
	require.Len(t, rel.Columns, 1)
	assert.Equal(t, userID.ID, rel.Columns[0].FKColumnID)
	assert.Equal(t, users.Columns[0].ID, rel.Columns[0].RefColumnID)
}

func TestSnapshotInfersRelationshipShape(t *testing.T) {
	db, err := Snapshot(shopTables(), SnapshotOptions{NewID: schematest.Seq("id")})
	require.NoError(t, err)
	s := db.Schemas[0]
	assert.Equal(t, "main", s.Name)

	items, err := s.TableByName("order_items")
	require.NoError(t, err)
	orders, err := s.TableByName("orders")
	require.NoError(t, err)

	rel, err := items.RelationshipByName("fk_order_items_0")
	require.NoError(t, err)
	assert.Equal(t, schema.Identifying, rel.Kind, "foreign key inside the primary key")
	assert.Equal(t, schema.OneToMany, rel.Cardinality)
	require.Len(t, rel.Columns, 1)
	assert.Equal(t, orders.Columns[0].ID, rel.Columns[0].RefColumnID, "empty target column resolves to the target key")
}

func TestSnapshotOneToOne(t *testing.T) {
	tables := []TableInfo{
		{Name: "users", Columns: []ColumnInfo{{Name: "id"}}, PrimaryKey: KeyInfo{Columns: []string{"id"}}},
		{
			Name:        "profiles",
			Columns:     []ColumnInfo{{Name: "user_id"}},
			PrimaryKey:  KeyInfo{Columns: []string{"user_id"}},
			ForeignKeys: []ForeignKeyInfo{{Name: "fk", SourceColumn: "user_id", TargetTable: "users", TargetColumn: "id"}},
		},
		{
			Name:        "avatars",
			Columns:     []ColumnInfo{{Name: "id"}, {Name: "user_id", IsUnique: true}},
			PrimaryKey:  KeyInfo{Columns: []string{"id"}},
			ForeignKeys: []ForeignKeyInfo{{Name: "fk", SourceColumn: "user_id", TargetTable: "users", TargetColumn: "id"}},
		},
	}
	db, err := Snapshot(tables, SnapshotOptions{NewID: schematest.Seq("id")})
	require.NoError(t, err)

	for _, name := range []string{"profiles", "avatars"} {
		tbl, err := db.Schemas[0].TableByName(name)
		require.NoError(t, err)
		require.Len(t, tbl.Relationships, 1)
		assert.Equal(t, schema.OneToOne, tbl.Relationships[0].Cardinality, name)
	}
}

func TestSnapshotSkipsForeignKeysToMissingTables(t *testing.T) {
	tables := shopTables()[1:2]
	db, err := Snapshot(tables, SnapshotOptions{NewID: schematest.Seq("id")})
	require.NoError(t, err)
	assert.Empty(t, db.Schemas[0].Tables[0].Relationships)
}

func TestSnapshotDeduplicatesConstraintNames(t *testing.T) {
	tables := []TableInfo{
		{Name: "a", Columns: []ColumnInfo{{Name: "id"}}, PrimaryKey: KeyInfo{Name: "PRIMARY", Columns: []string{"id"}}},
		{Name: "b", Columns: []ColumnInfo{{Name: "id"}}, PrimaryKey: KeyInfo{Name: "pk_a", Columns: []string{"id"}}},
	}
	db, err := Snapshot(tables, SnapshotOptions{NewID: schematest.Seq("id")})
	require.NoError(t, err)
	assert.Equal(t, "pk_a", db.Schemas[0].Tables[0].PrimaryKey().Name)
	assert.Equal(t, "pk_a_2", db.Schemas[0].Tables[1].PrimaryKey().Name)
}

func TestSnapshotRejectsUnknownColumns(t *testing.T) {
	tables := []TableInfo{{
		Name:    "a",
		Columns: []ColumnInfo{{Name: "id"}},
		Indexes: []IndexInfo{{Name: "idx", Columns: []string{"nope"}}},
	}}
	_, err := Snapshot(tables, SnapshotOptions{})
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url     string
		dbType  string
		conn    string
		wantErr bool
	}{
		{"postgres://u:p@localhost/db", TypePostgres, "postgres://u:p@localhost/db", false},
		{"postgresql://localhost/db", TypePostgres, "postgresql://localhost/db", false},
		{"mysql://u:p@tcp(localhost:3306)/shop", TypeMySQL, "u:p@tcp(localhost:3306)/shop", false},
		{"sqlite://data/test.db", TypeSQLite, "data/test.db", false},
		{"", "", "", true},
		{"oracle://x", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			dbType, conn, err := ParseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dbType, dbType)
			assert.Equal(t, tt.conn, conn)
		})
	}
}

func TestParseDatabaseName(t *testing.T) {
	name, err := ParseDatabaseName("u:p@tcp(localhost:3306)/shop?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "shop", name)

	_, err = ParseDatabaseName("u:p@tcp(localhost:3306)/")
	assert.Error(t, err)
}

func TestExcludeTables(t *testing.T) {
	got := ExcludeTables(shopTables(), []string{"orders"})
	require.Len(t, got, 2)
	assert.Equal(t, "users", got[0].Name)
	assert.Equal(t, "order_items", got[1].Name)
	assert.Len(t, ExcludeTables(shopTables(), nil), 3)
}

func TestParseEnumValues(t *testing.T) {
	values, err := parseEnumValues("enum('small','medium','large')")
	require.NoError(t, err)
	assert.Equal(t, []string{"small", "medium", "large"}, values)

	values, err = parseEnumValues("varchar(20)")
	require.NoError(t, err)
	assert.Nil(t, values)
}

func TestNormalizePostgresType(t *testing.T) {
	n := 40
	tests := []struct {
		dataType, udt string
		length        *int
		want          string
	}{
		{"timestamp with time zone", "timestamptz", nil, "timestamptz"},
		{"character varying", "varchar", &n, "varchar(40)"},
		{"character varying", "varchar", nil, "varchar"},
		{"ARRAY", "_int4", nil, "integer[]"},
		{"USER-DEFINED", "mood", nil, "mood"},
		{"integer", "int4", nil, "integer"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePostgresType(tt.dataType, tt.udt, tt.length), tt.dataType)
	}
}
