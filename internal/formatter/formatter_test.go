package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/schema/schematest"
)

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf, Options{}).Format(schematest.Shop()))

	want := `TABLE users (PK: id)
  id: bigint PK NOT NULL
  email: text NOT NULL

TABLE orders (PK: id)
  id: bigint PK NOT NULL
  user_id: bigint NOT NULL

  RELATIONS:
    user_id → users.(id) (1:N)

  INDEXES:
    idx_orders_user (user_id)
`
	assert.Equal(t, want, buf.String())
}

func TestTextFormatterMarksPending(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Pending: func(id string) bool { return id == "orders.user_id" }}
	require.NoError(t, NewTextFormatter(&buf, opts).Format(schematest.Shop()))
	assert.Contains(t, buf.String(), "  user_id: bigint NOT NULL [pending]\n")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("[pending]")))
}

func TestMarkdownFormatter(t *testing.T) {
	db := schematest.Shop()
	def := "now()"
	require.NoError(t, db.AddColumn("orders", &schema.Column{ID: "orders.created", Name: "created_at", DataType: "timestamptz", Default: &def, SeqNo: 2}))
	require.NoError(t, db.AddConstraint("users", &schema.Constraint{
		ID: "uq_email", Name: "users_email_key", Kind: schema.Unique,
		Columns: []*schema.ConstraintColumn{{ID: "uq_email.0", ColumnID: "users.email"}},
	}))
	require.NoError(t, db.AddConstraint("orders", &schema.Constraint{
		ID: "uq_pair", Name: "orders_pair_key", Kind: schema.Unique,
		Columns: []*schema.ConstraintColumn{
			{ID: "uq_pair.0", ColumnID: "orders.id"},
			{ID: "uq_pair.1", ColumnID: "orders.user_id", SeqNo: 1},
		},
	}))

	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter(&buf, Options{}).Format(db))
	out := buf.String()

	assert.Contains(t, out, "# Database Schema: shop\n")
	assert.Contains(t, out, "## users\n")
	assert.Contains(t, out, "- **id:** bigint, PK, NOT NULL\n")
	assert.Contains(t, out, "- **email:** text, UNIQUE, NOT NULL\n")
	assert.Contains(t, out, "- **created_at:** timestamptz, NOT NULL, DEFAULT now()\n")
	assert.Contains(t, out, "- fk_orders_users: user_id → users.(id) (1:N)\n")
	assert.Contains(t, out, "- idx_orders_user on (user_id)\n")
	assert.Contains(t, out, "### Constraints\n\n- orders_pair_key: UNIQUE (id, user_id)\n")
	assert.NotContains(t, out, "Referenced by")
}

func TestMarkdownFormatterQualifiesSchemas(t *testing.T) {
	db := schematest.Shop()
	db.AddSchema(&schema.Schema{ID: "s2", Name: "audit", SeqNo: 1})
	require.NoError(t, db.AddTable("s2", &schema.Table{ID: "log", Name: "log"}))

	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter(&buf, Options{}).Format(db))
	assert.Contains(t, buf.String(), "## public.users\n")
	assert.Contains(t, buf.String(), "## audit.log\n")
	assert.Contains(t, buf.String(), "→ public.users.(id)")
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	f, err := New(FormatText, &buf, Options{})
	require.NoError(t, err)
	assert.IsType(t, &TextFormatter{}, f)

	f, err = New("", &buf, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MarkdownFormatter{}, f)

	_, err = New("html", &buf, Options{})
	assert.Error(t, err)
}

func TestMultiFileFormatter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewMultiFileFormatter(dir, FormatMarkdown, Options{}).Format(schematest.Shop()))

	overview, err := os.ReadFile(filepath.Join(dir, "_overview.md"))
	require.NoError(t, err)
	assert.Contains(t, string(overview), "- **orders** (references: users)\n- **users**\n")

	users, err := os.ReadFile(filepath.Join(dir, "users.md"))
	require.NoError(t, err)
	assert.Contains(t, string(users), "### Referenced by\n\n- orders.(user_id) → (id) (many orders per users)\n")

	orders, err := os.ReadFile(filepath.Join(dir, "orders.md"))
	require.NoError(t, err)
	assert.NotContains(t, string(orders), "Referenced by")
}

func TestMultiFileFormatterText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewMultiFileFormatter(dir, FormatText, Options{}).Format(schematest.Shop()))

	overview, err := os.ReadFile(filepath.Join(dir, "_overview.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(overview), "SCHEMA OVERVIEW\n")
	assert.Contains(t, string(overview), "orders (references: users)\n")

	users, err := os.ReadFile(filepath.Join(dir, "users.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(users), "TABLE users (PK: id)\n")
	assert.Contains(t, string(users), "  REFERENCED BY:\n    orders.(user_id) (1:N)\n")
}
