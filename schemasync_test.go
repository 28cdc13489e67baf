package schemasync

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemasync/internal/authority"
	"github.com/tordrt/schemasync/internal/command"
	"github.com/tordrt/schemasync/internal/remote"
	"github.com/tordrt/schemasync/internal/schema"
	"github.com/tordrt/schemasync/internal/schema/schematest"
	"github.com/tordrt/schemasync/internal/script"
)

func openShop(t *testing.T, a remote.Authority) *Session {
	t.Helper()
	s, err := Open(nil, a, schematest.Shop(), Options{
		Clock: testclock.NewClock(time.Time{}),
		NewID: schematest.Seq("p"),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func drain(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Drain(ctx))
}

func TestOpenRequiresAuthority(t *testing.T) {
	_, err := Open(nil, nil, nil, Options{})
	assert.Error(t, err)
}

func TestSessionDo(t *testing.T) {
	s := openShop(t, authority.NewSimulator(nil, authority.Options{}))

	var mapped []string
	s.Queue().OnIdentifierMapped(func(prov, real string, typ schema.EntityType) {
		mapped = append(mapped, prov+"="+real)
	})

	ticket, err := s.Do(func(b *command.Builder, db *schema.Database) (command.Command, error) {
		return b.CreateTable(db, "s1", "items", "")
	})
	require.NoError(t, err)

	local := s.Local()
	_, err = local.Schemas[0].TableByName("items")
	require.NoError(t, err, "visible locally before confirmation")

	drain(t, s)
	require.NoError(t, ticket.Err())
	assert.Equal(t, []string{"p1=srv-1"}, mapped)
	assert.True(t, schema.Equal(s.Synced(), s.Local()))
	assert.False(t, s.IsPending("srv-1"))
}

func TestSessionDoReturnsBuildErrors(t *testing.T) {
	s := openShop(t, authority.NewSimulator(nil, authority.Options{}))
	_, err := s.Do(func(b *command.Builder, db *schema.Database) (command.Command, error) {
		return b.CreateTable(db, "s1", "users", "")
	})
	assert.ErrorIs(t, err, command.ErrInvalid)
	assert.Equal(t, 0, s.Queue().Len())
}

const replayEdits = `
edits:
  - op: create_table
    name: items
  - op: add_column
    table: items
    name: sku
    type: text
  - op: create_constraint
    table: items
    name: pk_items
    kind: primary_key
    columns: [sku]
  - op: create_relationship
    table: orders
    target: items
    name: fk_orders_items
`

func TestSessionReplay(t *testing.T) {
	s := openShop(t, authority.NewSimulator(nil, authority.Options{}))
	sc, err := script.Parse([]byte(replayEdits))
	require.NoError(t, err)

	require.NoError(t, s.Replay(context.Background(), sc))

	local := s.Local()
	assert.True(t, schema.Equal(s.Synced(), local))
	orders, _, err := local.Table("orders")
	require.NoError(t, err)
	mirror, err := orders.ColumnByName("items_sku")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mirror.ID, "srv-"))
	assert.True(t, mirror.Nullable)
}

func TestSessionReplayRollsBack(t *testing.T) {
	s := openShop(t, authority.NewSimulator(nil, authority.Options{RejectNames: []string{"sku"}}))
	sc, err := script.Parse([]byte(replayEdits))
	require.NoError(t, err)

	err = s.Replay(context.Background(), sc)
	var rerr *remote.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, authority.CodeRejected, rerr.Code)
	assert.Contains(t, err.Error(), "edit 2")

	// the table was confirmed before the rejected column
	local := s.Local()
	assert.True(t, schema.Equal(s.Synced(), local))
	items, err := local.Schemas[0].TableByName("items")
	require.NoError(t, err)
	assert.Empty(t, items.Columns)
}

func TestSessionFormatMarksPending(t *testing.T) {
	release := make(chan struct{})
	blocking := remote.AuthorityFunc(func(ctx context.Context, req *remote.Request) (*remote.Response, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &remote.Response{Success: true, Result: &remote.Result{Tables: map[string]string{"p1": "real-1"}}}, nil
	})
	s := openShop(t, blocking)

	_, err := s.Do(func(b *command.Builder, db *schema.Database) (command.Command, error) {
		return b.CreateTable(db, "s1", "items", "")
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Format(&OutputOptions{Writer: &buf, Format: "text"}))
	assert.Contains(t, buf.String(), "TABLE items [pending]\n")
	assert.Contains(t, buf.String(), "TABLE users (PK: id)\n")

	close(release)
	drain(t, s)

	buf.Reset()
	require.NoError(t, s.Format(&OutputOptions{Writer: &buf, Format: "text"}))
	assert.NotContains(t, buf.String(), "[pending]")
	assert.False(t, s.IsPending("real-1"))
}

func TestFormatDatabase(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatDatabase(schematest.Shop(), &OutputOptions{Writer: &buf}))
	assert.True(t, strings.HasPrefix(buf.String(), "# Database Schema: shop\n"))

	err := FormatDatabase(schematest.Shop(), &OutputOptions{Writer: &buf, Format: "html"})
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, FormatDatabase(schematest.Shop(), &OutputOptions{OutputDir: dir, Format: "text"}))
	assert.FileExists(t, filepath.Join(dir, "_overview.txt"))
	assert.FileExists(t, filepath.Join(dir, "orders.txt"))
}

func TestSnapshotFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, SaveSnapshot(path, schematest.Shop()))

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.True(t, schema.Equal(schematest.Shop(), loaded))

	_, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestImportSnapshotRejectsBadURL(t *testing.T) {
	_, err := ImportSnapshot(context.Background(), "oracle://db", nil)
	assert.Error(t, err)
}
