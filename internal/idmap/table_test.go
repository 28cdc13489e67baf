package idmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemasync/internal/schema"
)

func TestTableAdd(t *testing.T) {
	tbl := NewTable()

	rec, added := tbl.Add("p1", "r1", schema.EntityTable)
	require.True(t, added)
	assert.Equal(t, uint64(1), rec.Generation)
	assert.Equal(t, "r1", tbl.Resolve("p1"))
	assert.Equal(t, "unknown", tbl.Resolve("unknown"))

	// Append-only: a second mapping for p1 is ignored
	rec, added = tbl.Add("p1", "r2", schema.EntityTable)
	assert.False(t, added)
	assert.Equal(t, "r1", rec.Real)
	assert.Equal(t, "r1", tbl.Resolve("p1"))

	_, added = tbl.Add("same", "same", schema.EntityColumn)
	assert.False(t, added)
	assert.Len(t, tbl.Since(0), 1)
}

func TestTableSince(t *testing.T) {
	tbl := NewTable()
	tbl.Add("a", "A", schema.EntitySchema)
	gen := tbl.Generation()
	tbl.Add("b", "B", schema.EntityTable)
	tbl.Add("c", "C", schema.EntityColumn)

	recs := tbl.Since(gen)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].Provisional)
	assert.Equal(t, schema.EntityColumn, recs[1].Type)
	assert.Nil(t, tbl.Since(tbl.Generation()))
}

func TestTableReverseLookup(t *testing.T) {
	tbl := NewTable()
	tbl.Add("p1", "real", schema.EntityColumn)
	tbl.Add("p2", "real", schema.EntityColumn)

	assert.ElementsMatch(t, []string{"p1", "p2"}, tbl.Provisionals("real"))
	assert.Empty(t, tbl.Provisionals("p1"))
}

func TestMapResolve(t *testing.T) {
	m := Map{"x": "y"}
	assert.Equal(t, "y", m.Resolve("x"))
	assert.Equal(t, "z", m.Resolve("z"))
}
