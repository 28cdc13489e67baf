//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/tordrt/schemasync/internal/db"
	"github.com/tordrt/schemasync/internal/schema"
)

// importSnapshot imports url, or the URL in env when it is set
func importSnapshot(t *testing.T, env, url string, opts db.ImportOptions) *schema.Database {
	t.Helper()

	if v := os.Getenv(env); v != "" {
		url = v
	}
	snap, err := db.Import(context.Background(), url, opts)
	if err != nil {
		t.Fatalf("Failed to import %s: %v", url, err)
	}
	return snap
}

// onlySchema returns the single schema an import produces
func onlySchema(t *testing.T, d *schema.Database) *schema.Schema {
	t.Helper()

	if len(d.Schemas) != 1 {
		t.Fatalf("Expected 1 schema, got %d", len(d.Schemas))
	}
	return d.Schemas[0]
}

// verifyTablesExist checks that exactly the expected tables are present
func verifyTablesExist(t *testing.T, s *schema.Schema, expectedTables []string) {
	t.Helper()

	if len(s.Tables) != len(expectedTables) {
		t.Errorf("Expected %d tables, got %d", len(expectedTables), len(s.Tables))
	}

	for _, tableName := range expectedTables {
		if _, err := s.TableByName(tableName); err != nil {
			t.Errorf("Expected table %s not found in schema", tableName)
		}
	}
}

// findTable fails the test when the table is missing
func findTable(t *testing.T, s *schema.Schema, tableName string) *schema.Table {
	t.Helper()

	table, err := s.TableByName(tableName)
	if err != nil {
		t.Fatalf("Table %s not found", tableName)
	}
	return table
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *schema.Table, expectedColumns []string) {
	t.Helper()

	for _, colName := range expectedColumns {
		if _, err := table.ColumnByName(colName); err != nil {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// verifyPrimaryKey checks the primary key columns, in order
func verifyPrimaryKey(t *testing.T, table *schema.Table, expectedPK []string) {
	t.Helper()

	pk := table.PrimaryKey()
	if pk == nil {
		t.Errorf("Expected primary key %v on %s, got none", expectedPK, table.Name)
		return
	}
	if len(pk.Columns) != len(expectedPK) {
		t.Errorf("Expected primary key %v, got %d columns", expectedPK, len(pk.Columns))
		return
	}
	for i, name := range expectedPK {
		col := table.FindColumn(pk.Columns[i].ColumnID)
		if col == nil || col.Name != name {
			t.Errorf("Expected primary key column %d to be %s", i, name)
		}
	}
}

// verifyUniqueConstraint checks that a single-column unique constraint covers columnName
func verifyUniqueConstraint(t *testing.T, table *schema.Table, columnName string) {
	t.Helper()

	col, err := table.ColumnByName(columnName)
	if err != nil {
		t.Fatalf("Column %s not found in table %s", columnName, table.Name)
	}
	for _, c := range table.Constraints {
		if c.Kind == schema.Unique && len(c.Columns) == 1 && c.Columns[0].ColumnID == col.ID {
			return
		}
	}
	t.Errorf("Expected %s column to have unique constraint", columnName)
}

// verifyForeignKey checks that a relationship maps sourceColumn to targetTable
func verifyForeignKey(t *testing.T, s *schema.Schema, tableName, sourceColumn, targetTable string) {
	t.Helper()

	table := findTable(t, s, tableName)
	target := findTable(t, s, targetTable)
	col, err := table.ColumnByName(sourceColumn)
	if err != nil {
		t.Fatalf("Column %s not found in table %s", sourceColumn, tableName)
	}

	for _, rel := range table.Relationships {
		if rel.TargetTableID != target.ID {
			continue
		}
		for _, rc := range rel.Columns {
			if rc.FKColumnID == col.ID {
				return
			}
		}
	}
	t.Errorf("Expected foreign key relationship from %s.%s to %s not found", tableName, sourceColumn, targetTable)
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, table *schema.Table, indexName string, expectedColumns []string) {
	t.Helper()

	idx, err := table.IndexByName(indexName)
	if err != nil {
		t.Errorf("Expected index %s on %s table not found", indexName, table.Name)
		return
	}
	if len(idx.Columns) != len(expectedColumns) {
		t.Errorf("Expected index %s on %v, got %d columns", indexName, expectedColumns, len(idx.Columns))
		return
	}
	for i, name := range expectedColumns {
		col := table.FindColumn(idx.Columns[i].ColumnID)
		if col == nil || col.Name != name {
			t.Errorf("Expected index %s column %d to be %s", indexName, i, name)
		}
	}
}

// verifyEnumCheck checks that an enum column became a CHECK constraint
func verifyEnumCheck(t *testing.T, table *schema.Table, columnName string) {
	t.Helper()

	c, err := table.ConstraintByName(table.Name + "_" + columnName + "_check")
	if err != nil {
		t.Errorf("Expected CHECK constraint for enum column %s", columnName)
		return
	}
	if c.Kind != schema.Check || c.Expression == "" {
		t.Errorf("Expected CHECK constraint with expression for %s, got %s %q", columnName, c.Kind, c.Expression)
	}
}
