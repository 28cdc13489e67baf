package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// SQLiteExtractor reads tables of a SQLite database
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// ExtractTables implements Extractor
func (e *SQLiteExtractor) ExtractTables(ctx context.Context, tables []string) ([]TableInfo, error) {
	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	extracted := make([]TableInfo, 0, len(tableNames))
	for _, tableName := range tableNames {
		table, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		extracted = append(extracted, *table)
	}
	return extracted, nil
}

func (e *SQLiteExtractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}

	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (*TableInfo, error) {
	table := &TableInfo{Name: tableName}
	var err error

	if table.Columns, table.PrimaryKey, err = e.extractColumns(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if table.ForeignKeys, err = e.extractForeignKeys(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	if table.Indexes, err = e.extractIndexes(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	return table, nil
}

// extractColumns reads PRAGMA table_info, which also carries each column's
// position in the primary key
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]ColumnInfo, KeyInfo, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", tableName))
	if err != nil {
		return nil, KeyInfo{}, err
	}
	defer rows.Close()

	type keyPart struct {
		name  string
		order int
	}
	var columns []ColumnInfo
	var parts []keyPart

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, KeyInfo{}, err
		}

		col := ColumnInfo{
			Name:     name,
			Type:     colType,
			Nullable: notNull == 0 && pk == 0,
		}
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		if pk > 0 {
			parts = append(parts, keyPart{name: name, order: pk})
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, KeyInfo{}, err
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].order < parts[j].order })
	var key KeyInfo
	for _, p := range parts {
		key.Columns = append(key.Columns, p.name)
	}

	unique, err := e.uniqueColumns(ctx, tableName)
	if err != nil {
		return nil, KeyInfo{}, err
	}
	for i := range columns {
		columns[i].IsUnique = unique[columns[i].Name] && !containsAll(key.Columns, []string{columns[i].Name})
	}

	return columns, key, nil
}

// uniqueColumns returns the columns covered alone by a unique index
func (e *SQLiteExtractor) uniqueColumns(ctx context.Context, tableName string) (map[string]bool, error) {
	list, err := e.indexList(ctx, tableName)
	if err != nil {
		return nil, err
	}
	unique := make(map[string]bool)
	for _, idx := range list {
		if !idx.unique {
			continue
		}
		columns, err := e.indexColumns(ctx, idx.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 1 {
			unique[columns[0]] = true
		}
	}
	return unique, nil
}

type sqliteIndex struct {
	name   string
	unique bool
}

func (e *SQLiteExtractor) indexList(ctx context.Context, tableName string) ([]sqliteIndex, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%q)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sqliteIndex
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		out = append(out, sqliteIndex{name: name, unique: unique == 1})
	}
	return out, rows.Err()
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%q)", indexName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}
	return columns, rows.Err()
}

// extractForeignKeys reads PRAGMA foreign_key_list. SQLite keys are unnamed,
// so they are named after the table and the key id. An omitted target column
// means the target's primary key.
func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]ForeignKeyInfo, error) {
	rows, err := e.client.GetDB().QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKeyInfo
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, onUpdate, onDelete, match string
		var toCol sql.NullString

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		fks = append(fks, ForeignKeyInfo{
			Name:         fmt.Sprintf("fk_%s_%d", tableName, id),
			SourceColumn: fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol.String,
		})
	}

	return fks, rows.Err()
}

func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string) ([]IndexInfo, error) {
	list, err := e.indexList(ctx, tableName)
	if err != nil {
		return nil, err
	}

	var indexes []IndexInfo
	for _, idx := range list {
		// Skip auto-generated primary key and unique indexes
		if strings.HasPrefix(idx.name, "sqlite_autoindex") {
			continue
		}
		columns, err := e.indexColumns(ctx, idx.name)
		if err != nil {
			return nil, err
		}
		if len(columns) > 0 {
			indexes = append(indexes, IndexInfo{Name: idx.name, IsUnique: idx.unique, Columns: columns})
		}
	}

	return indexes, nil
}
