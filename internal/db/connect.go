package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/schemasync/internal/schema"
)

// Database types recognised by ParseURL
const (
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	TypeSQLite   = "sqlite"
)

// ImportOptions configures Import. The zero value imports every table.
type ImportOptions struct {
	// Tables limits the import to the named tables
	Tables []string
	// ExcludeTables is applied after Tables
	ExcludeTables []string
	// SchemaName defaults to "public" for PostgreSQL and to the DSN's
	// database for MySQL. SQLite has no schemas.
	SchemaName string
	NewID      func() string
}

// ParseURL detects the database type and returns the connection string the
// driver expects
func ParseURL(url string) (dbType, connectionStr string, err error) {
	if url == "" {
		return "", "", errors.New("database URL is required")
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return TypePostgres, url, nil
	}

	if strings.HasPrefix(url, "mysql://") {
		// Strip mysql:// prefix for the Go MySQL driver
		return TypeMySQL, strings.TrimPrefix(url, "mysql://"), nil
	}

	if strings.HasPrefix(url, "sqlite://") {
		return TypeSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	}

	return "", "", errors.New("invalid database URL scheme (must start with postgres://, mysql://, or sqlite://)")
}

// Import connects to url, reads its tables and returns them as a model with
// fresh identifiers
func Import(ctx context.Context, url string, opts ImportOptions) (*schema.Database, error) {
	dbType, connStr, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	var tables []TableInfo
	var dbName, schemaName string
	switch dbType {
	case TypePostgres:
		tables, dbName, schemaName, err = importPostgres(ctx, connStr, opts)
	case TypeMySQL:
		tables, dbName, schemaName, err = importMySQL(ctx, connStr, opts)
	case TypeSQLite:
		tables, err = importSQLite(ctx, connStr, opts)
		dbName = strings.TrimSuffix(filepath.Base(connStr), filepath.Ext(connStr))
		schemaName = "main"
	}
	if err != nil {
		return nil, err
	}

	return Snapshot(ExcludeTables(tables, opts.ExcludeTables), SnapshotOptions{
		DatabaseName: dbName,
		SchemaName:   schemaName,
		NewID:        opts.NewID,
	})
}

func importPostgres(ctx context.Context, connStr string, opts ImportOptions) ([]TableInfo, string, string, error) {
	client, err := NewPostgresClient(ctx, connStr)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer func() { _ = client.Close(ctx) }()

	schemaName := opts.SchemaName
	if schemaName == "" {
		schemaName = "public"
	}
	dbName := ""
	if cfg, err := pgx.ParseConfig(connStr); err == nil {
		dbName = cfg.Database
	}

	tables, err := NewPostgresExtractor(client, schemaName).ExtractTables(ctx, opts.Tables)
	return tables, dbName, schemaName, err
}

func importMySQL(ctx context.Context, connStr string, opts ImportOptions) ([]TableInfo, string, string, error) {
	dbName, nameErr := ParseDatabaseName(connStr)
	schemaName := opts.SchemaName
	if schemaName == "" {
		if nameErr != nil {
			return nil, "", "", fmt.Errorf("failed to determine database name: %w (please specify a schema name)", nameErr)
		}
		schemaName = dbName
	}

	client, err := NewMySQLClient(ctx, connStr)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	defer func() { _ = client.Close() }()

	tables, err := NewMySQLExtractor(client, schemaName).ExtractTables(ctx, opts.Tables)
	return tables, dbName, schemaName, err
}

func importSQLite(ctx context.Context, path string, opts ImportOptions) ([]TableInfo, error) {
	client, err := NewSQLiteClient(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}
	defer func() { _ = client.Close() }()

	return NewSQLiteExtractor(client).ExtractTables(ctx, opts.Tables)
}

// ExcludeTables drops the named tables
func ExcludeTables(tables []TableInfo, exclude []string) []TableInfo {
	if len(exclude) == 0 {
		return tables
	}

	excludeSet := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excludeSet[name] = true
	}

	filtered := make([]TableInfo, 0, len(tables))
	for _, table := range tables {
		if !excludeSet[table.Name] {
			filtered = append(filtered, table)
		}
	}
	return filtered
}
