package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProvider loads a schema snapshot from a live PostgreSQL catalog via
// information_schema queries.
type PostgresProvider struct {
	pool   *pgxpool.Pool
	dbName string
}

// NewPostgresProvider creates a provider on top of an existing connection pool.
func NewPostgresProvider(pool *pgxpool.Pool, dbName string) *PostgresProvider {
	return &PostgresProvider{pool: pool, dbName: dbName}
}

// Load reads all tables in non-system schemas with their columns, primary
// keys, and foreign keys.
func (p *PostgresProvider) Load(ctx context.Context) (*DatabaseSchema, error) {
	tables, err := p.loadTables(ctx)
	if err != nil {
		return nil, err
	}

	for i := range tables {
		if err := p.loadColumns(ctx, &tables[i]); err != nil {
			return nil, err
		}
		if err := p.loadPrimaryKey(ctx, &tables[i]); err != nil {
			return nil, err
		}
		if err := p.loadForeignKeys(ctx, &tables[i]); err != nil {
			return nil, err
		}
	}

	return &DatabaseSchema{
		Name:    p.dbName,
		Dialect: "postgres",
		Tables:  tables,
	}, nil
}

func (p *PostgresProvider) loadTables(ctx context.Context) ([]TableDoc, error) {
	const q = `
		SELECT table_schema, table_name,
		       COALESCE(obj_description(format('%I.%I', table_schema, table_name)::regclass), '')
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name`

	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []TableDoc
	for rows.Next() {
		var t TableDoc
		if err := rows.Scan(&t.Schema, &t.Name, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (p *PostgresProvider) loadColumns(ctx context.Context, t *TableDoc) error {
	const q = `
		SELECT column_name, data_type, is_nullable = 'YES', COALESCE(column_default, '')
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := p.pool.Query(ctx, q, t.Schema, t.Name)
	if err != nil {
		return fmt.Errorf("failed to read columns for %s: %w", t.QualifiedName(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var c ColumnDoc
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Default); err != nil {
			return fmt.Errorf("failed to scan column for %s: %w", t.QualifiedName(), err)
		}
		t.Columns = append(t.Columns, c)
	}
	return rows.Err()
}

func (p *PostgresProvider) loadPrimaryKey(ctx context.Context, t *TableDoc) error {
	const q = `
		SELECT kc.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kc
		  ON tc.constraint_name = kc.constraint_name AND tc.table_schema = kc.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kc.ordinal_position`

	rows, err := p.pool.Query(ctx, q, t.Schema, t.Name)
	if err != nil {
		return fmt.Errorf("failed to read primary key for %s: %w", t.QualifiedName(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return fmt.Errorf("failed to scan primary key column for %s: %w", t.QualifiedName(), err)
		}
		t.PrimaryKey = append(t.PrimaryKey, col)
	}
	return rows.Err()
}

func (p *PostgresProvider) loadForeignKeys(ctx context.Context, t *TableDoc) error {
	const q = `
		SELECT kc.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kc
		  ON tc.constraint_name = kc.constraint_name AND tc.table_schema = kc.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'FOREIGN KEY'
		ORDER BY kc.ordinal_position`

	rows, err := p.pool.Query(ctx, q, t.Schema, t.Name)
	if err != nil {
		return fmt.Errorf("failed to read foreign keys for %s: %w", t.QualifiedName(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return fmt.Errorf("failed to scan foreign key for %s: %w", t.QualifiedName(), err)
		}
		t.ForeignKeys = append(t.ForeignKeys, fk)
	}
	return rows.Err()
}
