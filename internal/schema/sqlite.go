package schema

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteProvider loads a schema snapshot from a SQLite database file by
// reading sqlite_master and the table_info/foreign_key_list pragmas.
type SQLiteProvider struct {
	Path string
}

// NewSQLiteProvider creates a provider for the database file at path.
func NewSQLiteProvider(path string) *SQLiteProvider {
	return &SQLiteProvider{Path: path}
}

// Load reads every user table and its columns, primary key, and foreign keys.
func (p *SQLiteProvider) Load(ctx context.Context) (*DatabaseSchema, error) {
	db, err := sql.Open("sqlite3", p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	db.SetConnMaxLifetime(time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}

	tables := make([]TableDoc, 0, len(names))
	for _, name := range names {
		table, err := p.loadTable(ctx, db, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	dbName := strings.TrimSuffix(filepath.Base(p.Path), filepath.Ext(p.Path))
	return &DatabaseSchema{
		Name:    dbName,
		Dialect: "sqlite",
		Tables:  tables,
	}, nil
}

func (p *SQLiteProvider) loadTable(ctx context.Context, db *sql.DB, name string) (TableDoc, error) {
	table := TableDoc{Name: name}

	// PRAGMA table_info: cid, name, type, notnull, dflt_value, pk
	colRows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
	if err != nil {
		return table, fmt.Errorf("failed to read columns for %s: %w", name, err)
	}
	defer func() {
		_ = colRows.Close()
	}()

	type pkCol struct {
		name string
		rank int
	}
	var pks []pkCol

	for colRows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := colRows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return table, fmt.Errorf("failed to scan column for %s: %w", name, err)
		}
		col := ColumnDoc{
			Name:     colName,
			DataType: colType,
			Nullable: notNull == 0,
		}
		if dflt.Valid {
			col.Default = dflt.String
		}
		table.Columns = append(table.Columns, col)
		if pk > 0 {
			pks = append(pks, pkCol{name: colName, rank: pk})
		}
	}
	if err := colRows.Err(); err != nil {
		return table, fmt.Errorf("failed to iterate columns for %s: %w", name, err)
	}

	for i := 0; i < len(pks)-1; i++ {
		for j := i + 1; j < len(pks); j++ {
			if pks[i].rank > pks[j].rank {
				pks[i], pks[j] = pks[j], pks[i]
			}
		}
	}
	for _, pk := range pks {
		table.PrimaryKey = append(table.PrimaryKey, pk.name)
	}

	// PRAGMA foreign_key_list: id, seq, table, from, to, on_update, on_delete, match
	fkRows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", name))
	if err != nil {
		return table, fmt.Errorf("failed to read foreign keys for %s: %w", name, err)
	}
	defer func() {
		_ = fkRows.Close()
	}()

	for fkRows.Next() {
		var (
			id, seq            int
			refTable, from     string
			to                 sql.NullString
			onUpd, onDel, mtch string
		)
		if err := fkRows.Scan(&id, &seq, &refTable, &from, &to, &onUpd, &onDel, &mtch); err != nil {
			return table, fmt.Errorf("failed to scan foreign key for %s: %w", name, err)
		}
		fk := ForeignKey{Column: from, RefTable: refTable}
		if to.Valid {
			fk.RefColumn = to.String
		}
		table.ForeignKeys = append(table.ForeignKeys, fk)
	}
	if err := fkRows.Err(); err != nil {
		return table, fmt.Errorf("failed to iterate foreign keys for %s: %w", name, err)
	}

	return table, nil
}
