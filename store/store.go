package store

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"cupline/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
	driver string
}

func Open(cfg *config.DatabaseConfig) (*DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return openSQLite(cfg.SQLite.Path)
	case "postgres":
		return openPostgres(&cfg.Postgres)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func openSQLite(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := &DB{DB: sqlDB, driver: "sqlite"}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}

func openPostgres(cfg *config.PostgresConfig) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db := &DB{DB: sqlDB, driver: "postgres"}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return db, nil
}

func (db *DB) Driver() string { return db.driver }

// Q rewrites ? placeholders for PostgreSQL, passes through for SQLite.
func (db *DB) Q(query string) string {
	if db.driver == "postgres" {
		return Rebind(query)
	}
	return query
}

// migrate creates missing tables, applies column additions, and only then
// creates indexes: an index on a migrated column must not be attempted before
// an old table has gained that column.
func (db *DB) migrate() error {
	var schema string
	switch db.driver {
	case "sqlite":
		schema = schemaSQLite
	case "postgres":
		schema = schemaPostgres
	default:
		return fmt.Errorf("no schema for driver: %s", db.driver)
	}
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	if err := db.applyColumnMigrations(); err != nil {
		return err
	}
	_, err := db.Exec(schemaIndexes)
	return err
}

// applyColumnMigrations adds columns introduced after the initial schema.
// Additions are idempotent and carry safe defaults so existing rows stay valid.
func (db *DB) applyColumnMigrations() error {
	for _, m := range columnMigrations {
		has, err := db.hasColumn(m.table, m.column)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		log.Printf("store: adding column %s.%s", m.table, m.column)
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.definition)
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", m.table, m.column, err)
		}
	}
	return nil
}

func (db *DB) hasColumn(table, column string) (bool, error) {
	if db.driver == "sqlite" {
		rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			return false, err
		}
		defer rows.Close()
		for rows.Next() {
			var cid int
			var name, ctype string
			var notnull, pk int
			var dflt sql.NullString
			if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
				return false, err
			}
			if name == column {
				return true, nil
			}
		}
		return false, rows.Err()
	}
	var n int
	err := db.QueryRow(
		Rebind(`SELECT COUNT(*) FROM information_schema.columns WHERE table_name=? AND column_name=?`),
		table, column).Scan(&n)
	return n > 0, err
}

// isMissingColumn reports whether err is a write failure caused by a schema
// that predates a column migration.
func isMissingColumn(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "has no column named") ||
		strings.Contains(msg, "SQLSTATE 42703") ||
		(strings.Contains(msg, "column") && strings.Contains(msg, "does not exist"))
}

// execWrite runs a write statement; a missing-column failure triggers one
// schema repair and a single retry. Any other failure is returned so the
// caller can drop the write for this cycle; retrying blind could duplicate a
// ledger entry.
func (db *DB) execWrite(query string, args ...any) (sql.Result, error) {
	res, err := db.Exec(query, args...)
	if err == nil || !isMissingColumn(err) {
		return res, err
	}
	log.Printf("store: missing column, repairing schema: %v", err)
	if repairErr := db.migrate(); repairErr != nil {
		return nil, fmt.Errorf("schema repair: %w", repairErr)
	}
	return db.Exec(query, args...)
}

// writeTx runs fn in a transaction with the same missing-column repair and
// single-retry contract as execWrite. The whole transaction is rolled back
// and re-run, so fn must be safe to call twice.
func (db *DB) writeTx(fn func(tx *sql.Tx) error) error {
	err := db.runTx(fn)
	if err == nil || !isMissingColumn(err) {
		return err
	}
	log.Printf("store: missing column, repairing schema: %v", err)
	if repairErr := db.migrate(); repairErr != nil {
		return fmt.Errorf("schema repair: %w", repairErr)
	}
	return db.runTx(fn)
}

func (db *DB) runTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
