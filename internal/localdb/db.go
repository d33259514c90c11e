// Package localdb is the desktop-side datastore: an embedded SQLite database
// plus the named commands the Local Command Bridge dispatches to it.
package localdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if needed) the SQLite database at path. ":memory:" is
// accepted for tests.
func Open(path string) (*sql.DB, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create local db dir: %w", err)
			}
		}
		dsn = "file:" + path
	}
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open local db: %w", err)
	}
	// single writer; an in-memory database also lives on one connection
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping local db: %w", err)
	}
	return db, nil
}

// Migrate applies the local schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate local db (statement %d): %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS branches (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		branch_id TEXT REFERENCES branches(id)
	)`,
	`CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		user_id TEXT NOT NULL REFERENCES profiles(user_id),
		started_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		supplier_id TEXT REFERENCES suppliers(id),
		unit_price REAL NOT NULL DEFAULT 0,
		cost_price REAL NOT NULL DEFAULT 0,
		current_stock REAL NOT NULL DEFAULT 0,
		min_stock REAL NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (branch_id, code)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_movements (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL REFERENCES inventory_items(id),
		movement_type TEXT NOT NULL,
		quantity REAL NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_movements_item ON inventory_movements(item_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS encounters (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		doctor_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		encounter_type TEXT NOT NULL,
		encounter_date TEXT NOT NULL,
		chief_complaint TEXT NOT NULL DEFAULT '',
		diagnosis TEXT NOT NULL DEFAULT '',
		plan TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_encounters_patient ON encounters(patient_id, encounter_date)`,
	`CREATE TABLE IF NOT EXISTS exam_eye (
		id TEXT PRIMARY KEY,
		encounter_id TEXT NOT NULL REFERENCES encounters(id),
		side TEXT NOT NULL,
		va TEXT NOT NULL DEFAULT '',
		sphere REAL,
		cylinder REAL,
		axis INTEGER,
		iop REAL,
		notes TEXT NOT NULL DEFAULT '',
		UNIQUE (encounter_id, side)
	)`,
	`CREATE TABLE IF NOT EXISTS surgeries (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		doctor_id TEXT NOT NULL,
		branch_id TEXT NOT NULL,
		procedure_name TEXT NOT NULL,
		eye TEXT NOT NULL,
		scheduled_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		invoice_number TEXT NOT NULL UNIQUE,
		branch_id TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		status TEXT NOT NULL,
		subtotal REAL NOT NULL,
		discount REAL NOT NULL DEFAULT 0,
		total REAL NOT NULL,
		balance_due REAL NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_items (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id),
		item_type TEXT NOT NULL,
		item_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		quantity REAL NOT NULL,
		unit_price REAL NOT NULL,
		line_total REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id),
		branch_id TEXT NOT NULL,
		amount REAL NOT NULL,
		payment_method TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		received_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_branch ON payments(branch_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS cash_closures (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		closure_date TEXT NOT NULL,
		total_cash REAL NOT NULL DEFAULT 0,
		total_card REAL NOT NULL DEFAULT 0,
		total_transfer REAL NOT NULL DEFAULT 0,
		total_check REAL NOT NULL DEFAULT 0,
		total REAL NOT NULL DEFAULT 0,
		payment_count INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		closed_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (branch_id, closure_date)
	)`,
	`CREATE TABLE IF NOT EXISTS crm_pipeline_stages (
		id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		color TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS crm_leads (
		id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		stage_id TEXT NOT NULL REFERENCES crm_pipeline_stages(id),
		full_name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		bucket TEXT NOT NULL,
		object_path TEXT NOT NULL,
		local_path TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (bucket, object_path)
	)`,
}
