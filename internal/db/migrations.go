package db

import (
	"fmt"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Clients
CREATE TABLE clients (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    email TEXT,
    phone TEXT,
    notes TEXT,
    is_archived INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Practice areas and activity types (firm-level lookups)
CREATE TABLE practice_areas (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE activity_types (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

-- Matters
CREATE TABLE matters (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    client_id INTEGER NOT NULL REFERENCES clients(id),
    name TEXT NOT NULL,
    number TEXT,
    practice_area_id INTEGER REFERENCES practice_areas(id),
    status TEXT NOT NULL DEFAULT 'open',
    notes TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Layered rate catalog
CREATE TABLE rate_definitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    rate_type TEXT NOT NULL DEFAULT 'hourly',
    amount REAL NOT NULL DEFAULT 0,
    client_id INTEGER REFERENCES clients(id),
    matter_id INTEGER REFERENCES matters(id),
    practice_area_id INTEGER REFERENCES practice_areas(id),
    activity_type_id INTEGER REFERENCES activity_types(id),
    is_default INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Per-matter rounding policy overrides (firm-wide policy lives in config)
CREATE TABLE matter_rounding_policies (
    matter_id INTEGER PRIMARY KEY REFERENCES matters(id),
    increment_minutes INTEGER NOT NULL,
    method TEXT NOT NULL
);

-- Time entries with invoice locking
CREATE TABLE time_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    client_id INTEGER NOT NULL REFERENCES clients(id),
    matter_id INTEGER NOT NULL REFERENCES matters(id),
    description TEXT,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    raw_seconds INTEGER NOT NULL DEFAULT 0,
    billed_minutes INTEGER NOT NULL DEFAULT 0,
    hourly_rate REAL NOT NULL,
    rate_type TEXT NOT NULL DEFAULT 'hourly',
    rate_overridden INTEGER NOT NULL DEFAULT 0,
    billable_type TEXT NOT NULL DEFAULT 'billable',
    practice_area_id INTEGER REFERENCES practice_areas(id),
    activity_type_id INTEGER REFERENCES activity_types(id),
    is_deleted INTEGER NOT NULL DEFAULT 0,
    invoice_id INTEGER REFERENCES invoices(id),
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Audit trail for entry edits
CREATE TABLE entry_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id INTEGER NOT NULL REFERENCES time_entries(id),
    field_name TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    change_reason TEXT,
    changed_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Invoices (money figures stored as decimal strings)
CREATE TABLE invoices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    invoice_number TEXT NOT NULL UNIQUE,
    client_id INTEGER NOT NULL REFERENCES clients(id),
    period_start TEXT NOT NULL,
    period_end TEXT NOT NULL,
    tax_rate_percent REAL NOT NULL DEFAULT 0,
    discount_amount REAL NOT NULL DEFAULT 0,
    discount_type TEXT NOT NULL DEFAULT 'fixed',
    subtotal TEXT NOT NULL DEFAULT '0',
    discount_value TEXT NOT NULL DEFAULT '0',
    tax_value TEXT NOT NULL DEFAULT '0',
    total TEXT NOT NULL DEFAULT '0',
    balance_due TEXT NOT NULL DEFAULT '0',
    status TEXT NOT NULL DEFAULT 'draft',
    due_date TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Invoice line items
CREATE TABLE invoice_line_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    invoice_id INTEGER NOT NULL REFERENCES invoices(id),
    entry_id INTEGER NOT NULL REFERENCES time_entries(id),
    date TEXT NOT NULL,
    description TEXT NOT NULL,
    minutes INTEGER NOT NULL,
    rate REAL NOT NULL,
    amount TEXT NOT NULL
);

-- Payments applied against invoices
CREATE TABLE payments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    invoice_id INTEGER NOT NULL REFERENCES invoices(id),
    amount TEXT NOT NULL,
    payment_date TEXT NOT NULL,
    method TEXT,
    reference_number TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Active timer (singleton for crash recovery)
CREATE TABLE active_timer (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    client_id INTEGER NOT NULL DEFAULT 0,
    matter_id INTEGER NOT NULL DEFAULT 0,
    description TEXT,
    practice_area_id INTEGER,
    activity_type_id INTEGER,
    start_time TEXT NOT NULL,
    paused_at TEXT,
    total_paused_seconds INTEGER NOT NULL DEFAULT 0,
    last_activity_at TEXT NOT NULL,
    idle_since TEXT,
    rate_state TEXT NOT NULL DEFAULT 'resolved',
    prior_rate_state TEXT NOT NULL DEFAULT 'resolved',
    rate REAL NOT NULL DEFAULT 0,
    pending_rate REAL NOT NULL DEFAULT 0
);

-- Indexes
CREATE INDEX idx_matters_client ON matters(client_id);
CREATE INDEX idx_rates_scope ON rate_definitions(client_id, matter_id, practice_area_id, activity_type_id);
CREATE INDEX idx_entries_client ON time_entries(client_id);
CREATE INDEX idx_entries_matter ON time_entries(matter_id);
CREATE INDEX idx_entries_start ON time_entries(start_time);
CREATE INDEX idx_entries_unbilled ON time_entries(client_id, invoice_id) WHERE invoice_id IS NULL;
CREATE INDEX idx_invoices_status ON invoices(status);
CREATE INDEX idx_payments_invoice ON payments(invoice_id);
`,
	},
}

// RunMigrations applies all pending database migrations
func (db *DB) RunMigrations() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		if _, err := tx.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	return nil
}
