package store

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    full_name TEXT NOT NULL DEFAULT '',
    phone TEXT UNIQUE,
    role TEXT NOT NULL CHECK (role IN ('admin', 'doctor', 'customer', 'staff')),
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'suspended')),
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS customers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    date_of_birth DATE,
    gender TEXT,
    blood_group TEXT,
    address TEXT,
    medical_conditions TEXT,
    allergies TEXT,
    medications TEXT,
    insurance_provider TEXT,
    insurance_number TEXT,
    height_cm REAL,
    weight_kg REAL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS doctors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    specialization TEXT,
    license_number TEXT,
    qualification TEXT,
    years_of_experience INTEGER NOT NULL DEFAULT 0,
    available_days TEXT,
    available_hours TEXT,
    bio TEXT,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS appointments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    patient_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    doctor_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
    start_time DATETIME NOT NULL,
    end_time DATETIME NOT NULL,
    service TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'Scheduled',
    notes TEXT,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS ambulance_requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    pickup_address TEXT NOT NULL,
    contact_phone TEXT,
    reason TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_registrations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL,
    email TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('doctor', 'staff')),
    full_name TEXT NOT NULL DEFAULT '',
    phone TEXT,
    specialization TEXT,
    license_number TEXT,
    qualification TEXT,
    years_of_experience INTEGER NOT NULL DEFAULT 0,
    consultation_fee REAL NOT NULL DEFAULT 0,
    available_days TEXT,
    available_hours TEXT,
    department TEXT,
    position TEXT,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    approved_by INTEGER REFERENCES users(id) ON DELETE SET NULL,
    admin_notes TEXT,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_complaints (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    category TEXT NOT NULL DEFAULT 'complaint',
    subject TEXT NOT NULL,
    message TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'open',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS complaint_feedback (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    complaint_id INTEGER NOT NULL REFERENCES feedback_complaints(id) ON DELETE CASCADE,
    responder_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
    message TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pending_registrations_status ON pending_registrations(status);
CREATE INDEX IF NOT EXISTS idx_appointments_start ON appointments(start_time);
`

// columnMigration adds a column that older database files were created without.
type columnMigration struct {
	table  string
	column string
	ddl    string
}

var columnMigrations = []columnMigration{
	{table: "customers", column: "emergency_contact", ddl: "TEXT"},
	{table: "doctors", column: "consultation_fee", ddl: "REAL NOT NULL DEFAULT 0"},
}

// Migrate creates missing tables, applies column migrations and checks that every column
// the row decoders read is present.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, schema); err != nil {
		return wrap("create schema", err)
	}
	for _, m := range columnMigrations {
		if err := s.addColumnIfMissing(ctx, m); err != nil {
			return err
		}
	}
	return s.VerifySchema(ctx)
}

func (s *Store) addColumnIfMissing(ctx context.Context, m columnMigration) error {
	cols, err := s.tableColumns(ctx, m.table)
	if err != nil {
		return err
	}
	if cols[m.column] {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.ddl)
	if _, err := s.q.ExecContext(ctx, stmt); err != nil {
		return wrap("migrate "+m.table+"."+m.column, err)
	}
	return nil
}

func (s *Store) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, wrap("table info", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, wrap("table info", err)
		}
		cols[name] = true
	}
	return cols, wrap("table info", rows.Err())
}

// declaredColumns lists, per table, the columns each typed row decoder reads.
var declaredColumns = map[string][]string{
	"users":                 userColumns,
	"customers":             customerColumns,
	"doctors":               doctorColumns,
	"appointments":          appointmentColumns,
	"ambulance_requests":    ambulanceColumns,
	"pending_registrations": registrationColumns,
	"feedback_complaints":   complaintColumns,
	"complaint_feedback":    complaintFeedbackColumns,
}

// VerifySchema fails if a table lacks a column its decoder expects.
func (s *Store) VerifySchema(ctx context.Context) error {
	for table, want := range declaredColumns {
		have, err := s.tableColumns(ctx, table)
		if err != nil {
			return err
		}
		if len(have) == 0 {
			return fmt.Errorf("schema: table %s is missing", table)
		}
		for _, c := range want {
			if !have[c] {
				return fmt.Errorf("schema: column %s.%s is missing", table, c)
			}
		}
	}
	return nil
}
