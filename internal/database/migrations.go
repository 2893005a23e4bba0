package database

import (
	"context"
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations(ctx context.Context) error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createPersonsTable,
		createUnitsTable,
		createEventTypesTable,
		createEventsTable,
		createSchedulesTable,
		createSchedulesIndexes,
		createOTPCodesTable,
		createPaymentsTable,
		relaxPaymentsForeignKeys,
		createTransactionsTable,
		createRegistrationsTable,
		createHistoryLogsTable,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createPersonsTable = `
CREATE TABLE IF NOT EXISTS persons (
    id BIGSERIAL PRIMARY KEY,
    full_name VARCHAR(255) NOT NULL DEFAULT '',
    email VARCHAR(255) UNIQUE NOT NULL,
    phone VARCHAR(32),
    password_hash VARCHAR(255),
    status VARCHAR(16) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
    role VARCHAR(16) NOT NULL DEFAULT 'client' CHECK (role IN ('admin', 'client')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createUnitsTable = `
CREATE TABLE IF NOT EXISTS units (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL
);`

const createEventTypesTable = `
CREATE TABLE IF NOT EXISTS event_types (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    slug VARCHAR(255) UNIQUE NOT NULL
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
    slug VARCHAR(255) UNIQUE NOT NULL
);`

const createSchedulesTable = `
CREATE TABLE IF NOT EXISTS schedules (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id),
    unit_id BIGINT NOT NULL REFERENCES units(id),
    event_type_id BIGINT NOT NULL REFERENCES event_types(id),
    scheduled_at TIMESTAMPTZ NOT NULL,
    vacancies INTEGER NOT NULL CHECK (vacancies >= 0),
    status VARCHAR(16) NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'unavailable')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createSchedulesIndexes = `
CREATE INDEX IF NOT EXISTS idx_schedules_status_scheduled_at ON schedules(status, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_schedules_event_id ON schedules(event_id);`

const createOTPCodesTable = `
CREATE TABLE IF NOT EXISTS otp_codes (
    id BIGSERIAL PRIMARY KEY,
    email VARCHAR(255) NOT NULL,
    phone VARCHAR(32),
    code CHAR(6) NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'validated', 'superseded', 'expired')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    validated_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_otp_codes_pending_email ON otp_codes(email) WHERE status = 'pending';`

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    id BIGSERIAL PRIMARY KEY,
    provider_payment_id VARCHAR(64) UNIQUE,
    external_reference VARCHAR(128) NOT NULL,
    preference_id VARCHAR(128),
    person_id BIGINT REFERENCES persons(id) ON DELETE SET NULL,
    schedule_id BIGINT REFERENCES schedules(id) ON DELETE SET NULL,
    payer_email VARCHAR(255) NOT NULL DEFAULT '',
    amount_cents BIGINT NOT NULL DEFAULT 0,
    currency VARCHAR(8) NOT NULL DEFAULT 'BRL',
    status VARCHAR(16) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    provider_status VARCHAR(32) NOT NULL DEFAULT '',
    approved_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_payments_payer_email ON payments(payer_email);
CREATE INDEX IF NOT EXISTS idx_payments_external_reference ON payments(external_reference);`

// Брошенные checkout-интенты не блокируют удаление расписаний и персон.
const relaxPaymentsForeignKeys = `
ALTER TABLE payments DROP CONSTRAINT IF EXISTS payments_person_id_fkey;
ALTER TABLE payments ADD CONSTRAINT payments_person_id_fkey
    FOREIGN KEY (person_id) REFERENCES persons(id) ON DELETE SET NULL;
ALTER TABLE payments DROP CONSTRAINT IF EXISTS payments_schedule_id_fkey;
ALTER TABLE payments ADD CONSTRAINT payments_schedule_id_fkey
    FOREIGN KEY (schedule_id) REFERENCES schedules(id) ON DELETE SET NULL;`

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    payment_id VARCHAR(64) UNIQUE,
    person_id BIGINT NOT NULL REFERENCES persons(id),
    schedule_id BIGINT NOT NULL REFERENCES schedules(id),
    payer_email VARCHAR(255) NOT NULL,
    amount_cents BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createRegistrationsTable = `
CREATE TABLE IF NOT EXISTS registrations (
    id BIGSERIAL PRIMARY KEY,
    person_id BIGINT NOT NULL REFERENCES persons(id),
    schedule_id BIGINT NOT NULL REFERENCES schedules(id) ON DELETE RESTRICT,
    payment_id VARCHAR(64),
    transaction_id BIGINT REFERENCES transactions(id),
    status VARCHAR(16) NOT NULL DEFAULT 'confirmed' CHECK (status IN ('pending', 'confirmed')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (person_id, schedule_id)
);
CREATE INDEX IF NOT EXISTS idx_registrations_payment_id ON registrations(payment_id);`

const createHistoryLogsTable = `
CREATE TABLE IF NOT EXISTS history_logs (
    id BIGSERIAL PRIMARY KEY,
    transaction_id BIGINT,
    payment_id VARCHAR(64),
    action VARCHAR(64) NOT NULL,
    details JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`
