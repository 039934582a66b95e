package database

import "fmt"

// schema is the full database schema, applied idempotently at startup.
// Constraint names are part of the contract: the postgres repositories map
// unique violations to domain errors by constraint name.
const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS schools (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name TEXT NOT NULL,
    slug TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT schools_slug_key UNIQUE (slug)
);

CREATE TABLE IF NOT EXISTS admins (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    school_id UUID NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
    email TEXT NOT NULL,
    name TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'ADMIN',
    password_hash TEXT NOT NULL,
    password_salt TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT admins_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS events (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    school_id UUID NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    slug TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'OPEN',
    event_type TEXT NOT NULL DEFAULT 'CAPACITY_BASED',
    capacity INTEGER NOT NULL,
    spots_reserved INTEGER NOT NULL DEFAULT 0,
    max_spots_per_person INTEGER NOT NULL DEFAULT 1,
    payment_required BOOLEAN NOT NULL DEFAULT FALSE,
    payment_timing TEXT NOT NULL DEFAULT 'NONE',
    price_amount BIGINT NOT NULL DEFAULT 0,
    include_processing_fee BOOLEAN NOT NULL DEFAULT FALSE,
    start_at TIMESTAMPTZ NOT NULL,
    location TEXT,
    cancellation_deadline_hours INTEGER NOT NULL DEFAULT 0,
    check_in_token TEXT NOT NULL,
    fields JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT events_school_id_slug_key UNIQUE (school_id, slug),
    CONSTRAINT events_check_in_token_key UNIQUE (check_in_token),
    CONSTRAINT events_capacity_check CHECK (capacity >= 0),
    CONSTRAINT events_spots_reserved_check CHECK (spots_reserved >= 0)
);

CREATE TABLE IF NOT EXISTS registrations (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    status TEXT NOT NULL,
    spots_count INTEGER NOT NULL,
    phone_number TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    data JSONB NOT NULL DEFAULT '{}',
    confirmation_code TEXT NOT NULL,
    cancellation_token TEXT NOT NULL,
    payment_status TEXT NOT NULL DEFAULT 'NONE',
    amount_paid BIGINT NOT NULL DEFAULT 0,
    cancelled_at TIMESTAMPTZ,
    cancellation_reason TEXT,
    cancelled_by TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT registrations_confirmation_code_key UNIQUE (confirmation_code),
    CONSTRAINT registrations_cancellation_token_key UNIQUE (cancellation_token),
    CONSTRAINT registrations_spots_count_check CHECK (spots_count > 0)
);

-- One active registration per phone number per event. Cancelled rows stay
-- behind for history and do not block re-registration.
CREATE UNIQUE INDEX IF NOT EXISTS registrations_event_phone_active_idx
    ON registrations (event_id, phone_number)
    WHERE status <> 'CANCELLED';

CREATE INDEX IF NOT EXISTS registrations_event_id_idx
    ON registrations (event_id);

CREATE TABLE IF NOT EXISTS payments (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    registration_id UUID NOT NULL REFERENCES registrations(id) ON DELETE CASCADE,
    event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    school_id UUID NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
    gateway_order_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PROCESSING',
    amount BIGINT NOT NULL,
    gateway_code INTEGER,
    gateway_transaction_id TEXT,
    gateway_confirm_code TEXT,
    completed_at TIMESTAMPTZ,
    refunded_at TIMESTAMPTZ,
    refund_amount BIGINT,
    refund_reason TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT payments_registration_id_key UNIQUE (registration_id),
    CONSTRAINT payments_gateway_order_id_key UNIQUE (gateway_order_id)
);

CREATE TABLE IF NOT EXISTS check_ins (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    registration_id UUID NOT NULL REFERENCES registrations(id) ON DELETE CASCADE,
    event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    checked_in_by TEXT,
    checked_in_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    undone_at TIMESTAMPTZ,
    undone_by TEXT,
    undone_reason TEXT
);

CREATE INDEX IF NOT EXISTS check_ins_event_id_idx
    ON check_ins (event_id);
`

// Migrate applies the schema. Every statement is idempotent so the call is
// safe on every startup.
func (db *DB) Migrate() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
