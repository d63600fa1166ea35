package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is the part of a pool or transaction EnsureSchema needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ErrDuplicateSlots is returned when the active-slot index cannot be built
// because the calendar already holds two active bookings at one start minute.
var ErrDuplicateSlots = errors.New("calendar already has double-booked active slots; resolve them or set UNIQUE_SLOT_INDEX=false")

const slotIndexName = "appointments_active_slot_uq"

type SchemaOptions struct {
	CancelledLabel string
	// SkipSlotIndex leaves out the active-slot unique index. Concurrent
	// bookings of one start minute are then no longer arbitrated by the database.
	SkipSlotIndex bool
}

// SchemaStatements returns the DDL for the calendar and contact tables.
//
// The partial unique index lets the database arbitrate two patients booking
// the same start minute: only rows that still occupy the calendar take part.
// Index predicates cannot take parameters, so the cancelled label is inlined
// as a quoted literal.
func SchemaStatements(opts SchemaOptions) []string {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS appointments (
			id               TEXT PRIMARY KEY,
			area             TEXT        NOT NULL,
			day              CHAR(8)     NOT NULL,
			start_minute     INTEGER     NOT NULL CHECK (start_minute BETWEEN 0 AND 1439),
			duration_minutes INTEGER     NOT NULL CHECK (duration_minutes > 0),
			kind             TEXT        NOT NULL DEFAULT '',
			status           TEXT        NOT NULL,
			reason           TEXT        NOT NULL DEFAULT '',
			patient_id       TEXT        NOT NULL,
			created_by       TEXT        NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted          BOOLEAN     NOT NULL DEFAULT false
		)`,
		`CREATE INDEX IF NOT EXISTS appointments_day_idx ON appointments (area, day)`,
		`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id         TEXT PRIMARY KEY,
			last_name  TEXT    NOT NULL,
			first_name TEXT    NOT NULL,
			birthdate  CHAR(8) NOT NULL,
			email      TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS contacts_lookup_idx ON contacts (birthdate, email)`,
	}
	if opts.SkipSlotIndex {
		return stmts
	}
	return append(stmts, fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s
			ON appointments (area, day, start_minute)
			WHERE NOT deleted AND status <> %s`, slotIndexName, quoteLiteral(opts.CancelledLabel)))
}

func EnsureSchema(ctx context.Context, db Execer, opts SchemaOptions) error {
	for _, stmt := range SchemaStatements(opts) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("ensure schema: %w: %s", ErrDuplicateSlots, pgErr.Detail)
			}
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var _ Execer = (*pgxpool.Pool)(nil)
