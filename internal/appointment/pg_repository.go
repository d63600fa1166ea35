package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/practice-booking/internal/slots"
)

const uniqueViolation = "23505"

// PgOptions binds the repository to one calendar area and to the status
// labels the practice software uses.
type PgOptions struct {
	Area            string
	CreatedStatus   string
	CancelledStatus string
}

type PgRepository struct {
	pool *pgxpool.Pool
	opts PgOptions
}

func NewPgRepository(pool *pgxpool.Pool, opts PgOptions) *PgRepository {
	return &PgRepository{pool: pool, opts: opts}
}

// Helpers

const appointmentColumns = `id, patient_id, day, start_minute, duration_minutes, kind, status, reason, created_by, created_at, deleted`

func (r *PgRepository) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var day, label string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&day,
		&a.StartMinute,
		&a.DurationMinutes,
		&a.Kind,
		&label,
		&a.Reason,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.Deleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if a.Day, err = DecodeDay(day); err != nil {
		return nil, err
	}
	a.Status = r.statusFromLabel(label)
	return &a, nil
}

func scanContact(row pgx.Row) (*Contact, error) {
	var c Contact
	var birthdate string

	err := row.Scan(&c.ID, &c.LastName, &c.FirstName, &birthdate, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}

	if c.Birthdate, err = DecodeDay(birthdate); err != nil {
		return nil, err
	}
	return &c, nil
}

// Rows written by the practice software may carry labels other than ours;
// anything that is not the cancelled label still occupies the calendar.
func (r *PgRepository) statusFromLabel(label string) Status {
	if label == r.opts.CancelledStatus {
		return StatusCancelled
	}
	return StatusScheduled
}

func (r *PgRepository) labelFor(s Status) string {
	if s == StatusCancelled {
		return r.opts.CancelledStatus
	}
	return r.opts.CreatedStatus
}

// Interface methods

func (r *PgRepository) FetchOccupied(ctx context.Context, day time.Time) ([]slots.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_minute, duration_minutes
		FROM appointments
		WHERE day = $1
		  AND area = $2
		  AND NOT deleted
		  AND status <> $3
	`, EncodeDay(day), r.opts.Area, r.opts.CancelledStatus)
	if err != nil {
		return nil, fmt.Errorf("query occupied intervals: %w", err)
	}
	defer rows.Close()

	var result []slots.Interval
	for rows.Next() {
		var iv slots.Interval
		if err := rows.Scan(&iv.StartMinute, &iv.DurationMinutes); err != nil {
			return nil, err
		}
		result = append(result, iv)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, area, day, start_minute, duration_minutes, kind, status, reason, patient_id, created_by, created_at, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false)
		RETURNING `+appointmentColumns,
		a.ID, r.opts.Area, EncodeDay(a.Day), a.StartMinute, a.DurationMinutes, a.Kind,
		r.labelFor(a.Status), a.Reason, a.PatientID, a.CreatedBy, a.CreatedAt)

	stored, err := r.scanAppointment(row)
	if err != nil {
		return nil, insertError(err)
	}
	return stored, nil
}

// insertError reports a clash on the active-slot unique index as ErrSlotTaken.
func insertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSlotTaken
	}
	return err
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id, patientID string, status Status) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $3
		WHERE id = $1
		  AND patient_id = $2
		  AND NOT deleted
	`, id, patientID, r.labelFor(status))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) FetchByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		  AND NOT deleted
		  AND status <> $2
		ORDER BY day DESC, start_minute DESC
	`, patientID, r.opts.CancelledStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return r.scanAppointment(row)
}

func (r *PgRepository) FetchContactByBirthdateAndEmail(ctx context.Context, birthdate time.Time, email string) (*Contact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, last_name, first_name, birthdate, email
		FROM contacts
		WHERE birthdate = $1 AND email = $2
		LIMIT 1
	`, EncodeDay(birthdate), email)
	return scanContact(row)
}

func (r *PgRepository) GetContact(ctx context.Context, id string) (*Contact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, last_name, first_name, birthdate, email
		FROM contacts
		WHERE id = $1
	`, id)
	return scanContact(row)
}

func (r *PgRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
