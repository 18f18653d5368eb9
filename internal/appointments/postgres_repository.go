package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the postgres error code raised by the partial unique
// index on confirmed start instants. It is the real arbiter of a race
// between two concurrent bookings for the same slot.
const uniqueViolation = "23505"

const appointmentColumns = `id, subject_id, start_at, end_at, status, consultation_kind, notes, external_event_id, created_at, updated_at`

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(q querier) *PostgresRepository {
	if q == nil {
		panic("appointments: exec required")
	}
	return &PostgresRepository{pool: q}
}

// Create inserts a confirmed appointment. A unique violation on the
// confirmed-start index is translated to ConflictError.
func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	query := `
		INSERT INTO appointments (id, subject_id, start_at, end_at, status, consultation_kind, notes, external_event_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		appt.ID,
		appt.SubjectID,
		appt.StartAt,
		appt.EndAt,
		appt.Status,
		appt.ConsultationKind,
		appt.Notes,
		appt.ExternalEventID,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &ConflictError{Source: "local", StartAt: appt.StartAt}
		}
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

// GetForSubject fetches an appointment scoped to its owner.
func (r *PostgresRepository) GetForSubject(ctx context.Context, id, subjectID string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND subject_id = $2`
	row := r.pool.QueryRow(ctx, query, id, subjectID)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return appt, nil
}

// FindConfirmedAt returns the confirmed appointment at the exact start
// instant, or nil. Local conflicts use exact-match semantics; external
// events use interval overlap.
func (r *PostgresRepository) FindConfirmedAt(ctx context.Context, startAt time.Time) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE start_at = $1 AND status = $2`
	row := r.pool.QueryRow(ctx, query, startAt, StatusConfirmed)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: conflict check failed: %w", err)
	}
	return appt, nil
}

// ConfirmedBetween lists confirmed appointments with start_at in [from, to].
func (r *PostgresRepository) ConfirmedBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE start_at >= $1 AND start_at <= $2 AND status = $3
		ORDER BY start_at
	`
	return r.list(ctx, query, from, to, StatusConfirmed)
}

// ConfirmedFrom lists confirmed appointments with start_at >= from.
func (r *PostgresRepository) ConfirmedFrom(ctx context.Context, from time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE start_at >= $1 AND status = $2
		ORDER BY start_at
	`
	return r.list(ctx, query, from, StatusConfirmed)
}

// Cancel transitions an appointment to cancelled.
func (r *PostgresRepository) Cancel(ctx context.Context, id string) error {
	query := `UPDATE appointments SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	ct, err := r.pool.Exec(ctx, query, StatusCancelled, id)
	if err != nil {
		return fmt.Errorf("appointments: cancel failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteExpired lazily promotes confirmed appointments whose end has
// passed. Runs on the read path; Completed is eventually accurate.
func (r *PostgresRepository) CompleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE end_at <= $2 AND status = $3
	`
	ct, err := r.pool.Exec(ctx, query, StatusCompleted, now, StatusConfirmed)
	if err != nil {
		return 0, fmt.Errorf("appointments: complete expired failed: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

// ListBySubject returns all of a subject's appointments, newest first.
func (r *PostgresRepository) ListBySubject(ctx context.Context, subjectID string) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE subject_id = $1
		ORDER BY start_at DESC, created_at DESC
	`
	return r.list(ctx, query, subjectID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: query failed: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows failed: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	if err := row.Scan(
		&appt.ID,
		&appt.SubjectID,
		&appt.StartAt,
		&appt.EndAt,
		&appt.Status,
		&appt.ConsultationKind,
		&appt.Notes,
		&appt.ExternalEventID,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &appt, nil
}
