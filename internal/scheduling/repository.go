package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the pgx surface the repository needs; satisfied by *pgxpool.Pool
// and by pgxmock pools in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository persists appointments and series.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db DB) *Repository {
	if db == nil {
		panic("scheduling: db required")
	}
	return &Repository{db: db}
}

const appointmentColumns = `id, org_id, patient_id, patient_name, type, status, start_at, end_at, series_id, remaining_sessions, created_at, updated_at`

// CreateAppointment inserts a standalone appointment.
func (r *Repository) CreateAppointment(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (id, org_id, patient_id, patient_name, type, status, start_at, end_at, series_id, remaining_sessions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query,
		appt.ID,
		appt.OrgID,
		appt.PatientID,
		appt.PatientName,
		appt.Type,
		appt.Status,
		appt.Start,
		appt.End,
		appt.SeriesID,
		appt.RemainingSessions,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt); err != nil {
		return fmt.Errorf("scheduling: insert appointment: %w", err)
	}
	return nil
}

// CreateSeries inserts the series record and all its instances in one
// transaction; a partial series is never visible.
func (r *Repository) CreateSeries(ctx context.Context, series Series, instances []Appointment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: begin create series: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertSeries(ctx, tx, series); err != nil {
		return err
	}
	for i := range instances {
		query := `
			INSERT INTO appointments (id, org_id, patient_id, patient_name, type, status, start_at, end_at, series_id, remaining_sessions)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		appt := &instances[i]
		if _, err := tx.Exec(ctx, query,
			appt.ID, appt.OrgID, appt.PatientID, appt.PatientName,
			appt.Type, appt.Status, appt.Start, appt.End,
			appt.SeriesID, appt.RemainingSessions,
		); err != nil {
			return fmt.Errorf("scheduling: insert series instance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: commit create series: %w", err)
	}
	return nil
}

// GetForOrg returns one appointment scoped to the org.
func (r *Repository) GetForOrg(ctx context.Context, orgID, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 AND org_id = $2`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("scheduling: select appointment: %w", err)
	}
	return appt, nil
}

// ListForOrg returns the org's appointments intersecting [from, to),
// ordered by start time. Zero bounds mean unbounded.
func (r *Repository) ListForOrg(ctx context.Context, orgID string, from, to time.Time) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE org_id = $1
		  AND ($2::timestamptz IS NULL OR end_at > $2)
		  AND ($3::timestamptz IS NULL OR start_at < $3)
		ORDER BY start_at, id
	`
	rows, err := r.db.Query(ctx, query, orgID, nullableTime(from), nullableTime(to))
	if err != nil {
		return nil, fmt.Errorf("scheduling: list appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListSeriesMembers returns every instance still pointing at the series.
func (r *Repository) ListSeriesMembers(ctx context.Context, orgID, seriesID string) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE org_id = $1 AND series_id = $2
		ORDER BY remaining_sessions DESC
	`
	rows, err := r.db.Query(ctx, query, orgID, seriesID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list series members: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// UpdateAppointment writes every mutable field, including the series
// linkage (nil detaches).
func (r *Repository) UpdateAppointment(ctx context.Context, appt Appointment) error {
	query := `
		UPDATE appointments
		SET patient_name = $3, type = $4, status = $5, start_at = $6, end_at = $7,
		    series_id = $8, remaining_sessions = $9, updated_at = now()
		WHERE id = $1 AND org_id = $2
	`
	ct, err := r.db.Exec(ctx, query,
		appt.ID, appt.OrgID, appt.PatientName, appt.Type, appt.Status,
		appt.Start, appt.End, appt.SeriesID, appt.RemainingSessions,
	)
	if err != nil {
		return fmt.Errorf("scheduling: update appointment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// ReassignSeriesSuffix creates the new series record and re-points the
// updated instances at it in one transaction.
func (r *Repository) ReassignSeriesSuffix(ctx context.Context, newSeries Series, updated []Appointment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: begin reassign: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertSeries(ctx, tx, newSeries); err != nil {
		return err
	}
	for _, appt := range updated {
		query := `
			UPDATE appointments
			SET patient_name = $3, type = $4, status = $5, start_at = $6, end_at = $7,
			    series_id = $8, remaining_sessions = $9, updated_at = now()
			WHERE id = $1 AND org_id = $2
		`
		ct, err := tx.Exec(ctx, query,
			appt.ID, appt.OrgID, appt.PatientName, appt.Type, appt.Status,
			appt.Start, appt.End, appt.SeriesID, appt.RemainingSessions,
		)
		if err != nil {
			return fmt.Errorf("scheduling: reassign instance %s: %w", appt.ID, err)
		}
		if ct.RowsAffected() == 0 {
			return ErrAppointmentNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: commit reassign: %w", err)
	}
	return nil
}

// Delete removes one appointment. Deleting the last member of a series
// never touches its siblings.
func (r *Repository) Delete(ctx context.Context, orgID, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("scheduling: delete appointment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// GetSeries loads a series record scoped to the org.
func (r *Repository) GetSeries(ctx context.Context, orgID, seriesID string) (*Series, error) {
	query := `
		SELECT id, org_id, patient_id, interval, period, occurrences, base_start, created_at
		FROM series
		WHERE id = $1 AND org_id = $2
	`
	var s Series
	err := r.db.QueryRow(ctx, query, seriesID, orgID).Scan(
		&s.ID, &s.OrgID, &s.PatientID, &s.Interval, &s.Period, &s.Occurrences, &s.BaseStart, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("scheduling: select series: %w", err)
	}
	return &s, nil
}

func insertSeries(ctx context.Context, tx pgx.Tx, series Series) error {
	query := `
		INSERT INTO series (id, org_id, patient_id, interval, period, occurrences, base_start)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.Exec(ctx, query,
		series.ID, series.OrgID, series.PatientID,
		series.Interval, series.Period, series.Occurrences, series.BaseStart,
	); err != nil {
		return fmt.Errorf("scheduling: insert series: %w", err)
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	if err := row.Scan(
		&appt.ID, &appt.OrgID, &appt.PatientID, &appt.PatientName,
		&appt.Type, &appt.Status, &appt.Start, &appt.End,
		&appt.SeriesID, &appt.RemainingSessions,
		&appt.CreatedAt, &appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &appt, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate appointments: %w", err)
	}
	return out, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
