package patients

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO patients (id, org_id, name, email, phone, date_of_birth, pronouns)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.OrgID,
		req.Name,
		req.Email,
		req.Phone,
		req.DateOfBirth,
		req.Pronouns,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("patients: insert failed: %w", err)
	}

	return &Patient{
		ID:          id.String(),
		OrgID:       req.OrgID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Pronouns:    req.Pronouns,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// GetByID fetches a patient scoped to the org.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID, id string) (*Patient, error) {
	query := `
		SELECT id, org_id, name, email, phone, date_of_birth, pronouns, archived, created_at, updated_at
		FROM patients
		WHERE id = $1 AND org_id = $2
	`
	p, err := scanPatient(r.pool.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return p, nil
}

// ListByOrg returns the org's patients, newest first. Query matches
// name or email case-insensitively.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string, filter ListFilter) ([]*Patient, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, org_id, name, email, phone, date_of_birth, pronouns, archived, created_at, updated_at
		FROM patients
		WHERE org_id = $1
		  AND (archived = false OR $2)
		  AND ($3 = '' OR name ILIKE '%' || $3 || '%' OR email ILIKE '%' || $3 || '%')
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query, orgID, filter.IncludeArchived, filter.Query, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update applies a partial update and returns the fresh row.
func (r *PostgresRepository) Update(ctx context.Context, orgID, id string, req *UpdatePatientRequest) (*Patient, error) {
	query := `
		UPDATE patients SET
			name = COALESCE($3, name),
			email = COALESCE($4, email),
			phone = COALESCE($5, phone),
			date_of_birth = COALESCE($6, date_of_birth),
			pronouns = COALESCE($7, pronouns),
			archived = COALESCE($8, archived),
			updated_at = now()
		WHERE id = $1 AND org_id = $2
		RETURNING id, org_id, name, email, phone, date_of_birth, pronouns, archived, created_at, updated_at
	`
	p, err := scanPatient(r.pool.QueryRow(ctx, query, id, orgID,
		req.Name, req.Email, req.Phone, req.DateOfBirth, req.Pronouns, req.Archived))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: update failed: %w", err)
	}
	return p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(
		&p.ID,
		&p.OrgID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.DateOfBirth,
		&p.Pronouns,
		&p.Archived,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
