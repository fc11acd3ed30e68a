package notes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistence surface handlers and the session worker use.
type Store interface {
	CreateNote(ctx context.Context, note *Note) error
	GetNote(ctx context.Context, orgID, id string) (*Note, error)
	ListNotes(ctx context.Context, orgID, patientID string) ([]*Note, error)
	UpdateNote(ctx context.Context, note *Note) error
	DeleteNote(ctx context.Context, orgID, id string) error

	CreateTemplate(ctx context.Context, tpl *Template) error
	GetTemplate(ctx context.Context, orgID, id string) (*Template, error)
	ListTemplates(ctx context.Context, orgID string) ([]*Template, error)
	DeleteTemplate(ctx context.Context, orgID, id string) error
}

// DB is the pgx surface the repository needs; satisfied by *pgxpool.Pool
// and by pgxmock pools in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores notes and templates in Postgres. Section lists are
// kept as jsonb columns.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("notes: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db DB) *Repository {
	if db == nil {
		panic("notes: db required")
	}
	return &Repository{db: db}
}

// CreateNote inserts a note, assigning an id when absent.
func (r *Repository) CreateNote(ctx context.Context, note *Note) error {
	if note.PatientID == "" {
		return ErrMissingPatient
	}
	if note.Status == "" {
		note.Status = StatusDraft
	}
	if !ValidStatus(note.Status) {
		return ErrInvalidStatus
	}
	if note.ID == "" {
		note.ID = uuid.New().String()
	}

	sections, err := json.Marshal(note.Sections)
	if err != nil {
		return fmt.Errorf("notes: marshal sections: %w", err)
	}

	query := `
		INSERT INTO notes (id, org_id, patient_id, appointment_id, title, sections, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query,
		note.ID,
		note.OrgID,
		note.PatientID,
		note.AppointmentID,
		note.Title,
		sections,
		note.Status,
	).Scan(&note.CreatedAt, &note.UpdatedAt); err != nil {
		return fmt.Errorf("notes: insert failed: %w", err)
	}
	return nil
}

// GetNote fetches a note scoped to the org.
func (r *Repository) GetNote(ctx context.Context, orgID, id string) (*Note, error) {
	query := `
		SELECT id, org_id, patient_id, appointment_id, title, sections, status, created_at, updated_at
		FROM notes
		WHERE id = $1 AND org_id = $2
	`
	note, err := scanNote(r.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("notes: select failed: %w", err)
	}
	return note, nil
}

// ListNotes returns notes for the org, newest first. patientID narrows
// the result when non-empty.
func (r *Repository) ListNotes(ctx context.Context, orgID, patientID string) ([]*Note, error) {
	query := `
		SELECT id, org_id, patient_id, appointment_id, title, sections, status, created_at, updated_at
		FROM notes
		WHERE org_id = $1 AND ($2 = '' OR patient_id = $2)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, orgID, patientID)
	if err != nil {
		return nil, fmt.Errorf("notes: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("notes: scan failed: %w", err)
		}
		out = append(out, note)
	}
	return out, rows.Err()
}

// UpdateNote rewrites title, sections, and status.
func (r *Repository) UpdateNote(ctx context.Context, note *Note) error {
	if !ValidStatus(note.Status) {
		return ErrInvalidStatus
	}
	sections, err := json.Marshal(note.Sections)
	if err != nil {
		return fmt.Errorf("notes: marshal sections: %w", err)
	}

	query := `
		UPDATE notes
		SET title = $3, sections = $4, status = $5, updated_at = now()
		WHERE id = $1 AND org_id = $2
		RETURNING updated_at
	`
	if err := r.db.QueryRow(ctx, query, note.ID, note.OrgID, note.Title, sections, note.Status).Scan(&note.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return ErrNoteNotFound
		}
		return fmt.Errorf("notes: update failed: %w", err)
	}
	return nil
}

// DeleteNote removes a note.
func (r *Repository) DeleteNote(ctx context.Context, orgID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("notes: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// CreateTemplate inserts a template, assigning an id when absent.
func (r *Repository) CreateTemplate(ctx context.Context, tpl *Template) error {
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	sections, err := json.Marshal(tpl.Sections)
	if err != nil {
		return fmt.Errorf("notes: marshal template sections: %w", err)
	}

	query := `
		INSERT INTO note_templates (id, org_id, name, sections)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query, tpl.ID, tpl.OrgID, tpl.Name, sections).Scan(&tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		return fmt.Errorf("notes: template insert failed: %w", err)
	}
	return nil
}

// GetTemplate fetches a template scoped to the org.
func (r *Repository) GetTemplate(ctx context.Context, orgID, id string) (*Template, error) {
	query := `
		SELECT id, org_id, name, sections, created_at, updated_at
		FROM note_templates
		WHERE id = $1 AND org_id = $2
	`
	tpl, err := scanTemplate(r.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("notes: template select failed: %w", err)
	}
	return tpl, nil
}

// ListTemplates returns the org's templates by name.
func (r *Repository) ListTemplates(ctx context.Context, orgID string) ([]*Template, error) {
	query := `
		SELECT id, org_id, name, sections, created_at, updated_at
		FROM note_templates
		WHERE org_id = $1
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("notes: template list failed: %w", err)
	}
	defer rows.Close()

	var out []*Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("notes: template scan failed: %w", err)
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

// DeleteTemplate removes a template.
func (r *Repository) DeleteTemplate(ctx context.Context, orgID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM note_templates WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("notes: template delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func scanNote(row pgx.Row) (*Note, error) {
	var (
		note Note
		raw  []byte
	)
	if err := row.Scan(
		&note.ID,
		&note.OrgID,
		&note.PatientID,
		&note.AppointmentID,
		&note.Title,
		&raw,
		&note.Status,
		&note.CreatedAt,
		&note.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &note.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
	}
	return &note, nil
}

func scanTemplate(row pgx.Row) (*Template, error) {
	var (
		tpl Template
		raw []byte
	)
	if err := row.Scan(
		&tpl.ID,
		&tpl.OrgID,
		&tpl.Name,
		&raw,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tpl.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal template sections: %w", err)
		}
	}
	return &tpl, nil
}
