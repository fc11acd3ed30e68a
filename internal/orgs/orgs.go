package orgs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrOrgNotFound is returned when an organization is not found.
var ErrOrgNotFound = errors.New("organization not found")

// Subscription statuses mirrored from Stripe's lifecycle.
const (
	SubscriptionNone     = "none"
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Organization is a practice tenant.
type Organization struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	ContactEmail         string    `json:"contact_email"`
	StripeCustomerID     string    `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string    `json:"stripe_subscription_id,omitempty"`
	SubscriptionStatus   string    `json:"subscription_status"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DB is the pgx surface the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists organizations.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("orgs: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db DB) *Repository {
	if db == nil {
		panic("orgs: db required")
	}
	return &Repository{db: db}
}

const orgColumns = `id, name, contact_email, stripe_customer_id, stripe_subscription_id, subscription_status, created_at, updated_at`

// Create inserts a new organization.
func (r *Repository) Create(ctx context.Context, name, contactEmail string) (*Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("orgs: name is required")
	}

	org := &Organization{
		ID:                 uuid.New().String(),
		Name:               name,
		ContactEmail:       contactEmail,
		SubscriptionStatus: SubscriptionNone,
	}
	query := `
		INSERT INTO organizations (id, name, contact_email, subscription_status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query, org.ID, org.Name, org.ContactEmail, org.SubscriptionStatus).
		Scan(&org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, fmt.Errorf("orgs: insert failed: %w", err)
	}
	return org, nil
}

// Get fetches an organization by id.
func (r *Repository) Get(ctx context.Context, id string) (*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetByStripeCustomer resolves an organization from a Stripe customer id.
func (r *Repository) GetByStripeCustomer(ctx context.Context, customerID string) (*Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE stripe_customer_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, customerID))
}

// List returns all organizations by name.
func (r *Repository) List(ctx context.Context) ([]*Organization, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("orgs: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, fmt.Errorf("orgs: scan failed: %w", err)
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// SetStripeIDs records the customer and subscription created for an org.
func (r *Repository) SetStripeIDs(ctx context.Context, orgID, customerID, subscriptionID, status string) error {
	query := `
		UPDATE organizations
		SET stripe_customer_id = $2, stripe_subscription_id = $3, subscription_status = $4, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, orgID, customerID, subscriptionID, status)
	if err != nil {
		return fmt.Errorf("orgs: set stripe ids failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrgNotFound
	}
	return nil
}

// SetSubscriptionStatus updates the lifecycle state by subscription id.
func (r *Repository) SetSubscriptionStatus(ctx context.Context, subscriptionID, status string) error {
	query := `
		UPDATE organizations
		SET subscription_status = $2, updated_at = now()
		WHERE stripe_subscription_id = $1
	`
	tag, err := r.db.Exec(ctx, query, subscriptionID, status)
	if err != nil {
		return fmt.Errorf("orgs: set subscription status failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrgNotFound
	}
	return nil
}

func (r *Repository) scanOne(row pgx.Row) (*Organization, error) {
	org, err := scanOrg(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("orgs: select failed: %w", err)
	}
	return org, nil
}

func scanOrg(row pgx.Row) (*Organization, error) {
	var (
		org      Organization
		customer *string
		sub      *string
	)
	if err := row.Scan(
		&org.ID,
		&org.Name,
		&org.ContactEmail,
		&customer,
		&sub,
		&org.SubscriptionStatus,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if customer != nil {
		org.StripeCustomerID = *customer
	}
	if sub != nil {
		org.StripeSubscriptionID = *sub
	}
	return &org, nil
}
