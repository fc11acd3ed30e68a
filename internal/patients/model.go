package patients

import (
	"strings"
	"time"
)

// Patient is a client record in the practice roster. DateOfBirth is
// optional and stored as a bare calendar date.
type Patient struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Pronouns    string     `json:"pronouns,omitempty"`
	Archived    bool       `json:"archived"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreatePatientRequest represents the request body for creating a patient
type CreatePatientRequest struct {
	OrgID       string     `json:"-"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Pronouns    string     `json:"pronouns,omitempty"`
}

// Validate validates the create patient request
func (r *CreatePatientRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if r.Email == "" && r.Phone == "" {
		return ErrMissingContact
	}
	return nil
}

// UpdatePatientRequest carries a partial update. Nil fields are left
// unchanged.
type UpdatePatientRequest struct {
	Name        *string    `json:"name,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Pronouns    *string    `json:"pronouns,omitempty"`
	Archived    *bool      `json:"archived,omitempty"`
}

// ListFilter narrows ListByOrg results.
type ListFilter struct {
	Query           string
	IncludeArchived bool
	Limit           int
	Offset          int
}
