package patients

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for patient storage
type Repository interface {
	Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error)
	GetByID(ctx context.Context, orgID, id string) (*Patient, error)
	ListByOrg(ctx context.Context, orgID string, filter ListFilter) ([]*Patient, error)
	Update(ctx context.Context, orgID, id string, req *UpdatePatientRequest) (*Patient, error)
}

// InMemoryRepository is a stub implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[string]*Patient
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		patients: make(map[string]*Patient),
	}
}

// Create creates a new patient in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreatePatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Patient{
		ID:          uuid.New().String(),
		OrgID:       req.OrgID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Pronouns:    req.Pronouns,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.patients[p.ID] = p
	r.mu.Unlock()

	return p, nil
}

// GetByID retrieves a patient by ID scoped to the org
func (r *InMemoryRepository) GetByID(ctx context.Context, orgID, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok || p.OrgID != orgID {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

// ListByOrg returns the org's patients, newest first.
func (r *InMemoryRepository) ListByOrg(ctx context.Context, orgID string, filter ListFilter) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(filter.Query)
	var out []*Patient
	for _, p := range r.patients {
		if p.OrgID != orgID {
			continue
		}
		if p.Archived && !filter.IncludeArchived {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Email), q) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Update applies a partial update in memory.
func (r *InMemoryRepository) Update(ctx context.Context, orgID, id string, req *UpdatePatientRequest) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok || p.OrgID != orgID {
		return nil, ErrPatientNotFound
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		p.DateOfBirth = req.DateOfBirth
	}
	if req.Pronouns != nil {
		p.Pronouns = *req.Pronouns
	}
	if req.Archived != nil {
		p.Archived = *req.Archived
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}
