package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sereno-care/practice-platform/internal/tenancy"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu        sync.Mutex
	notes     map[string]*Note
	templates map[string]*Template
}

func newMemStore() *memStore {
	return &memStore{notes: make(map[string]*Note), templates: make(map[string]*Template)}
}

func (m *memStore) CreateNote(ctx context.Context, note *Note) error {
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
	note.CreatedAt = time.Now().UTC()
	note.UpdatedAt = note.CreatedAt
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *note
	m.notes[note.ID] = &cp
	return nil
}

func (m *memStore) GetNote(ctx context.Context, orgID, id string) (*Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || n.OrgID != orgID {
		return nil, ErrNoteNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memStore) ListNotes(ctx context.Context, orgID, patientID string) ([]*Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Note
	for _, n := range m.notes {
		if n.OrgID != orgID {
			continue
		}
		if patientID != "" && n.PatientID != patientID {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) UpdateNote(ctx context.Context, note *Note) error {
	if !ValidStatus(note.Status) {
		return ErrInvalidStatus
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.notes[note.ID]
	if !ok || existing.OrgID != note.OrgID {
		return ErrNoteNotFound
	}
	existing.Title = note.Title
	existing.Sections = note.Sections
	existing.Status = note.Status
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) DeleteNote(ctx context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok || n.OrgID != orgID {
		return ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *memStore) CreateTemplate(ctx context.Context, tpl *Template) error {
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	tpl.CreatedAt = time.Now().UTC()
	tpl.UpdatedAt = tpl.CreatedAt
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tpl
	m.templates[tpl.ID] = &cp
	return nil
}

func (m *memStore) GetTemplate(ctx context.Context, orgID, id string) (*Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl, ok := m.templates[id]
	if !ok || tpl.OrgID != orgID {
		return nil, ErrTemplateNotFound
	}
	cp := *tpl
	return &cp, nil
}

func (m *memStore) ListTemplates(ctx context.Context, orgID string) ([]*Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Template
	for _, tpl := range m.templates {
		if tpl.OrgID != orgID {
			continue
		}
		cp := *tpl
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) DeleteTemplate(ctx context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl, ok := m.templates[id]
	if !ok || tpl.OrgID != orgID {
		return ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

func orgRequest(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	return req.WithContext(tenancy.WithOrgID(req.Context(), "org-1"))
}

func TestCreateAndGetNote(t *testing.T) {
	handler := NewHandler(newMemStore(), logging.Default())
	router := handler.Routes()

	body, _ := json.Marshal(noteRequest{
		PatientID: "p-1",
		Title:     "Intake session",
		Sections:  []Section{{Name: "subjective", Content: "First visit."}},
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, orgRequest(http.MethodPost, "/", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", w.Code, w.Body.String())
	}
	var created Note
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != StatusDraft {
		t.Errorf("expected default draft status, got %q", created.Status)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, orgRequest(http.MethodGet, "/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Errorf("get status %d", w.Code)
	}
}

func TestCreateNoteMissingPatient(t *testing.T) {
	handler := NewHandler(newMemStore(), logging.Default())

	body, _ := json.Marshal(noteRequest{Title: "No patient"})
	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, orgRequest(http.MethodPost, "/", body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", w.Code)
	}
}

func TestUpdateNoteRejectsBadStatus(t *testing.T) {
	store := newMemStore()
	handler := NewHandler(store, logging.Default())

	note := &Note{OrgID: "org-1", PatientID: "p-1", Title: "Draft"}
	if err := store.CreateNote(context.Background(), note); err != nil {
		t.Fatalf("seed: %v", err)
	}

	body, _ := json.Marshal(noteRequest{Title: "Draft", Status: "archived"})
	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, orgRequest(http.MethodPut, "/"+note.ID, body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", w.Code)
	}
}

func TestTemplateLifecycle(t *testing.T) {
	handler := NewHandler(newMemStore(), logging.Default())
	router := handler.Routes()

	body, _ := json.Marshal(templateRequest{
		Name:     "Brief check-in",
		Sections: []SectionPrompt{{Name: "summary", Prompt: "Summarize the check-in."}},
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, orgRequest(http.MethodPost, "/templates", body))
	if w.Code != http.StatusCreated {
		t.Fatalf("create template status %d: %s", w.Code, w.Body.String())
	}
	var tpl Template
	if err := json.NewDecoder(w.Body).Decode(&tpl); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, orgRequest(http.MethodDelete, "/templates/"+tpl.ID, nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, orgRequest(http.MethodGet, "/templates/"+tpl.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status %d", w.Code)
	}
}

func TestNotesScopedToOrg(t *testing.T) {
	store := newMemStore()
	handler := NewHandler(store, logging.Default())

	other := &Note{OrgID: "org-2", PatientID: "p-9", Title: "Other org"}
	if err := store.CreateNote(context.Background(), other); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, orgRequest(http.MethodGet, "/"+other.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("cross-org read status %d, want 404", w.Code)
	}
}
