package patients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sereno-care/practice-platform/internal/tenancy"
	"github.com/sereno-care/practice-platform/pkg/logging"
)

func testCtx() context.Context { return context.Background() }

func testRequest(method, path string, body []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	return req.WithContext(tenancy.WithOrgID(req.Context(), "org-1"))
}

func TestCreatePatient_Success(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, logging.Default())

	reqBody := CreatePatientRequest{
		Name:  "Dana Lee",
		Email: "dana@example.com",
		Phone: "+15550100",
	}
	body, _ := json.Marshal(reqBody)
	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, testRequest(http.MethodPost, "/", body))

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}

	var patient Patient
	if err := json.NewDecoder(w.Body).Decode(&patient); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if patient.Name != reqBody.Name {
		t.Errorf("expected name %s, got %s", reqBody.Name, patient.Name)
	}
	if patient.OrgID != "org-1" {
		t.Errorf("expected org-1, got %s", patient.OrgID)
	}
}

func TestCreatePatient_MissingContact(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), logging.Default())

	body, _ := json.Marshal(CreatePatientRequest{Name: "Dana Lee"})
	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, testRequest(http.MethodPost, "/", body))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestListPatients_FiltersAndPagination(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, logging.Default())

	names := []string{"Dana Lee", "Sam Fox", "Danielle Ray"}
	for _, name := range names {
		if _, err := repo.Create(testCtx(), &CreatePatientRequest{OrgID: "org-1", Name: name, Email: name + "@example.com"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := repo.Create(testCtx(), &CreatePatientRequest{OrgID: "org-2", Name: "Other Org", Phone: "+1555"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, testRequest(http.MethodGet, "/?q=dan", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ListPatientsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected 2 matches, got %d", resp.Count)
	}
	for _, p := range resp.Patients {
		if p.OrgID != "org-1" {
			t.Errorf("leaked patient from %s", p.OrgID)
		}
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), logging.Default())

	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, testRequest(http.MethodGet, "/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestUpdatePatient_Archive(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, logging.Default())

	p, err := repo.Create(testCtx(), &CreatePatientRequest{OrgID: "org-1", Name: "Dana Lee", Email: "dana@example.com"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	archived := true
	body, _ := json.Marshal(UpdatePatientRequest{Archived: &archived})
	w := httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, testRequest(http.MethodPatch, "/"+p.ID, body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body %s", w.Code, w.Body.String())
	}

	// Archived patients drop out of the default listing.
	w = httptest.NewRecorder()
	handler.Routes().ServeHTTP(w, testRequest(http.MethodGet, "/", nil))
	var resp ListPatientsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("expected archived patient hidden, got %d", resp.Count)
	}
}
