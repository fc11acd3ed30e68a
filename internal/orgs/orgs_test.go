package orgs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/sereno-care/practice-platform/pkg/logging"
)

func TestRepositoryGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	customerID := "cus_123"
	rows := pgxmock.NewRows([]string{
		"id", "name", "contact_email", "stripe_customer_id", "stripe_subscription_id",
		"subscription_status", "created_at", "updated_at",
	}).AddRow(
		"org-1", "Cedar Counseling", "hello@cedar.example", &customerID, nil,
		SubscriptionActive, now, now,
	)
	mock.ExpectQuery("SELECT .* FROM organizations WHERE id =").
		WithArgs("org-1").
		WillReturnRows(rows)

	org, err := repo.Get(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if org.Name != "Cedar Counseling" || org.StripeCustomerID != "cus_123" || org.StripeSubscriptionID != "" {
		t.Errorf("unexpected org: %+v", org)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRepositorySetSubscriptionStatusMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)

	mock.ExpectExec("UPDATE organizations").
		WithArgs("sub_missing", SubscriptionCanceled).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.SetSubscriptionStatus(context.Background(), "sub_missing", SubscriptionCanceled)
	if !errors.Is(err, ErrOrgNotFound) {
		t.Fatalf("err = %v, want ErrOrgNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

type fakeStore struct {
	orgs map[string]*Organization
}

func newFakeStore() *fakeStore {
	return &fakeStore{orgs: make(map[string]*Organization)}
}

func (f *fakeStore) Create(_ context.Context, name, contactEmail string) (*Organization, error) {
	org := &Organization{
		ID:                 "org-" + name,
		Name:               name,
		ContactEmail:       contactEmail,
		SubscriptionStatus: SubscriptionNone,
	}
	f.orgs[org.ID] = org
	return org, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return nil, ErrOrgNotFound
	}
	return org, nil
}

func (f *fakeStore) List(_ context.Context) ([]*Organization, error) {
	out := make([]*Organization, 0, len(f.orgs))
	for _, org := range f.orgs {
		out = append(out, org)
	}
	return out, nil
}

func TestHandlerCreateAndGet(t *testing.T) {
	store := newFakeStore()
	h := NewHandler(store, logging.New("error"))
	router := h.Routes()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Cedar Counseling","contact_email":"hello@cedar.example"}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created Organization
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.SubscriptionStatus != SubscriptionNone {
		t.Errorf("subscription_status = %q, want %q", created.SubscriptionStatus, SubscriptionNone)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/"+url.PathEscape(created.ID), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
}

func TestHandlerCreateRequiresName(t *testing.T) {
	h := NewHandler(newFakeStore(), logging.New("error"))
	router := h.Routes()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"contact_email":"a@b.c"}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandlerGetMissing(t *testing.T) {
	h := NewHandler(newFakeStore(), logging.New("error"))
	router := h.Routes()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
