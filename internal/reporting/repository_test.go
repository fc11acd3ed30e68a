package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestAppointmentsByDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"day", "booked", "cancelled", "no_shows"}).
		AddRow(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), int64(4), int64(1), int64(1)).
		AddRow(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), int64(2), int64(0), int64(0))

	mock.ExpectQuery("FROM appointments").
		WithArgs("org-1", start, end, sqlmock.AnyArg()).
		WillReturnRows(rows)

	repo := NewRepository(db)
	stats, err := repo.AppointmentsByDay(context.Background(), "org-1", start, end, nil)
	if err != nil {
		t.Fatalf("AppointmentsByDay: %v", err)
	}

	if len(stats) != 2 {
		t.Fatalf("stats length = %d, want 2", len(stats))
	}
	if stats[0].DayLabel != "2024-06-03" || stats[0].Booked != 4 || stats[0].NoShows != 1 {
		t.Fatalf("unexpected first day: %#v", stats[0])
	}
	if stats[1].DayLabel != "2024-06-05" || stats[1].Booked != 2 {
		t.Fatalf("unexpected second day: %#v", stats[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppointmentsByDay_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewRepository(db)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, err := repo.AppointmentsByDay(context.Background(), "", start, start.AddDate(0, 0, 7), nil); err == nil {
		t.Fatal("expected error for missing org id")
	}
	if _, err := repo.AppointmentsByDay(context.Background(), "org-1", start, start, nil); err == nil {
		t.Fatal("expected error for empty time range")
	}
}

func TestNotes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM notes").
		WithArgs("org-1", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"drafted", "finalized"}).AddRow(int64(7), int64(5)))

	repo := NewRepository(db)
	counts, err := repo.Notes(context.Background(), "org-1", start, end)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}

	if counts.Drafted != 7 || counts.Finalized != 5 {
		t.Fatalf("counts = %#v, want drafted=7 finalized=5", counts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
