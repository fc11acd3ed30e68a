// Package reporting serves practice-level operational stats: appointment
// volume and no-show rates by day, and note throughput. It reads through
// database/sql so reporting queries can run against a replica with a
// driver-level statement timeout, independent of the main pgx pool.
package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// DayStats captures appointment outcome counts for one calendar day.
type DayStats struct {
	Day       time.Time `json:"-"`
	DayLabel  string    `json:"day"`
	Booked    int64     `json:"booked"`
	Cancelled int64     `json:"cancelled"`
	NoShows   int64     `json:"no_shows"`
}

// NoteCounts captures note throughput for a period.
type NoteCounts struct {
	Drafted   int64 `json:"drafted"`
	Finalized int64 `json:"finalized"`
}

// Repository queries practice stats from the database.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a reporting repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		panic("reporting: sql db is required")
	}
	return &Repository{db: db}
}

// AppointmentsByDay returns per-day outcome counts for appointments starting
// within [start, end). An empty types slice means all appointment types.
func (r *Repository) AppointmentsByDay(ctx context.Context, orgID string, start, end time.Time, types []string) ([]DayStats, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, fmt.Errorf("reporting: org_id required")
	}
	if !end.After(start) {
		return nil, fmt.Errorf("reporting: invalid time range")
	}

	query := `
		SELECT date_trunc('day', start_at) AS day,
		       COUNT(*) FILTER (WHERE status = 'booked') AS booked,
		       COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
		       COUNT(*) FILTER (WHERE status = 'noshow') AS no_shows
		FROM appointments
		WHERE org_id = $1
		  AND start_at >= $2
		  AND start_at < $3
		  AND (cardinality($4::text[]) = 0 OR type = ANY($4))
		GROUP BY day
		ORDER BY day
	`

	if types == nil {
		types = []string{}
	}
	rows, err := r.db.QueryContext(ctx, query, orgID, start, end, pq.Array(types))
	if err != nil {
		return nil, fmt.Errorf("reporting: query appointments: %w", err)
	}
	defer rows.Close()

	var results []DayStats
	for rows.Next() {
		var day time.Time
		var booked, cancelled, noShows int64
		if err := rows.Scan(&day, &booked, &cancelled, &noShows); err != nil {
			return nil, fmt.Errorf("reporting: scan appointments: %w", err)
		}
		results = append(results, DayStats{
			Day:       day.UTC(),
			DayLabel:  day.UTC().Format("2006-01-02"),
			Booked:    booked,
			Cancelled: cancelled,
			NoShows:   noShows,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reporting: iterate appointments: %w", err)
	}
	return results, nil
}

// Notes returns note throughput for notes created within [start, end).
func (r *Repository) Notes(ctx context.Context, orgID string, start, end time.Time) (NoteCounts, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return NoteCounts{}, fmt.Errorf("reporting: org_id required")
	}

	query := `
		SELECT COUNT(*) FILTER (WHERE status = 'draft') AS drafted,
		       COUNT(*) FILTER (WHERE status = 'final') AS finalized
		FROM notes
		WHERE org_id = $1
		  AND created_at >= $2
		  AND created_at < $3
	`

	var counts NoteCounts
	err := r.db.QueryRowContext(ctx, query, orgID, start, end).Scan(&counts.Drafted, &counts.Finalized)
	if err != nil {
		return NoteCounts{}, fmt.Errorf("reporting: query notes: %w", err)
	}
	return counts, nil
}
