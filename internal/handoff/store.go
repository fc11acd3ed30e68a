// Package handoff passes a selected calendar date from the week view to the
// scheduling dialog through a short-lived, read-once Redis key. The date is
// consumed on first read so a stale selection never leaks into a later dialog.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoDate is returned when no date is pending for the org.
var ErrNoDate = errors.New("handoff: no pending date")

// DefaultTTL bounds how long a stashed date stays readable.
const DefaultTTL = 5 * time.Minute

const dateLayout = "2006-01-02"

// Store stashes one pending ISO date per org.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a handoff store. A zero ttl falls back to DefaultTTL.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		panic("handoff: redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: redisClient, ttl: ttl}
}

func (s *Store) key(orgID string) string {
	return "handoff:date:" + orgID
}

// Put stashes the date for the org, replacing any pending value.
func (s *Store) Put(ctx context.Context, orgID string, date time.Time) error {
	if orgID == "" {
		return fmt.Errorf("handoff: org id is required")
	}
	value := date.Format(dateLayout)
	if err := s.redis.Set(ctx, s.key(orgID), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("handoff: stash date: %w", err)
	}
	return nil
}

// Take reads and deletes the pending date in one round trip. A second Take
// without an intervening Put returns ErrNoDate.
func (s *Store) Take(ctx context.Context, orgID string) (time.Time, error) {
	value, err := s.redis.GetDel(ctx, s.key(orgID)).Result()
	if err == redis.Nil {
		return time.Time{}, ErrNoDate
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("handoff: take date: %w", err)
	}
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("handoff: corrupt stored date %q: %w", value, err)
	}
	return date, nil
}
