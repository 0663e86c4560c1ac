package pgstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/pg"
	"github.com/dmitrymomot/talktime/pkg/usage"
)

const countSectionSessions = `
SELECT sessions
FROM roleplay_section_usage
WHERE user_id = $1 AND section = $2 AND usage_date = $3::date`

const incrementSectionSessions = `
INSERT INTO roleplay_section_usage (user_id, section, usage_date, sessions, updated_at)
VALUES ($1, $2, $3::date, 1, now())
ON CONFLICT (user_id, section, usage_date) DO UPDATE SET
	sessions   = roleplay_section_usage.sessions + 1,
	updated_at = EXCLUDED.updated_at
RETURNING sessions`

// Sections implements section.Store.
type Sections struct {
	db DBTX
}

// NewSections returns a section.Store over db.
func NewSections(db DBTX) *Sections {
	return &Sections{db: db}
}

// Count returns zero when the counter row does not exist.
func (s *Sections) Count(ctx context.Context, userID uuid.UUID, section string, day usage.Day) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, countSectionSessions, userID, section, day.String()).Scan(&n)
	if pg.IsNotFoundError(err) {
		return 0, nil
	}
	return n, err
}

// Increment upserts the counter and returns the new value.
func (s *Sections) Increment(ctx context.Context, userID uuid.UUID, section string, day usage.Day) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, incrementSectionSessions, userID, section, day.String()).Scan(&n)
	return n, err
}
