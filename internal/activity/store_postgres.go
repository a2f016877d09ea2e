package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"leanquest/pkg/domain"
	"leanquest/pkg/platform/sentinel"
)

// PostgresStore persists the trail via database/sql. The table has a unique
// primary key on the event id, so a retried append of the same event is a
// no-op rather than a duplicate row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO activity_events (id, user_id, tenant_id, kind, subject, detail, score, xp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.UserID.String(),
		event.TenantID.String(),
		string(event.Kind),
		event.Subject,
		event.Detail,
		event.Score,
		event.XP,
		event.Timestamp,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID) ([]Event, error) {
	query := `
		SELECT id, user_id, tenant_id, kind, subject, detail, score, xp, created_at
		FROM activity_events
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query activity events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                  Event
			rawUser, rawTenant string
			kind               string
			createdAt          time.Time
		)
		if err := rows.Scan(&e.ID, &rawUser, &rawTenant, &kind, &e.Subject, &e.Detail, &e.Score, &e.XP, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity event: %w", err)
		}
		if e.UserID, err = domain.ParseUserID(rawUser); err != nil {
			return nil, err
		}
		if e.TenantID, err = domain.ParseTenantID(rawTenant); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		e.Timestamp = createdAt
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity events: %w", err)
	}
	return out, nil
}
