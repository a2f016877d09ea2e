package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"leanquest/internal/achievement"
	"leanquest/internal/player"
	"leanquest/pkg/domain"
	"leanquest/pkg/platform/sentinel"
)

// PostgresStore persists players in Postgres. The owned collections
// (achievements, activity log, category counters) are JSONB columns: they are
// always read and written with the aggregate, never queried independently.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed player store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const playerColumns = `
	id, email, username, role, tenant_id,
	level, current_xp, total_xp, next_level_xp,
	games_completed, total_score,
	category_completed, achievements, recent_activity,
	password_hash, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *player.Player) error {
	categories, achievements, activity, err := marshalOwned(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO players (` + playerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = s.pool.Exec(ctx, query,
		p.ID.String(), strings.ToLower(p.Email), p.Username, string(p.Role), p.TenantID.String(),
		p.Level, p.CurrentXP, p.TotalXP, p.NextLevelXP,
		p.GamesCompleted, p.TotalScore,
		categories, achievements, activity,
		p.PasswordHash, p.CreatedAt, p.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.UserID) (*player.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, id.String()))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*player.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE email = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, strings.ToLower(email)))
}

func (s *PostgresStore) Update(ctx context.Context, p *player.Player) error {
	categories, achievements, activity, err := marshalOwned(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE players SET
			level = $2, current_xp = $3, total_xp = $4, next_level_xp = $5,
			games_completed = $6, total_score = $7,
			category_completed = $8, achievements = $9, recent_activity = $10,
			updated_at = $11
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		p.ID.String(),
		p.Level, p.CurrentXP, p.TotalXP, p.NextLevelXP,
		p.GamesCompleted, p.TotalScore,
		categories, achievements, activity,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scanOne(row pgx.Row) (*player.Player, error) {
	var (
		p          player.Player
		idStr      string
		tenantStr  string
		roleStr    string
		categories []byte
		unlocked   []byte
		activity   []byte
	)
	err := row.Scan(
		&idStr, &p.Email, &p.Username, &roleStr, &tenantStr,
		&p.Level, &p.CurrentXP, &p.TotalXP, &p.NextLevelXP,
		&p.GamesCompleted, &p.TotalScore,
		&categories, &unlocked, &activity,
		&p.PasswordHash, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan player: %w", err)
	}

	userID, err := domain.ParseUserID(idStr)
	if err != nil {
		return nil, fmt.Errorf("stored player id corrupt: %w", err)
	}
	tenantID, err := domain.ParseTenantID(tenantStr)
	if err != nil {
		return nil, fmt.Errorf("stored tenant id corrupt: %w", err)
	}
	p.ID = userID
	p.TenantID = tenantID
	p.Role = player.Role(roleStr)

	if err := json.Unmarshal(categories, &p.CategoryCompleted); err != nil {
		return nil, fmt.Errorf("decode category counters: %w", err)
	}
	if err := json.Unmarshal(unlocked, &p.Achievements); err != nil {
		return nil, fmt.Errorf("decode achievements: %w", err)
	}
	if err := json.Unmarshal(activity, &p.RecentActivity); err != nil {
		return nil, fmt.Errorf("decode activity log: %w", err)
	}
	return &p, nil
}

func marshalOwned(p *player.Player) (categories, unlocked, activity []byte, err error) {
	cc := p.CategoryCompleted
	if cc == nil {
		cc = map[achievement.Category]int{}
	}
	if categories, err = json.Marshal(cc); err != nil {
		return nil, nil, nil, fmt.Errorf("encode category counters: %w", err)
	}
	ach := p.Achievements
	if ach == nil {
		ach = []achievement.Unlocked{}
	}
	if unlocked, err = json.Marshal(ach); err != nil {
		return nil, nil, nil, fmt.Errorf("encode achievements: %w", err)
	}
	act := p.RecentActivity
	if act == nil {
		act = []player.ActivityEntry{}
	}
	if activity, err = json.Marshal(act); err != nil {
		return nil, nil, nil, fmt.Errorf("encode activity log: %w", err)
	}
	return categories, unlocked, activity, nil
}
