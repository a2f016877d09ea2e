package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"leanquest/internal/achievement"
	"leanquest/internal/score"
	"leanquest/internal/submission"
	"leanquest/pkg/domain"
	"leanquest/pkg/platform/sentinel"
)

// PostgresStore persists submissions in Postgres. Responses are a JSONB
// column: they are frozen at submit time and never queried independently.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed submission store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const submissionColumns = `
	id, user_id, tenant_id, template_id, template_name,
	category, status, responses,
	score, risk_tier, xp_awarded,
	reviewed_by, review_note, reviewed_at,
	submitted_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, sub *submission.Submission) error {
	responses, err := marshalResponses(sub)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = s.pool.Exec(ctx, query,
		sub.ID.String(), sub.UserID.String(), sub.TenantID.String(), sub.TemplateID.String(), sub.TemplateName,
		string(sub.Category), string(sub.Status), responses,
		sub.Score, string(sub.RiskTier), sub.XPAwarded,
		nullableID(sub.ReviewedBy), sub.ReviewNote, sub.ReviewedAt,
		sub.SubmittedAt, sub.CreatedAt, sub.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.SubmissionID) (*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, id.String()))
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID domain.UserID) ([]submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE user_id = $1 ORDER BY submitted_at ASC`
	rows, err := s.pool.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []submission.Submission
	for rows.Next() {
		sub, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

// Update only touches the reviewer fields and status; submitted content is
// immutable by construction.
func (s *PostgresStore) Update(ctx context.Context, sub *submission.Submission) error {
	query := `
		UPDATE submissions SET
			status = $2, reviewed_by = $3, review_note = $4, reviewed_at = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		sub.ID.String(),
		string(sub.Status), nullableID(sub.ReviewedBy), sub.ReviewNote, sub.ReviewedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scanOne(row pgx.Row) (*submission.Submission, error) {
	var (
		sub         submission.Submission
		idStr       string
		userStr     string
		tenantStr   string
		templateStr string
		category    string
		status      string
		riskTier    string
		responses   []byte
		reviewedBy  *string
		reviewedAt  *time.Time
	)
	err := row.Scan(
		&idStr, &userStr, &tenantStr, &templateStr, &sub.TemplateName,
		&category, &status, &responses,
		&sub.Score, &riskTier, &sub.XPAwarded,
		&reviewedBy, &sub.ReviewNote, &reviewedAt,
		&sub.SubmittedAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan submission: %w", err)
	}

	if sub.ID, err = domain.ParseSubmissionID(idStr); err != nil {
		return nil, fmt.Errorf("stored submission id corrupt: %w", err)
	}
	if sub.UserID, err = domain.ParseUserID(userStr); err != nil {
		return nil, fmt.Errorf("stored user id corrupt: %w", err)
	}
	if sub.TenantID, err = domain.ParseTenantID(tenantStr); err != nil {
		return nil, fmt.Errorf("stored tenant id corrupt: %w", err)
	}
	if sub.TemplateID, err = domain.ParseTemplateID(templateStr); err != nil {
		return nil, fmt.Errorf("stored template id corrupt: %w", err)
	}
	sub.Category = achievement.Category(category)
	sub.Status = submission.Status(status)
	sub.RiskTier = score.RiskTier(riskTier)
	sub.ReviewedAt = reviewedAt
	if reviewedBy != nil {
		if sub.ReviewedBy, err = domain.ParseUserID(*reviewedBy); err != nil {
			return nil, fmt.Errorf("stored reviewer id corrupt: %w", err)
		}
	}

	if err := json.Unmarshal(responses, &sub.Responses); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	return &sub, nil
}

func marshalResponses(sub *submission.Submission) ([]byte, error) {
	resp := sub.Responses
	if resp == nil {
		resp = map[string]score.Response{}
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode responses: %w", err)
	}
	return raw, nil
}

func nullableID(id domain.UserID) *string {
	if id.IsNil() {
		return nil
	}
	s := id.String()
	return &s
}
