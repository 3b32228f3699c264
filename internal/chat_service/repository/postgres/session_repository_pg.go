package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paymitra/paymitra/internal/chat_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
)

const sessionColumns = `id, borrower_id, campaign_id, session_token, platform, language,
	       status, metadata, started_at, ended_at`

type pgSessionRepository struct {
	db *pgxpool.Pool
}

// NewPgSessionRepository creates a new instance for PostgreSQL.
func NewPgSessionRepository(db *pgxpool.Pool) repository.SessionRepository {
	return &pgSessionRepository{db: db}
}

func scanSession(row pgx.Row) (*core_domain.Session, error) {
	s := &core_domain.Session{}
	err := row.Scan(
		&s.ID, &s.BorrowerID, &s.CampaignID, &s.SessionToken, &s.Platform, &s.Language,
		&s.Status, &s.Metadata, &s.StartedAt, &s.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *pgSessionRepository) Create(ctx context.Context, session *core_domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO chat_sessions (
			id, borrower_id, campaign_id, session_token, platform, language, status, metadata, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		session.ID, session.BorrowerID, session.CampaignID, session.SessionToken,
		session.Platform, session.Language, session.Status, session.Metadata, session.StartedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 on the partial unique index over active sessions means another
		// process created the session first.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: borrower %s on %s", repository.ErrDuplicateActiveSession,
				session.BorrowerID, session.Platform)
		}
		return err
	}
	return nil
}

func (r *pgSessionRepository) GetByToken(ctx context.Context, token string) (*core_domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE session_token = $1`
	s, err := scanSession(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: session token", core_domain.ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

func (r *pgSessionRepository) GetActive(ctx context.Context, borrowerID string, platform core_domain.SessionPlatform, campaignID *string) (*core_domain.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM chat_sessions
		WHERE borrower_id = $1 AND platform = $2 AND status = $3
		  AND campaign_id IS NOT DISTINCT FROM $4`
	s, err := scanSession(r.db.QueryRow(ctx, query, borrowerID, platform, core_domain.SessionStatusActive, campaignID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active session for borrower %s on %s", core_domain.ErrNotFound, borrowerID, platform)
		}
		return nil, err
	}
	return s, nil
}

func (r *pgSessionRepository) GetNewestActive(ctx context.Context, borrowerID string, platform core_domain.SessionPlatform) (*core_domain.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM chat_sessions
		WHERE borrower_id = $1 AND platform = $2 AND status = $3
		ORDER BY started_at DESC LIMIT 1`
	s, err := scanSession(r.db.QueryRow(ctx, query, borrowerID, platform, core_domain.SessionStatusActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active session for borrower %s on %s", core_domain.ErrNotFound, borrowerID, platform)
		}
		return nil, err
	}
	return s, nil
}

func (r *pgSessionRepository) UpdateStatus(ctx context.Context, id string, status core_domain.SessionStatus, endedAt time.Time) error {
	query := `
		UPDATE chat_sessions
		SET status = $2, ended_at = $3
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id, status, endedAt, core_domain.SessionStatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s is not active", core_domain.ErrInvalidState, id)
	}
	return nil
}
