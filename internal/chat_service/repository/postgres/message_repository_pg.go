package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paymitra/paymitra/internal/chat_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
)

const messageColumns = `id, session_id, sender, type, content, original_language, translated_content,
	       metadata, provider_message_id, sent_at, delivered_at, read_at`

type pgMessageRepository struct {
	db *pgxpool.Pool
}

// NewPgMessageRepository creates a new instance for PostgreSQL.
func NewPgMessageRepository(db *pgxpool.Pool) repository.MessageRepository {
	return &pgMessageRepository{db: db}
}

func scanMessage(row pgx.Row) (*core_domain.Message, error) {
	m := &core_domain.Message{}
	err := row.Scan(
		&m.ID, &m.SessionID, &m.Sender, &m.Type, &m.Content, &m.OriginalLanguage, &m.TranslatedContent,
		&m.Metadata, &m.ProviderMessageID, &m.SentAt, &m.DeliveredAt, &m.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgMessageRepository) Create(ctx context.Context, msg *core_domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	query := `
		INSERT INTO chat_messages (
			id, session_id, sender, type, content, original_language, translated_content,
			metadata, provider_message_id, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.SessionID, msg.Sender, msg.Type, msg.Content, msg.OriginalLanguage,
		msg.TranslatedContent, msg.Metadata, msg.ProviderMessageID, msg.SentAt,
	)
	return err
}

func (r *pgMessageRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*core_domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + messageColumns + `
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY sent_at ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*core_domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *pgMessageRepository) ListRecentBySession(ctx context.Context, sessionID string, n int) ([]*core_domain.Message, error) {
	if n <= 0 {
		n = 20
	}
	query := `SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + `
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY sent_at DESC
			LIMIT $2
		) recent
		ORDER BY sent_at ASC`
	rows, err := r.db.Query(ctx, query, sessionID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*core_domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *pgMessageRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*core_domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE provider_message_id = $1`
	m, err := scanMessage(r.db.QueryRow(ctx, query, providerMessageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: message for provider id %s", core_domain.ErrNotFound, providerMessageID)
		}
		return nil, err
	}
	return m, nil
}

func (r *pgMessageRepository) SetProviderMessageID(ctx context.Context, id string, providerMessageID string) error {
	query := `UPDATE chat_messages SET provider_message_id = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, providerMessageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: message %s", core_domain.ErrNotFound, id)
	}
	return nil
}

func (r *pgMessageRepository) SetDeliveredAt(ctx context.Context, providerMessageID string, at time.Time) error {
	query := `
		UPDATE chat_messages
		SET delivered_at = COALESCE(delivered_at, $2)
		WHERE provider_message_id = $1
	`
	_, err := r.db.Exec(ctx, query, providerMessageID, at)
	return err
}

func (r *pgMessageRepository) SetReadAt(ctx context.Context, providerMessageID string, at time.Time) error {
	query := `
		UPDATE chat_messages
		SET read_at = COALESCE(read_at, $2),
		    delivered_at = COALESCE(delivered_at, $2)
		WHERE provider_message_id = $1
	`
	_, err := r.db.Exec(ctx, query, providerMessageID, at)
	return err
}
