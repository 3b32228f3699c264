package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paymitra/paymitra/internal/campaign_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
)

type pgTemplateRepository struct {
	db *pgxpool.Pool
}

func NewPgTemplateRepository(db *pgxpool.Pool) repository.TemplateRepository {
	return &pgTemplateRepository{db: db}
}

func (r *pgTemplateRepository) Create(ctx context.Context, tmpl *core_domain.MessageTemplate) error {
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now

	query := `
		INSERT INTO message_templates (
			id, name, language, type, content, is_approved, whatsapp_template_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		tmpl.ID, tmpl.Name, tmpl.Language, tmpl.Type, tmpl.Content,
		tmpl.IsApproved, tmpl.WhatsAppTemplateID, tmpl.CreatedAt, tmpl.UpdatedAt,
	)
	return err
}

func (r *pgTemplateRepository) GetByID(ctx context.Context, id string) (*core_domain.MessageTemplate, error) {
	tmpl := &core_domain.MessageTemplate{}
	query := `
		SELECT id, name, language, type, content, is_approved, whatsapp_template_id, created_at, updated_at
		FROM message_templates WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tmpl.ID, &tmpl.Name, &tmpl.Language, &tmpl.Type, &tmpl.Content,
		&tmpl.IsApproved, &tmpl.WhatsAppTemplateID, &tmpl.CreatedAt, &tmpl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: template %s", core_domain.ErrNotFound, id)
		}
		return nil, err
	}
	return tmpl, nil
}
