package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paymitra/paymitra/internal/campaign_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
)

type pgCampaignRepository struct {
	db *pgxpool.Pool
}

// NewPgCampaignRepository creates a new instance for PostgreSQL.
func NewPgCampaignRepository(db *pgxpool.Pool) repository.CampaignRepository {
	return &pgCampaignRepository{db: db}
}

func (r *pgCampaignRepository) GetByID(ctx context.Context, id string) (*core_domain.Campaign, error) {
	c := &core_domain.Campaign{}
	query := `
		SELECT id, name, description, type, status, template_id, target_language,
		       created_by, created_at, updated_at
		FROM campaigns WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.Type, &c.Status, &c.TemplateID, &c.TargetLanguage,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: campaign %s", core_domain.ErrNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

func (r *pgCampaignRepository) UpdateStatus(ctx context.Context, id string, status core_domain.CampaignStatus) error {
	query := `UPDATE campaigns SET status = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: campaign %s", core_domain.ErrNotFound, id)
	}
	return nil
}
