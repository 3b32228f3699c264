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

const recipientColumns = `id, campaign_id, borrower_id, debt_account_id, unique_link, status,
	       provider_message_id, error_message, sent_at, delivered_at, read_at, replied_at,
	       created_at, updated_at`

type pgRecipientRepository struct {
	db *pgxpool.Pool
}

// NewPgRecipientRepository creates a new instance for PostgreSQL.
func NewPgRecipientRepository(db *pgxpool.Pool) repository.RecipientRepository {
	return &pgRecipientRepository{db: db}
}

func scanRecipient(row pgx.Row) (*core_domain.Recipient, error) {
	rec := &core_domain.Recipient{}
	err := row.Scan(
		&rec.ID, &rec.CampaignID, &rec.BorrowerID, &rec.DebtAccountID, &rec.UniqueLink, &rec.Status,
		&rec.ProviderMessageID, &rec.ErrorMessage, &rec.SentAt, &rec.DeliveredAt, &rec.ReadAt, &rec.RepliedAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *pgRecipientRepository) CreateBatch(ctx context.Context, recipients []*core_domain.Recipient) (int, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO campaign_recipients (
			id, campaign_id, borrower_id, debt_account_id, unique_link, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (campaign_id, borrower_id) DO NOTHING
	`
	batch := &pgx.Batch{}
	for _, rec := range recipients {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.Status == "" {
			rec.Status = core_domain.RecipientStatusPending
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		batch.Queue(query, rec.ID, rec.CampaignID, rec.BorrowerID, rec.DebtAccountID,
			rec.UniqueLink, rec.Status, rec.CreatedAt, rec.UpdatedAt)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range recipients {
		tag, err := results.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *pgRecipientRepository) GetByID(ctx context.Context, id string) (*core_domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM campaign_recipients WHERE id = $1`
	rec, err := scanRecipient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: recipient %s", core_domain.ErrNotFound, id)
		}
		return nil, err
	}
	return rec, nil
}

func (r *pgRecipientRepository) GetByUniqueLink(ctx context.Context, link string) (*core_domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM campaign_recipients WHERE unique_link = $1`
	rec, err := scanRecipient(r.db.QueryRow(ctx, query, link))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: recipient link %s", core_domain.ErrNotFound, link)
		}
		return nil, err
	}
	return rec, nil
}

func (r *pgRecipientRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*core_domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM campaign_recipients WHERE provider_message_id = $1`
	rec, err := scanRecipient(r.db.QueryRow(ctx, query, providerMessageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: recipient for provider message %s", core_domain.ErrNotFound, providerMessageID)
		}
		return nil, err
	}
	return rec, nil
}

func (r *pgRecipientRepository) LatestByBorrower(ctx context.Context, borrowerID string) (*core_domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + `
		FROM campaign_recipients WHERE borrower_id = $1
		ORDER BY created_at DESC LIMIT 1`
	rec, err := scanRecipient(r.db.QueryRow(ctx, query, borrowerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no recipient for borrower %s", core_domain.ErrNotFound, borrowerID)
		}
		return nil, err
	}
	return rec, nil
}

func (r *pgRecipientRepository) ListByStatus(ctx context.Context, campaignID string, status core_domain.RecipientStatus) ([]*core_domain.Recipient, error) {
	query := `SELECT ` + recipientColumns + `
		FROM campaign_recipients
		WHERE campaign_id = $1 AND status = $2
		ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, campaignID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []*core_domain.Recipient
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return recipients, nil
}

func (r *pgRecipientRepository) MarkSent(ctx context.Context, id string, providerMessageID string, sentAt time.Time) error {
	query := `
		UPDATE campaign_recipients
		SET status = $2, provider_message_id = $3, sent_at = $4, error_message = NULL, updated_at = $5
		WHERE id = $1 AND status = $6
	`
	tag, err := r.db.Exec(ctx, query, id,
		core_domain.RecipientStatusSent, providerMessageID, sentAt, time.Now().UTC(),
		core_domain.RecipientStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: recipient %s is not pending", core_domain.ErrInvalidState, id)
	}
	return nil
}

func (r *pgRecipientRepository) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	query := `
		UPDATE campaign_recipients
		SET status = $2, error_message = $3, updated_at = $4
		WHERE id = $1 AND status NOT IN ($5, $6)
	`
	tag, err := r.db.Exec(ctx, query, id,
		core_domain.RecipientStatusFailed, errorMessage, time.Now().UTC(),
		core_domain.RecipientStatusReplied, core_domain.RecipientStatusFailed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: recipient %s cannot be failed", core_domain.ErrInvalidState, id)
	}
	return nil
}

// AdvanceDeliveryStatus moves a recipient forward along the delivery progression.
// The WHERE clause restricts the update to rows whose current status ranks below
// the target, so out-of-order webhooks can never regress a row. An update that
// matches nothing is not an error: the row either does not exist or already
// progressed past the target.
func (r *pgRecipientRepository) AdvanceDeliveryStatus(ctx context.Context, id string, status core_domain.RecipientStatus, at time.Time) error {
	var timestampColumn string
	switch status {
	case core_domain.RecipientStatusDelivered:
		timestampColumn = "delivered_at"
	case core_domain.RecipientStatusRead:
		timestampColumn = "read_at"
	case core_domain.RecipientStatusReplied:
		timestampColumn = "replied_at"
	default:
		return fmt.Errorf("%w: %s is not a delivery progression status", core_domain.ErrValidation, status)
	}

	priorStatuses := priorStatusesFor(status)
	query := fmt.Sprintf(`
		UPDATE campaign_recipients
		SET status = $2, %s = COALESCE(%s, $3), updated_at = $4
		WHERE id = $1 AND status = ANY($5)
	`, timestampColumn, timestampColumn)

	_, err := r.db.Exec(ctx, query, id, status, at, time.Now().UTC(), priorStatuses)
	return err
}

// priorStatusesFor lists the statuses a row may hold for a forward move to target.
func priorStatusesFor(target core_domain.RecipientStatus) []string {
	all := []core_domain.RecipientStatus{
		core_domain.RecipientStatusPending,
		core_domain.RecipientStatusSent,
		core_domain.RecipientStatusDelivered,
		core_domain.RecipientStatusRead,
		core_domain.RecipientStatusReplied,
	}
	var prior []string
	for _, s := range all {
		if s.CanTransitionTo(target) {
			prior = append(prior, string(s))
		}
	}
	return prior
}

func (r *pgRecipientRepository) ResetToPending(ctx context.Context, id string) error {
	query := `
		UPDATE campaign_recipients
		SET status = $2, error_message = NULL, provider_message_id = NULL, updated_at = $3
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id,
		core_domain.RecipientStatusPending, time.Now().UTC(), core_domain.RecipientStatusFailed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: recipient %s is not failed", core_domain.ErrInvalidState, id)
	}
	return nil
}

func (r *pgRecipientRepository) CountByStatus(ctx context.Context, campaignID string) (map[core_domain.RecipientStatus]int, error) {
	query := `
		SELECT status, COUNT(*) FROM campaign_recipients
		WHERE campaign_id = $1
		GROUP BY status
	`
	rows, err := r.db.Query(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[core_domain.RecipientStatus]int)
	for rows.Next() {
		var status core_domain.RecipientStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
