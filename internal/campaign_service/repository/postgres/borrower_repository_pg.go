package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paymitra/paymitra/internal/campaign_service/repository"
	"github.com/paymitra/paymitra/internal/core_domain"
)

const borrowerColumns = `id, account_number, name, phone, email, address, preferred_language,
	       created_at, updated_at`

const debtAccountColumns = `id, borrower_id, account_number, original_amount, outstanding_amount,
	       due_date, status, interest_rate, created_at, updated_at`

type pgBorrowerRepository struct {
	db *pgxpool.Pool
}

func NewPgBorrowerRepository(db *pgxpool.Pool) repository.BorrowerRepository {
	return &pgBorrowerRepository{db: db}
}

func scanBorrower(row pgx.Row) (*core_domain.Borrower, error) {
	b := &core_domain.Borrower{}
	err := row.Scan(
		&b.ID, &b.AccountNumber, &b.Name, &b.Phone, &b.Email, &b.Address, &b.PreferredLanguage,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func scanDebtAccount(row pgx.Row) (*core_domain.DebtAccount, error) {
	a := &core_domain.DebtAccount{}
	err := row.Scan(
		&a.ID, &a.BorrowerID, &a.AccountNumber, &a.OriginalAmount, &a.OutstandingAmount,
		&a.DueDate, &a.Status, &a.InterestRate, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *pgBorrowerRepository) GetByID(ctx context.Context, id string) (*core_domain.Borrower, error) {
	query := `SELECT ` + borrowerColumns + ` FROM borrowers WHERE id = $1`
	b, err := scanBorrower(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: borrower %s", core_domain.ErrNotFound, id)
		}
		return nil, err
	}
	return b, nil
}

func (r *pgBorrowerRepository) GetByPhone(ctx context.Context, phone string) (*core_domain.Borrower, error) {
	query := `SELECT ` + borrowerColumns + ` FROM borrowers WHERE phone = $1`
	b, err := scanBorrower(r.db.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: borrower with phone %s", core_domain.ErrNotFound, phone)
		}
		return nil, err
	}
	return b, nil
}

func (r *pgBorrowerRepository) ListByIDs(ctx context.Context, ids []string) ([]*core_domain.Borrower, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + borrowerColumns + ` FROM borrowers WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var borrowers []*core_domain.Borrower
	for rows.Next() {
		b, err := scanBorrower(rows)
		if err != nil {
			return nil, err
		}
		borrowers = append(borrowers, b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return borrowers, nil
}

func (r *pgBorrowerRepository) GetDebtAccount(ctx context.Context, id string) (*core_domain.DebtAccount, error) {
	query := `SELECT ` + debtAccountColumns + ` FROM debt_accounts WHERE id = $1`
	a, err := scanDebtAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: debt account %s", core_domain.ErrNotFound, id)
		}
		return nil, err
	}
	return a, nil
}

func (r *pgBorrowerRepository) GetOpenDebtAccountByBorrower(ctx context.Context, borrowerID string) (*core_domain.DebtAccount, error) {
	query := `SELECT ` + debtAccountColumns + `
		FROM debt_accounts
		WHERE borrower_id = $1 AND status IN ($2, $3)
		ORDER BY due_date ASC LIMIT 1`
	a, err := scanDebtAccount(r.db.QueryRow(ctx, query, borrowerID,
		core_domain.DebtAccountStatusActive, core_domain.DebtAccountStatusOverdue))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no open debt account for borrower %s", core_domain.ErrNotFound, borrowerID)
		}
		return nil, err
	}
	return a, nil
}
