package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
)

const ledgerColumns = `id, wallet_id, type, currency, amount, direction, status,
	related_user_id, order_id, payout_id, external_key, metadata, created_at`

type LedgerRepository interface {
	Insert(entry *models.LedgerEntry, tx *sqlx.Tx) (*models.LedgerEntry, error)
	GetOne(id string) (*models.LedgerEntry, bool, error)
	ListByWallet(walletID string, page, limit int) ([]models.LedgerEntry, error)
	FindByExternalKey(key string) (*models.LedgerEntry, bool, error)
	UpdateStatusForPayout(tx *sqlx.Tx, payoutID, status string) error
}

type LedgerRepositoryImpl struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &LedgerRepositoryImpl{db: db}
}

func (repo *LedgerRepositoryImpl) q(tx *sqlx.Tx) querier {
	if tx != nil {
		return tx
	}
	return repo.db
}

// Insert appends one immutable ledger record. A duplicate external key maps
// to ErrDuplicateKey so callers can treat redelivered events as no-ops.
func (repo *LedgerRepositoryImpl) Insert(entry *models.LedgerEntry, tx *sqlx.Tx) (*models.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if entry.Status == "" {
		entry.Status = models.EntryStatusCompleted
	}

	query := `
		INSERT INTO ledger_entries
			(wallet_id, type, currency, amount, direction, status, related_user_id, order_id, payout_id, external_key, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + ledgerColumns

	var inserted models.LedgerEntry

	err := repo.q(tx).GetContext(ctx, &inserted, query,
		entry.WalletID,
		entry.Type,
		entry.Currency,
		entry.Amount,
		entry.Direction,
		entry.Status,
		entry.RelatedUserID,
		entry.OrderID,
		entry.PayoutID,
		entry.ExternalKey,
		entry.Metadata,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("external key %q: %w", entry.ExternalKey.String, apperrors.ErrDuplicateKey)
		}
		return nil, err
	}

	return &inserted, nil
}

func (repo *LedgerRepositoryImpl) GetOne(id string) (*models.LedgerEntry, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var entry models.LedgerEntry

	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id=$1`

	err := repo.db.GetContext(ctx, &entry, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &entry, true, nil
}

// ListByWallet returns one page of entries, newest first. Page numbering
// starts at 1; out-of-range inputs are clamped rather than rejected.
func (repo *LedgerRepositoryImpl) ListByWallet(walletID string, page, limit int) ([]models.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var entries []models.LedgerEntry

	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE wallet_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	err := repo.db.SelectContext(ctx, &entries, query, walletID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (repo *LedgerRepositoryImpl) FindByExternalKey(key string) (*models.LedgerEntry, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var entry models.LedgerEntry

	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE external_key=$1`

	err := repo.db.GetContext(ctx, &entry, query, key)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &entry, true, nil
}

// UpdateStatusForPayout moves the entry linked to a payout to the given
// status. This is the only sanctioned mutation of an existing ledger row:
// PENDING entries complete or fail with their payout, and a COMPLETED entry
// may still fail when a processing payout is rejected.
func (repo *LedgerRepositoryImpl) UpdateStatusForPayout(tx *sqlx.Tx, payoutID, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE ledger_entries SET status=$1
		WHERE payout_id=$2 AND type=$3 AND status IN ($4, $5)`

	_, err := repo.q(tx).ExecContext(ctx, query, status, payoutID,
		models.EntryTypePayout, models.EntryStatusPending, models.EntryStatusCompleted)

	return err
}
