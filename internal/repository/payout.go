package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
)

const payoutColumns = `id, wallet_id, user_id, amount, currency, status, payment_details,
	reviewed_by, reviewed_at, review_note, paid_by, paid_at, provider, provider_transfer_id,
	created_at, updated_at`

type PayoutRepository interface {
	Insert(payout *models.Payout, tx *sqlx.Tx) (*models.Payout, error)
	GetOne(id string) (*models.Payout, bool, error)
	ListByUser(userID string) ([]models.Payout, error)

	// Review atomically transitions a payout that is currently in one of
	// fromStatuses, stamping the reviewer. The returned bool is false when
	// no row matched, i.e. the payout is missing or in another state;
	// concurrent transitions on the same payout resolve to one winner.
	Review(tx *sqlx.Tx, id, toStatus, adminID, note string, fromStatuses ...string) (*models.Payout, bool, error)

	// MarkPaid transitions approved|processing to completed with the
	// external disbursement reference, under the same one-winner contract.
	MarkPaid(tx *sqlx.Tx, id, adminID, provider, providerTransferID string) (*models.Payout, bool, error)
}

type PayoutRepositoryImpl struct {
	db *sqlx.DB
}

func NewPayoutRepository(db *sqlx.DB) PayoutRepository {
	return &PayoutRepositoryImpl{db: db}
}

func (repo *PayoutRepositoryImpl) q(tx *sqlx.Tx) querier {
	if tx != nil {
		return tx
	}
	return repo.db
}

func (repo *PayoutRepositoryImpl) Insert(payout *models.Payout, tx *sqlx.Tx) (*models.Payout, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO payouts (wallet_id, user_id, amount, currency, status, payment_details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + payoutColumns

	var inserted models.Payout

	err := repo.q(tx).GetContext(ctx, &inserted, query,
		payout.WalletID,
		payout.UserID,
		payout.Amount,
		payout.Currency,
		models.PayoutStatusPending,
		payout.PaymentDetails,
	)

	if err != nil {
		return nil, err
	}

	return &inserted, nil
}

func (repo *PayoutRepositoryImpl) GetOne(id string) (*models.Payout, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payout models.Payout

	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE id=$1`

	err := repo.db.GetContext(ctx, &payout, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &payout, true, nil
}

func (repo *PayoutRepositoryImpl) ListByUser(userID string) ([]models.Payout, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payouts []models.Payout

	query := `
		SELECT ` + payoutColumns + `
		FROM payouts WHERE user_id=$1
		ORDER BY created_at DESC`

	err := repo.db.SelectContext(ctx, &payouts, query, userID)
	if err != nil {
		return nil, err
	}

	return payouts, nil
}

func (repo *PayoutRepositoryImpl) Review(tx *sqlx.Tx, id, toStatus, adminID, note string, fromStatuses ...string) (*models.Payout, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payout models.Payout

	query := `
		UPDATE payouts
		SET status=$1, reviewed_by=$2, reviewed_at=now(), review_note=NULLIF($3, ''), updated_at=now()
		WHERE id=$4 AND status = ANY($5)
		RETURNING ` + payoutColumns

	err := repo.q(tx).GetContext(ctx, &payout, query, toStatus, adminID, note, id, pq.Array(fromStatuses))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &payout, true, nil
}

func (repo *PayoutRepositoryImpl) MarkPaid(tx *sqlx.Tx, id, adminID, provider, providerTransferID string) (*models.Payout, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payout models.Payout

	query := `
		UPDATE payouts
		SET status=$1, paid_by=$2, paid_at=now(), provider=$3, provider_transfer_id=$4, updated_at=now()
		WHERE id=$5 AND status = ANY($6)
		RETURNING ` + payoutColumns

	err := repo.q(tx).GetContext(ctx, &payout, query,
		models.PayoutStatusCompleted, adminID, provider, providerTransferID, id,
		pq.Array([]string{models.PayoutStatusApproved, models.PayoutStatusProcessing}))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &payout, true, nil
}
