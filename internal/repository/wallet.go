package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
)

type WalletRepository interface {
	GetOrCreate(userID string, tx *sqlx.Tx) (*models.Wallet, error)
	GetByUserID(userID string) (*models.Wallet, bool, error)
	GetOne(id string) (*models.Wallet, bool, error)
	Adjust(tx *sqlx.Tx, walletID string, coinDelta int64, usdDelta decimal.Decimal) error
	SetPaymentDetails(userID string, details models.PaymentDetails) error
	SetPayoutSecurity(userID string, enabled bool) error
}

type WalletRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &WalletRepositoryImpl{db: db}
}

func (repo *WalletRepositoryImpl) q(tx *sqlx.Tx) querier {
	if tx != nil {
		return tx
	}
	return repo.db
}

// GetOrCreate returns the wallet for userID, creating a zero-balance record
// on first access. The insert-on-conflict form keeps concurrent first
// accesses from producing duplicate wallets.
func (repo *WalletRepositoryImpl) GetOrCreate(userID string, tx *sqlx.Tx) (*models.Wallet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	q := repo.q(tx)

	insert := `
		INSERT INTO wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := q.ExecContext(ctx, insert, userID); err != nil {
		return nil, err
	}

	var wallet models.Wallet

	query := `
		SELECT id, user_id, coin_balance, usd_balance, payment_details, payout_security_enabled, created_at, updated_at
		FROM wallets WHERE user_id=$1`

	if err := q.GetContext(ctx, &wallet, query, userID); err != nil {
		return nil, err
	}

	return &wallet, nil
}

func (repo *WalletRepositoryImpl) GetByUserID(userID string) (*models.Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
		SELECT id, user_id, coin_balance, usd_balance, payment_details, payout_security_enabled, created_at, updated_at
		FROM wallets WHERE user_id=$1`

	err := repo.db.GetContext(ctx, &wallet, query, userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

func (repo *WalletRepositoryImpl) GetOne(id string) (*models.Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
		SELECT id, user_id, coin_balance, usd_balance, payment_details, payout_security_enabled, created_at, updated_at
		FROM wallets WHERE id=$1`

	err := repo.db.GetContext(ctx, &wallet, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

// Adjust applies coin and USD deltas to one wallet. The row is locked for
// the duration so concurrent adjustments serialize, and the non-negativity
// check happens against the locked balance. When tx is nil the adjustment
// runs in its own transaction; otherwise it joins the caller's, so compound
// operations (gift, withdrawal, payout request) commit as one unit.
func (repo *WalletRepositoryImpl) Adjust(tx *sqlx.Tx, walletID string, coinDelta int64, usdDelta decimal.Decimal) error {
	if tx != nil {
		return repo.adjust(tx, walletID, coinDelta, usdDelta)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	ownTx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer ownTx.Rollback()

	if err := repo.adjust(ownTx, walletID, coinDelta, usdDelta); err != nil {
		return err
	}

	return ownTx.Commit()
}

func (repo *WalletRepositoryImpl) adjust(tx *sqlx.Tx, walletID string, coinDelta int64, usdDelta decimal.Decimal) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
		SELECT id, coin_balance, usd_balance FROM wallets WHERE id=$1 FOR UPDATE`

	err := tx.GetContext(ctx, &wallet, query, walletID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("wallet %s: %w", walletID, apperrors.ErrNotFound)
		}
		return err
	}

	newCoins := wallet.CoinBalance + coinDelta
	newUsd := wallet.UsdBalance.Add(usdDelta)

	if newCoins < 0 || newUsd.IsNegative() {
		return apperrors.ErrInsufficientFunds
	}

	query = `
		UPDATE wallets SET coin_balance=$1, usd_balance=$2, updated_at=now() WHERE id=$3`

	_, err = tx.ExecContext(ctx, query, newCoins, newUsd, walletID)

	return err
}

func (repo *WalletRepositoryImpl) SetPaymentDetails(userID string, details models.PaymentDetails) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE wallets SET payment_details=$1, updated_at=now() WHERE user_id=$2`

	result, err := repo.db.ExecContext(ctx, query, details, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("wallet for user %s: %w", userID, apperrors.ErrNotFound)
	}

	return nil
}

func (repo *WalletRepositoryImpl) SetPayoutSecurity(userID string, enabled bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE wallets SET payout_security_enabled=$1, updated_at=now() WHERE user_id=$2`

	result, err := repo.db.ExecContext(ctx, query, enabled, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("wallet for user %s: %w", userID, apperrors.ErrNotFound)
	}

	return nil
}
