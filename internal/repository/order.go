package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
)

type OrderRepository interface {
	// HoldEscrow records the escrow projection for a physical-goods order.
	// Redelivered order events are absorbed by the conflict clause.
	HoldEscrow(orderID, creatorID string, amount decimal.Decimal, releaseAt time.Time) error

	GetOne(id string) (*models.Order, bool, error)

	// ClaimRelease flips held to released and returns the claimed order.
	// The returned bool is false when the order was not held anymore, which
	// is how a racing sweep or admin trigger learns it lost.
	ClaimRelease(tx *sqlx.Tx, orderID string) (*models.Order, bool, error)

	ListDueForRelease(now time.Time, limit int) ([]models.Order, error)
}

type OrderRepositoryImpl struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) OrderRepository {
	return &OrderRepositoryImpl{db: db}
}

func (repo *OrderRepositoryImpl) q(tx *sqlx.Tx) querier {
	if tx != nil {
		return tx
	}
	return repo.db
}

func (repo *OrderRepositoryImpl) HoldEscrow(orderID, creatorID string, amount decimal.Decimal, releaseAt time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO orders (id, creator_id, escrow_status, escrow_amount, escrow_release_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	_, err := repo.db.ExecContext(ctx, query, orderID, creatorID, models.EscrowStatusHeld, amount, releaseAt)
	return err
}

func (repo *OrderRepositoryImpl) GetOne(id string) (*models.Order, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var order models.Order

	query := `
		SELECT id, creator_id, escrow_status, escrow_amount, escrow_release_at, released_at, created_at
		FROM orders WHERE id=$1`

	err := repo.db.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &order, true, nil
}

func (repo *OrderRepositoryImpl) ClaimRelease(tx *sqlx.Tx, orderID string) (*models.Order, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var order models.Order

	query := `
		UPDATE orders
		SET escrow_status=$1, released_at=now()
		WHERE id=$2 AND escrow_status=$3
		RETURNING id, creator_id, escrow_status, escrow_amount, escrow_release_at, released_at, created_at`

	err := repo.q(tx).GetContext(ctx, &order, query, models.EscrowStatusReleased, orderID, models.EscrowStatusHeld)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &order, true, nil
}

func (repo *OrderRepositoryImpl) ListDueForRelease(now time.Time, limit int) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if limit < 1 {
		limit = 50
	}

	var orders []models.Order

	query := `
		SELECT id, creator_id, escrow_status, escrow_amount, escrow_release_at, released_at, created_at
		FROM orders
		WHERE escrow_status=$1 AND escrow_release_at <= $2
		ORDER BY escrow_release_at
		LIMIT $3`

	err := repo.db.SelectContext(ctx, &orders, query, models.EscrowStatusHeld, now, limit)
	if err != nil {
		return nil, err
	}

	return orders, nil
}
