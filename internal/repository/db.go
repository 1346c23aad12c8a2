package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PaschalTrueFans/tf-backend-sub000/assets"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
)

const defaultTimeout = 3 * time.Second

// Database interface defines available repositories
type Database interface {
	Wallet() WalletRepository
	Ledger() LedgerRepository
	Payout() PayoutRepository
	Order() OrderRepository

	// InTx runs fn inside a single database transaction. Every multi-row
	// mutation (gift, escrow release, payout request) goes through here so
	// the set of writes commits together or not at all.
	InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error

	// Conn exposes the underlying pool for collaborator adapters that read
	// tables owned by other services.
	Conn() *sqlx.DB

	Close() error
}

// DatabaseImpl implements the Database interface
type DatabaseImpl struct {
	db         *sqlx.DB
	walletRepo WalletRepository
	ledgerRepo LedgerRepository
	payoutRepo PayoutRepository
	orderRepo  OrderRepository

	mu sync.Mutex
}

// New initializes a database connection and runs migrations if enabled
func New(dsn string, automigrate bool) (Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", "postgres://"+dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	if automigrate {
		iofsDriver, err := iofs.New(assets.EmbeddedFiles, "migrations")
		if err != nil {
			return nil, err
		}

		migrator, err := migrate.NewWithSourceInstance("iofs", iofsDriver, "postgres://"+dsn)
		if err != nil {
			return nil, err
		}

		if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, err
		}
	}

	return &DatabaseImpl{db: db}, nil
}

func (d *DatabaseImpl) Conn() *sqlx.DB {
	return d.db
}

func (d *DatabaseImpl) Close() error {
	return d.db.Close()
}

func (d *DatabaseImpl) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DatabaseImpl) Wallet() WalletRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.walletRepo == nil {
		d.walletRepo = NewWalletRepository(d.db)
	}
	return d.walletRepo
}

func (d *DatabaseImpl) Ledger() LedgerRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ledgerRepo == nil {
		d.ledgerRepo = NewLedgerRepository(d.db)
	}
	return d.ledgerRepo
}

func (d *DatabaseImpl) Payout() PayoutRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.payoutRepo == nil {
		d.payoutRepo = NewPayoutRepository(d.db)
	}
	return d.payoutRepo
}

func (d *DatabaseImpl) Order() OrderRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.orderRepo == nil {
		d.orderRepo = NewOrderRepository(d.db)
	}
	return d.orderRepo
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx; repository methods
// accept an optional transaction and fall back to the pool.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}
