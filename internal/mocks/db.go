// Package mocks provides in-memory fakes for the repository layer and the
// external collaborators, with enough real behavior (balance checks, guarded
// transitions, unique external keys, transactional rollback) to exercise the
// service flows in tests.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/repository"
)

type FakeDatabase struct {
	mu         sync.Mutex
	WalletRepo *FakeWalletRepo
	LedgerRepo *FakeLedgerRepo
	PayoutRepo *FakePayoutRepo
	OrderRepo  *FakeOrderRepo
}

func NewFakeDatabase() *FakeDatabase {
	return &FakeDatabase{
		WalletRepo: &FakeWalletRepo{wallets: map[string]models.Wallet{}, byUser: map[string]string{}},
		LedgerRepo: &FakeLedgerRepo{},
		PayoutRepo: &FakePayoutRepo{payouts: map[string]models.Payout{}},
		OrderRepo:  &FakeOrderRepo{orders: map[string]models.Order{}},
	}
}

func (d *FakeDatabase) Wallet() repository.WalletRepository { return d.WalletRepo }
func (d *FakeDatabase) Ledger() repository.LedgerRepository { return d.LedgerRepo }
func (d *FakeDatabase) Payout() repository.PayoutRepository { return d.PayoutRepo }
func (d *FakeDatabase) Order() repository.OrderRepository   { return d.OrderRepo }
func (d *FakeDatabase) Conn() *sqlx.DB                      { return nil }
func (d *FakeDatabase) Close() error                        { return nil }

// InTx mimics transactional semantics by snapshotting all stores and
// restoring them when fn fails, so a failed compound operation leaves no
// partial state behind, matching the contract of the real database.
func (d *FakeDatabase) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	wallets, byUser := d.WalletRepo.snapshot()
	entries := d.LedgerRepo.snapshot()
	payouts := d.PayoutRepo.snapshot()
	orders := d.OrderRepo.snapshot()

	if err := fn(nil); err != nil {
		d.WalletRepo.restore(wallets, byUser)
		d.LedgerRepo.restore(entries)
		d.PayoutRepo.restore(payouts)
		d.OrderRepo.restore(orders)
		return err
	}

	return nil
}

// ---- wallets ----

type FakeWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]models.Wallet
	byUser  map[string]string
	seq     int
}

func (r *FakeWalletRepo) snapshot() (map[string]models.Wallet, map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallets := make(map[string]models.Wallet, len(r.wallets))
	for k, v := range r.wallets {
		wallets[k] = v
	}
	byUser := make(map[string]string, len(r.byUser))
	for k, v := range r.byUser {
		byUser[k] = v
	}
	return wallets, byUser
}

func (r *FakeWalletRepo) restore(wallets map[string]models.Wallet, byUser map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets = wallets
	r.byUser = byUser
}

func (r *FakeWalletRepo) GetOrCreate(userID string, tx *sqlx.Tx) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byUser[userID]; ok {
		wallet := r.wallets[id]
		return &wallet, nil
	}

	r.seq++
	wallet := models.Wallet{
		ID:         fmt.Sprintf("wallet-%03d", r.seq),
		UserID:     userID,
		UsdBalance: decimal.Zero,
		CreatedAt:  time.Now(),
	}
	r.wallets[wallet.ID] = wallet
	r.byUser[userID] = wallet.ID

	return &wallet, nil
}

func (r *FakeWalletRepo) GetByUserID(userID string) (*models.Wallet, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byUser[userID]
	if !ok {
		return nil, false, nil
	}
	wallet := r.wallets[id]
	return &wallet, true, nil
}

func (r *FakeWalletRepo) GetOne(id string) (*models.Wallet, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet, ok := r.wallets[id]
	if !ok {
		return nil, false, nil
	}
	return &wallet, true, nil
}

func (r *FakeWalletRepo) Adjust(tx *sqlx.Tx, walletID string, coinDelta int64, usdDelta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallet, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet %s: %w", walletID, apperrors.ErrNotFound)
	}

	newCoins := wallet.CoinBalance + coinDelta
	newUsd := wallet.UsdBalance.Add(usdDelta)

	if newCoins < 0 || newUsd.IsNegative() {
		return apperrors.ErrInsufficientFunds
	}

	wallet.CoinBalance = newCoins
	wallet.UsdBalance = newUsd
	r.wallets[walletID] = wallet

	return nil
}

func (r *FakeWalletRepo) SetPaymentDetails(userID string, details models.PaymentDetails) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byUser[userID]
	if !ok {
		return fmt.Errorf("wallet for user %s: %w", userID, apperrors.ErrNotFound)
	}
	wallet := r.wallets[id]
	wallet.PaymentDetails = details
	r.wallets[id] = wallet
	return nil
}

func (r *FakeWalletRepo) SetPayoutSecurity(userID string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byUser[userID]
	if !ok {
		return fmt.Errorf("wallet for user %s: %w", userID, apperrors.ErrNotFound)
	}
	wallet := r.wallets[id]
	wallet.PayoutSecurityEnabled = enabled
	r.wallets[id] = wallet
	return nil
}

// ---- ledger ----

type FakeLedgerRepo struct {
	mu      sync.Mutex
	entries []models.LedgerEntry
	seq     int
}

func (r *FakeLedgerRepo) snapshot() []models.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.LedgerEntry(nil), r.entries...)
}

func (r *FakeLedgerRepo) restore(entries []models.LedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = entries
}

func (r *FakeLedgerRepo) Insert(entry *models.LedgerEntry, tx *sqlx.Tx) (*models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ExternalKey.Valid {
		for _, existing := range r.entries {
			if existing.ExternalKey.Valid && existing.ExternalKey.String == entry.ExternalKey.String {
				return nil, fmt.Errorf("external key %q: %w", entry.ExternalKey.String, apperrors.ErrDuplicateKey)
			}
		}
	}

	r.seq++
	inserted := *entry
	inserted.ID = fmt.Sprintf("entry-%03d", r.seq)
	if inserted.Status == "" {
		inserted.Status = models.EntryStatusCompleted
	}
	inserted.CreatedAt = time.Now()

	r.entries = append(r.entries, inserted)
	return &inserted, nil
}

func (r *FakeLedgerRepo) GetOne(id string) (*models.LedgerEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.entries {
		if entry.ID == id {
			e := entry
			return &e, true, nil
		}
	}
	return nil, false, nil
}

func (r *FakeLedgerRepo) ListByWallet(walletID string, page, limit int) ([]models.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var matched []models.LedgerEntry
	for _, entry := range r.entries {
		if entry.WalletID == walletID {
			matched = append(matched, entry)
		}
	}

	// newest first; insertion order stands in for created_at
	sort.SliceStable(matched, func(i, j int) bool {
		return strings.Compare(matched[i].ID, matched[j].ID) > 0
	})

	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], nil
}

func (r *FakeLedgerRepo) FindByExternalKey(key string) (*models.LedgerEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.entries {
		if entry.ExternalKey.Valid && entry.ExternalKey.String == key {
			e := entry
			return &e, true, nil
		}
	}
	return nil, false, nil
}

func (r *FakeLedgerRepo) UpdateStatusForPayout(tx *sqlx.Tx, payoutID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, entry := range r.entries {
		if entry.PayoutID.Valid && entry.PayoutID.String == payoutID &&
			entry.Type == models.EntryTypePayout &&
			(entry.Status == models.EntryStatusPending || entry.Status == models.EntryStatusCompleted) {
			r.entries[i].Status = status
		}
	}
	return nil
}

// All returns a copy of every recorded entry, for assertions.
func (r *FakeLedgerRepo) All() []models.LedgerEntry {
	return r.snapshot()
}

// ---- payouts ----

type FakePayoutRepo struct {
	mu      sync.Mutex
	payouts map[string]models.Payout
	seq     int
}

func (r *FakePayoutRepo) snapshot() map[string]models.Payout {
	r.mu.Lock()
	defer r.mu.Unlock()

	payouts := make(map[string]models.Payout, len(r.payouts))
	for k, v := range r.payouts {
		payouts[k] = v
	}
	return payouts
}

func (r *FakePayoutRepo) restore(payouts map[string]models.Payout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payouts = payouts
}

func (r *FakePayoutRepo) Insert(payout *models.Payout, tx *sqlx.Tx) (*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	inserted := *payout
	inserted.ID = fmt.Sprintf("payout-%03d", r.seq)
	inserted.Status = models.PayoutStatusPending
	inserted.CreatedAt = time.Now()

	r.payouts[inserted.ID] = inserted
	return &inserted, nil
}

func (r *FakePayoutRepo) GetOne(id string) (*models.Payout, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payout, ok := r.payouts[id]
	if !ok {
		return nil, false, nil
	}
	return &payout, true, nil
}

func (r *FakePayoutRepo) ListByUser(userID string) ([]models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Payout
	for _, payout := range r.payouts {
		if payout.UserID == userID {
			matched = append(matched, payout)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ID > matched[j].ID
	})

	return matched, nil
}

func (r *FakePayoutRepo) Review(tx *sqlx.Tx, id, toStatus, adminID, note string, fromStatuses ...string) (*models.Payout, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payout, ok := r.payouts[id]
	if !ok {
		return nil, false, nil
	}

	eligible := false
	for _, status := range fromStatuses {
		if payout.Status == status {
			eligible = true
			break
		}
	}
	if !eligible {
		return nil, false, nil
	}

	payout.Status = toStatus
	payout.ReviewedBy = nullString(adminID)
	payout.ReviewedAt = nullTimeNow()
	if note != "" {
		payout.ReviewNote = nullString(note)
	}
	r.payouts[id] = payout

	return &payout, true, nil
}

func (r *FakePayoutRepo) MarkPaid(tx *sqlx.Tx, id, adminID, provider, providerTransferID string) (*models.Payout, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payout, ok := r.payouts[id]
	if !ok {
		return nil, false, nil
	}

	if payout.Status != models.PayoutStatusApproved && payout.Status != models.PayoutStatusProcessing {
		return nil, false, nil
	}

	payout.Status = models.PayoutStatusCompleted
	payout.PaidBy = nullString(adminID)
	payout.PaidAt = nullTimeNow()
	payout.Provider = nullString(provider)
	payout.ProviderTransferID = nullString(providerTransferID)
	r.payouts[id] = payout

	return &payout, true, nil
}

// ---- orders ----

type FakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]models.Order
}

func (r *FakeOrderRepo) snapshot() map[string]models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders := make(map[string]models.Order, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	return orders
}

func (r *FakeOrderRepo) restore(orders map[string]models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = orders
}

func (r *FakeOrderRepo) HoldEscrow(orderID, creatorID string, amount decimal.Decimal, releaseAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[orderID]; ok {
		return nil
	}

	r.orders[orderID] = models.Order{
		ID:              orderID,
		CreatorID:       creatorID,
		EscrowStatus:    models.EscrowStatusHeld,
		EscrowAmount:    amount,
		EscrowReleaseAt: releaseAt,
		CreatedAt:       time.Now(),
	}
	return nil
}

func (r *FakeOrderRepo) GetOne(id string) (*models.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, false, nil
	}
	return &order, true, nil
}

func (r *FakeOrderRepo) ClaimRelease(tx *sqlx.Tx, orderID string) (*models.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok || order.EscrowStatus != models.EscrowStatusHeld {
		return nil, false, nil
	}

	order.EscrowStatus = models.EscrowStatusReleased
	order.ReleasedAt = nullTimeNow()
	r.orders[orderID] = order

	return &order, true, nil
}

func (r *FakeOrderRepo) ListDueForRelease(now time.Time, limit int) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []models.Order
	for _, order := range r.orders {
		if order.EscrowStatus == models.EscrowStatusHeld && !order.EscrowReleaseAt.After(now) {
			due = append(due, order)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].EscrowReleaseAt.Before(due[j].EscrowReleaseAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}
