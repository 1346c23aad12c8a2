package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/models"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/repository"
)

// Provider event types the ingestor understands. Signature verification and
// payload parsing belong to the provider-facing controller; by the time an
// event reaches here it is trusted and normalized.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventOrderPaid         = "order.paid"
	EventInvoicePaid       = "invoice.paid"
)

// Order product kinds carried on order.paid events.
const (
	ProductKindDigital  = "digital"
	ProductKindPhysical = "physical"
)

// ProviderEvent is a normalized payment-provider webhook event.
type ProviderEvent struct {
	ID          string
	Type        string
	SessionID   string
	UserID      string
	CreatorID   string
	OrderID     string
	ProductKind string
	CoinAmount  int64
	Amount      decimal.Decimal
}

// WebhookService translates provider events into wallet operations. Events
// may be redelivered or arrive out of order, so every branch is idempotent:
// work already recorded in the ledger is detected and skipped, and a
// duplicate delivery returns success without repeating the effect.
type WebhookService struct {
	db       repository.Database
	transfer *TransferService
	escrow   *EscrowService
	logger   *slog.Logger
}

func NewWebhookService(db repository.Database, transfer *TransferService, escrow *EscrowService, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		db:       db,
		transfer: transfer,
		escrow:   escrow,
		logger:   logger,
	}
}

// HandleEvent dispatches one provider event to exactly one wallet
// operation. Unknown event types are logged and acknowledged so the
// provider stops retrying them.
func (s *WebhookService) HandleEvent(ctx context.Context, event ProviderEvent) error {
	switch event.Type {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case EventOrderPaid:
		return s.handleOrderPaid(ctx, event)
	case EventInvoicePaid:
		return s.handleInvoicePaid(ctx, event)
	default:
		s.logger.Info("ignoring unhandled provider event", "type", event.Type, "event_id", event.ID)
		return nil
	}
}

func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, event ProviderEvent) error {
	if event.SessionID == "" {
		return fmt.Errorf("checkout event %s has no session id: %w", event.ID, apperrors.ErrInvalidOperation)
	}

	_, found, err := s.db.Ledger().FindByExternalKey(event.SessionID)
	if err != nil {
		return err
	}
	if found {
		s.logger.Info("checkout session already processed", "session_id", event.SessionID)
		return nil
	}

	return s.transfer.CreditAfterPurchase(ctx, event.UserID, event.CoinAmount, event.Amount, event.SessionID)
}

func (s *WebhookService) handleOrderPaid(ctx context.Context, event ProviderEvent) error {
	if event.OrderID == "" {
		return fmt.Errorf("order event %s has no order id: %w", event.ID, apperrors.ErrInvalidOperation)
	}

	switch event.ProductKind {
	case ProductKindDigital:
		return s.transfer.CreditCreatorForDigitalSale(ctx, event.CreatorID, event.Amount, event.OrderID)
	case ProductKindPhysical:
		return s.escrow.HoldEscrow(event.OrderID, event.CreatorID, event.Amount)
	default:
		return fmt.Errorf("order event %s has unknown product kind %q: %w", event.ID, event.ProductKind, apperrors.ErrInvalidOperation)
	}
}

func (s *WebhookService) handleInvoicePaid(ctx context.Context, event ProviderEvent) error {
	reference := event.ID
	if event.SessionID != "" {
		reference = event.SessionID
	}

	key := saleExternalKey(models.SaleKindSubscription, reference)
	_, found, err := s.db.Ledger().FindByExternalKey(key)
	if err != nil {
		return err
	}
	if found {
		s.logger.Info("subscription invoice already processed", "reference", reference)
		return nil
	}

	return s.transfer.CreditCreatorForSubscription(ctx, event.CreatorID, event.Amount, reference)
}
