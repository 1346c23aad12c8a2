package notifier

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/stream"
)

// Notification kinds emitted by the wallet core. The notification service
// consumes these from the stream and fans out to in-app and email channels.
const (
	KindPurchaseCredited = "wallet.purchase_credited"
	KindGiftReceived     = "wallet.gift_received"
	KindEscrowReleased   = "wallet.escrow_released"
	KindPayoutRequested  = "payout.requested"
	KindPayoutApproved   = "payout.approved"
	KindPayoutRejected   = "payout.rejected"
	KindPayoutPaid       = "payout.paid"
)

// Event carries the raw facts of a notification. Amounts stay unformatted
// here; presentation (currency symbols, grouping) happens in the delivery
// channel's template.
type Event struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Body   string `json:"body"`

	// Amount is the USD amount as a decimal string, when the event has one.
	Amount string `json:"amount,omitempty"`
	// Coins is the coin amount, when the event has one.
	Coins int64 `json:"coins,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Notifier publishes wallet events to the notification topic. Delivery is
// fire-and-forget: a failed publish is reported by the caller and never
// rolls back the financial operation that produced it.
type Notifier struct {
	stream *stream.KafkaStream
	topic  string
	logger *slog.Logger
}

func New(stream *stream.KafkaStream, topic string, logger *slog.Logger) *Notifier {
	return &Notifier{
		stream: stream,
		topic:  topic,
		logger: logger,
	}
}

func (n *Notifier) Notify(event Event) error {
	event.ID = uuid.NewString()
	event.CreatedAt = time.Now().UTC()

	message, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = n.stream.ProduceMessage(n.topic, string(message))
	if err != nil {
		return err
	}

	n.logger.Debug("notification published", "kind", event.Kind, "user_id", event.UserID)
	return nil
}
