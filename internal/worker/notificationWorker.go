package worker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/apperrors"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/notifier"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/stream"
)

// deliveredTTL bounds how long delivered notification ids are remembered;
// stream redeliveries happen well inside this window.
const deliveredTTL = 24 * time.Hour

// NotificationWorker consumes wallet notification events and delivers them
// by email. Delivery problems are reported and the loop moves on; a
// notification is never allowed to wedge the stream.
func (wk *Worker) NotificationWorker(topic string) {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: notificationGroupID,
		Topic:   topic,
	})

	if err != nil {
		wk.ErrHandler.ReportError(err)
		return
	}

	for {
		event := consumer.Poll(100) // Poll every 100ms
		switch e := event.(type) {
		case *kafka.Message:
			var notification notifier.Event
			if err := json.Unmarshal(e.Value, &notification); err != nil {
				wk.Logger.Error("malformed notification event", "error", err)
				continue
			}

			if err := wk.deliver(&notification); err != nil {
				wk.ErrHandler.ReportError(err, "notification_id", notification.ID)
			}
		case kafka.Error:
			wk.Logger.Error("notification consumer error", "error", e)
		default:
			// Handle other events if needed
		}
	}
}

func (wk *Worker) deliver(notification *notifier.Event) error {
	key := deliveredKey(notification.ID)

	seen, err := wk.Cache.Exists(key)
	if err != nil {
		return err
	}
	if seen {
		wk.Logger.Info("skipping already delivered notification", "notification_id", notification.ID)
		return nil
	}

	email, err := wk.Users.Email(notification.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			wk.Logger.Info("skipping notification for unknown user", "user_id", notification.UserID)
			return nil
		}
		return err
	}

	data := wk.Helper.NewEmailData()
	data["Title"] = notification.Title
	data["Body"] = notification.Body
	data["Amount"] = notification.Amount
	data["Coins"] = notification.Coins
	data["SentAt"] = notification.CreatedAt

	if err := wk.Mailer.Send(email, data, "notification.tmpl"); err != nil {
		return err
	}

	return wk.Cache.Set(key, "1", deliveredTTL)
}

func deliveredKey(notificationID string) string {
	return "notification-delivered:" + notificationID
}
