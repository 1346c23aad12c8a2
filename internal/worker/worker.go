package worker

import (
	"log/slog"
	"time"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/errHandler"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/helper"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/service"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/smtp"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/stream"
)

// Worker bundles the dependencies shared by the background loops: the
// escrow sweeper and the notification delivery consumer.
type Worker struct {
	KafkaStream *stream.KafkaStream
	Escrow      *service.EscrowService
	Users       service.UserDirectory
	Mailer      smtp.MailerInterface
	Helper      *helper.HelperRepository
	Cache       DeliveryCache
	ErrHandler  *errHandler.ErrorHandler
	Logger      *slog.Logger
}

// DeliveryCache remembers delivered notification ids so a redelivered stream
// message does not email the user twice. Implemented by the redis cache.
type DeliveryCache interface {
	Exists(key string) (bool, error)
	Set(key string, value string, expiration time.Duration) error
}

const (
	// notificationGroupID groups the consumers that deliver wallet
	// notification events to users by email.
	notificationGroupID = "wallet-notification-group"
)

func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream: wk.KafkaStream,
		Escrow:      wk.Escrow,
		Users:       wk.Users,
		Mailer:      wk.Mailer,
		Helper:      wk.Helper,
		Cache:       wk.Cache,
		ErrHandler:  wk.ErrHandler,
		Logger:      wk.Logger,
	}
}
