package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/PaschalTrueFans/tf-backend-sub000/internal/cache"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/config"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/directory"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/env"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/errHandler"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/helper"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/notifier"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/repository"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/service"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/smtp"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/stream"
	"github.com/PaschalTrueFans/tf-backend-sub000/internal/worker"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items and when they need them
type Application struct {
	Config config.Config
	DB     repository.Database
	Logger *slog.Logger
	Mailer *smtp.Mailer
	Cache  *cache.Cache
	Kafka  *stream.KafkaStream
	WG     sync.WaitGroup

	ErrorHandler *errHandler.ErrorHandler
	Helper       *helper.HelperRepository

	Wallets   *service.WalletService
	Transfers *service.TransferService
	Escrow    *service.EscrowService
	Payouts   *service.PayoutService
	Security  *service.SecurityService
	Webhooks  *service.WebhookService

	worker *worker.Worker
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Redis.Addr = env.GetString("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Db = env.GetInt("REDIS_DB", 0)

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")
	cfg.Notifications.Topic = env.GetString("NOTIFICATIONS_TOPIC", "wallet.notifications")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "TrueFans <no_reply@example.org>")

	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	cfg.Escrow.HoldPeriod = time.Duration(env.GetInt("ESCROW_HOLD_HOURS", 48)) * time.Hour
	cfg.Escrow.SweepInterval = time.Duration(env.GetInt("ESCROW_SWEEP_MINUTES", 10)) * time.Minute

	cfg.Security.CodeTTL = time.Duration(env.GetInt("SECURITY_CODE_TTL_MINUTES", 10)) * time.Minute

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app := &Application{
		Config: cfg,
		DB:     db,
		Logger: logger,
		Mailer: mailer,
	}

	app.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Db)
	app.Kafka = stream.New(cfg.KafkaServers, logger)

	app.ErrorHandler = errHandler.New(cfg.Notifications.Email, mailer, logger)
	app.Helper = helper.New(&cfg.BaseURL, &app.WG, app.ErrorHandler)

	users := directory.New(db.Conn())
	events := notifier.New(app.Kafka, cfg.Notifications.Topic, logger)

	app.Wallets = service.NewWalletService(db)
	app.Transfers = service.NewTransferService(db, events, app.Helper, logger)
	app.Escrow = service.NewEscrowService(db, app.Transfers, events, app.Helper, logger, cfg.Escrow.HoldPeriod)
	app.Payouts = service.NewPayoutService(db, events, app.Helper, logger)
	app.Security = service.NewSecurityService(db, app.Cache, mailer, users, logger, cfg.Security.CodeTTL)
	app.Webhooks = service.NewWebhookService(db, app.Transfers, app.Escrow, logger)

	app.worker = worker.New(&worker.Worker{
		KafkaStream: app.Kafka,
		Escrow:      app.Escrow,
		Users:       users,
		Mailer:      mailer,
		Helper:      app.Helper,
		Cache:       app.Cache,
		ErrHandler:  app.ErrorHandler,
		Logger:      logger,
	})

	return app, nil
}

// StartWorkers launches the background loops. They run until ctx is
// cancelled.
func (app *Application) StartWorkers(ctx context.Context) {
	go app.worker.EscrowSweeper(ctx, app.Config.Escrow.SweepInterval)
	go app.worker.NotificationWorker(app.Config.Notifications.Topic)
}
