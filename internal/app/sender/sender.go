// Package sender wires the notification worker consuming registration
// events.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/mkalvoda/seminar-registration/internal/config"
	"github.com/mkalvoda/seminar-registration/internal/lib/rabbitmq"
	"github.com/mkalvoda/seminar-registration/internal/lib/smtp"
	senderservice "github.com/mkalvoda/seminar-registration/internal/services/sender"
	"github.com/mkalvoda/seminar-registration/internal/storage/repository"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	conn, err := rabbitmq.Connect(cfg.RabbitConnectionString, cfg.RabbitMaxRetries, cfg.RabbitRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(db, transport, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumeMessages(ctx, a.ch, "notification.registration-changed", a.senderService.SendRegistrationChanged)
	if err != nil {
		a.logger.Error("failed to start registration-changed consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	return nil
}
