package registration

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/mkalvoda/seminar-registration/internal/cache"
	"github.com/mkalvoda/seminar-registration/internal/config"
	"github.com/mkalvoda/seminar-registration/internal/lib/jwt"
	"github.com/mkalvoda/seminar-registration/internal/lib/rabbitmq"
	"github.com/mkalvoda/seminar-registration/internal/migrations"
	"github.com/mkalvoda/seminar-registration/internal/services/auth"
	"github.com/mkalvoda/seminar-registration/internal/services/notify"
	"github.com/mkalvoda/seminar-registration/internal/services/programsync"
	regservice "github.com/mkalvoda/seminar-registration/internal/services/registration"
	"github.com/mkalvoda/seminar-registration/internal/sessions"
	"github.com/mkalvoda/seminar-registration/internal/storage/repository"
)

// App bundles the HTTP server with the resources it owns.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}
	sessionStore := sessions.New(cacheRedis)

	conn, err := rabbitmq.Connect(cfg.RabbitConnectionString, cfg.RabbitMaxRetries, cfg.RabbitRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := auth.NewAuthService(db, jwtMaker)
	registrationService := regservice.New(
		db,
		programsync.New(db),
		sessionStore,
		notify.New(ch),
		logger,
		cfg.MaturityDays,
		cfg.VariableSymbolPrefix,
	)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, jwtMaker, authService, registrationService, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.ch.Close(); closeErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", closeErr))
		}
		if closeErr := a.conn.Close(); closeErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", closeErr))
		}
		_ = a.db.DB.Close()
		return err
	}
}
