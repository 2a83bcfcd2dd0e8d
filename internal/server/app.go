// Package server initializes and runs the auth application server.
// It configures storage backends and outbound mail, handles graceful
// shutdown and starts the HTTP server.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/httpserver"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/redis/go-redis/v9"
)

const startupTimeout = 30 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	codec       *auth.Codec
	userService *services.UserService
	closers     []func() error
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	stores, err := app.initStorage(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	notifier, err := newNotifier(c, logger)
	if err != nil {
		app.close()
		return nil, err
	}

	app.codec = newCodec(c)
	app.userService = services.NewUserService(
		stores,
		app.codec,
		cryptox.NewBcryptHasher(c.BcryptCost),
		notifier,
		logger,
		services.WithEmailChangeTTL(c.EmailChangeValidityDuration),
	)

	return app, nil
}

func newCodec(c *config.Config) *auth.Codec {
	return auth.NewCodec(map[auth.Purpose]auth.Key{
		auth.PurposeAccess:  {Secret: []byte(c.AccessTokenSecret), TTL: c.AccessTokenValidityDuration},
		auth.PurposeRefresh: {Secret: []byte(c.RefreshTokenSecret), TTL: c.RefreshTokenValidityDuration},
		auth.PurposeReset:   {Secret: []byte(c.ResetTokenSecret), TTL: c.ResetTokenValidityDuration},
	})
}

// newNotifier sends real mail when an SMTP host is configured and only logs otherwise.
func newNotifier(c *config.Config, logger logging.Logger) (*mailer.Mailer, error) {
	if c.SMTPHost == "" {
		return mailer.New(c.ClientURL, mailer.NewLogTransport(logger)), nil
	}

	t, err := mailer.NewSMTPTransport(mailer.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.MailFrom,
	})
	if err != nil {
		return nil, fmt.Errorf("smtp init error: %w", err)
	}
	return mailer.New(c.ClientURL, t), nil
}

func (app *App) initStorage(ctx context.Context) (services.Stores, error) {

	if app.config.StorageBackend == config.StorageMemory {
		app.logger.Warn(ctx, "Using in-memory storage, data is lost on restart")
		repos := memory.NewRepositories(nil)
		return services.Stores{Users: repos.Users, Tokens: repos.Tokens, EmailChanges: repos.EmailChanges}, nil
	}

	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return services.Stores{}, fmt.Errorf("db open error: %w", err)
	}
	app.closers = append(app.closers, db.Close)

	if err := db.PingContext(ctx); err != nil {
		return services.Stores{}, fmt.Errorf("db ping error: %w", err)
	}

	var rdb *redis.Client
	if app.config.RedisAddr != "" {
		rdb, err = repomanager.ConnectRedis(ctx, app.config.RedisAddr)
		if err != nil {
			return services.Stores{}, err
		}
		app.closers = append(app.closers, rdb.Close)
		app.logger.Info(ctx, "Session tokens stored in Redis")
	}

	rm, err := repomanager.NewPostgresRepositoryManager(rdb)
	if err != nil {
		return services.Stores{}, fmt.Errorf("repository manager init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		return services.Stores{}, fmt.Errorf("migrations error: %w", err)
	}

	return services.Stores{
		Users:        rm.Users(db),
		Tokens:       rm.SessionTokens(db),
		EmailChanges: rm.EmailChanges(db),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpserver.NewHTTPServer(app.config.EndpointAddr, app.logger, app.userService, app.codec, httpserver.Options{
		AllowedOrigins: []string{app.config.ClientURL},
		SecureCookies:  app.config.SecureCookies,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// close releases storage handles in reverse order of acquisition.
func (app *App) close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.close(); err != nil {
		app.logger.Error(context.Background(), "close error", "error", err.Error())
	}
	app.logger.Info(context.Background(), "App stopped")
}
