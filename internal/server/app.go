// Package server initializes and runs the GeoCrypt backend.
// It connects Postgres, Redis, object storage and SMTP, wires the services,
// and runs the HTTP API next to a gRPC health endpoint until shutdown.
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

	"github.com/dmitrijs2005/geocrypt/internal/common"
	"github.com/dmitrijs2005/geocrypt/internal/logging"
	"github.com/dmitrijs2005/geocrypt/internal/server/config"
	gs "github.com/dmitrijs2005/geocrypt/internal/server/grpc"
	"github.com/dmitrijs2005/geocrypt/internal/server/notify"
	"github.com/dmitrijs2005/geocrypt/internal/server/objectstore"
	"github.com/dmitrijs2005/geocrypt/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/geocrypt/internal/server/rest"
	"github.com/dmitrijs2005/geocrypt/internal/server/secretstore"
	"github.com/dmitrijs2005/geocrypt/internal/server/services"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	codes      *secretstore.RedisStore
	httpServer *rest.Server
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	ctx, cancel := context.WithTimeout(ctx, 3*c.BackendTimeout)
	defer cancel()

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	codes := secretstore.NewRedisStore(
		secretstore.NewRedisClient(c.RedisAddr, c.RedisPassword, c.RedisDB),
		common.OTPKeyPrefix,
		c.BackendTimeout,
	)

	objects, err := objectstore.New(ctx, objectstore.Options{
		Driver:       c.ObjectStoreDriver,
		Endpoint:     c.S3BaseEndpoint,
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Timeout:      c.BackendTimeout,
		CreateBucket: true,
	})
	if err != nil {
		_ = db.Close()
		_ = codes.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	sender, err := notify.NewSMTPSender(notify.SMTPOptions{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		Timeout:  c.BackendTimeout,
		CodeTTL:  c.OTPTTL,
	})
	if err != nil {
		_ = db.Close()
		_ = codes.Close()
		return nil, fmt.Errorf("mailer init error: %w", err)
	}

	us := services.NewUserService(db, rm, c)
	fs := services.NewFileService(db, rm, objects, logger)
	gate := services.NewAccessGate(db, rm, codes, sender, us, objects, logger, services.GateOptions{
		CodeTTL:        c.OTPTTL,
		DownloadExpiry: c.DownloadURLExpiry,
	})

	httpServer := rest.NewServer(rest.Options{
		Address:        c.EndpointAddrHTTP,
		SecretKey:      c.SecretKey,
		AllowedOrigins: c.CORSAllowedOrigins,
		MaxUploadBytes: c.MaxUploadSize,
	}, logger, us, fs, gate)

	grpcServer := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, map[string]gs.ReadinessCheck{
		"redis":    codes,
		"postgres": gs.CheckFunc(db.PingContext),
	})

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		codes:      codes,
		httpServer: httpServer,
		grpcServer: grpcServer,
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

type runner interface {
	Run(ctx context.Context) error
}

func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, name string, s runner) {
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped", "server", name, "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails,
// then releases backend connections.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.start(ctx, cancelFunc, "http", app.httpServer)
	}()
	go func() {
		defer wg.Done()
		app.start(ctx, cancelFunc, "grpc", app.grpcServer)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "Shutting down...")
	return app.Close()
}

func (app *App) Close() error {
	return errors.Join(app.codes.Close(), app.db.Close())
}
