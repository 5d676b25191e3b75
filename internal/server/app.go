// Package server initializes and runs the SealVault server: it builds the
// per-process key material, opens the configured record store, and serves the
// lifecycle over gRPC and HTTP until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/sealvault/internal/common"
	"github.com/dmitrijs2005/sealvault/internal/cryptox"
	"github.com/dmitrijs2005/sealvault/internal/logging"
	"github.com/dmitrijs2005/sealvault/internal/server/config"
	"github.com/dmitrijs2005/sealvault/internal/server/repositories/records"
	"github.com/dmitrijs2005/sealvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sealvault/internal/server/rest"
	"github.com/dmitrijs2005/sealvault/internal/server/services"

	gs "github.com/dmitrijs2005/sealvault/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	vault     *cryptox.Vault
	lifecycle *services.LifecycleService
	closers   []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logging.Backend(c.LogBackend), os.Stdout)
	if err != nil {
		return nil, err
	}

	vault, err := cryptox.NewVault(cryptox.Cipher(c.Cipher))
	if err != nil {
		return nil, fmt.Errorf("vault init error: %w", err)
	}

	authority, err := cryptox.NewAuthority(cryptox.Scheme(c.SignatureScheme))
	if err != nil {
		return nil, fmt.Errorf("authority init error: %w", err)
	}

	if c.SecretKey == "" {
		// tokens then die with the process, like the key material
		secret, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("session secret error: %w", err)
		}
		c.SecretKey = secret
		logger.Warn(ctx, "no session secret configured, using a random one")
	}

	app := &App{config: c, logger: logger, vault: vault}

	store, err := app.openStore(ctx)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	app.lifecycle = services.NewLifecycleService(vault, authority, store, logger, c)

	logger.Info(ctx, "key material ready",
		"cipher", string(vault.Cipher()),
		"scheme", string(authority.Scheme()),
		"storage", c.StorageBackend,
	)
	return app, nil
}

func (app *App) openStore(ctx context.Context) (records.Repository, error) {
	switch app.config.StorageBackend {
	case "memory", "":
		return records.NewMemoryRepository(), nil

	case "postgres":
		pctx, cancel := context.WithTimeout(ctx, app.config.StorageTimeout)
		defer cancel()

		db, err := repomanager.OpenPostgres(pctx, app.config.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db)

		m := repomanager.NewPostgresRepositoryManager()
		if err := m.RunMigrations(ctx, db); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return m.Records(db), nil

	case "s3":
		client, err := records.NewS3Client(ctx, records.S3Options{
			Region:       app.config.S3Region,
			User:         app.config.S3RootUser,
			Password:     app.config.S3RootPassword,
			BaseEndpoint: app.config.S3BaseEndpoint,
		})
		if err != nil {
			return nil, err
		}
		return records.NewS3Repository(client, app.config.S3Bucket), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", app.config.StorageBackend)
	}
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.lifecycle, app.config.MaxMessageSize)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewServer(app.config.EndpointAddrHTTP, app.logger, app.lifecycle, app.config.MaxMessageSize)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// close releases storage handles and wipes key material and revealed
// plaintext.
func (app *App) close() {
	if app.lifecycle != nil {
		app.lifecycle.Close()
	}
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Error(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
	app.vault.Destroy()

	if s, ok := app.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrHTTP != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startHTTPServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}
