// Package app wires configuration, secrets, the database, the grid engine and
// the UI together.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"fulfil/internal/config"
	"fulfil/internal/dbstore"
	"fulfil/internal/engine"
	"fulfil/internal/logging"
	"fulfil/internal/orders"
	"fulfil/internal/prefs"
	"fulfil/internal/record"
	"fulfil/internal/secrets"
	"fulfil/internal/shipping"
	"fulfil/internal/tickets"
	"fulfil/internal/tunnel"
	"fulfil/internal/ui"
)

// Options configure the application.
type Options struct {
	ConfigPath  string
	SecretsPath string // empty uses default ~/.config/fulfil/secrets.toml
	PrefsPath   string // empty uses default ~/.config/fulfil/prefs.toml
	PollEvery   int    // seconds; zero uses the configured interval
}

// Run boots the TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	logger, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		// The UI owns the terminal; a broken log sink must not stop the tool.
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()

	sec, err := secrets.Load(opts.SecretsPath)
	if err != nil {
		needsSecrets := cfg.Database.Driver == "mysql" || cfg.Tunnel.Enabled
		if needsSecrets || !errors.Is(err, secrets.ErrNotFound) {
			return fmt.Errorf("load secrets: %w", err)
		}
		sec = secrets.Secrets{}
	}

	dsn, cleanup, err := buildDSN(cfg, sec, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	store, err := dbstore.Open(cfg.Database.Driver, dsn, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	// The local sqlite database is created on first use.
	if cfg.Database.Driver == "sqlite" {
		if err := store.Bootstrap(ctx); err != nil {
			return fmt.Errorf("bootstrap database: %w", err)
		}
	}

	labels, err := store.LoadAssigneeLabels(ctx)
	if err != nil {
		logger.Warn("loading assignee labels failed, ids will show raw", zap.Error(err))
		labels = map[string]map[string]string{}
	}
	resolver := record.NewStaticResolver(labels)

	schema := dbstore.TicketSchema()
	grid := ui.NewGrid(schema)
	eng := engine.New(engine.Options{
		Schema:  schema,
		Persist: store,
		View:    grid,
		Logger:  logger,
	})
	// Close drains in-flight writes so the user's last edit is not lost.
	defer eng.Close()

	interval := time.Duration(cfg.PollSeconds) * time.Second
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	// Populate the store before the UI starts; failures surface in the
	// header rather than aborting startup.
	if err := eng.Poll(ctx); err != nil {
		logger.Warn("initial poll failed", zap.Error(err))
	}
	StartPoller(ctx, eng, interval, logger)

	uiOpts := ui.Options{
		Context:   ctx,
		Engine:    eng,
		Grid:      grid,
		Schema:    schema,
		Resolver:  resolver,
		Shipping:  newShippingClient(cfg, sec, logger),
		Tickets:   newTicketsClient(cfg, sec, logger),
		Orders:    newOrdersClient(cfg, sec, logger),
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
		Logger:    logger,
	}
	return ui.Run(uiOpts, userPrefs.LastTicket)
}

// buildDSN assembles the driver DSN, opening the SSH tunnel first when one is
// configured. The returned cleanup closes the tunnel.
func buildDSN(cfg config.Config, sec secrets.Secrets, logger *zap.Logger) (string, func(), error) {
	if cfg.Database.Driver == "sqlite" {
		return cfg.Database.LocalPath, nil, nil
	}

	network := "tcp"
	var cleanup func()
	if cfg.Tunnel.Enabled {
		tun, err := tunnel.Open(tunnel.Config{
			Addr:           cfg.Tunnel.Addr,
			User:           cfg.Tunnel.User,
			KeyPath:        cfg.Tunnel.KeyPath,
			KeyPassphrase:  sec.SSHPassphrase,
			KnownHostsPath: cfg.Tunnel.KnownHosts,
		}, logger)
		if err != nil {
			return "", nil, fmt.Errorf("open ssh tunnel: %w", err)
		}
		network = "ssh+tcp"
		mysql.RegisterDialContext(network, tun.DialContext)
		cleanup = func() { _ = tun.Close() }
	}

	my := mysql.NewConfig()
	my.User = cfg.Database.User
	my.Passwd = sec.DBPassword
	my.Net = network
	my.Addr = cfg.Database.Host
	my.DBName = cfg.Database.Name
	return my.FormatDSN(), cleanup, nil
}

func newShippingClient(cfg config.Config, sec secrets.Secrets, logger *zap.Logger) *shipping.Client {
	if cfg.API.ShippingEndpoint == "" {
		return nil
	}
	c, err := shipping.NewClient(cfg.API.ShippingEndpoint, sec.ShippingAPIKey)
	if err != nil {
		logger.Warn("carrier client disabled", zap.Error(err))
		return nil
	}
	return c
}

func newTicketsClient(cfg config.Config, sec secrets.Secrets, logger *zap.Logger) *tickets.Client {
	if cfg.API.TicketsEndpoint == "" {
		return nil
	}
	c, err := tickets.NewClient(cfg.API.TicketsEndpoint, sec.TicketsAPIKey)
	if err != nil {
		logger.Warn("helpdesk client disabled", zap.Error(err))
		return nil
	}
	return c
}

func newOrdersClient(cfg config.Config, sec secrets.Secrets, logger *zap.Logger) *orders.Client {
	if cfg.API.OrdersEndpoint == "" {
		return nil
	}
	c, err := orders.NewClient(cfg.API.OrdersEndpoint, sec.OrdersAPIKey)
	if err != nil {
		logger.Warn("commerce client disabled", zap.Error(err))
		return nil
	}
	return c
}
