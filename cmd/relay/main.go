// cmd/relay/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"serial-relay/docs"
	"serial-relay/internal/channel"
	"serial-relay/internal/config"
	"serial-relay/internal/discovery"
	serialscanner "serial-relay/internal/discovery/serial"
	"serial-relay/internal/handler"
	"serial-relay/internal/relay"
	"serial-relay/internal/routes"
	"serial-relay/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	rx    *channel.SerialChannel
	tx    *channel.SerialChannel
	relay *relay.Relay

	eventBus  *handler.EventBus
	wsHandler *handler.WebSocketHandler
	scanners  *discovery.ScannerManager
}

// @title Serial Relay API
// @version 1.0.0
// @description Read-only observer API of the double-buffered serial relay

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", "", "path to config file")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	flag.Parse()

	if *listPorts {
		if err := printPorts(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list ports: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Relay stopped with error: %v\n", err)
		os.Exit(1)
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, cfg.App.Name)
	serviceLogger.LogServiceStart(cfg.App.Version, cfg.Relay)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeChannels(); err != nil {
		return nil, fmt.Errorf("failed to initialize channels: %w", err)
	}

	if err := app.initializeRelay(); err != nil {
		app.closeChannels()
		return nil, fmt.Errorf("failed to initialize relay: %w", err)
	}

	app.initializeServer()

	return app, nil
}

// initializeChannels opens and configures both serial endpoints
func (app *Application) initializeChannels() error {
	rx, err := channel.CreateSerialChannel("rx", app.config.Relay.Receive, nil, app.logger)
	if err != nil {
		return err
	}

	tx, err := channel.CreateSerialChannel("tx", app.config.Relay.Transmit, nil, app.logger)
	if err != nil {
		rx.Close()
		return err
	}

	app.rx, app.tx = rx, tx
	return nil
}

// initializeRelay wires the relay between the channels
func (app *Application) initializeRelay() error {
	policy, err := relay.ParseOverrunPolicy(app.config.Relay.OverrunPolicy)
	if err != nil {
		return err
	}

	app.eventBus = handler.NewEventBus(app.config.Relay.EventBuffer, app.logger)

	r, err := relay.New(app.rx, app.tx, relay.Options{
		OverrunPolicy: policy,
		EnforceTiming: app.config.Relay.EnforceTiming,
		Observer:      app.eventBus,
		Logger:        app.logger,
	})
	if err != nil {
		return err
	}

	app.relay = r
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	if !app.config.Server.Enabled {
		app.logger.Info("HTTP server disabled")
		return
	}

	docs.SwaggerInfo.Host = app.config.GetServerAddr()

	app.scanners = discovery.NewScannerManager(app.logger)
	app.scanners.RegisterScanner(serialscanner.NewScanner(app.logger, nil, nil))

	app.wsHandler = handler.NewWebSocketHandler(app.eventBus, app.config.Security.AllowedOrigins, app.logger)

	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.relay,
		app.rx,
		app.tx,
		app.scanners,
		app.eventBus,
		app.wsHandler,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      routerManager.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)
}

// Run relays until ctx is done or the relay fails, then shuts down
func (app *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go app.eventBus.Start(ctx)

	if app.server != nil {
		go app.wsHandler.Start(ctx)
		go func() {
			app.logger.Info("Starting HTTP server",
				zap.String("address", app.server.Addr),
			)
			if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cancel(fmt.Errorf("http server: %w", err))
			}
		}()
	}

	err := app.relay.Run(ctx)
	if err == nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			err = cause
		}
	}

	reason := "shutdown signal received"
	if err != nil {
		utils.LogError(app.logger, "Relay stopped", err)
		reason = err.Error()
	}
	app.shutdown(reason)
	return err
}

// shutdown performs graceful shutdown
func (app *Application) shutdown(reason string) {
	serviceLogger := utils.NewServiceLogger(app.logger, app.config.App.Name)
	serviceLogger.LogServiceStop(reason)

	if app.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.server.Shutdown(ctx); err != nil {
			app.logger.Error("HTTP server shutdown error", zap.Error(err))
		} else {
			app.logger.Info("HTTP server stopped")
		}
	}

	app.closeChannels()

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Fprintf(os.Stderr, "Logger close error: %v\n", err)
	}
}

// closeChannels logs final channel counters and releases both ports
func (app *Application) closeChannels() {
	for _, ch := range []struct {
		c    *channel.SerialChannel
		port string
	}{
		{app.rx, app.config.Relay.Receive.Port},
		{app.tx, app.config.Relay.Transmit.Port},
	} {
		if ch.c == nil {
			continue
		}
		cl := utils.NewChannelLogger(app.logger, ch.c.Name(), ch.port)
		stats := ch.c.Stats()
		cl.LogStats(stats.BytesRead, stats.BytesWritten, stats.Failed)
		cl.LogLifecycle("close", ch.c.Close())
	}
}

// printPorts writes the host serial ports as JSON to stdout
func printPorts() error {
	scanners := discovery.NewScannerManager(zap.NewNop())
	scanners.RegisterScanner(serialscanner.NewScanner(zap.NewNop(), nil, nil))

	ports, err := scanners.ScanAll(context.Background())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(ports)
}
