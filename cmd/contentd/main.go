package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gobeaver/contentkit"
	"github.com/gobeaver/contentkit/bridge"
	"github.com/gobeaver/contentkit/httpserver"
	"github.com/gobeaver/contentkit/rpc"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	_ "github.com/gobeaver/contentkit/driver/azure"
	_ "github.com/gobeaver/contentkit/driver/gcs"
	_ "github.com/gobeaver/contentkit/driver/local"
	_ "github.com/gobeaver/contentkit/driver/memory"
	_ "github.com/gobeaver/contentkit/driver/s3"
	_ "github.com/gobeaver/contentkit/driver/sftp"
)

var version = "dev"

var commonFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Usage: "address to listen on for API (overrides CONTENTKIT_LISTEN_ADDR)",
	},
	&cli.StringFlag{
		Name:  "storage",
		Usage: "storage driver behind the file scheme (local, memory, s3, gcs, azure, sftp)",
	},
	&cli.StringFlag{
		Name:  "local-root",
		Usage: "root directory of the local storage driver",
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
	&cli.BoolFlag{
		Name:  "log-uid",
		Value: false,
		Usage: "generate a uuid and add to all log messages",
	},
	&cli.StringFlag{
		Name:  "log-service",
		Value: "contentd",
		Usage: "add 'service' tag to logs",
	},
	&cli.BoolFlag{
		Name:  "pprof",
		Value: false,
		Usage: "enable pprof debug endpoint",
	},
	&cli.Int64Flag{
		Name:  "drain-seconds",
		Value: 45,
		Usage: "seconds to wait in drain HTTP request",
	},
}

var serveFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "remote-endpoint",
		Usage: "base URL of the provider serving remote schemes",
	},
	&cli.StringFlag{
		Name:  "allowed-schemes",
		Usage: "comma-separated glob patterns of schemes remote providers may claim",
	},
}

func main() {
	app := &cli.App{
		Name:    "contentd",
		Usage:   "Resolve resource content across local storage and remote providers",
		Version: version,
		Flags:   append(append([]cli.Flag{}, commonFlags...), serveFlags...),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the bridge API",
				Flags:  append(append([]cli.Flag{}, commonFlags...), serveFlags...),
				Action: runServe,
			},
			{
				Name:   "provider",
				Usage:  "Serve the configured storage as a remote provider",
				Flags:  commonFlags,
				Action: runProvider,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServe(cCtx *cli.Context) error {
	logger := setupLogger(cCtx)

	cfg, err := loadConfig(cCtx)
	if err != nil {
		logger.Error("Failed to load config", "err", err)
		return err
	}
	if cfg.RemoteEndpoint == "" {
		return errors.New("remote-endpoint is required")
	}

	shutdownTracing, err := setupTracing(cCtx.Context, cfg.OTelEndpoint, cCtx.String("log-service"))
	if err != nil {
		logger.Error("Failed to set up tracing", "err", err)
		return err
	}
	defer shutdownTracing(context.Background())

	resolver, err := contentkit.New(cfg, contentkit.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to create resolver", "err", err)
		return err
	}
	defer resolver.Close()

	channel := rpc.NewHTTPChannel(cfg.RemoteEndpoint,
		rpc.WithTimeout(time.Duration(cfg.RemoteTimeoutSeconds)*time.Second))

	b, err := bridge.New(resolver, channel,
		bridge.WithLogger(logger),
		bridge.WithAllowedSchemes(splitPatterns(cfg.AllowedSchemes)...))
	if err != nil {
		logger.Error("Failed to create bridge", "err", err)
		return err
	}
	defer b.Close()

	logger.Info("Bridge configured",
		"storage", cfg.Storage,
		"remoteEndpoint", cfg.RemoteEndpoint,
		"allowedSchemes", cfg.AllowedSchemes)

	return serve(cCtx, logger, cfg.ListenAddr, bridge.NewHandler(b, logger).Router())
}

func runProvider(cCtx *cli.Context) error {
	logger := setupLogger(cCtx)

	cfg, err := loadConfig(cCtx)
	if err != nil {
		logger.Error("Failed to load config", "err", err)
		return err
	}

	shutdownTracing, err := setupTracing(cCtx.Context, cfg.OTelEndpoint, cCtx.String("log-service"))
	if err != nil {
		logger.Error("Failed to set up tracing", "err", err)
		return err
	}
	defer shutdownTracing(context.Background())

	resolver, err := contentkit.New(cfg, contentkit.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to create storage", "err", err)
		return err
	}

	logger.Info("Provider configured", "storage", cfg.Storage)

	provider := rpc.NewStorageProvider(resolver.Storage())
	return serve(cCtx, logger, cfg.ListenAddr, rpc.NewHandler(provider, logger))
}

func serve(cCtx *cli.Context, logger *slog.Logger, listenAddr string, handler http.Handler) error {
	server, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		Log:                      logger,
		EnablePprof:              cCtx.Bool("pprof"),
		DrainDuration:            time.Duration(cCtx.Int64("drain-seconds")) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	return nil
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cCtx *cli.Context) (*contentkit.Config, error) {
	cfg, err := contentkit.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cCtx.IsSet("listen-addr") {
		cfg.ListenAddr = cCtx.String("listen-addr")
	}
	if cCtx.IsSet("storage") {
		cfg.Storage = cCtx.String("storage")
	}
	if cCtx.IsSet("local-root") {
		cfg.LocalRoot = cCtx.String("local-root")
	}
	if cCtx.IsSet("remote-endpoint") {
		cfg.RemoteEndpoint = cCtx.String("remote-endpoint")
	}
	if cCtx.IsSet("allowed-schemes") {
		cfg.AllowedSchemes = cCtx.String("allowed-schemes")
	}
	return cfg, nil
}

func setupLogger(cCtx *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if cCtx.Bool("log-debug") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cCtx.Bool("log-json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("version", version)
	if service := cCtx.String("log-service"); service != "" {
		logger = logger.With("service", service)
	}
	if cCtx.Bool("log-uid") {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func splitPatterns(s string) []string {
	var patterns []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}
