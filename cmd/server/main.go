package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/textextract/backend/internal/api"
	"github.com/textextract/backend/internal/config"
	"github.com/textextract/backend/internal/extractor"
	"github.com/textextract/backend/internal/fetch"
	"github.com/textextract/backend/internal/pipeline"
	"github.com/textextract/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the YAML configuration file")
	initConfig := flag.Bool("init-config", false, "write a default configuration file to -config and exit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("textextract %s (built %s)\n", Version, BuildTime)
		return
	}

	if *initConfig {
		if err := config.DefaultConfig().Save(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write configuration: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default configuration to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persister, closePersister, err := storage.NewPersister(ctx, storage.Options{
		Driver: cfg.Store.Driver,
		Target: storage.Target{
			Table:        cfg.Store.Table,
			IDColumn:     cfg.Store.IDColumn,
			TextColumn:   cfg.Store.TextColumn,
			StatusColumn: cfg.Store.StatusColumn,
		},
		Timeout:     cfg.StoreTimeout(),
		RESTURL:     cfg.Store.URL,
		ServiceKey:  cfg.Store.ServiceKey,
		DatabaseURL: cfg.Store.DatabaseURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("record store: %w", err)
	}
	defer closePersister()

	// Left as a nil interface when disabled so handlers can tell.
	var history storage.HistoryStore
	if cfg.History.Enabled {
		duck, err := storage.OpenDuckHistory(cfg.History.Path, logger)
		if err != nil {
			return fmt.Errorf("extraction history: %w", err)
		}
		history = duck
		defer history.Close()
	}

	registry := extractor.NewRegistry(extractor.Options{
		PDFPageSeparator:     cfg.Extraction.PDFPageSeparator,
		DOCMinRunLength:      cfg.Extraction.DOCMinRunLength,
		MaxDecompressedBytes: cfg.Extraction.MaxDecompressedBytes,
		Logger:               logger,
	})

	fetcher := fetch.NewHTTPFetcher(fetch.Options{
		Timeout:   cfg.FetchTimeout(),
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	}, logger)

	coordinator := pipeline.NewCoordinator(fetcher, persister, registry, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		ExposeErrorDetails: cfg.Server.ExposeErrorDetails,
		RequestLogging:     cfg.Logging.RequestLogging,
		BodyLimit:          cfg.Server.BodyLimit,
		EnableCORS:         cfg.Server.EnableCORS,
		AllowOrigins:       splitOrigins(cfg.Server.AllowOrigins),
		EnableGzip:         cfg.Server.EnableGzip,
	}, logger)

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Runner:       coordinator,
		History:      history,
		Kinds:        registry.Kinds(),
		HistoryLimit: cfg.History.DefaultLimit,
		Version:      Version,
		Logger:       logger,
	}))

	// Configure server with settings from config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
	}

	logger.Info("starting text extraction service",
		"version", Version,
		"build_time", BuildTime,
		"listen", cfg.GetServerAddr(),
		"store_driver", cfg.Store.Driver,
		"history", cfg.History.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
