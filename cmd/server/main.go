package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ymehili/quick-demo/internal/config"
	httpapi "github.com/ymehili/quick-demo/internal/http"
	"github.com/ymehili/quick-demo/internal/observability"
	"github.com/ymehili/quick-demo/internal/ocr"
	"github.com/ymehili/quick-demo/internal/ocr/tesseract"
	"github.com/ymehili/quick-demo/internal/pipeline"
	"github.com/ymehili/quick-demo/internal/render"
)

var (
	cfgFile string

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "OCR and PDF generation service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.Observability.LogLevel,
			Format:      cfg.Observability.LogFormat,
			ServiceName: cfg.Observability.ServiceName,
		})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("CONFIG_PATH"), "config file path (default: env vars only)")
	rootCmd.AddCommand(serveCmd, ocrCmd, renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPipeline() *pipeline.Pipeline {
	engine := tesseract.New(ocr.Options{
		Languages:   cfg.OCR.Languages,
		PageSegMode: cfg.OCR.PageSegMode,
		DPI:         cfg.OCR.DPI,
	})
	renderer := render.NewRenderer(render.Config{
		PageSize: cfg.PDF.PageSize,
		Compress: cfg.PDF.Compress,
		Creator:  cfg.PDF.Creator,
	})
	return pipeline.New(engine, renderer)
}

func serve() error {
	handler := httpapi.NewHandler(newPipeline(), httpapi.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		TempDir:        cfg.Server.TempDir,
		ServiceName:    cfg.Observability.ServiceName,
	}, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORS.AllowedOrigins)

	addr := cfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", addr).
			Strs("ocr_languages", cfg.OCR.Languages).
			Str("page_size", cfg.PDF.PageSize).
			Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
	return nil
}
