package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/italolelis/session_uploader/internal/attachment"
	"github.com/italolelis/session_uploader/internal/cleanup"
	"github.com/italolelis/session_uploader/internal/config"
	"github.com/italolelis/session_uploader/internal/http/rest"
	"github.com/italolelis/session_uploader/internal/logctx"
	"github.com/italolelis/session_uploader/internal/notifier"
	"github.com/italolelis/session_uploader/internal/picker"
	"github.com/italolelis/session_uploader/internal/session"
	"github.com/italolelis/session_uploader/internal/storage"
	"github.com/italolelis/session_uploader/internal/storage/sqlite"
	"github.com/italolelis/session_uploader/internal/telemetry"
	"github.com/italolelis/session_uploader/internal/uploader"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	handler := logctx.NewTraceHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("session uploader starting...", "log_level", cfg.LogLevel, "session_id", cfg.SessionID)

	if err := run(logctx.WithLogger(ctx, logger), cfg, os.Args[1:]); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, args []string) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tlm, err := telemetry.New(ctx, telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		ServiceName:  "session_uploader",
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := tlm.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	// =========================================================================
	// Start Database
	database, err := sqlite.InitDB(cfg.HistoryDBPath)
	if err != nil {
		logger.Error("DB error", "err", err)

		return err
	}
	defer database.Close()

	history := sqlite.NewInstrumentedHistoryRepository(database, tlm)

	// =========================================================================
	// Start Attachment Core
	store := attachment.NewStore()

	channel := uploader.NewInstrumentedChannel(
		session.NewClient(cfg.SessionBaseURL, session.Options{
			Token:    cfg.SessionToken,
			Timeout:  cfg.RequestTimeout,
			Insecure: cfg.SessionInsecure,
		}),
		tlm,
	)

	engine := uploader.NewEngine(store, channel, uploader.OSFileReader{}, cfg.SessionID)

	unsubscribeHistory := watchOutcomes(ctx, store, history)
	defer unsubscribeHistory()

	if cfg.DiscordWebhookURL != "" {
		unsubscribe := notifier.WatchStore(ctx, store, &notifier.DiscordNotifier{WebhookURL: cfg.DiscordWebhookURL})
		defer unsubscribe()
	}

	// =========================================================================
	// One-shot mode: upload the files given on the command line and exit.
	if len(args) > 0 {
		return uploadOnce(ctx, cfg, store, engine, args)
	}

	filePicker := buildPicker(cfg)
	selector := attachment.NewSelector(store, filePicker, engine)

	// =========================================================================
	// Start API Service
	server := setupServer(ctx, cfg, tlm, store, selector, engine, history)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("initializing API support", "host", cfg.Web.BindAddress)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("start shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return nil
	})

	// =========================================================================
	// Start Watch Loop
	if cfg.WatchDir != "" {
		logger.Info("watching for attachments...",
			"watch_dir", cfg.WatchDir,
			"sub_path", cfg.SubPath,
			"update_interval", cfg.UpdateInterval.String(),
		)

		g.Go(func() error {
			watchLoop(ctx, cfg, tlm, store, selector, engine)

			return nil
		})
	}

	// =========================================================================
	// Start Cleanup
	g.Go(func() error {
		cleanupLoop(ctx, cfg, store, engine)

		return nil
	})

	return g.Wait()
}

// uploadOnce queues the given paths and runs a single batch: the CLI analogue
// of "pick files, then upload all".
func uploadOnce(ctx context.Context, cfg *config.Config, store *attachment.Store, engine *uploader.Engine, paths []string) error {
	logger := logctx.LoggerFromContext(ctx)

	selector := attachment.NewSelector(store, &picker.StaticPicker{Paths: paths}, engine)

	added, err := selector.PickFiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to queue files: %w", err)
	}

	if added == 0 {
		logger.Info("nothing to upload")

		return nil
	}

	engine.UploadPending(ctx, nil, cfg.SubPath)

	failed := 0

	for _, rec := range store.Records() {
		if rec.Status == attachment.StatusError {
			failed++

			logger.Error("upload failed", "file_name", rec.FileName, "err", rec.ErrorMessage)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, added)
	}

	logger.Info("all uploads finished", "count", added)

	return nil
}

// watchOutcomes appends a history row for every terminal transition.
func watchOutcomes(ctx context.Context, store *attachment.Store, history storage.UploadHistoryWriter) func() {
	logger := logctx.LoggerFromContext(ctx)

	return store.Subscribe(func(ev attachment.Event) {
		if ev.Kind != attachment.EventUpdated || !ev.Record.Status.Terminal() {
			return
		}

		outcome := storage.UploadOutcome{
			AttachmentID: ev.Record.ID,
			FileName:     ev.Record.FileName,
			SizeBytes:    ev.Record.SizeBytes,
			Status:       string(ev.Record.Status),
			RemotePath:   ev.Record.RemotePath,
			ErrorMessage: ev.Record.ErrorMessage,
			ResolvedAt:   ev.Record.ResolvedAt.Format(time.RFC3339),
		}

		if err := history.RecordOutcome(outcome); err != nil {
			logger.Error("failed to record upload outcome", "attachment_id", ev.Record.ID, "err", err)
		}
	})
}

func buildPicker(cfg *config.Config) picker.FilePicker {
	if cfg.WatchDir != "" {
		return picker.NewDirPicker(cfg.WatchDir)
	}

	// Without a watch directory, picks only arrive through the API with
	// explicit paths; an empty static pick behaves like a cancelled dialog.
	return &picker.StaticPicker{}
}

// watchLoop periodically picks new files from the watch directory and uploads
// everything pending, one batch at a time.
func watchLoop(ctx context.Context, cfg *config.Config, tlm *telemetry.Telemetry, store *attachment.Store, selector *attachment.Selector, engine *uploader.Engine) {
	logger := logctx.LoggerFromContext(ctx)

	ticker := time.NewTicker(cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch loop shutting down")

			return
		case <-ticker.C:
			added, err := selector.PickFiles(ctx)
			if err != nil {
				logger.Error("failed to pick files from watch dir", "err", err)
				tlm.RecordSystemError(ctx, "selector", "pick_failed")

				continue
			}

			tlm.RecordPicked(ctx, added)

			if store.Uploading() {
				logger.Debug("skipping batch, upload already in progress")

				continue
			}

			batch := store.Pending()
			if len(batch) == 0 {
				continue
			}

			engine.UploadPending(ctx, batch, cfg.SubPath)
			tlm.RecordBatch(ctx, len(batch))
		}
	}
}

// cleanupLoop periodically drops terminal records past the retention window.
func cleanupLoop(ctx context.Context, cfg *config.Config, store *attachment.Store, engine *uploader.Engine) {
	logger := logctx.LoggerFromContext(ctx)

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("cleanup loop shutting down")

			return
		case <-ticker.C:
			if removed := cleanup.RemoveExpired(ctx, store, engine, cfg.KeepCompletedFor); removed > 0 {
				logger.Info("cleanup pass finished", "removed", removed)
			}
		}
	}
}

// setupServer prepares the handlers and services to create the http rest server.
func setupServer(
	ctx context.Context,
	cfg *config.Config,
	tlm *telemetry.Telemetry,
	store *attachment.Store,
	selector *attachment.Selector,
	engine *uploader.Engine,
	history storage.UploadHistoryReader,
) *http.Server {
	handler := rest.NewAttachmentHandler(cfg.Web.Username, cfg.Web.Password, store, selector, engine, history)

	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	r.Method(http.MethodGet, "/metrics", tlm.Handler())

	return &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      r,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}
