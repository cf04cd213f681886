package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/database/books"
	"github.com/shelfmark/shelfmark/internal/database/categories"
	"github.com/shelfmark/shelfmark/internal/database/importhistory"
	http_controllers "github.com/shelfmark/shelfmark/internal/http"
	"github.com/shelfmark/shelfmark/internal/mirror"
	"github.com/shelfmark/shelfmark/internal/scheduler"
	"github.com/shelfmark/shelfmark/internal/watcher"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background workers before closing the listener.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelfmark v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	if err := os.MkdirAll(cfg.Mirror.Dir, 0o755); err != nil {
		log.Fatalf("Failed to create mirror directory %s: %v", cfg.Mirror.Dir, err)
	}

	booksRepo := books.NewRepository(db.DB)
	categoriesRepo := categories.NewRepository(db.DB)
	historyRepo := importhistory.NewRepository(db.DB)

	exporter := mirror.NewExporter(booksRepo, cfg.Mirror.Dir)
	importer := mirror.NewImporter(booksRepo, categoriesRepo, historyRepo, cfg.Mirror.Dir)

	// Background mirror sync on a cron schedule.
	var syncScheduler *scheduler.MirrorSyncScheduler
	var schedulerCancel context.CancelFunc
	if cfg.Mirror.SyncEnabled {
		syncScheduler = scheduler.NewMirrorSyncScheduler(exporter, scheduler.Config{
			Enabled:  true,
			Schedule: cfg.Mirror.SyncSchedule,
		})

		var schedulerCtx context.Context
		schedulerCtx, schedulerCancel = context.WithCancel(context.Background())
		if err := syncScheduler.Start(schedulerCtx); err != nil {
			log.Fatalf("Failed to start mirror sync scheduler: %v", err)
		}
		if next := syncScheduler.NextRunTime(); next != nil {
			log.Printf("Mirror sync scheduled, next run at %s", next.Format(time.RFC3339))
		}
	}

	// File watcher importing hand-edited mirror documents.
	var mirrorWatcher *watcher.MirrorWatcher
	var watcherCancel context.CancelFunc
	if cfg.Mirror.WatchEnabled {
		mirrorWatcher = watcher.NewMirrorWatcher(importer, cfg.Mirror.Dir, cfg.Mirror.WatchDebounce)

		var watcherCtx context.Context
		watcherCtx, watcherCancel = context.WithCancel(context.Background())
		if err := mirrorWatcher.Start(watcherCtx); err != nil {
			log.Fatalf("Failed to start mirror watcher: %v", err)
		}
		log.Printf("Watching %s for mirror edits", cfg.Mirror.Dir)
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Version:        version,
		BookStore:      booksRepo,
		CategoryStore:  categoriesRepo,
		StatsStore:     booksRepo,
		MirrorExporter: exporter,
		MirrorImporter: importer,
		ImportHistory:  historyRepo,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if mirrorWatcher != nil {
			mirrorWatcher.Stop()
			watcherCancel()
		}
		if syncScheduler != nil {
			syncScheduler.Stop()
			schedulerCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
