package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erazemk/popis/internal/blob"
	"github.com/erazemk/popis/internal/config"
	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/inventory"
	"github.com/erazemk/popis/internal/store"
	"github.com/erazemk/popis/internal/web"
)

func main() {
	fs := flag.NewFlagSet("popis", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var storeDriver string
	fs.StringVar(&storeDriver, "store", "", "")
	fs.StringVar(&storeDriver, "s", "", "")

	var blobDriver string
	fs.StringVar(&blobDriver, "blob", "", "")
	fs.StringVar(&blobDriver, "b", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: popis [flags]

Flags:
  -c, -config <path>      config file (yaml, toml, json or env)
  -d, -db <path>          SQLite database path (default: popis.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -s, -store <driver>     record store: sqlite or redis (default: sqlite)
  -b, -blob <driver>      image bucket: db or dir (default: db)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Every setting can also be given as a POPIS_* environment variable, e.g.
POPIS_REDIS_ADDR, POPIS_BLOB_DIR or POPIS_BLOB_URL. Flags win over the
environment, which wins over the config file.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	override(&cfg.DB, dbPath)
	override(&cfg.Addr, addr)
	override(&cfg.Store, storeDriver)
	override(&cfg.Blob, blobDriver)
	override(&cfg.Log, logPath)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(os.Stdout, os.Stderr, cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.DB)

	// Signing secret for blob URLs, generated on first run.
	secret, err := store.GetSigningSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting signing secret: %w", err)
	}

	records, closeRecords, err := openRecordStore(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer closeRecords()

	bucket, err := openBucket(cfg, database)
	if err != nil {
		return err
	}
	blobs := blob.NewStore(bucket, secret, cfg.BlobURL)

	ctrl := inventory.New(records, blobs, inventory.WithLogger(slog.Default()))
	defer ctrl.Close()

	// A failed first load is shown on the page and can be retried from there.
	if err := ctrl.Load(ctx); err != nil {
		slog.Warn("initial load failed", "error", err)
	}

	router, err := web.NewRouter(ctrl, blobs)
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.LoggingMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "store", cfg.Store, "blob", cfg.Blob)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

func openRecordStore(ctx context.Context, cfg *config.Config, database *sql.DB) (inventory.RecordStore, func(), error) {
	switch cfg.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}

		slog.Info("record store ready", "driver", cfg.Store, "addr", cfg.RedisAddr)
		return store.NewRedisRecords(client, cfg.RedisPrefix), func() { client.Close() }, nil
	default:
		slog.Info("record store ready", "driver", cfg.Store)
		return store.NewRecords(database), func() {}, nil
	}
}

func openBucket(cfg *config.Config, database *sql.DB) (blob.Bucket, error) {
	switch cfg.Blob {
	case config.BlobDir:
		bucket, err := blob.NewDirBucket(cfg.BlobDir)
		if err != nil {
			return nil, fmt.Errorf("opening blob directory: %w", err)
		}
		slog.Info("blob bucket ready", "driver", cfg.Blob, "dir", cfg.BlobDir)
		return bucket, nil
	default:
		slog.Info("blob bucket ready", "driver", cfg.Blob)
		return blob.NewDBBucket(database), nil
	}
}
