package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"auctionhub/internal/config"
	"auctionhub/internal/db"
	"auctionhub/internal/lock"
	"auctionhub/internal/logger"
	gormrepository "auctionhub/internal/repository/gorm"
)

var configPath string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "lotsctl",
		Short:         "auction lot batch jobs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $AH_CONFIG or config/config.yaml)")
	rootCmd.AddCommand(scrapeCmd(), updateStatusCmd(), feedCmd(), housesCmd(), tokenCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("AH_CONFIG")
	}
	if path == "" {
		path = "config/config.yaml"
	}
	envOnly := false
	if raw := os.Getenv("AH_ENV_ONLY"); raw != "" {
		envOnly = strings.EqualFold(raw, "true") || raw == "1"
	}
	return config.Load(path, envOnly)
}

// env bundles what every subcommand needs.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

func newEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &env{cfg: cfg, logger: log}, nil
}

func (e *env) close() {
	_ = e.logger.Sync()
}

// openStore connects and migrates the lot database.
func (e *env) openStore() (*gormrepository.Store, func(), error) {
	conn, err := db.Open(e.cfg.DB, e.logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.SetTimezone(conn, e.cfg.DB.Timezone); err != nil {
		e.logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(conn); err != nil {
		_ = db.Close(conn)
		return nil, nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return gormrepository.New(conn.Gorm), func() { _ = db.Close(conn) }, nil
}

var errLockBackendUnavailable = errors.New("lock backend redis is configured but redis is not reachable")

// openLocker returns the locker the service daemon uses, so a CLI run and a
// scheduled run of the same house exclude each other. A redis lock backend
// that cannot be reached is an error rather than a silent in-process fallback.
func (e *env) openLocker(ctx context.Context) (lock.Locker, func(), error) {
	if !strings.EqualFold(strings.TrimSpace(e.cfg.Scrape.LockBackend), "redis") {
		return lock.NewMemoryLocker(), func() {}, nil
	}
	if !e.cfg.Redis.Enabled {
		return nil, nil, fmt.Errorf("%w: redis.enabled is false", errLockBackendUnavailable)
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     e.cfg.Redis.Addr,
		Password: e.cfg.Redis.Password,
		DB:       e.cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("%w: %v", errLockBackendUnavailable, err)
	}
	return lock.New(e.cfg.Scrape.LockBackend, rc), func() { _ = rc.Close() }, nil
}
