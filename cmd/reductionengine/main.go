// Command reductionengine runs the net-reduction engine as a standalone
// HTTP service: it loads configuration, selects in-memory or PostgreSQL
// storage, wires the full pipeline via internal/app, and serves until an
// interrupt or terminate signal arrives.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GreonXpert/netreduction-engine/internal/app"
	"github.com/GreonXpert/netreduction-engine/internal/platform/database"
	"github.com/GreonXpert/netreduction-engine/internal/platform/migrations"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/GreonXpert/netreduction-engine/internal/repository/postgres"
	"github.com/GreonXpert/netreduction-engine/pkg/config"
	"github.com/GreonXpert/netreduction-engine/pkg/logger"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (defaults to config or :8080)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides config/env; in-memory storage when empty)")
	configPath := flag.String("config", "", "path to configuration file (JSON or YAML)")
	runMigrations := flag.Bool("migrate", true, "run embedded database migrations on startup (ignored for in-memory)")
	clientIDsFlag := flag.String("client-ids", "", "comma-separated client IDs the scheduler sweeps (see internal/scheduler.ClientLister)")
	flag.Parse()

	cfg, err := resolveConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	var repo repository.Repository
	var db *sql.DB

	dsnVal := resolveDSN(*dsn, cfg)
	if dsnVal != "" {
		rootCtx := context.Background()
		db, err = database.Open(rootCtx, dsnVal)
		if err != nil {
			log.Fatalf("connect to postgres: %v", err)
		}
		configurePool(db, cfg)
		if *runMigrations {
			if err := migrations.Apply(db); err != nil {
				log.Fatalf("apply migrations: %v", err)
			}
		}
		repo = postgres.New(sqlx.NewDb(db, "postgres"))
	}
	if db != nil {
		defer db.Close()
	}

	listenAddr := determineAddr(*addr, cfg)
	if listenAddr != "" {
		if host, port, err := splitHostPort(listenAddr); err == nil {
			if host != "" {
				cfg.Server.Host = host
			}
			cfg.Server.Port = port
		}
	}

	clientIDs := splitTokens(*clientIDsFlag)

	application, err := app.New(cfg, repo, appLog.Logger, clientIDs)
	if err != nil {
		log.Fatalf("initialise application: %v", err)
	}

	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		log.Fatalf("start application: %v", err)
	}
	appLog.Infof("net-reduction engine listening on %s", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := application.Stop(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func resolveConfig(path string) (*config.Config, error) {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return loadConfigFile(trimmed)
	}
	return config.Load()
}

func loadConfigFile(path string) (*config.Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return config.LoadFile(path)
	case ".json":
		return config.LoadConfig(path)
	default:
		if cfg, err := config.LoadFile(path); err == nil {
			return cfg, nil
		}
		return config.LoadConfig(path)
	}
}

func determineAddr(flagAddr string, cfg *config.Config) string {
	addr := strings.TrimSpace(flagAddr)
	if addr != "" {
		return addr
	}
	if cfg != nil {
		host := strings.TrimSpace(cfg.Server.Host)
		port := cfg.Server.Port
		if port != 0 {
			if host == "" {
				host = "0.0.0.0"
			}
			return fmt.Sprintf("%s:%d", host, port)
		}
	}
	return ":8080"
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

func resolveDSN(flagDSN string, cfg *config.Config) string {
	if trimmed := strings.TrimSpace(flagDSN); trimmed != "" {
		return trimmed
	}
	if envDSN := strings.TrimSpace(os.Getenv("DATABASE_URL")); envDSN != "" {
		return envDSN
	}
	if cfg == nil {
		return ""
	}
	if cfg.Database.DSN != "" {
		return strings.TrimSpace(cfg.Database.DSN)
	}
	if cfg.Database.Host != "" && cfg.Database.Name != "" {
		return cfg.Database.ConnectionString()
	}
	return ""
}

func configurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	}
}

func splitTokens(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	trimmed := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return trimmed
}
