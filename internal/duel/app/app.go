// Package app 은 워드 듀얼 애플리케이션의 의존성 조립을 담당한다.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/park285/word-duel-go/internal/common/bootstrap"
	"github.com/park285/word-duel-go/internal/common/dbutil"
	"github.com/park285/word-duel-go/internal/common/di"
	"github.com/park285/word-duel-go/internal/common/httpserver"
	"github.com/park285/word-duel-go/internal/common/lua"
	"github.com/park285/word-duel-go/internal/common/telemetry"
	"github.com/park285/word-duel-go/internal/duel/catalog"
	dconfig "github.com/park285/word-duel-go/internal/duel/config"
	dengine "github.com/park285/word-duel-go/internal/duel/engine"
	dhttpapi "github.com/park285/word-duel-go/internal/duel/httpapi"
	"github.com/park285/word-duel-go/internal/duel/oracle"
	dredis "github.com/park285/word-duel-go/internal/duel/redis"
	drepo "github.com/park285/word-duel-go/internal/duel/repository"
	"github.com/park285/word-duel-go/internal/duel/rewards"
	dsvc "github.com/park285/word-duel-go/internal/duel/service"
	"github.com/park285/word-duel-go/internal/duel/sweeper"
)

func newDuelDataValkey(
	ctx context.Context,
	cfg *dconfig.Config,
	logger *slog.Logger,
) (di.DataValkeyClient, func(), error) {
	client, closeFn, err := bootstrap.NewAndPingDataValkeyClient(ctx, cfg.Redis, logger)
	if err != nil {
		return di.DataValkeyClient{}, nil, fmt.Errorf("init valkey failed: %w", err)
	}
	return client, closeFn, nil
}

// newDuelLuaRegistry 는 세션/큐 스크립트를 등록하고 모든 노드에 미리 로드한다.
func newDuelLuaRegistry(ctx context.Context, client di.DataValkeyClient, logger *slog.Logger) (*lua.Registry, error) {
	scripts := append(dredis.SessionScripts(), dredis.QueueScripts()...)
	registry := lua.NewRegistry(scripts)
	if err := registry.Preload(ctx, client.Client); err != nil {
		return nil, fmt.Errorf("preload lua scripts failed: %w", err)
	}
	logger.Info("lua_scripts_loaded", "count", len(scripts))
	return registry, nil
}

func newDuelWordCatalog(logger *slog.Logger) (*catalog.Catalog, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("load word catalog failed: %w", err)
	}
	logger.Info("word_catalog_loaded", "words", cat.Size(), "categories", len(cat.Categories()))
	return cat, nil
}

func newDuelDB(
	ctx context.Context,
	cfg *dconfig.Config,
	logger *slog.Logger,
) (*gorm.DB, func(), error) {
	// 스키마 준비 전에 앱이 먼저 뜨는 경우를 대비해 backoff 재시도로 연결한다.
	db, sqlDB, err := dbutil.OpenWithRetry(ctx, func(openCtx context.Context) (*gorm.DB, *sql.DB, error) {
		return openPostgres(openCtx, cfg.Postgres)
	}, dbutil.DefaultRetryConfig(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres failed: %w", err)
	}

	closeFn := func() {
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.Warn("postgres_close_failed", "err", closeErr)
		}
	}
	return db, closeFn, nil
}

func newDuelRepository(ctx context.Context, db *gorm.DB) (*drepo.Repository, error) {
	repo := drepo.New(db)
	if err := repo.AutoMigrate(ctx); err != nil {
		return nil, fmt.Errorf("auto migrate failed: %w", err)
	}
	return repo, nil
}

func newDuelTelemetry(
	ctx context.Context,
	cfg *dconfig.Config,
	logger *slog.Logger,
) (*telemetry.Provider, func(), error) {
	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, nil, fmt.Errorf("init telemetry failed: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := provider.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("telemetry_shutdown_failed", "err", shutdownErr)
		}
	}
	return provider, cleanup, nil
}

func newDuelHTTPMux(duelService *dsvc.Service, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	dhttpapi.Register(mux, duelService, logger)
	return mux
}

func newDuelHTTPServer(cfg *dconfig.Config, mux *http.ServeMux) *http.Server {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return httpserver.NewServer(addr, mux, httpserver.ServerOptions{
		UseH2C:            true,
		ReadHeaderTimeout: cfg.ServerTuning.ReadHeaderTimeout,
		IdleTimeout:       cfg.ServerTuning.IdleTimeout,
		MaxHeaderBytes:    cfg.ServerTuning.MaxHeaderBytes,
	})
}

func newDuelServerApp(
	logger *slog.Logger,
	server *http.Server,
	deadlineSweeper *sweeper.Sweeper,
) *bootstrap.ServerApp {
	return bootstrap.NewServerApp(
		"duel",
		logger,
		server,
		10*time.Second,
		bootstrap.BackgroundTask{
			Name:        "deadline_sweeper",
			ErrorLogKey: "deadline_sweeper_failed",
			Run:         deadlineSweeper.Run,
		},
	)
}

func openPostgres(ctx context.Context, cfg dconfig.PostgresConfig) (*gorm.DB, *sql.DB, error) {
	host := cfg.Host
	if cfg.SocketPath != "" {
		host = cfg.SocketPath
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("gorm open failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("get sql db failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, nil, fmt.Errorf("db ping failed: %w", err)
	}

	return db, sqlDB, nil
}

func newDuelEngine(
	cfg *dconfig.Config,
	sessions *dredis.SessionStore,
	oracleClient oracle.Client,
	settler *rewards.Settler,
	repo *drepo.Repository,
	cat *catalog.Catalog,
	logger *slog.Logger,
) (*dengine.Engine, func()) {
	eng := dengine.NewEngine(sessions, oracleClient, settler, repo, cat, cfg.Game, cfg.Engine, logger)
	cleanup := func() { eng.Shutdown() }
	return eng, cleanup
}
