package app

import (
	"context"
	"log/slog"

	"github.com/park285/word-duel-go/internal/common/bootstrap"
	dconfig "github.com/park285/word-duel-go/internal/duel/config"
	"github.com/park285/word-duel-go/internal/duel/oracle"
	dredis "github.com/park285/word-duel-go/internal/duel/redis"
	"github.com/park285/word-duel-go/internal/duel/rewards"
	dsvc "github.com/park285/word-duel-go/internal/duel/service"
	"github.com/park285/word-duel-go/internal/duel/sweeper"
)

// Initialize 는 워드 듀얼 애플리케이션 의존성을 초기화하고 ServerApp을 반환한다.
func Initialize(ctx context.Context, cfg *dconfig.Config, logger *slog.Logger) (*bootstrap.ServerApp, func(), error) {
	_, cleanupTelemetry, err := newDuelTelemetry(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	wordCatalog, err := newDuelWordCatalog(logger)
	if err != nil {
		cleanupTelemetry()
		return nil, nil, err
	}

	dataValkeyClient, cleanupDataValkey, err := newDuelDataValkey(ctx, cfg, logger)
	if err != nil {
		cleanupTelemetry()
		return nil, nil, err
	}

	registry, err := newDuelLuaRegistry(ctx, dataValkeyClient, logger)
	if err != nil {
		cleanupDataValkey()
		cleanupTelemetry()
		return nil, nil, err
	}

	sessionStore := dredis.NewSessionStore(dataValkeyClient.Client, registry, logger)
	queueStore := dredis.NewQueueStore(dataValkeyClient.Client, registry, logger)

	db, cleanupDB, err := newDuelDB(ctx, cfg, logger)
	if err != nil {
		cleanupDataValkey()
		cleanupTelemetry()
		return nil, nil, err
	}

	repository, err := newDuelRepository(ctx, db)
	if err != nil {
		cleanupDB()
		cleanupDataValkey()
		cleanupTelemetry()
		return nil, nil, err
	}

	oracleClient := oracle.NewHTTPClient(cfg.Oracle, logger)
	settler := rewards.NewSettler(sessionStore, repository, logger)

	eng, cleanupEngine := newDuelEngine(cfg, sessionStore, oracleClient, settler, repository, wordCatalog, logger)

	duelService := dsvc.New(queueStore, sessionStore, eng, repository, logger)
	deadlineSweeper := sweeper.New(sessionStore, eng, cfg.Sweeper, logger)

	httpMux := newDuelHTTPMux(duelService, logger)
	httpServer := newDuelHTTPServer(cfg, httpMux)

	serverApp := newDuelServerApp(logger, httpServer, deadlineSweeper)

	cleanup := func() {
		cleanupEngine()
		cleanupDB()
		cleanupDataValkey()
		cleanupTelemetry()
	}

	return serverApp, cleanup, nil
}
