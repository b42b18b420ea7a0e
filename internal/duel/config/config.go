package config

import (
	"fmt"
	"time"

	commonconfig "github.com/park285/word-duel-go/internal/common/config"
)

// ServerConfig: HTTP 서버 설정 (포트 등) alias
type ServerConfig = commonconfig.ServerConfig

// ServerTuningConfig: 서버 튜닝 설정 (Timeouts, Limits 등) alias
type ServerTuningConfig = commonconfig.ServerTuningConfig

// RedisConfig: Valkey 연결 설정 (세션/큐 저장소) alias
type RedisConfig = commonconfig.RedisConfig

// LogConfig: 로깅 설정 (레벨, 포맷 등) alias
type LogConfig = commonconfig.LogConfig

// PostgresConfig: PostgreSQL 데이터베이스 설정
type PostgresConfig struct {
	Host       string
	Port       int
	SocketPath string // UDS 경로 (비어있으면 TCP 사용)
	Name       string
	User       string
	Password   string
	SSLMode    string
}

// OracleConfig: 판정 서버(예/아니오 오라클) HTTP 통신 설정
type OracleConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	HTTP2Enabled   bool
}

// EngineConfig: 세션 평가 워커 풀 설정
type EngineConfig struct {
	WorkerCount int
	QueueSize   int
}

// SweeperConfig: 데드라인 스위퍼 주기 설정
type SweeperConfig struct {
	Interval time.Duration
}

// GameConfig: 게임 타이밍/규칙 설정 (환경 변수로 조정 가능한 값만)
type GameConfig struct {
	RoundDuration      time.Duration
	FinalGuessDuration time.Duration
	MaxRounds          int
}

// Config: 전체 애플리케이션 설정 구조체
type Config struct {
	Server       ServerConfig
	ServerTuning ServerTuningConfig
	Redis        RedisConfig
	Postgres     PostgresConfig
	Oracle       OracleConfig
	Game         GameConfig
	Engine       EngineConfig
	Sweeper      SweeperConfig
	Log          LogConfig
	Telemetry    commonconfig.TelemetryConfig // OpenTelemetry 분산 추적
}

// LoadFromEnv: 환경 변수로부터 전체 애플리케이션 설정을 로드합니다.
func LoadFromEnv() (*Config, error) {
	server, err := readServerConfig()
	if err != nil {
		return nil, err
	}
	serverTuning, err := commonconfig.ReadServerTuningConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("read server tuning config failed: %w", err)
	}
	redisCfg, err := readRedisConfig()
	if err != nil {
		return nil, err
	}
	postgres, err := readPostgresConfig()
	if err != nil {
		return nil, err
	}
	oracle, err := readOracleConfig()
	if err != nil {
		return nil, err
	}
	game, err := readGameConfig()
	if err != nil {
		return nil, err
	}
	engine, err := readEngineConfig()
	if err != nil {
		return nil, err
	}
	sweeper, err := readSweeperConfig()
	if err != nil {
		return nil, err
	}
	log, err := commonconfig.ReadLogConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("read log config failed: %w", err)
	}
	telemetry, err := commonconfig.ReadTelemetryConfigFromEnv("word-duel")
	if err != nil {
		return nil, fmt.Errorf("read telemetry config: %w", err)
	}

	return &Config{
		Server:       server,
		ServerTuning: serverTuning,
		Redis:        redisCfg,
		Postgres:     postgres,
		Oracle:       oracle,
		Game:         game,
		Engine:       engine,
		Sweeper:      sweeper,
		Log:          log,
		Telemetry:    telemetry,
	}, nil
}

func readServerConfig() (ServerConfig, error) {
	cfg, err := commonconfig.ReadServerConfigFromEnv(40268)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("read server config failed: %w", err)
	}
	return cfg, nil
}

func readRedisConfig() (RedisConfig, error) {
	cfg, err := commonconfig.ReadRedisConfigFromEnv(
		[]string{"CACHE_HOST", "REDIS_HOST"},
		[]string{"CACHE_PORT", "REDIS_PORT"},
		[]string{"CACHE_PASSWORD", "REDIS_PASSWORD"},
		[]string{"CACHE_SOCKET_PATH", "REDIS_SOCKET_PATH"},
		"localhost",
		6379,
		"",
	)
	if err != nil {
		return RedisConfig{}, fmt.Errorf("read redis config failed: %w", err)
	}
	return cfg, nil
}

func readPostgresConfig() (PostgresConfig, error) {
	port, err := commonconfig.IntFromEnv("DB_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, fmt.Errorf("read DB_PORT failed: %w", err)
	}

	return PostgresConfig{
		Host:       commonconfig.StringFromEnv("DB_HOST", "localhost"),
		Port:       port,
		SocketPath: commonconfig.StringFromEnv("DB_SOCKET_PATH", ""),
		Name:       commonconfig.StringFromEnv("DB_NAME", "wordduel"),
		User:       commonconfig.StringFromEnv("DB_USER", "wordduel_app"),
		Password:   commonconfig.StringFromEnv("DB_PASSWORD", ""),
		SSLMode:    commonconfig.StringFromEnv("DB_SSLMODE", "disable"),
	}, nil
}

func readOracleConfig() (OracleConfig, error) {
	timeout, err := commonconfig.DurationSecondsFromEnv(
		"ORACLE_TIMEOUT_SECONDS",
		OracleTimeoutSeconds,
	)
	if err != nil {
		return OracleConfig{}, fmt.Errorf("read ORACLE_TIMEOUT_SECONDS failed: %w", err)
	}
	connectTimeout, err := commonconfig.DurationSecondsFromEnv("ORACLE_CONNECT_TIMEOUT_SECONDS", 5)
	if err != nil {
		return OracleConfig{}, fmt.Errorf("read ORACLE_CONNECT_TIMEOUT_SECONDS failed: %w", err)
	}
	http2Enabled, err := commonconfig.BoolFromEnv("ORACLE_HTTP2_ENABLED", false)
	if err != nil {
		return OracleConfig{}, fmt.Errorf("read ORACLE_HTTP2_ENABLED failed: %w", err)
	}

	return OracleConfig{
		BaseURL: commonconfig.StringFromEnv("ORACLE_BASE_URL", "http://localhost:40528"),
		APIKey: commonconfig.StringFromEnvFirstNonEmpty(
			[]string{"ORACLE_API_KEY", "HTTP_API_KEY"},
			"",
		),
		Timeout:        timeout,
		ConnectTimeout: connectTimeout,
		HTTP2Enabled:   http2Enabled,
	}, nil
}

func readGameConfig() (GameConfig, error) {
	roundDuration, err := commonconfig.DurationSecondsFromEnv("GAME_ROUND_SECONDS", RoundSeconds)
	if err != nil {
		return GameConfig{}, fmt.Errorf("read GAME_ROUND_SECONDS failed: %w", err)
	}
	finalDuration, err := commonconfig.DurationSecondsFromEnv(
		"GAME_FINAL_GUESS_SECONDS",
		FinalGuessSeconds,
	)
	if err != nil {
		return GameConfig{}, fmt.Errorf("read GAME_FINAL_GUESS_SECONDS failed: %w", err)
	}
	maxRounds, err := commonconfig.IntFromEnv("GAME_MAX_ROUNDS", MaxRounds)
	if err != nil {
		return GameConfig{}, fmt.Errorf("read GAME_MAX_ROUNDS failed: %w", err)
	}
	if maxRounds <= 0 {
		return GameConfig{}, fmt.Errorf("invalid GAME_MAX_ROUNDS: %d", maxRounds)
	}

	return GameConfig{
		RoundDuration:      roundDuration,
		FinalGuessDuration: finalDuration,
		MaxRounds:          maxRounds,
	}, nil
}

func readEngineConfig() (EngineConfig, error) {
	workerCount, err := commonconfig.IntFromEnv("ENGINE_WORKER_COUNT", 4)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("read ENGINE_WORKER_COUNT failed: %w", err)
	}
	if workerCount <= 0 {
		return EngineConfig{}, fmt.Errorf("invalid ENGINE_WORKER_COUNT: %d", workerCount)
	}
	queueSize, err := commonconfig.IntFromEnv("ENGINE_QUEUE_SIZE", 256)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("read ENGINE_QUEUE_SIZE failed: %w", err)
	}
	if queueSize <= 0 {
		return EngineConfig{}, fmt.Errorf("invalid ENGINE_QUEUE_SIZE: %d", queueSize)
	}

	return EngineConfig{WorkerCount: workerCount, QueueSize: queueSize}, nil
}

func readSweeperConfig() (SweeperConfig, error) {
	interval, err := commonconfig.DurationSecondsFromEnv("SWEEP_INTERVAL_SECONDS", 30)
	if err != nil {
		return SweeperConfig{}, fmt.Errorf("read SWEEP_INTERVAL_SECONDS failed: %w", err)
	}
	if interval <= 0 {
		return SweeperConfig{}, fmt.Errorf("invalid SWEEP_INTERVAL_SECONDS: %s", interval)
	}
	return SweeperConfig{Interval: interval}, nil
}
