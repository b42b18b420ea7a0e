package gamesession

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	cerrors "github.com/park285/word-duel-go/internal/common/errors"
	"github.com/park285/word-duel-go/internal/common/lua"
	"github.com/park285/word-duel-go/internal/common/valkeyx"
)

// KeyFunc: 세션 ID로 Redis 키를 생성하는 함수 타입입니다.
type KeyFunc func(sessionID string) string

// Scripts: 저장소가 사용할 Lua 스크립트 이름 묶음입니다. (Registry 등록 이름)
type Scripts struct {
	Create string
	Write  string
	Delete string
}

// Store: 게임 세션 상태를 Redis에 JSON으로 직렬화하여 저장하는 제네릭 버전 관리 저장소입니다.
// 쓰기는 버전 카운터 기반 조건부 쓰기(compare-and-swap)로만 수행되어,
// 동시 기록자 중 정확히 하나만 상태 전이를 적용합니다.
// 보조 인덱스(데드라인 zset 등) 갱신은 같은 Lua 스크립트 안에서 함께 처리됩니다.
type Store[T any] struct {
	client      valkey.Client
	registry    *lua.Registry
	logger      *slog.Logger
	keyFunc     KeyFunc
	verKeyFunc  KeyFunc
	ttl         time.Duration
	indexKeys   []string
	scriptNames Scripts
}

// Config: 세션 저장소 생성에 필요한 설정 정보입니다.
type Config struct {
	KeyFunc        KeyFunc
	VersionKeyFunc KeyFunc
	TTL            time.Duration
	IndexKeys      []string // Lua 스크립트에 KEYS[3..]으로 전달되는 보조 인덱스 키
	Scripts        Scripts
}

// NewStore: 새로운 제네릭 세션 저장소 인스턴스를 생성합니다.
func NewStore[T any](client valkey.Client, registry *lua.Registry, logger *slog.Logger, cfg Config) *Store[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store[T]{
		client:      client,
		registry:    registry,
		logger:      logger,
		keyFunc:     cfg.KeyFunc,
		verKeyFunc:  cfg.VersionKeyFunc,
		ttl:         cfg.TTL,
		indexKeys:   cfg.IndexKeys,
		scriptNames: cfg.Scripts,
	}
}

// Create: 세션을 생성합니다. 이미 존재하면 false를 반환하고 아무것도 바꾸지 않습니다.
// indexArgs는 스크립트의 ARGV[4..]로 전달됩니다. (보조 인덱스 값)
func (s *Store[T]) Create(ctx context.Context, sessionID string, data T, indexArgs ...string) (bool, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return false, cerrors.RedisError{Operation: "session_marshal", Err: err}
	}

	args := append([]string{string(payload), s.ttlSeconds(), sessionID}, indexArgs...)
	resp, err := s.registry.Exec(ctx, s.client, s.scriptNames.Create, s.scriptKeys(sessionID), args)
	if err != nil {
		return false, cerrors.RedisError{Operation: "session_create", Err: err}
	}
	created, err := valkeyx.ParseLuaInt64(resp)
	if err != nil {
		return false, cerrors.RedisError{Operation: "session_create", Err: err}
	}

	if created == 1 {
		s.logger.Debug("session_created", "session_id", sessionID)
	}
	return created == 1, nil
}

// Load: 세션과 현재 버전을 함께 조회합니다. 세션이 없으면 (nil, 0, nil)을 반환합니다.
// 버전을 먼저 읽는다: 읽기 사이에 다른 기록자가 끼어들면 이후 CAS가
// 실패할 뿐 오래된 상태에 새 버전이 붙는 일은 없다.
func (s *Store[T]) Load(ctx context.Context, sessionID string) (*T, int64, error) {
	verRaw, verOK, err := valkeyx.GetString(ctx, s.client, s.verKeyFunc(sessionID))
	if err != nil {
		return nil, 0, cerrors.RedisError{Operation: "session_load_version", Err: err}
	}

	raw, ok, err := valkeyx.GetBytes(ctx, s.client, s.keyFunc(sessionID))
	if err != nil {
		return nil, 0, cerrors.RedisError{Operation: "session_load", Err: err}
	}
	if !ok {
		return nil, 0, nil
	}

	var version int64
	if verOK {
		version, err = strconv.ParseInt(verRaw, 10, 64)
		if err != nil {
			return nil, 0, cerrors.RedisError{Operation: "session_load_version", Err: err}
		}
	}

	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, 0, cerrors.RedisError{Operation: "session_unmarshal", Err: err}
	}
	return &data, version, nil
}

// CompareAndSwap: 버전이 expected와 일치할 때만 세션을 덮어씁니다.
// 적용 여부와 서버의 현재 버전을 반환합니다. 적용 실패는 오류가 아니며,
// 호출자는 다시 로드하여 재평가해야 합니다.
func (s *Store[T]) CompareAndSwap(ctx context.Context, sessionID string, expected int64, data T, indexArgs ...string) (bool, int64, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return false, 0, cerrors.RedisError{Operation: "session_marshal", Err: err}
	}

	args := append([]string{
		strconv.FormatInt(expected, 10),
		string(payload),
		s.ttlSeconds(),
		sessionID,
	}, indexArgs...)
	resp, err := s.registry.Exec(ctx, s.client, s.scriptNames.Write, s.scriptKeys(sessionID), args)
	if err != nil {
		return false, 0, cerrors.RedisError{Operation: "session_cas", Err: err}
	}

	applied, version, err := valkeyx.ParseLuaInt64Pair(resp)
	if err != nil {
		return false, 0, cerrors.RedisError{Operation: "session_cas", Err: err}
	}

	if applied != 1 {
		s.logger.Debug("session_cas_conflict",
			"session_id", sessionID,
			"expected_version", expected,
			"current_version", version,
		)
		return false, version, nil
	}
	return true, version, nil
}

// Delete: 세션과 버전 카운터, 보조 인덱스 항목을 함께 삭제합니다. (게임 종료 시)
func (s *Store[T]) Delete(ctx context.Context, sessionID string) error {
	resp, err := s.registry.Exec(ctx, s.client, s.scriptNames.Delete, s.scriptKeys(sessionID), []string{sessionID})
	if err != nil {
		return cerrors.RedisError{Operation: "session_delete", Err: err}
	}
	if err := resp.Error(); err != nil {
		return cerrors.RedisError{Operation: "session_delete", Err: err}
	}
	s.logger.Debug("session_deleted", "session_id", sessionID)
	return nil
}

// Exists: 세션이 존재하는지 확인합니다.
func (s *Store[T]) Exists(ctx context.Context, sessionID string) (bool, error) {
	key := s.keyFunc(sessionID)

	cmd := s.client.B().Exists().Key(key).Build()
	n, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, cerrors.RedisError{Operation: "session_exists", Err: err}
	}
	return n > 0, nil
}

// Client: 내부 Valkey 클라이언트를 반환합니다.
// 게임별 확장 기능 구현 시 사용됩니다.
func (s *Store[T]) Client() valkey.Client {
	return s.client
}

// Logger: 내부 로거를 반환합니다.
func (s *Store[T]) Logger() *slog.Logger {
	return s.logger
}

// TTL: 설정된 TTL을 반환합니다.
func (s *Store[T]) TTL() time.Duration {
	return s.ttl
}

func (s *Store[T]) scriptKeys(sessionID string) []string {
	keys := make([]string, 0, 2+len(s.indexKeys))
	keys = append(keys, s.keyFunc(sessionID), s.verKeyFunc(sessionID))
	keys = append(keys, s.indexKeys...)
	return keys
}

func (s *Store[T]) ttlSeconds() string {
	return strconv.FormatInt(int64(s.ttl.Seconds()), 10)
}
