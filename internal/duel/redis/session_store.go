package redis

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"

	cerrors "github.com/park285/word-duel-go/internal/common/errors"
	"github.com/park285/word-duel-go/internal/common/gamesession"
	"github.com/park285/word-duel-go/internal/common/lua"
	"github.com/park285/word-duel-go/internal/common/valkeyx"
	"github.com/park285/word-duel-go/internal/duel/assets"
	dconfig "github.com/park285/word-duel-go/internal/duel/config"
	derrors "github.com/park285/word-duel-go/internal/duel/errors"
	"github.com/park285/word-duel-go/internal/duel/model"
)

// SessionScripts 는 세션 저장소가 사용하는 Lua 스크립트 정의 목록이다.
// Registry 생성 시 QueueScripts와 함께 등록한다.
func SessionScripts() []lua.Script {
	return []lua.Script{
		{Name: lua.ScriptSessionCreate, Source: assets.SessionCreateLua},
		{Name: lua.ScriptSessionCASWrite, Source: assets.SessionCASWriteLua},
		{Name: lua.ScriptSessionDelete, Source: assets.SessionDeleteLua},
	}
}

// SessionStore 는 게임 세션의 버전 관리 저장소다.
// 모든 상태 전이는 조건부 쓰기(CompareAndSwap)로만 기록되며,
// 라운드/최종 추측 데드라인 인덱스는 쓰기와 같은 스크립트 안에서 갱신된다.
type SessionStore struct {
	store  *gamesession.Store[model.GameSession]
	client valkey.Client
	logger *slog.Logger
}

// NewSessionStore 는 SessionStore 를 생성한다.
func NewSessionStore(client valkey.Client, registry *lua.Registry, logger *slog.Logger) *SessionStore {
	store := gamesession.NewStore[model.GameSession](client, registry, logger, gamesession.Config{
		KeyFunc:        sessionKey,
		VersionKeyFunc: sessionVersionKey,
		TTL:            dconfig.RedisSessionTTLSeconds * time.Second,
		IndexKeys: []string{
			dconfig.RedisKeyDeadlineRound,
			dconfig.RedisKeyDeadlineFinal,
		},
		Scripts: gamesession.Scripts{
			Create: lua.ScriptSessionCreate,
			Write:  lua.ScriptSessionCASWrite,
			Delete: lua.ScriptSessionDelete,
		},
	})
	return &SessionStore{
		store:  store,
		client: client,
		logger: store.Logger(),
	}
}

// Create 는 세션을 생성한다. 같은 gameID가 이미 있으면 false를 반환한다.
func (s *SessionStore) Create(ctx context.Context, gameID string, sess *model.GameSession) (bool, error) {
	roundArg, finalArg := deadlineArgs(sess)
	return s.store.Create(ctx, gameID, *sess, roundArg, finalArg)
}

// Load 는 세션과 현재 버전을 조회한다. 없으면 (nil, 0, nil)을 반환한다.
func (s *SessionStore) Load(ctx context.Context, gameID string) (*model.GameSession, int64, error) {
	return s.store.Load(ctx, gameID)
}

// CompareAndSwap 은 버전이 일치할 때만 세션을 덮어쓴다.
// 적용 실패는 오류가 아니다. 호출자는 다시 로드하여 재평가한다.
func (s *SessionStore) CompareAndSwap(ctx context.Context, gameID string, expected int64, sess *model.GameSession) (bool, int64, error) {
	roundArg, finalArg := deadlineArgs(sess)
	return s.store.CompareAndSwap(ctx, gameID, expected, *sess, roundArg, finalArg)
}

// Update 는 로드-변형-조건부쓰기를 재시도 루프로 감싼 헬퍼다.
// mutate 가 false 를 반환하면 쓰기 없이 현재 세션을 그대로 반환한다.
// 버전 충돌 시 다시 로드하여 재평가하며, 한도를 넘으면 오류를 반환한다.
func (s *SessionStore) Update(
	ctx context.Context,
	gameID string,
	mutate func(sess *model.GameSession) (bool, error),
) (*model.GameSession, error) {
	for attempt := 0; attempt < dconfig.CASMaxAttempts; attempt++ {
		sess, version, err := s.Load(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			return nil, derrors.SessionNotFoundError{GameID: gameID}
		}

		apply, err := mutate(sess)
		if err != nil {
			return nil, err
		}
		if !apply {
			return sess, nil
		}

		applied, _, err := s.CompareAndSwap(ctx, gameID, version, sess)
		if err != nil {
			return nil, err
		}
		if applied {
			return sess, nil
		}
	}
	return nil, derrors.ConflictRetryExceededError{GameID: gameID, Attempts: dconfig.CASMaxAttempts}
}

// Delete 는 세션/버전/데드라인 인덱스를 함께 삭제한다.
func (s *SessionStore) Delete(ctx context.Context, gameID string) error {
	return s.store.Delete(ctx, gameID)
}

// Exists 는 세션 존재 여부를 확인한다.
func (s *SessionStore) Exists(ctx context.Context, gameID string) (bool, error) {
	return s.store.Exists(ctx, gameID)
}

// ExpiredRoundDeadlines 는 라운드 데드라인이 now 이전인 게임 ID 목록을 반환한다.
func (s *SessionStore) ExpiredRoundDeadlines(ctx context.Context, now time.Time) ([]string, error) {
	return s.expiredDeadlines(ctx, dconfig.RedisKeyDeadlineRound, now)
}

// ExpiredFinalDeadlines 는 최종 추측 데드라인이 now 이전인 게임 ID 목록을 반환한다.
func (s *SessionStore) ExpiredFinalDeadlines(ctx context.Context, now time.Time) ([]string, error) {
	return s.expiredDeadlines(ctx, dconfig.RedisKeyDeadlineFinal, now)
}

func (s *SessionStore) expiredDeadlines(ctx context.Context, key string, now time.Time) ([]string, error) {
	max := strconv.FormatInt(now.UnixMilli(), 10)
	cmd := s.client.B().Zrangebyscore().Key(key).Min("-inf").Max(max).Build()
	ids, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, cerrors.RedisError{Operation: "deadline_scan", Err: err}
	}
	return ids, nil
}

// ClaimSettlement 는 보상 정산 마커를 선점한다.
// 최초 호출자만 true를 받으므로 정산은 게임당 한 번만 수행된다.
func (s *SessionStore) ClaimSettlement(ctx context.Context, gameID string) (bool, error) {
	ok, err := valkeyx.SetNXStringEX(
		ctx, s.client, settledKey(gameID), "1",
		dconfig.RedisSettledTTLSeconds*time.Second,
	)
	if err != nil {
		return false, cerrors.RedisError{Operation: "settlement_claim", Err: err}
	}
	return ok, nil
}

// ReleaseSettlement 는 정산 마커를 되돌린다. (정산 실패 시 재시도 허용)
func (s *SessionStore) ReleaseSettlement(ctx context.Context, gameID string) error {
	if err := valkeyx.DeleteKeys(ctx, s.client, settledKey(gameID)); err != nil {
		return cerrors.RedisError{Operation: "settlement_release", Err: err}
	}
	return nil
}

// deadlineArgs 는 세션 상태에 따라 CAS 스크립트의 데드라인 인덱스 인자를 만든다.
// ROUND_IN_PROGRESS 는 라운드 zset, FINAL_GUESS_PHASE 는 최종 zset 에만 등록된다.
func deadlineArgs(sess *model.GameSession) (string, string) {
	if sess.RoundDeadline == nil {
		return "", ""
	}
	ms := strconv.FormatInt(*sess.RoundDeadline, 10)
	switch sess.State {
	case model.StateRoundInProgress:
		return ms, ""
	case model.StateFinalGuess:
		return "", ms
	}
	return "", ""
}
