package redis

import (
	"context"
	"log/slog"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	cerrors "github.com/park285/word-duel-go/internal/common/errors"
	"github.com/park285/word-duel-go/internal/common/lua"
	"github.com/park285/word-duel-go/internal/common/valkeyx"
	"github.com/park285/word-duel-go/internal/duel/assets"
	dconfig "github.com/park285/word-duel-go/internal/duel/config"
	"github.com/park285/word-duel-go/internal/duel/model"
)

// QueueScripts 는 매칭 큐가 사용하는 Lua 스크립트 정의 목록이다.
func QueueScripts() []lua.Script {
	return []lua.Script{
		{Name: lua.ScriptQueueMatch, Source: assets.QueueMatchLua},
		{Name: lua.ScriptQueueLeave, Source: assets.QueueLeaveLua},
	}
}

// QueueStore 는 매칭 대기열 저장소다.
// zset(도착 시각 score) + hash(엔트리 메타)로 구성되며,
// 상대 선점과 본인 등록이 단일 스크립트로 묶여 동시 조인에도 중복 매칭이 없다.
type QueueStore struct {
	client   valkey.Client
	registry *lua.Registry
	logger   *slog.Logger
}

// NewQueueStore 는 QueueStore 를 생성한다.
func NewQueueStore(client valkey.Client, registry *lua.Registry, logger *slog.Logger) *QueueStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueStore{client: client, registry: registry, logger: logger}
}

// Match 는 가장 오래 기다린 상대가 있으면 큐에서 제거하고 반환한다.
// 상대가 없으면 entry 를 큐에 등록하고 (nil, nil)을 반환한다.
// 이미 대기 중인 플레이어의 재호출은 엔트리를 새 시각으로 갱신한다.
func (q *QueueStore) Match(ctx context.Context, entry model.QueueEntry) (*model.QueueEntry, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, cerrors.RedisError{Operation: "queue_marshal", Err: err}
	}

	keys := []string{dconfig.RedisKeyQueue, dconfig.RedisKeyQueueMeta}
	args := []string{
		entry.PlayerID,
		string(payload),
		strconv.FormatInt(entry.EnqueuedAt, 10),
		strconv.FormatInt(dconfig.RedisQueueTTLSeconds, 10),
	}
	resp, err := q.registry.Exec(ctx, q.client, lua.ScriptQueueMatch, keys, args)
	if err != nil {
		return nil, cerrors.RedisError{Operation: "queue_match", Err: err}
	}

	msgs, err := valkeyx.ParseLuaArray(resp, 3)
	if err != nil {
		return nil, cerrors.RedisError{Operation: "queue_match", Err: err}
	}
	matched, err := valkeyx.ParseLuaInt64Message(msgs[0])
	if err != nil {
		return nil, cerrors.RedisError{Operation: "queue_match", Err: err}
	}
	if matched != 1 {
		q.logger.Debug("queue_waiting", "player_id", entry.PlayerID)
		return nil, nil
	}

	opponentID, err := msgs[1].ToString()
	if err != nil {
		return nil, cerrors.RedisError{Operation: "queue_match", Err: err}
	}
	rawMeta, err := msgs[2].ToString()
	if err != nil {
		return nil, cerrors.RedisError{Operation: "queue_match", Err: err}
	}

	opponent := model.QueueEntry{
		PlayerID:    opponentID,
		SkillRating: dconfig.DefaultSkillRating,
	}
	// 메타가 만료로 사라진 경우 ID만으로 기본 엔트리를 구성한다.
	if rawMeta != "" {
		if err := json.Unmarshal([]byte(rawMeta), &opponent); err != nil {
			return nil, cerrors.RedisError{Operation: "queue_unmarshal", Err: err}
		}
	}

	q.logger.Debug("queue_matched",
		"player_id", entry.PlayerID,
		"opponent_id", opponent.PlayerID,
	)
	return &opponent, nil
}

// Requeue 는 선점했던 엔트리를 원래 도착 시각 그대로 대기열에 되돌린다.
// 매칭 후 세션 생성이 실패했을 때 상대를 잃어버리지 않기 위한 복구 경로다.
func (q *QueueStore) Requeue(ctx context.Context, entry model.QueueEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return cerrors.RedisError{Operation: "queue_requeue", Err: err}
	}

	cmds := []valkey.Completed{
		q.client.B().Zadd().Key(dconfig.RedisKeyQueue).
			ScoreMember().ScoreMember(float64(entry.EnqueuedAt), entry.PlayerID).Build(),
		q.client.B().Hset().Key(dconfig.RedisKeyQueueMeta).
			FieldValue().FieldValue(entry.PlayerID, string(payload)).Build(),
		q.client.B().Expire().Key(dconfig.RedisKeyQueue).Seconds(dconfig.RedisQueueTTLSeconds).Build(),
		q.client.B().Expire().Key(dconfig.RedisKeyQueueMeta).Seconds(dconfig.RedisQueueTTLSeconds).Build(),
	}
	for _, resp := range q.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return cerrors.RedisError{Operation: "queue_requeue", Err: err}
		}
	}
	return nil
}

// Leave 는 플레이어를 대기열에서 제거한다. 제거 여부를 반환한다.
func (q *QueueStore) Leave(ctx context.Context, playerID string) (bool, error) {
	keys := []string{dconfig.RedisKeyQueue, dconfig.RedisKeyQueueMeta}
	resp, err := q.registry.Exec(ctx, q.client, lua.ScriptQueueLeave, keys, []string{playerID})
	if err != nil {
		return false, cerrors.RedisError{Operation: "queue_leave", Err: err}
	}
	removed, err := valkeyx.ParseLuaInt64(resp)
	if err != nil {
		return false, cerrors.RedisError{Operation: "queue_leave", Err: err}
	}
	return removed > 0, nil
}

// Size 는 현재 대기열 길이를 반환한다.
func (q *QueueStore) Size(ctx context.Context) (int64, error) {
	cmd := q.client.B().Zcard().Key(dconfig.RedisKeyQueue).Build()
	n, err := q.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, cerrors.RedisError{Operation: "queue_size", Err: err}
	}
	return n, nil
}

// Waiting 은 플레이어가 대기열에 있는지 확인한다.
func (q *QueueStore) Waiting(ctx context.Context, playerID string) (bool, error) {
	cmd := q.client.B().Zscore().Key(dconfig.RedisKeyQueue).Member(playerID).Build()
	err := q.client.Do(ctx, cmd).Error()
	if err != nil {
		if valkeyx.IsNil(err) {
			return false, nil
		}
		return false, cerrors.RedisError{Operation: "queue_waiting", Err: err}
	}
	return true, nil
}
