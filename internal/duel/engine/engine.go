// Package engine 은 게임 세션 상태 기계의 평가/전이를 담당한다.
// 전이는 전부 조건부 쓰기(CAS)로 기록되므로 동시 평가자 중 하나만 적용된다.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/park285/word-duel-go/internal/duel/catalog"
	dconfig "github.com/park285/word-duel-go/internal/duel/config"
	"github.com/park285/word-duel-go/internal/duel/model"
	"github.com/park285/word-duel-go/internal/duel/oracle"
	"github.com/park285/word-duel-go/internal/duel/repository"
)

// SessionStore 는 엔진이 사용하는 세션 저장소 인터페이스다.
type SessionStore interface {
	Create(ctx context.Context, gameID string, sess *model.GameSession) (bool, error)
	Load(ctx context.Context, gameID string) (*model.GameSession, int64, error)
	Update(ctx context.Context, gameID string, mutate func(sess *model.GameSession) (bool, error)) (*model.GameSession, error)
}

// Settler 는 종료된 게임의 보상 정산 인터페이스다.
type Settler interface {
	Settle(ctx context.Context, gameID string, sess *model.GameSession) error
}

// ProfileSource 는 플레이어 프로필 조회 인터페이스다.
type ProfileSource interface {
	GetProfile(ctx context.Context, playerID string) (*repository.PlayerProfile, error)
}

// WordSource 는 비밀 단어 선택 인터페이스다.
type WordSource interface {
	RandomWord() catalog.Word
}

// Engine 은 세션 평가 워커 풀이다.
// Notify 로 게임 ID를 받아 안정 상태에 도달할 때까지 재평가한다.
type Engine struct {
	sessions SessionStore
	oracle   oracle.Client
	settler  Settler
	profiles ProfileSource
	words    WordSource
	game     dconfig.GameConfig
	logger   *slog.Logger

	queue    chan string
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// evaluateTimeout 은 평가 1회(오라클 호출 포함)의 상한이다.
const evaluateTimeout = 60 * time.Second

// NewEngine 은 Engine 을 생성하고 백그라운드 워커를 시작한다.
func NewEngine(
	sessions SessionStore,
	oracleClient oracle.Client,
	settler Settler,
	profiles ProfileSource,
	words WordSource,
	gameCfg dconfig.GameConfig,
	engineCfg dconfig.EngineConfig,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		sessions: sessions,
		oracle:   oracleClient,
		settler:  settler,
		profiles: profiles,
		words:    words,
		game:     gameCfg,
		logger:   logger,
		queue:    make(chan string, engineCfg.QueueSize),
		stopped:  make(chan struct{}),
	}

	for i := 0; i < engineCfg.WorkerCount; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}

	logger.Info("engine_started",
		"workers", engineCfg.WorkerCount,
		"queue_size", engineCfg.QueueSize,
	)
	return e
}

// Shutdown 정상 종료 - 대기 중인 평가 완료 후 종료
func (e *Engine) Shutdown() {
	if e == nil {
		return
	}
	e.stopOnce.Do(func() {
		close(e.stopped)
		close(e.queue)
		e.wg.Wait()
		e.logger.Info("engine_shutdown_complete")
	})
}

func (e *Engine) worker(id int) {
	defer e.wg.Done()

	for gameID := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), evaluateTimeout)
		if err := e.Evaluate(ctx, gameID); err != nil {
			e.logger.Error("engine_evaluate_failed", "game_id", gameID, "err", err)
		}
		cancel()
	}

	e.logger.Debug("engine_worker_stopped", "worker_id", id)
}

// Notify 는 세션 재평가를 요청한다. 큐가 가득 차면 버린다.
// 버려진 이벤트는 다음 입력이나 스위퍼가 다시 채워 주므로 진행이 멎지는 않는다.
func (e *Engine) Notify(gameID string) {
	if e == nil {
		return
	}
	select {
	case <-e.stopped:
		return
	default:
	}

	select {
	case e.queue <- gameID:
	default:
		e.logger.Warn("engine_queue_full", "game_id", gameID)
	}
}

// CreateGame 은 매치가 성사된 두 플레이어의 새 게임을 초기화한다.
// 비밀 단어를 뽑고 프로필을 채운 뒤 1라운드 진행 상태로 저장한다.
func (e *Engine) CreateGame(ctx context.Context, player1, player2 string) (string, *model.GameSession, error) {
	gameID := newGameID()
	word := e.words.RandomWord()
	now := time.Now()

	sess := model.NewMatchedSession(player1, player2)
	sess.State = model.StateRoundInProgress
	sess.CurrentRound = 1
	sess.SecretWord = word.Word
	sess.Category = word.Category
	sess.RoundDeadline = model.DeadlineAt(now.Add(e.game.RoundDuration))
	for _, playerID := range sess.PlayerIDs {
		sess.Players[playerID] = e.playerState(ctx, playerID)
	}

	created, err := e.sessions.Create(ctx, gameID, &sess)
	if err != nil {
		return "", nil, err
	}
	if !created {
		return "", nil, fmt.Errorf("game id collision: %s", gameID)
	}

	e.logger.Info("game_created",
		"game_id", gameID,
		"player1", player1,
		"player2", player2,
		"category", word.Category,
	)
	return gameID, &sess, nil
}

// playerState 는 프로필 기반 라운드 상태를 만든다.
// 프로필이 없거나 조회에 실패하면 자리표시 프로필로 대체한다.
func (e *Engine) playerState(ctx context.Context, playerID string) model.PlayerRoundState {
	state := model.PlayerRoundState{
		Username:         placeholderUsername(playerID),
		AvatarURL:        fmt.Sprintf(dconfig.DefaultAvatarURLFormat, playerID),
		AvatarFrameID:    dconfig.DefaultAvatarFrameID,
		RemainingGuesses: dconfig.InitialGuessCount,
	}

	profile, err := e.profiles.GetProfile(ctx, playerID)
	if err != nil {
		e.logger.Warn("profile_lookup_failed", "player_id", playerID, "err", err)
		return state
	}
	if profile == nil {
		return state
	}

	if profile.Username != "" {
		state.Username = profile.Username
	}
	if profile.AvatarURL != "" {
		state.AvatarURL = profile.AvatarURL
	}
	if profile.AvatarFrameID != "" {
		state.AvatarFrameID = profile.AvatarFrameID
	}
	return state
}

func placeholderUsername(playerID string) string {
	short := playerID
	if len(short) > 4 {
		short = short[:4]
	}
	return "Player" + short
}

func newGameID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("game-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
