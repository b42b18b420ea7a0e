// Package service 는 워드 듀얼의 플레이어 대면 오퍼레이션을 구현한다.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"

	dconfig "github.com/park285/word-duel-go/internal/duel/config"
	"github.com/park285/word-duel-go/internal/duel/engine"
	derrors "github.com/park285/word-duel-go/internal/duel/errors"
	"github.com/park285/word-duel-go/internal/duel/model"
	dredis "github.com/park285/word-duel-go/internal/duel/redis"
	"github.com/park285/word-duel-go/internal/duel/repository"
)

// Service 는 매치메이킹/질문 제출/최종 추측을 처리한다.
type Service struct {
	queue    *dredis.QueueStore
	sessions *dredis.SessionStore
	engine   *engine.Engine
	repo     *repository.Repository
	logger   *slog.Logger
	folder   cases.Caser
}

// New 는 Service 를 생성한다.
func New(
	queue *dredis.QueueStore,
	sessions *dredis.SessionStore,
	eng *engine.Engine,
	repo *repository.Repository,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		queue:    queue,
		sessions: sessions,
		engine:   eng,
		repo:     repo,
		logger:   logger,
		folder:   cases.Fold(),
	}
}

// JoinMatchmaking 은 플레이어를 매칭 큐에 넣거나, 대기 중인 상대와 즉시 매칭한다.
// 매칭이 성사되면 게임 ID를, 대기 상태면 빈 문자열을 반환한다.
// 큐의 가장 오래된 상대가 선점되며(FIFO), 본인과는 매칭되지 않는다.
func (s *Service) JoinMatchmaking(ctx context.Context, playerID string) (string, error) {
	entry := model.QueueEntry{
		PlayerID:    playerID,
		SkillRating: dconfig.DefaultSkillRating,
		EnqueuedAt:  time.Now().UnixMilli(),
	}

	opponent, err := s.queue.Match(ctx, entry)
	if err != nil {
		return "", err
	}
	if opponent == nil {
		s.logger.Info("matchmaking_waiting", "player_id", playerID)
		return "", nil
	}

	// 먼저 기다린 쪽이 player1 이다.
	gameID, _, err := s.engine.CreateGame(ctx, opponent.PlayerID, playerID)
	if err != nil {
		// 선점은 했는데 세션을 못 만들었다. 상대를 원래 순번으로 되돌려
		// 큐에서 조용히 사라지는 일이 없게 한다.
		if requeueErr := s.queue.Requeue(ctx, *opponent); requeueErr != nil {
			s.logger.Error("matchmaking_requeue_failed",
				"player_id", playerID,
				"opponent_id", opponent.PlayerID,
				"err", requeueErr,
			)
		} else {
			s.logger.Warn("matchmaking_rolled_back",
				"player_id", playerID,
				"opponent_id", opponent.PlayerID,
			)
		}
		return "", err
	}
	return gameID, nil
}

// LeaveMatchmaking 은 대기열에서 빠져나온다. 대기 중이 아니었다면 false 를 반환한다.
func (s *Service) LeaveMatchmaking(ctx context.Context, playerID string) (bool, error) {
	return s.queue.Leave(ctx, playerID)
}

// SubmitQuestion 은 진행 중인 라운드에 질문을 제출한다.
// 라운드당 한 번만 제출할 수 있으며, 둘 다 제출하면 엔진이 판정을 시작한다.
func (s *Service) SubmitQuestion(ctx context.Context, gameID, playerID, question string) error {
	sanitized := strings.TrimSpace(question)
	length := utf8.RuneCountInString(sanitized)
	if length < dconfig.QuestionMinLength || length > dconfig.QuestionMaxLength {
		return derrors.InvalidQuestionError{Message: "question must be between 5 and 200 characters"}
	}

	_, err := s.sessions.Update(ctx, gameID, func(sess *model.GameSession) (bool, error) {
		if !sess.IsParticipant(playerID) {
			return false, derrors.NotParticipantError{GameID: gameID, PlayerID: playerID}
		}
		if sess.State != model.StateRoundInProgress {
			return false, derrors.PreconditionError{Reason: "game is not in an active round"}
		}
		if sess.QuestionOf(playerID) != "" {
			return false, derrors.PreconditionError{Reason: "question already submitted for this round"}
		}

		player := sess.Players[playerID]
		player.CurrentQuestion = model.StringPtr(sanitized)
		sess.Players[playerID] = player
		return true, nil
	})
	if err != nil {
		return err
	}

	s.engine.Notify(gameID)
	return nil
}

// GuessResult: 최종 추측 결과
type GuessResult struct {
	Correct          bool `json:"correct"`
	RemainingGuesses int  `json:"remainingGuesses"`
}

// FinalGuess 는 단어 추측을 처리한다. 상태와 무관하게 참가자는 남은 추측 횟수 안에서
// 언제든 추측할 수 있다. (최종 추측 단계 전이라도 정답을 맞히면 즉시 승리)
// 비교는 공백 제거 후 케이스 폴딩으로 이루어진다. 정답이면 승리로 종료되고,
// 둘 다 추측 횟수를 소진하면 무승부로 종료된다.
func (s *Service) FinalGuess(ctx context.Context, gameID, playerID, guess string) (GuessResult, error) {
	sanitized := strings.TrimSpace(guess)
	if sanitized == "" {
		return GuessResult{}, derrors.InvalidGuessError{Message: "guess is empty"}
	}
	if utf8.RuneCountInString(sanitized) > dconfig.GuessMaxLength {
		return GuessResult{}, derrors.InvalidGuessError{Message: "guess is too long"}
	}

	var result GuessResult
	updated, err := s.sessions.Update(ctx, gameID, func(sess *model.GameSession) (bool, error) {
		if !sess.IsParticipant(playerID) {
			return false, derrors.NotParticipantError{GameID: gameID, PlayerID: playerID}
		}

		player := sess.Players[playerID]
		if player.RemainingGuesses <= 0 {
			return false, derrors.PreconditionError{Reason: "no remaining guesses"}
		}

		player.RemainingGuesses--
		sess.Players[playerID] = player

		correct := s.folder.String(sanitized) == s.folder.String(strings.TrimSpace(sess.SecretWord))
		result = GuessResult{Correct: correct, RemainingGuesses: player.RemainingGuesses}

		if correct {
			sess.State = model.StateGameOver
			sess.WinnerID = model.StringPtr(playerID)
			sess.RoundDeadline = nil
			return true, nil
		}
		if sess.BothOutOfGuesses() {
			sess.State = model.StateGameOver
			sess.WinnerID = model.StringPtr(model.WinnerDraw)
			sess.RoundDeadline = nil
		}
		return true, nil
	})
	if err != nil {
		return GuessResult{}, err
	}

	if updated.IsTerminal() {
		// 정산은 엔진 경유로 비동기 처리한다.
		s.engine.Notify(gameID)
	}

	s.logger.Info("final_guess",
		"game_id", gameID,
		"player_id", playerID,
		"correct", result.Correct,
		"remaining", result.RemainingGuesses,
	)
	return result, nil
}

// Session 은 참가자에게 보이는 세션 뷰를 반환한다.
// 진행 중에는 비밀 단어와 상대의 현재 질문이 가려진다.
func (s *Service) Session(ctx context.Context, gameID, playerID string) (*SessionView, error) {
	sess, _, err := s.sessions.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, derrors.SessionNotFoundError{GameID: gameID}
	}
	if !sess.IsParticipant(playerID) {
		return nil, derrors.NotParticipantError{GameID: gameID, PlayerID: playerID}
	}
	return buildSessionView(gameID, playerID, sess), nil
}

// Profile 은 플레이어 프로필을 조회한다. 없으면 (nil, nil)을 반환한다.
func (s *Service) Profile(ctx context.Context, playerID string) (*repository.PlayerProfile, error) {
	return s.repo.GetProfile(ctx, playerID)
}
