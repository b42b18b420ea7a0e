package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/park285/word-duel-go/internal/duel/model"
)

// maxEvaluatePasses 는 평가 1회당 상태 전이 횟수 상한이다.
// 패스트트랙 -> 판정 -> 다음 라운드처럼 연쇄 전이가 있어도 이 안에 안정된다.
const maxEvaluatePasses = 8

// Evaluate 는 세션이 안정 상태가 될 때까지 전이를 반복 적용한다.
// 안정 상태: 추가 입력(질문/추측/타임아웃) 없이는 더 진행할 수 없는 상태.
func (e *Engine) Evaluate(ctx context.Context, gameID string) error {
	for pass := 0; pass < maxEvaluatePasses; pass++ {
		sess, _, err := e.sessions.Load(ctx, gameID)
		if err != nil {
			return err
		}
		if sess == nil {
			e.logger.Debug("evaluate_session_gone", "game_id", gameID)
			return nil
		}

		switch sess.State {
		case model.StateRoundInProgress:
			if !sess.BothQuestionsSubmitted() {
				return nil
			}
			// 패스트트랙: 둘 다 제출했으면 마감을 기다리지 않고 판정 단계로 넘어간다.
			if _, err := e.sessions.Update(ctx, gameID, func(s *model.GameSession) (bool, error) {
				if s.State != model.StateRoundInProgress || !s.BothQuestionsSubmitted() {
					return false, nil
				}
				s.State = model.StateWaitingAnswers
				s.RoundDeadline = nil
				return true, nil
			}); err != nil {
				return err
			}

		case model.StateWaitingAnswers:
			return e.adjudicate(ctx, gameID, sess)

		case model.StateGameOver:
			return e.settler.Settle(ctx, gameID, sess)

		default:
			// FINAL_GUESS_PHASE 는 추측/타임아웃 입력으로만 진행된다. MATCHING 도 안정.
			return nil
		}
	}

	e.logger.Warn("evaluate_pass_limit", "game_id", gameID)
	return nil
}

// adjudicate 는 WAITING_FOR_ANSWERS 세션의 두 질문을 판정하고 라운드를 진행시킨다.
// 오라클 호출 실패와 타임아웃 자리표시 질문은 모두 NEUTRAL 로 처리된다.
// 실제 기록은 CAS 로 적용되므로, 동시 판정자 중 하나만 결과를 남긴다.
func (e *Engine) adjudicate(ctx context.Context, gameID string, snapshot *model.GameSession) error {
	playerIDs := snapshot.PlayerIDs
	slots := make([]model.Verdict, len(playerIDs))
	g, gctx := errgroup.WithContext(ctx)

	for i, playerID := range playerIDs {
		question := snapshot.QuestionOf(playerID)
		if question == "" || question == model.TimeoutNoQuestion {
			slots[i] = model.VerdictNeutral
			continue
		}

		slot, id := i, playerID
		g.Go(func() error {
			verdict, err := e.oracle.Answer(gctx, snapshot.SecretWord, snapshot.Category, question)
			if err != nil {
				e.logger.Warn("oracle_failed",
					"game_id", gameID,
					"player_id", id,
					"err", err,
				)
				verdict = model.VerdictNeutral
			}
			slots[slot] = verdict
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	verdicts := make(map[string]model.Verdict, len(playerIDs))
	for i, playerID := range playerIDs {
		verdicts[playerID] = slots[i]
	}

	now := time.Now()
	applied := false
	updated, err := e.sessions.Update(ctx, gameID, func(s *model.GameSession) (bool, error) {
		// 상태만으로는 부족하다: 늦게 도착한 판정자가 다음 라운드의
		// WAITING_FOR_ANSWERS 에 이전 라운드 판정을 덮어쓰지 못하도록
		// 스냅샷 라운드와 일치할 때만 기록한다.
		if s.State != model.StateWaitingAnswers || s.CurrentRound != snapshot.CurrentRound {
			applied = false
			return false, nil
		}

		entry := model.HistoryEntry{
			Round:     s.CurrentRound,
			PerPlayer: make(map[string]model.HistoryAnswer, len(s.PlayerIDs)),
		}
		for _, playerID := range s.PlayerIDs {
			question := s.QuestionOf(playerID)
			verdict, ok := verdicts[playerID]
			if !ok {
				verdict = model.VerdictNeutral
			}
			entry.PerPlayer[playerID] = model.HistoryAnswer{
				Question: historyQuestion(question),
				Answer:   string(verdict),
			}

			player := s.Players[playerID]
			player.LastAnswer = model.StringPtr(string(verdict))
			player.CurrentQuestion = nil
			player.ReadyForNextRound = false
			s.Players[playerID] = player
		}
		s.History = append(s.History, entry)

		if s.CurrentRound >= e.game.MaxRounds {
			s.State = model.StateFinalGuess
			s.RoundDeadline = model.DeadlineAt(now.Add(e.game.FinalGuessDuration))
		} else {
			s.State = model.StateRoundInProgress
			s.CurrentRound++
			s.RoundDeadline = model.DeadlineAt(now.Add(e.game.RoundDuration))
		}
		applied = true
		return true, nil
	})
	if err != nil {
		return err
	}
	if !applied {
		e.logger.Debug("adjudication_superseded",
			"game_id", gameID,
			"round", snapshot.CurrentRound,
		)
		return nil
	}

	e.logger.Info("round_adjudicated",
		"game_id", gameID,
		"round", snapshot.CurrentRound,
		"next_state", updated.State,
	)
	return nil
}

// historyQuestion 은 히스토리에 기록할 질문 문자열을 만든다.
// 타임아웃 자리표시 질문은 TIMEOUT 으로 축약한다.
func historyQuestion(question string) string {
	if question == "" || question == model.TimeoutNoQuestion {
		return "TIMEOUT"
	}
	return question
}

// ForceRoundTimeout 은 마감이 지난 ROUND_IN_PROGRESS 세션을 판정 단계로 강제 이동시킨다.
// 미제출 질문은 타임아웃 자리표시로 채워지며 이후 NEUTRAL 판정을 받는다.
func (e *Engine) ForceRoundTimeout(ctx context.Context, gameID string, now time.Time) error {
	_, err := e.sessions.Update(ctx, gameID, func(s *model.GameSession) (bool, error) {
		if s.State != model.StateRoundInProgress || !s.DeadlineExpired(now) {
			return false, nil
		}
		for _, playerID := range s.PlayerIDs {
			if s.QuestionOf(playerID) == "" {
				player := s.Players[playerID]
				player.CurrentQuestion = model.StringPtr(model.TimeoutNoQuestion)
				s.Players[playerID] = player
			}
		}
		s.State = model.StateWaitingAnswers
		s.RoundDeadline = nil
		return true, nil
	})
	if err != nil {
		return err
	}

	e.Notify(gameID)
	return nil
}

// ForceFinalTimeout 은 마감이 지난 FINAL_GUESS_PHASE 세션을 무승부로 종료시킨다.
func (e *Engine) ForceFinalTimeout(ctx context.Context, gameID string, now time.Time) error {
	_, err := e.sessions.Update(ctx, gameID, func(s *model.GameSession) (bool, error) {
		if s.State != model.StateFinalGuess || !s.DeadlineExpired(now) {
			return false, nil
		}
		s.State = model.StateGameOver
		s.WinnerID = model.StringPtr(model.WinnerDraw)
		s.RoundDeadline = nil
		return true, nil
	})
	if err != nil {
		return err
	}

	e.Notify(gameID)
	return nil
}
