// Package rewards 는 종료된 게임의 보상 정산을 담당한다.
package rewards

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dconfig "github.com/park285/word-duel-go/internal/duel/config"
	"github.com/park285/word-duel-go/internal/duel/model"
	"github.com/park285/word-duel-go/internal/duel/repository"
)

// 정산 결과 분류.
const (
	OutcomeWin   = "WIN"
	OutcomeDraw  = "DRAW"
	OutcomeError = "ERROR"
)

// MarkerStore 는 정산 마커 선점 인터페이스다.
type MarkerStore interface {
	ClaimSettlement(ctx context.Context, gameID string) (bool, error)
	ReleaseSettlement(ctx context.Context, gameID string) error
}

// SettlementRepository 는 보상 적용 인터페이스다.
type SettlementRepository interface {
	ApplySettlement(ctx context.Context, p repository.SettlementParams) error
}

// Settler 는 GAME_OVER 세션의 보상을 정확히 한 번 적용한다.
// Redis 마커 선점으로 중복 정산을 막고, 적용 실패 시 마커를 되돌려 재시도를 허용한다.
type Settler struct {
	markers MarkerStore
	repo    SettlementRepository
	logger  *slog.Logger
}

// NewSettler 는 Settler 를 생성한다.
func NewSettler(markers MarkerStore, repo SettlementRepository, logger *slog.Logger) *Settler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Settler{markers: markers, repo: repo, logger: logger}
}

// Settle 은 종료된 세션의 보상을 정산한다.
// 이미 정산된 게임이면 아무것도 하지 않는다.
func (s *Settler) Settle(ctx context.Context, gameID string, sess *model.GameSession) error {
	if sess == nil || sess.State != model.StateGameOver {
		return fmt.Errorf("settle requires finished game: %s", gameID)
	}
	if len(sess.PlayerIDs) != 2 {
		return fmt.Errorf("settle requires two players: %s", gameID)
	}

	claimed, err := s.markers.ClaimSettlement(ctx, gameID)
	if err != nil {
		return err
	}
	if !claimed {
		s.logger.Debug("settlement_already_done", "game_id", gameID)
		return nil
	}

	outcome, deltas := buildDeltas(sess)
	params := repository.SettlementParams{
		GameID:      gameID,
		PlayerAID:   sess.PlayerIDs[0],
		PlayerBID:   sess.PlayerIDs[1],
		WinnerID:    sess.WinnerID,
		Outcome:     outcome,
		SecretWord:  sess.SecretWord,
		Category:    sess.Category,
		RoundsTotal: sess.CurrentRound,
		Deltas:      deltas,
		CompletedAt: time.Now(),
	}

	if err := s.repo.ApplySettlement(ctx, params); err != nil {
		// 마커를 되돌려 다음 스윕에서 다시 정산을 시도하게 한다.
		if releaseErr := s.markers.ReleaseSettlement(ctx, gameID); releaseErr != nil {
			s.logger.Error("settlement_release_failed",
				"game_id", gameID,
				"err", releaseErr,
			)
		}
		return err
	}

	s.logger.Info("settlement_applied",
		"game_id", gameID,
		"outcome", outcome,
		"winner_id", sess.WinnerID,
	)
	return nil
}

// buildDeltas 는 세션의 승자 표기에 따라 보상 증분을 계산한다.
// 판정 오류로 끝난 게임은 아무 보상도 적용하지 않는다.
func buildDeltas(sess *model.GameSession) (string, []repository.RewardDelta) {
	if sess.WinnerID == nil || *sess.WinnerID == model.WinnerError {
		return OutcomeError, nil
	}

	if *sess.WinnerID == model.WinnerDraw {
		deltas := make([]repository.RewardDelta, 0, 2)
		for _, playerID := range sess.PlayerIDs {
			deltas = append(deltas, repository.RewardDelta{
				PlayerID:    playerID,
				XP:          dconfig.RewardDrawXP,
				Coins:       dconfig.RewardDrawCoins,
				ResetStreak: true,
			})
		}
		return OutcomeDraw, deltas
	}

	winnerID := *sess.WinnerID
	loserID := sess.Opponent(winnerID)
	return OutcomeWin, []repository.RewardDelta{
		{
			PlayerID: winnerID,
			XP:       dconfig.RewardWinnerXP,
			Coins:    dconfig.RewardWinnerCoins,
			WonInc:   1,
		},
		{
			PlayerID:    loserID,
			XP:          dconfig.RewardLoserXP,
			Coins:       dconfig.RewardLoserCoins,
			ResetStreak: true,
		},
	}
}
