// Package sweeper 는 마감 시각이 지난 세션을 주기적으로 회수한다.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	dconfig "github.com/park285/word-duel-go/internal/duel/config"
)

// DeadlineIndex 는 마감 ZSET 조회 인터페이스다.
type DeadlineIndex interface {
	ExpiredRoundDeadlines(ctx context.Context, now time.Time) ([]string, error)
	ExpiredFinalDeadlines(ctx context.Context, now time.Time) ([]string, error)
}

// TimeoutEnforcer 는 만료된 세션에 타임아웃 전이를 적용한다.
type TimeoutEnforcer interface {
	ForceRoundTimeout(ctx context.Context, gameID string, now time.Time) error
	ForceFinalTimeout(ctx context.Context, gameID string, now time.Time) error
}

// Sweeper 는 주기적으로 마감 인덱스를 스캔해 타임아웃을 강제한다.
// 한 게임의 처리 실패는 같은 패스의 다른 게임에 영향을 주지 않는다.
type Sweeper struct {
	index    DeadlineIndex
	enforcer TimeoutEnforcer
	interval time.Duration
	logger   *slog.Logger
}

// New 는 Sweeper 를 생성한다.
func New(index DeadlineIndex, enforcer TimeoutEnforcer, cfg dconfig.SweeperConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		index:    index,
		enforcer: enforcer,
		interval: interval,
		logger:   logger,
	}
}

// Run 은 ctx가 취소될 때까지 스윕 루프를 돈다.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce 는 한 번의 스윕 패스를 수행한다.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := time.Now()

	rounds, err := s.index.ExpiredRoundDeadlines(ctx, now)
	if err != nil {
		s.logger.Error("sweep_round_scan_failed", "err", err)
	} else {
		for _, gameID := range rounds {
			if err := s.enforcer.ForceRoundTimeout(ctx, gameID, now); err != nil {
				s.logger.Warn("sweep_round_timeout_failed", "game_id", gameID, "err", err)
			}
		}
	}

	finals, err := s.index.ExpiredFinalDeadlines(ctx, now)
	if err != nil {
		s.logger.Error("sweep_final_scan_failed", "err", err)
		return
	}
	for _, gameID := range finals {
		if err := s.enforcer.ForceFinalTimeout(ctx, gameID, now); err != nil {
			s.logger.Warn("sweep_final_timeout_failed", "game_id", gameID, "err", err)
		}
	}

	if len(rounds) > 0 || len(finals) > 0 {
		s.logger.Info("sweep_pass", "round_expired", len(rounds), "final_expired", len(finals))
	}
}
