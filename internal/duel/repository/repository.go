// Package repository 는 플레이어 프로필/매치 기록의 GORM 기반 영속층이다.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository: DB 접근을 위한 GORM 기반 리포지토리
type Repository struct {
	db *gorm.DB
}

// New: 새로운 Repository 인스턴스를 생성한다.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate: 자동으로 DB 테이블 스키마를 마이그레이션한다.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("db is nil")
	}
	if err := r.db.WithContext(ctx).AutoMigrate(
		&PlayerProfile{},
		&MatchRecord{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}

// GetProfile: 플레이어 프로필을 조회한다. 없으면 (nil, nil)을 반환한다.
func (r *Repository) GetProfile(ctx context.Context, playerID string) (*PlayerProfile, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, nil
	}

	var profile PlayerProfile
	err := r.db.WithContext(ctx).First(&profile, "player_id = ?", playerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile failed: %w", err)
	}
	return &profile, nil
}

// RewardDelta: 정산 시 한 플레이어에게 적용할 보상 증분
type RewardDelta struct {
	PlayerID    string
	XP          int
	Coins       int
	WonInc      int
	ResetStreak bool
}

// SettlementParams: 게임 정산 파라미터
type SettlementParams struct {
	GameID      string
	PlayerAID   string
	PlayerBID   string
	WinnerID    *string
	Outcome     string
	SecretWord  string
	Category    string
	RoundsTotal int
	Deltas      []RewardDelta
	CompletedAt time.Time
}

// ApplySettlement: 매치 기록과 보상 증분을 단일 트랜잭션으로 적용한다.
// 프로필이 없는 플레이어의 증분은 조용히 건너뛴다. (업데이트 0건은 오류가 아님)
// 같은 gameID의 매치 기록 재삽입은 무시되므로 재시도에 안전하다.
func (r *Repository) ApplySettlement(ctx context.Context, p SettlementParams) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("db is nil")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := MatchRecord{
			GameID:      p.GameID,
			PlayerAID:   p.PlayerAID,
			PlayerBID:   p.PlayerBID,
			WinnerID:    p.WinnerID,
			Outcome:     p.Outcome,
			SecretWord:  p.SecretWord,
			Category:    p.Category,
			RoundsTotal: p.RoundsTotal,
			CompletedAt: p.CompletedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game_id"}},
			DoNothing: true,
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("record match failed: %w", err)
		}

		for _, delta := range p.Deltas {
			if err := applyRewardDelta(tx, delta, p.CompletedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyRewardDelta(tx *gorm.DB, delta RewardDelta, now time.Time) error {
	playerID := strings.TrimSpace(delta.PlayerID)
	if playerID == "" {
		return nil
	}

	updates := map[string]any{
		"xp":           gorm.Expr("\"player_profiles\".\"xp\" + ?", delta.XP),
		"coins":        gorm.Expr("\"player_profiles\".\"coins\" + ?", delta.Coins),
		"games_played": gorm.Expr("\"player_profiles\".\"games_played\" + 1"),
		"games_won":    gorm.Expr("\"player_profiles\".\"games_won\" + ?", delta.WonInc),
		"updated_at":   now,
	}
	if delta.ResetStreak {
		updates["current_streak"] = 0
	} else {
		updates["current_streak"] = gorm.Expr("\"player_profiles\".\"current_streak\" + 1")
	}

	if err := tx.
		Model(&PlayerProfile{}).
		Where("player_id = ?", playerID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("apply reward delta failed (%s): %w", playerID, err)
	}
	return nil
}
