package repository

import "time"

// PlayerProfile: 플레이어 프로필/누적 보상 기록
type PlayerProfile struct {
	PlayerID      string    `gorm:"column:player_id;primaryKey"`
	Username      string    `gorm:"column:username;not null;default:''"`
	AvatarURL     string    `gorm:"column:avatar_url;not null;default:''"`
	AvatarFrameID string    `gorm:"column:avatar_frame_id;not null;default:'basic'"`
	XP            int       `gorm:"column:xp;not null;default:0"`
	Coins         int       `gorm:"column:coins;not null;default:0"`
	GamesPlayed   int       `gorm:"column:games_played;not null;default:0"`
	GamesWon      int       `gorm:"column:games_won;not null;default:0"`
	CurrentStreak int       `gorm:"column:current_streak;not null;default:0"`
	SkillRating   int       `gorm:"column:skill_rating;not null;default:1200"`
	CreatedAt     time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (PlayerProfile) TableName() string { return "player_profiles" }

// MatchRecord: 완료된 게임 결과 기록 (정산 감사용)
type MatchRecord struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	GameID      string    `gorm:"column:game_id;not null;uniqueIndex"`
	PlayerAID   string    `gorm:"column:player_a_id;not null;index"`
	PlayerBID   string    `gorm:"column:player_b_id;not null;index"`
	WinnerID    *string   `gorm:"column:winner_id"`
	Outcome     string    `gorm:"column:outcome;not null"`
	SecretWord  string    `gorm:"column:secret_word;not null;default:''"`
	Category    string    `gorm:"column:category;not null;default:''"`
	RoundsTotal int       `gorm:"column:rounds_total;not null;default:0"`
	CompletedAt time.Time `gorm:"column:completed_at;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (MatchRecord) TableName() string { return "match_records" }
