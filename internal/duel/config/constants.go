package config

// RedisKeyPrefix 는 Redis 키 상수 목록이다.
const (
	RedisKeyPrefix        = "duel"
	RedisKeySessionPrefix = RedisKeyPrefix + ":session"
	RedisKeyVersionPrefix = RedisKeyPrefix + ":session:ver"
	RedisKeySettledPrefix = RedisKeyPrefix + ":settled"

	RedisKeyQueue     = RedisKeyPrefix + ":queue"
	RedisKeyQueueMeta = RedisKeyPrefix + ":queue:meta"

	RedisKeyDeadlineRound = RedisKeyPrefix + ":deadline:round"
	RedisKeyDeadlineFinal = RedisKeyPrefix + ":deadline:final"
)

// RedisSessionTTLSeconds 는 Redis TTL 상수 목록이다.
const (
	RedisSessionTTLSeconds = 12 * 60 * 60
	RedisSettledTTLSeconds = 24 * 60 * 60
	RedisQueueTTLSeconds   = 10 * 60
)

// MaxRounds 는 게임 규칙 상수 목록이다.
const (
	MaxRounds          = 10
	InitialGuessCount  = 3
	RoundSeconds       = 10
	FinalGuessSeconds  = 15
	QuestionMinLength  = 5
	QuestionMaxLength  = 200
	GuessMaxLength     = 100
	DefaultSkillRating = 1200
)

// RewardWinnerXP 는 보상 상수 목록이다.
const (
	RewardWinnerXP    = 50
	RewardWinnerCoins = 100
	RewardLoserXP     = 10
	RewardLoserCoins  = 0
	RewardDrawXP      = 20
	RewardDrawCoins   = 20
)

// OracleTimeoutSeconds 는 상수다.
const (
	OracleTimeoutSeconds = 20
)

// CASMaxAttempts 는 조건부 쓰기 재시도 한도다.
const (
	CASMaxAttempts = 5
)

// DefaultAvatarURLFormat 신규 매칭 시 프로필이 없는 플레이어에게 부여하는
// 플레이스홀더 아바타 URL 포맷. (%s = playerID)
const DefaultAvatarURLFormat = "https://i.pravatar.cc/150?u=%s"

// DefaultAvatarFrameID 는 상수다.
const DefaultAvatarFrameID = "basic"
