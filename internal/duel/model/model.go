// Package model 은 워드 듀얼 게임 세션의 영속 스키마를 정의한다.
// JSON 필드명과 enum 리터럴은 저장소에 기록되는 호환성 표면이므로 변경하면 안 된다.
package model

import (
	"slices"
	"strings"
	"time"
)

// GameState: 세션 상태 enum. GAME_OVER만 터미널 상태다.
type GameState string

// MATCHING 등: 세션 상태 리터럴 목록
const (
	StateMatching        GameState = "MATCHING"
	StateRoundInProgress GameState = "ROUND_IN_PROGRESS"
	StateWaitingAnswers  GameState = "WAITING_FOR_ANSWERS"
	StateFinalGuess      GameState = "FINAL_GUESS_PHASE"
	StateGameOver        GameState = "GAME_OVER"
)

// Verdict: 심판(오라클)의 3상 판정 결과
type Verdict string

// VerdictYes 등: 판정 리터럴 목록. 오라클 경로의 모든 실패는 NEUTRAL로 강등된다.
const (
	VerdictYes     Verdict = "YES"
	VerdictNo      Verdict = "NO"
	VerdictNeutral Verdict = "NEUTRAL"
)

// 게임 규칙 리터럴
const (
	// TimeoutNoQuestion: 라운드 마감까지 질문을 내지 않은 플레이어에게 대입되는 자리표시 질문
	TimeoutNoQuestion = "TIMEOUT_NO_QUESTION"
	// WinnerDraw: 무승부 종료 시 winnerId에 기록되는 리터럴
	WinnerDraw = "draw"
	// WinnerError: 초기화 실패로 강제 종료된 세션의 winnerId 리터럴
	WinnerError = "error"
)

// QueueEntry: 매치메이킹 대기열 항목. enqueuedAt 오름차순이 FIFO 순서다.
type QueueEntry struct {
	PlayerID    string `json:"playerId"`
	SkillRating int    `json:"skillRating"`
	EnqueuedAt  int64  `json:"enqueuedAt"` // unix ms
}

// PlayerRoundState: 세션 내 플레이어별 라운드 상태
type PlayerRoundState struct {
	Username          string  `json:"username"`
	AvatarURL         string  `json:"avatarUrl"`
	AvatarFrameID     string  `json:"avatarFrameId"`
	RemainingGuesses  int     `json:"remainingGuesses"`
	CurrentQuestion   *string `json:"currentQuestion"`
	LastAnswer        *string `json:"lastAnswer"`
	ReadyForNextRound bool    `json:"isReadyForNextRound"`
}

// HistoryAnswer: 한 라운드에서 플레이어 한 명의 질문과 판정
type HistoryAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// HistoryEntry: 완료된 라운드 하나의 기록. 한번 append되면 불변이다.
type HistoryEntry struct {
	Round     int                      `json:"round"`
	PerPlayer map[string]HistoryAnswer `json:"perPlayer"`
}

// GameSession: 매치 하나당 하나 존재하는 중심 엔티티.
// 모든 변이는 조건부 CAS 쓰기를 통해서만 이루어진다.
type GameSession struct {
	State        GameState `json:"state"`
	PlayerIDs    []string  `json:"playerIds"`
	CurrentRound int       `json:"currentRound"`
	SecretWord   string    `json:"secretWord,omitempty"`
	Category     string    `json:"category,omitempty"`
	// RoundDeadline: 라운드/최종 추측 마감 시각 (unix ms). 마감이 없는 상태에서는 nil.
	RoundDeadline *int64                      `json:"roundTimerEndsAt"`
	WinnerID      *string                     `json:"winnerId"`
	History       []HistoryEntry              `json:"history"`
	Players       map[string]PlayerRoundState `json:"players"`
}

// NewMatchedSession: 매치메이킹 트랜잭션이 생성하는 초기(MATCHING) 세션을 구성한다.
func NewMatchedSession(player1 string, player2 string) GameSession {
	return GameSession{
		State:        StateMatching,
		PlayerIDs:    []string{player1, player2},
		CurrentRound: 0,
		History:      []HistoryEntry{},
		Players:      map[string]PlayerRoundState{},
	}
}

// IsParticipant: 주어진 플레이어가 이 세션의 참가자인지 확인한다.
func (g *GameSession) IsParticipant(playerID string) bool {
	return slices.Contains(g.PlayerIDs, playerID)
}

// Opponent: 상대 플레이어 ID를 반환한다. 참가자가 아니면 빈 문자열.
func (g *GameSession) Opponent(playerID string) string {
	for _, id := range g.PlayerIDs {
		if id != playerID {
			return id
		}
	}
	return ""
}

// IsTerminal: 세션이 터미널 상태인지 확인한다.
// 불변식: state == GAME_OVER <=> winnerId != nil
func (g *GameSession) IsTerminal() bool {
	return g.State == StateGameOver
}

// QuestionOf: 플레이어의 현재 질문을 반환한다. 미제출이면 빈 문자열.
func (g *GameSession) QuestionOf(playerID string) string {
	p, ok := g.Players[playerID]
	if !ok || p.CurrentQuestion == nil {
		return ""
	}
	return strings.TrimSpace(*p.CurrentQuestion)
}

// BothQuestionsSubmitted: 두 참가자 모두 비어있지 않은 질문을 제출했는지 확인한다.
// ROUND_IN_PROGRESS -> WAITING_FOR_ANSWERS 패스트트랙 조건이다.
func (g *GameSession) BothQuestionsSubmitted() bool {
	for _, id := range g.PlayerIDs {
		if g.QuestionOf(id) == "" {
			return false
		}
	}
	return len(g.PlayerIDs) == 2
}

// BothOutOfGuesses: 두 참가자 모두 남은 추측 횟수가 0인지 확인한다.
func (g *GameSession) BothOutOfGuesses() bool {
	for _, id := range g.PlayerIDs {
		if g.Players[id].RemainingGuesses > 0 {
			return false
		}
	}
	return len(g.PlayerIDs) == 2
}

// DeadlineExpired: 마감 시각이 존재하고 now를 지났는지 확인한다.
func (g *GameSession) DeadlineExpired(now time.Time) bool {
	return g.RoundDeadline != nil && *g.RoundDeadline <= now.UnixMilli()
}

// DeadlineAt: 마감 시각을 unix ms 포인터로 만든다.
func DeadlineAt(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}

// StringPtr: 리터럴을 winnerId/질문 필드에 넣기 위한 헬퍼
func StringPtr(s string) *string { return &s }
