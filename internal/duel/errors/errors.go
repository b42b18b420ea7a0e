// Package errors: 워드 듀얼 게임에 특화된 에러 타입들을 정의한다.
// 공통 인프라 에러(RedisError, DatabaseError)는 common/errors 패키지를 직접 사용한다.
package errors

import "fmt"

// SessionNotFoundError: 참조한 게임 세션이 존재하지 않을 때 발생하는 에러
type SessionNotFoundError struct {
	GameID string
}

func (e SessionNotFoundError) Error() string {
	if e.GameID == "" {
		return "game session not found"
	}
	return fmt.Sprintf("game session not found gameId=%s", e.GameID)
}

// NotParticipantError: 유효한 사용자지만 해당 세션의 참가자가 아닐 때 발생하는 에러
type NotParticipantError struct {
	GameID   string
	PlayerID string
}

func (e NotParticipantError) Error() string {
	return fmt.Sprintf("player %s is not a participant of game %s", e.PlayerID, e.GameID)
}

// InvalidQuestionError: 질문 형식이 올바르지 않을 때 발생하는 에러 (trim 후 5~200자)
type InvalidQuestionError struct {
	Message string
}

func (e InvalidQuestionError) Error() string {
	if e.Message == "" {
		return "invalid question"
	}
	return "invalid question: " + e.Message
}

// InvalidGuessError: 추측 입력 형식이 올바르지 않을 때 발생하는 에러
type InvalidGuessError struct {
	Message string
}

func (e InvalidGuessError) Error() string {
	if e.Message == "" {
		return "invalid guess"
	}
	return "invalid guess: " + e.Message
}

// PreconditionError: 현재 상태/라운드에서 허용되지 않는 동작일 때 발생하는 에러
// (라운드 외 질문 제출, 중복 제출, 남은 추측 0회 등)
type PreconditionError struct {
	Reason string
}

func (e PreconditionError) Error() string {
	if e.Reason == "" {
		return "operation not allowed in current state"
	}
	return e.Reason
}

// ConflictRetryExceededError: CAS 재시도 한도를 초과했을 때 발생하는 에러.
// 정상 운영에서는 거의 발생하지 않으며, 발생 시 내부 오류로 취급한다.
type ConflictRetryExceededError struct {
	GameID   string
	Attempts int
}

func (e ConflictRetryExceededError) Error() string {
	return fmt.Sprintf("conditional write retry exceeded gameId=%s attempts=%d", e.GameID, e.Attempts)
}
