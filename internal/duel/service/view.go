package service

import (
	"github.com/park285/word-duel-go/internal/duel/model"
)

// PlayerSlotView: 세션 뷰에 포함되는 플레이어별 상태
type PlayerSlotView struct {
	Username          string  `json:"username"`
	AvatarURL         string  `json:"avatarUrl"`
	AvatarFrameID     string  `json:"avatarFrameId"`
	RemainingGuesses  int     `json:"remainingGuesses"`
	HasSubmitted      bool    `json:"hasSubmitted"`
	CurrentQuestion   *string `json:"currentQuestion,omitempty"`
	LastAnswer        *string `json:"lastAnswer,omitempty"`
	ReadyForNextRound bool    `json:"isReadyForNextRound"`
}

// SessionView: 참가자 관점의 게임 세션 스냅샷
type SessionView struct {
	GameID        string                    `json:"gameId"`
	State         model.GameState           `json:"state"`
	Category      string                    `json:"category"`
	CurrentRound  int                       `json:"currentRound"`
	RoundDeadline *int64                    `json:"roundTimerEndsAt,omitempty"`
	WinnerID      *string                   `json:"winnerId,omitempty"`
	SecretWord    string                    `json:"secretWord,omitempty"`
	PlayerIDs     []string                  `json:"playerIds"`
	Players       map[string]PlayerSlotView `json:"players"`
	History       []model.HistoryEntry      `json:"history"`
}

// buildSessionView 는 viewerID 관점으로 세션을 가공한다.
// 비밀 단어는 게임 종료 후에만 드러나고, 상대의 현재 질문은 항상 가려진다.
func buildSessionView(gameID, viewerID string, sess *model.GameSession) *SessionView {
	view := &SessionView{
		GameID:        gameID,
		State:         sess.State,
		Category:      sess.Category,
		CurrentRound:  sess.CurrentRound,
		RoundDeadline: sess.RoundDeadline,
		WinnerID:      sess.WinnerID,
		PlayerIDs:     sess.PlayerIDs,
		Players:       make(map[string]PlayerSlotView, len(sess.Players)),
		History:       sess.History,
	}
	if sess.IsTerminal() {
		view.SecretWord = sess.SecretWord
	}

	for id, p := range sess.Players {
		slot := PlayerSlotView{
			Username:          p.Username,
			AvatarURL:         p.AvatarURL,
			AvatarFrameID:     p.AvatarFrameID,
			RemainingGuesses:  p.RemainingGuesses,
			HasSubmitted:      p.CurrentQuestion != nil,
			LastAnswer:        p.LastAnswer,
			ReadyForNextRound: p.ReadyForNextRound,
		}
		if id == viewerID {
			slot.CurrentQuestion = p.CurrentQuestion
		}
		view.Players[id] = slot
	}
	return view
}
