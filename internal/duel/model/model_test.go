package model

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestGameSession_Participants(t *testing.T) {
	sess := NewMatchedSession("p1", "p2")

	if !sess.IsParticipant("p1") || !sess.IsParticipant("p2") {
		t.Error("expected both players to be participants")
	}
	if sess.IsParticipant("p3") {
		t.Error("expected p3 to not be a participant")
	}
	if got := sess.Opponent("p1"); got != "p2" {
		t.Errorf("expected opponent p2, got %q", got)
	}
	if got := sess.Opponent("p3"); got != "" {
		t.Errorf("expected empty opponent for outsider, got %q", got)
	}
}

func TestGameSession_BothQuestionsSubmitted(t *testing.T) {
	sess := NewMatchedSession("p1", "p2")
	sess.Players["p1"] = PlayerRoundState{}
	sess.Players["p2"] = PlayerRoundState{}

	if sess.BothQuestionsSubmitted() {
		t.Error("expected false with no questions")
	}

	sess.Players["p1"] = PlayerRoundState{CurrentQuestion: StringPtr("kedi mi?")}
	if sess.BothQuestionsSubmitted() {
		t.Error("expected false with one question")
	}

	// 공백만 있는 질문은 미제출로 취급
	sess.Players["p2"] = PlayerRoundState{CurrentQuestion: StringPtr("   ")}
	if sess.BothQuestionsSubmitted() {
		t.Error("expected false with blank question")
	}

	sess.Players["p2"] = PlayerRoundState{CurrentQuestion: StringPtr("canlı mı?")}
	if !sess.BothQuestionsSubmitted() {
		t.Error("expected true with both questions")
	}
}

func TestGameSession_DeadlineExpired(t *testing.T) {
	now := time.Now()
	sess := NewMatchedSession("p1", "p2")

	if sess.DeadlineExpired(now) {
		t.Error("expected false with nil deadline")
	}

	sess.RoundDeadline = DeadlineAt(now.Add(-time.Second))
	if !sess.DeadlineExpired(now) {
		t.Error("expected true for past deadline")
	}

	sess.RoundDeadline = DeadlineAt(now.Add(time.Minute))
	if sess.DeadlineExpired(now) {
		t.Error("expected false for future deadline")
	}
}

func TestGameSession_JSONRoundTrip(t *testing.T) {
	sess := NewMatchedSession("p1", "p2")
	sess.State = StateRoundInProgress
	sess.CurrentRound = 3
	sess.SecretWord = "tencere"
	sess.Category = "Mutfak Eşyaları"
	sess.RoundDeadline = DeadlineAt(time.Now().Add(10 * time.Second))
	sess.Players["p1"] = PlayerRoundState{
		Username:         "PlayerAb12",
		RemainingGuesses: 3,
		CurrentQuestion:  StringPtr("metal mi?"),
		LastAnswer:       StringPtr(string(VerdictYes)),
	}
	sess.History = append(sess.History, HistoryEntry{
		Round: 2,
		PerPlayer: map[string]HistoryAnswer{
			"p1": {Question: "metal mi?", Answer: string(VerdictYes)},
			"p2": {Question: "TIMEOUT", Answer: string(VerdictNeutral)},
		},
	})

	raw, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded GameSession
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.State != StateRoundInProgress {
		t.Errorf("state mismatch: %s", decoded.State)
	}
	if decoded.Players["p1"].CurrentQuestion == nil || *decoded.Players["p1"].CurrentQuestion != "metal mi?" {
		t.Error("player question lost in round trip")
	}
	if len(decoded.History) != 1 || decoded.History[0].PerPlayer["p2"].Question != "TIMEOUT" {
		t.Error("history lost in round trip")
	}
}
