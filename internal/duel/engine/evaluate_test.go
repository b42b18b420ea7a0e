package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/park285/word-duel-go/internal/duel/catalog"
	dconfig "github.com/park285/word-duel-go/internal/duel/config"
	derrors "github.com/park285/word-duel-go/internal/duel/errors"
	"github.com/park285/word-duel-go/internal/duel/model"
	"github.com/park285/word-duel-go/internal/duel/repository"
)

// memSessionStore 는 테스트용 인메모리 세션 저장소다.
// JSON 왕복으로 복사본을 반환해 실제 저장소의 격리 특성을 흉내낸다.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	versions map[string]int64
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		sessions: map[string][]byte{},
		versions: map[string]int64{},
	}
}

func (m *memSessionStore) Create(_ context.Context, gameID string, sess *model.GameSession) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[gameID]; ok {
		return false, nil
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return false, err
	}
	m.sessions[gameID] = raw
	m.versions[gameID] = 1
	return true, nil
}

func (m *memSessionStore) Load(_ context.Context, gameID string) (*model.GameSession, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.sessions[gameID]
	if !ok {
		return nil, 0, nil
	}
	var sess model.GameSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, 0, err
	}
	return &sess, m.versions[gameID], nil
}

func (m *memSessionStore) Update(
	ctx context.Context,
	gameID string,
	mutate func(sess *model.GameSession) (bool, error),
) (*model.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.sessions[gameID]
	if !ok {
		return nil, derrors.SessionNotFoundError{GameID: gameID}
	}
	var sess model.GameSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	apply, err := mutate(&sess)
	if err != nil {
		return nil, err
	}
	if !apply {
		return &sess, nil
	}
	updated, err := json.Marshal(&sess)
	if err != nil {
		return nil, err
	}
	m.sessions[gameID] = updated
	m.versions[gameID]++
	return &sess, nil
}

type fakeOracle struct {
	mu      sync.Mutex
	answers map[string]model.Verdict
	err     error
	calls   []string
}

func (f *fakeOracle) Answer(_ context.Context, _, _, question string) (model.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, question)
	if f.err != nil {
		return model.VerdictNeutral, f.err
	}
	if v, ok := f.answers[question]; ok {
		return v, nil
	}
	return model.VerdictNeutral, nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSettler struct {
	mu      sync.Mutex
	settled []string
}

func (f *fakeSettler) Settle(_ context.Context, gameID string, _ *model.GameSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, gameID)
	return nil
}

type fakeProfiles struct {
	profiles map[string]*repository.PlayerProfile
	err      error
}

func (f *fakeProfiles) GetProfile(_ context.Context, playerID string) (*repository.PlayerProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[playerID], nil
}

type fakeWords struct{ word catalog.Word }

func (f fakeWords) RandomWord() catalog.Word { return f.word }

func testGameConfig() dconfig.GameConfig {
	return dconfig.GameConfig{
		RoundDuration:      10 * time.Second,
		FinalGuessDuration: 15 * time.Second,
		MaxRounds:          10,
	}
}

func newTestEngine(t *testing.T, store *memSessionStore, oracle *fakeOracle, settler *fakeSettler, profiles *fakeProfiles) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := NewEngine(
		store,
		oracle,
		settler,
		profiles,
		fakeWords{word: catalog.Word{Word: "tencere", Category: "Mutfak Eşyaları"}},
		testGameConfig(),
		// 테스트에서는 워커 없이 Evaluate 를 직접 호출한다
		dconfig.EngineConfig{WorkerCount: 0, QueueSize: 16},
		logger,
	)
	t.Cleanup(eng.Shutdown)
	return eng
}

func TestEngine_CreateGame(t *testing.T) {
	store := newMemSessionStore()
	eng := newTestEngine(t, store, &fakeOracle{}, &fakeSettler{}, &fakeProfiles{})

	gameID, sess, err := eng.CreateGame(context.Background(), "player-one", "player-two")
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}
	if gameID == "" {
		t.Fatal("expected game id")
	}
	if sess.State != model.StateRoundInProgress || sess.CurrentRound != 1 {
		t.Errorf("unexpected initial state: %s round %d", sess.State, sess.CurrentRound)
	}
	if sess.SecretWord != "tencere" || sess.Category != "Mutfak Eşyaları" {
		t.Errorf("unexpected secret: %s/%s", sess.SecretWord, sess.Category)
	}
	if sess.RoundDeadline == nil {
		t.Error("expected round deadline")
	}

	p1 := sess.Players["player-one"]
	if p1.RemainingGuesses != dconfig.InitialGuessCount {
		t.Errorf("expected %d guesses, got %d", dconfig.InitialGuessCount, p1.RemainingGuesses)
	}
	// 프로필이 없으면 자리표시 프로필이 쓰인다
	if p1.Username != "Playerplay" {
		t.Errorf("unexpected placeholder username: %s", p1.Username)
	}
	if p1.AvatarFrameID != dconfig.DefaultAvatarFrameID {
		t.Errorf("unexpected frame: %s", p1.AvatarFrameID)
	}
}

func TestEngine_CreateGame_UsesProfile(t *testing.T) {
	store := newMemSessionStore()
	profiles := &fakeProfiles{profiles: map[string]*repository.PlayerProfile{
		"p1": {PlayerID: "p1", Username: "Ayşe", AvatarURL: "https://cdn/a.png", AvatarFrameID: "gold"},
	}}
	eng := newTestEngine(t, store, &fakeOracle{}, &fakeSettler{}, profiles)

	_, sess, err := eng.CreateGame(context.Background(), "p1", "p2")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Players["p1"].Username != "Ayşe" || sess.Players["p1"].AvatarFrameID != "gold" {
		t.Errorf("expected profile fields, got %+v", sess.Players["p1"])
	}
}

func TestEngine_CreateGame_ProfileErrorFallsBack(t *testing.T) {
	store := newMemSessionStore()
	eng := newTestEngine(t, store, &fakeOracle{}, &fakeSettler{}, &fakeProfiles{err: errors.New("db down")})

	_, sess, err := eng.CreateGame(context.Background(), "p1", "p2")
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if sess.Players["p1"].Username == "" {
		t.Error("expected placeholder profile")
	}
}

func submitQuestions(t *testing.T, store *memSessionStore, gameID, q1, q2 string) {
	t.Helper()
	_, err := store.Update(context.Background(), gameID, func(s *model.GameSession) (bool, error) {
		p1 := s.Players[s.PlayerIDs[0]]
		p1.CurrentQuestion = model.StringPtr(q1)
		s.Players[s.PlayerIDs[0]] = p1
		p2 := s.Players[s.PlayerIDs[1]]
		p2.CurrentQuestion = model.StringPtr(q2)
		s.Players[s.PlayerIDs[1]] = p2
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestEngine_Evaluate_FastTrackAndAdjudicate(t *testing.T) {
	store := newMemSessionStore()
	oracle := &fakeOracle{answers: map[string]model.Verdict{
		"metal mi?": model.VerdictYes,
		"canlı mı?": model.VerdictNo,
	}}
	eng := newTestEngine(t, store, oracle, &fakeSettler{}, &fakeProfiles{})
	ctx := context.Background()

	gameID, _, err := eng.CreateGame(ctx, "p1", "p2")
	if err != nil {
		t.Fatal(err)
	}
	submitQuestions(t, store, gameID, "metal mi?", "canlı mı?")

	if err := eng.Evaluate(ctx, gameID); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	sess, _, err := store.Load(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State != model.StateRoundInProgress {
		t.Errorf("expected next round in progress, got %s", sess.State)
	}
	if sess.CurrentRound != 2 {
		t.Errorf("expected round 2, got %d", sess.CurrentRound)
	}
	if sess.RoundDeadline == nil {
		t.Error("expected fresh round deadline")
	}
	if len(sess.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(sess.History))
	}

	entry := sess.History[0]
	if entry.Round != 1 {
		t.Errorf("expected history round 1, got %d", entry.Round)
	}
	if entry.PerPlayer["p1"].Answer != string(model.VerdictYes) {
		t.Errorf("expected YES for p1, got %s", entry.PerPlayer["p1"].Answer)
	}
	if entry.PerPlayer["p2"].Answer != string(model.VerdictNo) {
		t.Errorf("expected NO for p2, got %s", entry.PerPlayer["p2"].Answer)
	}

	// 다음 라운드를 위해 질문과 준비 상태가 초기화되어야 한다
	for _, id := range sess.PlayerIDs {
		if sess.Players[id].CurrentQuestion != nil {
			t.Errorf("expected cleared question for %s", id)
		}
		if sess.Players[id].LastAnswer == nil {
			t.Errorf("expected last answer for %s", id)
		}
	}
}

func TestEngine_Adjudicate_StaleRoundDoesNotCommit(t *testing.T) {
	store := newMemSessionStore()
	oracle := &fakeOracle{answers: map[string]model.Verdict{
		"metal mi?": model.VerdictYes,
		"canlı mı?": model.VerdictNo,
	}}
	eng := newTestEngine(t, store, oracle, &fakeSettler{}, &fakeProfiles{})
	ctx := context.Background()

	gameID, _, err := eng.CreateGame(ctx, "p1", "p2")
	if err != nil {
		t.Fatal(err)
	}
	submitQuestions(t, store, gameID, "metal mi?", "canlı mı?")

	// 1라운드 판정 대기 상태의 스냅샷을 확보해 둔다
	if _, err := store.Update(ctx, gameID, func(s *model.GameSession) (bool, error) {
		s.State = model.StateWaitingAnswers
		s.RoundDeadline = nil
		return true, nil
	}); err != nil {
		t.Fatal(err)
	}
	stale, _, err := store.Load(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}

	// 정상 판정자가 먼저 라운드를 진행시킨다
	if err := eng.Evaluate(ctx, gameID); err != nil {
		t.Fatal(err)
	}
	sess, _, _ := store.Load(ctx, gameID)
	if sess.CurrentRound != 2 {
		t.Fatalf("expected round 2, got %d", sess.CurrentRound)
	}

	// 2라운드도 판정 대기 상태에 진입시킨다. 상태만 보는 가드라면
	// 늦게 도착한 1라운드 판정자가 여기에 기록을 덮어쓸 수 있다.
	submitQuestions(t, store, gameID, "elektrikli mi?", "evde bulunur mu?")
	if _, err := store.Update(ctx, gameID, func(s *model.GameSession) (bool, error) {
		s.State = model.StateWaitingAnswers
		s.RoundDeadline = nil
		return true, nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := eng.adjudicate(ctx, gameID, stale); err != nil {
		t.Fatal(err)
	}

	sess, _, _ = store.Load(ctx, gameID)
	if sess.CurrentRound != 2 || sess.State != model.StateWaitingAnswers {
		t.Errorf("expected round 2 waiting untouched, got %s round %d", sess.State, sess.CurrentRound)
	}
	if len(sess.History) != 1 {
		t.Errorf("expected single history entry, got %d", len(sess.History))
	}
	if got := sess.QuestionOf("p1"); got != "elektrikli mi?" {
		t.Errorf("expected round 2 question intact, got %q", got)
	}
}

func TestEngine_Evaluate_NoProgressWithOneQuestion(t *testing.T) {
	store := newMemSessionStore()
	oracle := &fakeOracle{}
	eng := newTestEngine(t, store, oracle, &fakeSettler{}, &fakeProfiles{})
	ctx := context.Background()

	gameID, _, err := eng.CreateGame(ctx, "p1", "p2")
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Update(ctx, gameID, func(s *model.GameSession) (bool, error) {
		p := s.Players["p1"]
		p.CurrentQuestion = model.StringPtr("metal mi?")
		s.Players["p1"] = p
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := eng.Evaluate(ctx, gameID); err != nil {
		t.Fatal(err)
	}

	sess, _, _ := store.Load(ctx, gameID)
	if sess.State != model.StateRoundInProgress || sess.CurrentRound != 1 {
		t.Errorf("expected unchanged round, got %s round %d", sess.State, sess.CurrentRound)
	}
	if oracle.callCount() != 0 {
		t.Errorf("expected no oracle calls, got %d", oracle.callCount())
	}
}

func TestEngine_Evaluate_OracleFailureDegradesToNeutral(t *testing.T) {
	store := newMemSessionStore()
	oracle := &fakeOracle{err: errors.New("oracle down")}
	eng := newTestEngine(t, store, oracle, &fakeSettler{}, &fakeProfiles{})
	ctx := context.Background()

	gameID, _, err := eng.CreateGame(ctx, "p1", "p2")
	if err != nil {
		t.Fatal(err)
	}
	submitQuestions(t, store, gameID, "metal mi?", "canlı mı?")

	if err := eng.Evaluate(ctx, gameID); err != nil {
		t.Fatalf("evaluate should tolerate oracle failure: %v", err)
	}

	sess, _, _ := store.Load(ctx, gameID)
	if sess.CurrentRound != 2 {
		t.Fatalf("expected round advance, got %d", sess.CurrentRound)
	}
	for _, id := range sess.PlayerIDs {
		if sess.History[0].PerPlayer[id].Answer != string(model.VerdictNeutral) {
			t.Errorf("expected NEUTRAL for %s, got %s", id, sess.History[0].PerPlayer[id].Answer)
		}
	}
}

func TestEngine_Evaluate_MaxRoundsEntersFinalPhase(t *testing.T) {
	store := newMemSessionStore()
	oracle := &fakeOracle{}
	eng := newTestEngine(t, store, oracle, &fakeSettler{}, &fakeProfiles{})
	ctx := context.Background()

	gameID, _, err := eng.CreateGame(ctx, "p1", "p2")
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Update(ctx, gameID, func(s *model.GameSession) (bool, error) {
		s.CurrentRound = testGameConfig().MaxRounds
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	submitQuestions(t, store, gameID, "metal mi?", "canlı mı?")

	if err := eng.Evaluate(ctx, gameID); err != nil {
		t.Fatal(err)
	}

	sess, _, _ := store.Load(ctx, gameID)
	if sess.State != model.StateFinalGuess {
		t.Errorf("expected FINAL_GUESS_PHASE, got %s", sess.State)
	}
	if sess.RoundDeadline == nil {
		t.Error("expected final guess deadline")
	}
}

func TestEngine_ForceRoundTimeout(t *testing.T) {
	store := newMemSessionStore()
	oracle := &fakeOracle{answers: map[string]model.Verdict{"metal mi?": model.VerdictYes}}
	eng := newTestEngine(t, store, oracle, &fakeSettler{}, &fakeProfiles{})
	ctx := context.Background()

	gameID, _, err := eng.CreateGame(ctx, "p1", "p2")
	if err != nil {
		t.Fatal(err)
	}
	// p1만 제출한 채 마감 경과
	_, err = store.Update(ctx, gameID, func(s *model.GameSession) (bool, error) {
		p := s.Players["p1"]
		p.CurrentQuestion = model.StringPtr("metal mi?")
		s.Players["p1"] = p
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Minute)
	if err := eng.ForceRoundTimeout(ctx, gameID, deadline); err != nil {
		t.Fatalf("force timeout failed: %v", err)
	}

	sess, _, _ := store.Load(ctx, gameID)
	if sess.State != model.StateWaitingAnswers {
		t.Fatalf("expected WAITING_FOR_ANSWERS, got %s", sess.State)
	}
	if got := sess.QuestionOf("p2"); got != model.TimeoutNoQuestion {
		t.Errorf("expected timeout placeholder for p2, got %q", got)
	}

	// 판정: 타임아웃 질문은 오라클 없이 NEUTRAL, 제출 질문은 정상 판정
	if err := eng.Evaluate(ctx, gameID); err != nil {
		t.Fatal(err)
	}
	sess, _, _ = store.Load(ctx, gameID)
	if sess.CurrentRound != 2 {
		t.Fatalf("expected round advance, got %d", sess.CurrentRound)
	}
	entry := sess.History[0]
	if entry.PerPlayer["p1"].Answer != string(model.VerdictYes) {
		t.Errorf("expected YES for p1, got %s", entry.PerPlayer["p1"].Answer)
	}
	if entry.PerPlayer["p2"].Question != "TIMEOUT" {
		t.Errorf("expected TIMEOUT history question, got %q", entry.PerPlayer["p2"].Question)
	}
	if entry.PerPlayer["p2"].Answer != string(model.VerdictNeutral) {
		t.Errorf("expected NEUTRAL for p2, got %s", entry.PerPlayer["p2"].Answer)
	}
	if oracle.callCount() != 1 {
		t.Errorf("expected exactly 1 oracle call, got %d", oracle.callCount())
	}
}

func TestEngine_ForceRoundTimeout_IgnoresUnexpiredSession(t *testing.T) {
	store := newMemSessionStore()
	eng := newTestEngine(t, store, &fakeOracle{}, &fakeSettler{}, &fakeProfiles{})
	ctx := context.Background()

	gameID, _, err := eng.CreateGame(ctx, "p1", "p2")
	if err != nil {
		t.Fatal(err)
	}

	if err := eng.ForceRoundTimeout(ctx, gameID, time.Now()); err != nil {
		t.Fatal(err)
	}

	sess, _, _ := store.Load(ctx, gameID)
	if sess.State != model.StateRoundInProgress {
		t.Errorf("expected untouched session, got %s", sess.State)
	}
}

func TestEngine_ForceFinalTimeout(t *testing.T) {
	store := newMemSessionStore()
	settler := &fakeSettler{}
	eng := newTestEngine(t, store, &fakeOracle{}, settler, &fakeProfiles{})
	ctx := context.Background()

	gameID, _, err := eng.CreateGame(ctx, "p1", "p2")
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Update(ctx, gameID, func(s *model.GameSession) (bool, error) {
		s.State = model.StateFinalGuess
		s.RoundDeadline = model.DeadlineAt(time.Now().Add(-time.Second))
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := eng.ForceFinalTimeout(ctx, gameID, time.Now()); err != nil {
		t.Fatal(err)
	}

	sess, _, _ := store.Load(ctx, gameID)
	if sess.State != model.StateGameOver {
		t.Fatalf("expected GAME_OVER, got %s", sess.State)
	}
	if sess.WinnerID == nil || *sess.WinnerID != model.WinnerDraw {
		t.Errorf("expected draw, got %v", sess.WinnerID)
	}

	// GAME_OVER 평가는 정산으로 이어진다
	if err := eng.Evaluate(ctx, gameID); err != nil {
		t.Fatal(err)
	}
	if len(settler.settled) != 1 || settler.settled[0] != gameID {
		t.Errorf("expected settlement for %s, got %v", gameID, settler.settled)
	}
}
