package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/park285/word-duel-go/internal/common/lua"
	"github.com/park285/word-duel-go/internal/common/testhelper"
	"github.com/park285/word-duel-go/internal/duel/catalog"
	dconfig "github.com/park285/word-duel-go/internal/duel/config"
	"github.com/park285/word-duel-go/internal/duel/engine"
	derrors "github.com/park285/word-duel-go/internal/duel/errors"
	"github.com/park285/word-duel-go/internal/duel/model"
	dredis "github.com/park285/word-duel-go/internal/duel/redis"
	"github.com/park285/word-duel-go/internal/duel/repository"
	"github.com/park285/word-duel-go/internal/duel/rewards"
)

type fixedWords struct{ word catalog.Word }

func (f fixedWords) RandomWord() catalog.Word { return f.word }

type stubOracle struct{}

func (stubOracle) Answer(_ context.Context, _, _, _ string) (model.Verdict, error) {
	return model.VerdictNeutral, nil
}

type serviceFixture struct {
	service  *Service
	sessions *dredis.SessionStore
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	client, _ := testhelper.NewMiniValkeyClient(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := repository.New(db)
	if err := repo.AutoMigrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := lua.NewRegistry(append(dredis.SessionScripts(), dredis.QueueScripts()...))
	sessions := dredis.NewSessionStore(client, registry, logger)
	queue := dredis.NewQueueStore(client, registry, logger)
	settler := rewards.NewSettler(sessions, repo, logger)

	eng := engine.NewEngine(
		sessions,
		stubOracle{},
		settler,
		repo,
		fixedWords{word: catalog.Word{Word: "Tencere", Category: "Mutfak Eşyaları"}},
		dconfig.GameConfig{
			RoundDuration:      10 * time.Second,
			FinalGuessDuration: 15 * time.Second,
			MaxRounds:          10,
		},
		dconfig.EngineConfig{WorkerCount: 0, QueueSize: 16},
		logger,
	)
	t.Cleanup(eng.Shutdown)

	return &serviceFixture{
		service:  New(queue, sessions, eng, repo, logger),
		sessions: sessions,
	}
}

func matchPlayers(t *testing.T, f *serviceFixture) string {
	t.Helper()
	ctx := context.Background()

	gameID, err := f.service.JoinMatchmaking(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if gameID != "" {
		t.Fatalf("expected first joiner to wait, got game %s", gameID)
	}

	gameID, err = f.service.JoinMatchmaking(ctx, "p2")
	if err != nil {
		t.Fatal(err)
	}
	if gameID == "" {
		t.Fatal("expected match for second joiner")
	}
	return gameID
}

func TestService_JoinMatchmaking(t *testing.T) {
	f := newServiceFixture(t)
	gameID := matchPlayers(t, f)

	sess, _, err := f.sessions.Load(context.Background(), gameID)
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil {
		t.Fatal("expected session")
	}
	// 먼저 기다린 쪽이 player1
	if sess.PlayerIDs[0] != "p1" || sess.PlayerIDs[1] != "p2" {
		t.Errorf("unexpected player order: %v", sess.PlayerIDs)
	}
	if sess.State != model.StateRoundInProgress || sess.CurrentRound != 1 {
		t.Errorf("unexpected initial state: %s round %d", sess.State, sess.CurrentRound)
	}
}

func TestService_SubmitQuestion(t *testing.T) {
	f := newServiceFixture(t)
	gameID := matchPlayers(t, f)
	ctx := context.Background()

	if err := f.service.SubmitQuestion(ctx, gameID, "p1", "  metal mi acaba?  "); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	sess, _, err := f.sessions.Load(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	if got := sess.QuestionOf("p1"); got != "metal mi acaba?" {
		t.Errorf("expected trimmed question, got %q", got)
	}

	// 같은 라운드 중복 제출은 거부
	err = f.service.SubmitQuestion(ctx, gameID, "p1", "içinde su kaynar mı?")
	var precondition derrors.PreconditionError
	if !errors.As(err, &precondition) {
		t.Errorf("expected PreconditionError, got %v", err)
	}
}

func TestService_SubmitQuestion_Validation(t *testing.T) {
	f := newServiceFixture(t)
	gameID := matchPlayers(t, f)
	ctx := context.Background()

	var invalid derrors.InvalidQuestionError
	if err := f.service.SubmitQuestion(ctx, gameID, "p1", "ab"); !errors.As(err, &invalid) {
		t.Errorf("expected InvalidQuestionError for short question, got %v", err)
	}
	long := strings.Repeat("ç", dconfig.QuestionMaxLength+1)
	if err := f.service.SubmitQuestion(ctx, gameID, "p1", long); !errors.As(err, &invalid) {
		t.Errorf("expected InvalidQuestionError for long question, got %v", err)
	}

	var notPlayer derrors.NotParticipantError
	if err := f.service.SubmitQuestion(ctx, gameID, "intruder", "metal mi acaba?"); !errors.As(err, &notPlayer) {
		t.Errorf("expected NotParticipantError, got %v", err)
	}

	var notFound derrors.SessionNotFoundError
	if err := f.service.SubmitQuestion(ctx, "missing", "p1", "metal mi acaba?"); !errors.As(err, &notFound) {
		t.Errorf("expected SessionNotFoundError, got %v", err)
	}
}

func enterFinalPhase(t *testing.T, f *serviceFixture, gameID string) {
	t.Helper()
	_, err := f.sessions.Update(context.Background(), gameID, func(s *model.GameSession) (bool, error) {
		s.State = model.StateFinalGuess
		s.CurrentRound = 10
		s.RoundDeadline = model.DeadlineAt(time.Now().Add(15 * time.Second))
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestService_FinalGuess_Correct(t *testing.T) {
	f := newServiceFixture(t)
	gameID := matchPlayers(t, f)
	enterFinalPhase(t, f, gameID)
	ctx := context.Background()

	// 케이스 폴딩 비교: 비밀 단어는 "Tencere"
	result, err := f.service.FinalGuess(ctx, gameID, "p2", "  tencere ")
	if err != nil {
		t.Fatalf("guess failed: %v", err)
	}
	if !result.Correct {
		t.Fatal("expected correct guess")
	}
	if result.RemainingGuesses != dconfig.InitialGuessCount-1 {
		t.Errorf("expected %d remaining, got %d", dconfig.InitialGuessCount-1, result.RemainingGuesses)
	}

	sess, _, err := f.sessions.Load(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State != model.StateGameOver {
		t.Errorf("expected GAME_OVER, got %s", sess.State)
	}
	if sess.WinnerID == nil || *sess.WinnerID != "p2" {
		t.Errorf("expected winner p2, got %v", sess.WinnerID)
	}
}

func TestService_FinalGuess_ExhaustionEndsInDraw(t *testing.T) {
	f := newServiceFixture(t)
	gameID := matchPlayers(t, f)
	enterFinalPhase(t, f, gameID)
	ctx := context.Background()

	for i := 0; i < dconfig.InitialGuessCount; i++ {
		for _, playerID := range []string{"p1", "p2"} {
			result, err := f.service.FinalGuess(ctx, gameID, playerID, "yanlış cevap")
			if err != nil {
				t.Fatalf("guess %d for %s failed: %v", i, playerID, err)
			}
			if result.Correct {
				t.Fatal("expected incorrect guess")
			}
		}
	}

	sess, _, err := f.sessions.Load(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State != model.StateGameOver {
		t.Fatalf("expected GAME_OVER after exhaustion, got %s", sess.State)
	}
	if sess.WinnerID == nil || *sess.WinnerID != model.WinnerDraw {
		t.Errorf("expected draw, got %v", sess.WinnerID)
	}

	// 소진 후 추가 추측은 거부
	_, err = f.service.FinalGuess(ctx, gameID, "p1", "tencere")
	var precondition derrors.PreconditionError
	if !errors.As(err, &precondition) {
		t.Errorf("expected PreconditionError, got %v", err)
	}
}

func TestService_FinalGuess_AllowedMidRound(t *testing.T) {
	f := newServiceFixture(t)
	gameID := matchPlayers(t, f)
	ctx := context.Background()

	// 최종 추측 단계 전이라도 추측할 수 있다. 오답은 횟수만 차감하고
	// 라운드는 그대로 이어진다.
	result, err := f.service.FinalGuess(ctx, gameID, "p1", "yanlış cevap")
	if err != nil {
		t.Fatalf("mid-round guess failed: %v", err)
	}
	if result.Correct {
		t.Fatal("expected incorrect guess")
	}
	if result.RemainingGuesses != dconfig.InitialGuessCount-1 {
		t.Errorf("expected %d remaining, got %d", dconfig.InitialGuessCount-1, result.RemainingGuesses)
	}

	sess, _, err := f.sessions.Load(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State != model.StateRoundInProgress {
		t.Errorf("expected round to continue, got %s", sess.State)
	}

	// 정답이면 단계와 무관하게 즉시 승리
	result, err = f.service.FinalGuess(ctx, gameID, "p2", "tencere")
	if err != nil {
		t.Fatalf("mid-round guess failed: %v", err)
	}
	if !result.Correct {
		t.Fatal("expected correct guess")
	}

	sess, _, err = f.sessions.Load(ctx, gameID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State != model.StateGameOver {
		t.Errorf("expected GAME_OVER, got %s", sess.State)
	}
	if sess.WinnerID == nil || *sess.WinnerID != "p2" {
		t.Errorf("expected winner p2, got %v", sess.WinnerID)
	}
}

func TestService_FinalGuess_Validation(t *testing.T) {
	f := newServiceFixture(t)
	gameID := matchPlayers(t, f)
	enterFinalPhase(t, f, gameID)
	ctx := context.Background()

	var invalid derrors.InvalidGuessError
	if _, err := f.service.FinalGuess(ctx, gameID, "p1", "   "); !errors.As(err, &invalid) {
		t.Errorf("expected InvalidGuessError for blank guess, got %v", err)
	}
	long := strings.Repeat("a", dconfig.GuessMaxLength+1)
	if _, err := f.service.FinalGuess(ctx, gameID, "p1", long); !errors.As(err, &invalid) {
		t.Errorf("expected InvalidGuessError for long guess, got %v", err)
	}
}

func TestService_Session_RedactsView(t *testing.T) {
	f := newServiceFixture(t)
	gameID := matchPlayers(t, f)
	ctx := context.Background()

	if err := f.service.SubmitQuestion(ctx, gameID, "p1", "metal mi acaba?"); err != nil {
		t.Fatal(err)
	}

	view, err := f.service.Session(ctx, gameID, "p2")
	if err != nil {
		t.Fatal(err)
	}
	if view.SecretWord != "" {
		t.Error("expected secret word hidden mid-game")
	}
	if view.Players["p1"].CurrentQuestion != nil {
		t.Error("expected opponent question hidden")
	}
	if !view.Players["p1"].HasSubmitted {
		t.Error("expected opponent submission flag visible")
	}

	ownView, err := f.service.Session(ctx, gameID, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if ownView.Players["p1"].CurrentQuestion == nil {
		t.Error("expected own question visible")
	}

	var notPlayer derrors.NotParticipantError
	if _, err := f.service.Session(ctx, gameID, "intruder"); !errors.As(err, &notPlayer) {
		t.Errorf("expected NotParticipantError, got %v", err)
	}

	var notFound derrors.SessionNotFoundError
	if _, err := f.service.Session(ctx, "missing", "p1"); !errors.As(err, &notFound) {
		t.Errorf("expected SessionNotFoundError, got %v", err)
	}
}

func TestService_Session_RevealsSecretWhenOver(t *testing.T) {
	f := newServiceFixture(t)
	gameID := matchPlayers(t, f)
	enterFinalPhase(t, f, gameID)
	ctx := context.Background()

	if _, err := f.service.FinalGuess(ctx, gameID, "p1", "Tencere"); err != nil {
		t.Fatal(err)
	}

	view, err := f.service.Session(ctx, gameID, "p2")
	if err != nil {
		t.Fatal(err)
	}
	if view.SecretWord != "Tencere" {
		t.Errorf("expected secret revealed after game over, got %q", view.SecretWord)
	}
	if view.WinnerID == nil || *view.WinnerID != "p1" {
		t.Errorf("expected winner p1, got %v", view.WinnerID)
	}
}

func TestService_JoinMatchmaking_RequeuesOnCreateFailure(t *testing.T) {
	queueClient, _ := testhelper.NewMiniValkeyClient(t)
	sessionClient, sessionMini := testhelper.NewMiniValkeyClient(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := repository.New(db)
	if err := repo.AutoMigrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := lua.NewRegistry(append(dredis.SessionScripts(), dredis.QueueScripts()...))
	sessions := dredis.NewSessionStore(sessionClient, registry, logger)
	queue := dredis.NewQueueStore(queueClient, registry, logger)
	settler := rewards.NewSettler(sessions, repo, logger)

	eng := engine.NewEngine(
		sessions,
		stubOracle{},
		settler,
		repo,
		fixedWords{word: catalog.Word{Word: "Tencere", Category: "Mutfak Eşyaları"}},
		dconfig.GameConfig{
			RoundDuration:      10 * time.Second,
			FinalGuessDuration: 15 * time.Second,
			MaxRounds:          10,
		},
		dconfig.EngineConfig{WorkerCount: 0, QueueSize: 16},
		logger,
	)
	t.Cleanup(eng.Shutdown)

	svc := New(queue, sessions, eng, repo, logger)
	ctx := context.Background()

	if _, err := svc.JoinMatchmaking(ctx, "p1"); err != nil {
		t.Fatal(err)
	}

	// 세션 저장소를 내려서 세션 생성을 실패시킨다
	sessionMini.Close()

	if _, err := svc.JoinMatchmaking(ctx, "p2"); err == nil {
		t.Fatal("expected error when session creation fails")
	}

	// 선점됐던 상대는 큐로 복귀해야 한다
	waiting, err := queue.Waiting(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !waiting {
		t.Error("expected p1 back in queue after failed session creation")
	}
}

func TestService_LeaveMatchmaking(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	if _, err := f.service.JoinMatchmaking(ctx, "p1"); err != nil {
		t.Fatal(err)
	}

	removed, err := f.service.LeaveMatchmaking(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Error("expected removal")
	}

	// 이탈 후 다른 조이너는 대기해야 한다
	gameID, err := f.service.JoinMatchmaking(ctx, "p2")
	if err != nil {
		t.Fatal(err)
	}
	if gameID != "" {
		t.Errorf("expected p2 to wait after p1 left, got game %s", gameID)
	}
}
