// Package httpapi 는 워드 듀얼의 HTTP API 라우트를 정의한다.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	cerrors "github.com/park285/word-duel-go/internal/common/errors"
	"github.com/park285/word-duel-go/internal/common/health"
	commonhttputil "github.com/park285/word-duel-go/internal/common/httputil"
	derrors "github.com/park285/word-duel-go/internal/duel/errors"
	dsvc "github.com/park285/word-duel-go/internal/duel/service"
)

const (
	headerUserID = "X-User-Id"
	maxBodyBytes = 1 << 20
)

// 에러 응답 코드 상수.
const (
	errorInvalidRequest = "INVALID_REQUEST"
	errorUnauthorized   = "UNAUTHORIZED"
	errorForbidden      = "FORBIDDEN"
	errorNotFound       = "NOT_FOUND"
	errorConflict       = "CONFLICT"
	errorInternal       = "INTERNAL_ERROR"
)

// Register HTTP API 라우트 등록.
func Register(
	mux *http.ServeMux,
	duelService *dsvc.Service,
	logger *slog.Logger,
) {
	// GET /health - 헬스체크
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, health.Get())
	})

	// POST /api/duel/matchmaking - 매칭 큐 참가 (즉시 매칭될 수 있음)
	mux.HandleFunc("POST /api/duel/matchmaking", func(w http.ResponseWriter, r *http.Request) {
		handleJoinMatchmaking(w, r, duelService, logger)
	})

	// DELETE /api/duel/matchmaking - 매칭 큐 이탈
	mux.HandleFunc("DELETE /api/duel/matchmaking", func(w http.ResponseWriter, r *http.Request) {
		handleLeaveMatchmaking(w, r, duelService, logger)
	})

	// POST /api/duel/games/{gameId}/questions - 라운드 질문 제출
	mux.HandleFunc("POST /api/duel/games/{gameId}/questions", func(w http.ResponseWriter, r *http.Request) {
		handleSubmitQuestion(w, r, duelService, logger)
	})

	// POST /api/duel/games/{gameId}/guesses - 최종 추측 제출
	mux.HandleFunc("POST /api/duel/games/{gameId}/guesses", func(w http.ResponseWriter, r *http.Request) {
		handleFinalGuess(w, r, duelService, logger)
	})

	// GET /api/duel/games/{gameId} - 세션 조회 (참가자 관점)
	mux.HandleFunc("GET /api/duel/games/{gameId}", func(w http.ResponseWriter, r *http.Request) {
		handleGetSession(w, r, duelService, logger)
	})

	// GET /api/duel/profiles/{playerId} - 프로필 조회
	mux.HandleFunc("GET /api/duel/profiles/{playerId}", func(w http.ResponseWriter, r *http.Request) {
		handleGetProfile(w, r, duelService, logger)
	})

	logger.Info("duel_http_api_registered")
}

type (
	// MatchmakingResponse: 매칭 결과 응답 DTO. 대기 중이면 gameId가 비어있다.
	MatchmakingResponse struct {
		Matched bool   `json:"matched"`
		GameID  string `json:"gameId,omitempty"`
	}

	// QuestionRequest: 라운드 질문 제출 요청 DTO
	QuestionRequest struct {
		Question string `json:"question"`
	}

	// GuessRequest: 최종 추측 요청 DTO
	GuessRequest struct {
		Guess string `json:"guess"`
	}

	// ProfileResponse: 플레이어 프로필 응답 DTO
	ProfileResponse struct {
		PlayerID      string `json:"playerId"`
		Username      string `json:"username"`
		AvatarURL     string `json:"avatarUrl"`
		AvatarFrameID string `json:"avatarFrameId"`
		XP            int    `json:"xp"`
		Coins         int    `json:"coins"`
		GamesPlayed   int    `json:"gamesPlayed"`
		GamesWon      int    `json:"gamesWon"`
		CurrentStreak int    `json:"currentStreak"`
		SkillRating   int    `json:"skillRating"`
	}
)

func handleJoinMatchmaking(w http.ResponseWriter, r *http.Request, svc *dsvc.Service, logger *slog.Logger) {
	playerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	gameID, err := svc.JoinMatchmaking(r.Context(), playerID)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logger.Error("MATCHMAKING_FAILED", "playerId", playerID, "err", err, "duration", duration)
		respondServiceError(w, err)
		return
	}

	logger.Info("MATCHMAKING_SUCCESS", "playerId", playerID, "matched", gameID != "", "duration", duration)
	respondJSON(w, http.StatusOK, MatchmakingResponse{Matched: gameID != "", GameID: gameID})
}

func handleLeaveMatchmaking(w http.ResponseWriter, r *http.Request, svc *dsvc.Service, logger *slog.Logger) {
	playerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	removed, err := svc.LeaveMatchmaking(r.Context(), playerID)
	if err != nil {
		logger.Error("MATCHMAKING_LEAVE_FAILED", "playerId", playerID, "err", err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func handleSubmitQuestion(w http.ResponseWriter, r *http.Request, svc *dsvc.Service, logger *slog.Logger) {
	playerID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	gameID := r.PathValue("gameId")
	if gameID == "" {
		respondError(w, http.StatusBadRequest, errorInvalidRequest, "gameId is required")
		return
	}

	var req QuestionRequest
	if err := commonhttputil.ReadJSON(r, &req, maxBodyBytes); err != nil {
		respondError(w, http.StatusBadRequest, errorInvalidRequest, "invalid request body")
		return
	}

	start := time.Now()
	err := svc.SubmitQuestion(r.Context(), gameID, playerID, req.Question)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("QUESTION_REJECTED", "gameId", gameID, "playerId", playerID, "err", err, "duration", duration)
		respondServiceError(w, err)
		return
	}

	logger.Info("QUESTION_ACCEPTED", "gameId", gameID, "playerId", playerID, "duration", duration)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "submitted"})
}

func handleFinalGuess(w http.ResponseWriter, r *http.Request, svc *dsvc.Service, logger *slog.Logger) {
	playerID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	gameID := r.PathValue("gameId")
	if gameID == "" {
		respondError(w, http.StatusBadRequest, errorInvalidRequest, "gameId is required")
		return
	}

	var req GuessRequest
	if err := commonhttputil.ReadJSON(r, &req, maxBodyBytes); err != nil {
		respondError(w, http.StatusBadRequest, errorInvalidRequest, "invalid request body")
		return
	}

	start := time.Now()
	result, err := svc.FinalGuess(r.Context(), gameID, playerID, req.Guess)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("GUESS_REJECTED", "gameId", gameID, "playerId", playerID, "err", err, "duration", duration)
		respondServiceError(w, err)
		return
	}

	logger.Info("GUESS_PROCESSED", "gameId", gameID, "playerId", playerID, "correct", result.Correct, "duration", duration)
	respondJSON(w, http.StatusOK, result)
}

func handleGetSession(w http.ResponseWriter, r *http.Request, svc *dsvc.Service, logger *slog.Logger) {
	playerID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	gameID := r.PathValue("gameId")
	if gameID == "" {
		respondError(w, http.StatusBadRequest, errorInvalidRequest, "gameId is required")
		return
	}

	view, err := svc.Session(r.Context(), gameID, playerID)
	if err != nil {
		logger.Debug("SESSION_FETCH_FAILED", "gameId", gameID, "playerId", playerID, "err", err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func handleGetProfile(w http.ResponseWriter, r *http.Request, svc *dsvc.Service, logger *slog.Logger) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	playerID := r.PathValue("playerId")
	if playerID == "" {
		respondError(w, http.StatusBadRequest, errorInvalidRequest, "playerId is required")
		return
	}

	profile, err := svc.Profile(r.Context(), playerID)
	if err != nil {
		logger.Error("PROFILE_FETCH_FAILED", "playerId", playerID, "err", err)
		respondServiceError(w, err)
		return
	}
	if profile == nil {
		respondError(w, http.StatusNotFound, errorNotFound, "profile not found")
		return
	}

	respondJSON(w, http.StatusOK, ProfileResponse{
		PlayerID:      profile.PlayerID,
		Username:      profile.Username,
		AvatarURL:     profile.AvatarURL,
		AvatarFrameID: profile.AvatarFrameID,
		XP:            profile.XP,
		Coins:         profile.Coins,
		GamesPlayed:   profile.GamesPlayed,
		GamesWon:      profile.GamesWon,
		CurrentStreak: profile.CurrentStreak,
		SkillRating:   profile.SkillRating,
	})
}

func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	playerID := strings.TrimSpace(r.Header.Get(headerUserID))
	if playerID == "" {
		respondError(w, http.StatusUnauthorized, errorUnauthorized, "X-User-Id header is required")
		return "", false
	}
	return playerID, true
}

// respondServiceError 는 도메인 에러를 HTTP 상태 코드로 옮긴다.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		notFound     derrors.SessionNotFoundError
		notPlayer    derrors.NotParticipantError
		badQuestion  derrors.InvalidQuestionError
		badGuess     derrors.InvalidGuessError
		precondition derrors.PreconditionError
		exhausted    derrors.ConflictRetryExceededError
		redisErr     cerrors.RedisError
		dbErr        cerrors.DatabaseError
	)
	switch {
	case errors.As(err, &badQuestion):
		respondError(w, http.StatusBadRequest, errorInvalidRequest, badQuestion.Message)
	case errors.As(err, &badGuess):
		respondError(w, http.StatusBadRequest, errorInvalidRequest, badGuess.Message)
	case errors.As(err, &notPlayer):
		respondError(w, http.StatusForbidden, errorForbidden, "player is not a participant of this game")
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, errorNotFound, "game session not found")
	case errors.As(err, &precondition):
		respondError(w, http.StatusConflict, errorConflict, precondition.Reason)
	case errors.As(err, &exhausted):
		respondError(w, http.StatusConflict, errorConflict, "concurrent update conflict, retry")
	case errors.As(err, &redisErr), errors.As(err, &dbErr):
		respondError(w, http.StatusInternalServerError, errorInternal, "internal storage error")
	default:
		respondError(w, http.StatusInternalServerError, errorInternal, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	_ = commonhttputil.WriteJSON(w, status, data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	_ = commonhttputil.WriteErrorJSON(w, status, code, message)
}
