package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/memolab/memory-server/game/engine"
	"github.com/memolab/memory-server/game/service"
	"github.com/memolab/memory-server/game/session"
	"github.com/memolab/memory-server/game/store"
)

// Server represents the REST API server.
type Server struct {
	service service.GameService
	router  *mux.Router
	logger  zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(gameService service.GameService, logger zerolog.Logger) *Server {
	s := &Server{
		service: gameService,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Use(s.requestLogger)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/games", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/games/{id}", s.handleContinueGame).Methods("GET")
	api.HandleFunc("/games/{id}/rounds", s.handleLogProgression).Methods("POST")
	api.HandleFunc("/games/{id}/restart", s.handleRestartGame).Methods("POST")
	api.HandleFunc("/games/{id}/end", s.handleEndGame).Methods("POST")
	api.HandleFunc("/players/{id}/games", s.handleCurrentGames).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger emits one structured log line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service error taxonomy to HTTP statuses.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "no game found")
	case errors.Is(err, session.ErrSessionBusy):
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusServiceUnavailable, "game is busy, retry shortly")
	case errors.Is(err, engine.ErrSessionEnded):
		respondError(w, http.StatusConflict, "game has ended")
	case errors.Is(err, engine.ErrInvalidMoveShape),
		errors.Is(err, engine.ErrUnknownPlayer),
		errors.Is(err, engine.ErrInvalidSession):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Handlers

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Players []string `json:"players"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	info, err := s.service.CreateGame(r.Context(), req.Players)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "game created",
		"game_data": info,
	})
}

func (s *Server) handleContinueGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	detail, err := s.service.ContinueGame(r.Context(), gameID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "game found",
		"game_data":     detail.Session,
		"round_count":   detail.RoundCount,
		"running_score": detail.RunningScore,
		"found_cards":   detail.FoundCards,
	})
}

func (s *Server) handleLogProgression(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var req struct {
		PlayerID     string           `json:"player_id"`
		FlippedCards []engine.CardRef `json:"flipped_cards"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.service.LogProgression(r.Context(), gameID, req.PlayerID, req.FlippedCards)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "progression logged",
		"round_count":   result.RoundCount,
		"running_score": result.RunningScore,
		"found_cards":   result.FoundCards,
		"card_found":    result.CardFound,
		"matched":       result.Matched,
	})
}

func (s *Server) handleRestartGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	info, err := s.service.RestartGame(r.Context(), gameID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "game restarted",
		"game_data": info,
	})
}

func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	if err := s.service.EndGame(r.Context(), gameID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "game ended"})
}

func (s *Server) handleCurrentGames(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["id"]

	games, err := s.service.CurrentGames(r.Context(), playerID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "games found",
		"current_games": games,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
