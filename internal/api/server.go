package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"finplay/internal/config"
	"finplay/internal/game"
	"finplay/internal/store"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 4 << 20

// GameService is what the HTTP layer needs from the game package.
type GameService interface {
	Onboard(ctx context.Context, in game.OnboardingInput) (game.Profile, error)
	User(ctx context.Context, userID string) (game.Profile, error)
	Save(ctx context.Context, state game.GameState) (string, error)
	Load(ctx context.Context, userID string) (game.GameState, error)
}

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	game GameService
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc GameService) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		game: gameSvc,
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Post("/users/onboard", s.handleOnboard)
	r.Get("/users/{user_id}", s.handleUser)
	r.Post("/sync/save", s.handleSave)
	r.Get("/sync/load/{user_id}", s.handleLoad)

	s.staticRoutes(r)
}

func (s *Server) staticRoutes(r chi.Router) {
	dir := s.cfg.StaticDir
	if dir == "" {
		return
	}
	pages := map[string]string{
		"/":           "index.html",
		"/onboarding": "onboarding.html",
		"/dashboard":  "dashboard.html",
		"/investing":  "investing.html",
		"/analytics":  "analytics.html",
		"/story":      "story.html",
	}
	for path, file := range pages {
		page := filepath.Join(dir, "HTML", file)
		r.Get(path, func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, page)
		})
	}
	for prefix, sub := range map[string]string{"/css": "CSS", "/js": "JS", "/html": "HTML"} {
		fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(filepath.Join(dir, sub))))
		r.Handle(prefix+"/*", fs)
	}
}

func (s *Server) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name           string `json:"name"`
		KnowledgeLevel string `json:"knowledge_level"`
		LifeStage      string `json:"life_stage"`
		PrimaryGoal    string `json:"primary_goal"`
		Goal           string `json:"goal"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	goal := in.PrimaryGoal
	if strings.TrimSpace(goal) == "" {
		goal = in.Goal
	}
	profile, err := s.game.Onboard(r.Context(), game.OnboardingInput{
		Name:           in.Name,
		KnowledgeLevel: in.KnowledgeLevel,
		LifeStage:      in.LifeStage,
		PrimaryGoal:    goal,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		ID string `json:"id"`
		game.Profile
	}{ID: profile.UserID, Profile: profile})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	profile, err := s.game.User(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile.Summary())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var state game.GameState
	if err := decodeJSON(w, r, &state); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := s.game.Save(r.Context(), state)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": userID})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	state, err := s.game.Load(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// writeDomainError maps service errors onto status codes. Store and internal
// error text stays in the logs.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *game.ValidationError
	var upstream *store.UpstreamError
	reqID := middleware.GetReqID(r.Context())
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &upstream):
		s.log.Error("store request failed", "request_id", reqID, "path", r.URL.Path, "status", upstream.Status, "body", upstream.Body, "err", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "upstream store error", "status": upstream.Status})
	default:
		s.log.Error("request failed", "request_id", reqID, "path", r.URL.Path, "err", err)
		captureError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func captureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
