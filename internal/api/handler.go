// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"

	"github.com/FishTankManager/GithubAquarium-Back/internal/ingest"
	"github.com/FishTankManager/GithubAquarium-Back/internal/queue"
	"github.com/FishTankManager/GithubAquarium-Back/internal/store"
)

// UserSyncer triggers a reconciliation run for one user's repositories.
type UserSyncer interface {
	SyncUser(ctx context.Context, githubID int64) error
}

// Handler is the container for API dependencies.
type Handler struct {
	db            store.Querier
	dispatcher    *queue.Dispatcher
	processor     *ingest.Processor
	syncer        UserSyncer
	webhookSecret string
	logger        *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(db store.Querier, dispatcher *queue.Dispatcher, processor *ingest.Processor, syncer UserSyncer, webhookSecret string, logger *slog.Logger) http.Handler {
	h := &Handler{
		db:            db,
		dispatcher:    dispatcher,
		processor:     processor,
		syncer:        syncer,
		webhookSecret: webhookSecret,
		logger:        logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Post("/webhooks/github", h.handleWebhook)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/repos/{owner}/{name}/commits", h.getCommits)
		r.Get("/repos/{owner}/{name}/stats/top-committers", h.getTopCommitters)
		r.Get("/repos/{owner}/{name}/contributors", h.getContributors)
		r.Get("/users/{githubID}/balance", h.getBalance)
		r.Get("/users/{githubID}/ledger", h.getLedger)
		r.Get("/users/{githubID}/aquarium", h.getAquarium)
		r.Post("/users/{githubID}/sync", h.triggerUserSync)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getRepo resolves the {owner}/{name} path parameters to a repository row,
// writing the error response itself on failure.
func (h *Handler) getRepo(w http.ResponseWriter, r *http.Request) (int64, bool) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "name")

	repo, err := h.db.GetRepositoryByFullName(r.Context(), owner+"/"+name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Repository not found")
			return 0, false
		}
		h.logger.Error("Failed to get repository", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return 0, false
	}
	return repo.ID, true
}

// getCommits handles the request to retrieve commits for a repository.
// GET /v1/repos/{owner}/{name}/commits
func (h *Handler) getCommits(w http.ResponseWriter, r *http.Request) {
	repoID, ok := h.getRepo(w, r)
	if !ok {
		return
	}

	commits, err := h.db.GetCommitsByRepoID(r.Context(), repoID)
	if err != nil {
		h.logger.Error("Failed to get commits", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, commits)
}

// getTopCommitters handles the request for top commit authors.
// GET /v1/repos/{owner}/{name}/stats/top-committers?limit=N
func (h *Handler) getTopCommitters(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, 10)
	if !ok {
		return
	}
	repoID, ok := h.getRepo(w, r)
	if !ok {
		return
	}

	authors, err := h.db.GetTopCommitAuthors(r.Context(), repoID, limit)
	if err != nil {
		h.logger.Error("Failed to get top commit authors", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, authors)
}

// getContributors returns a repository's registered contributors with their
// settled totals.
// GET /v1/repos/{owner}/{name}/contributors
func (h *Handler) getContributors(w http.ResponseWriter, r *http.Request) {
	repoID, ok := h.getRepo(w, r)
	if !ok {
		return
	}

	contributors, err := h.db.ListRepositoryContributors(r.Context(), repoID)
	if err != nil {
		h.logger.Error("Failed to get contributors", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, contributors)
}

// getUser resolves the {githubID} path parameter to a user row.
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	githubID, err := strconv.ParseInt(chi.URLParam(r, "githubID"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user identifier")
		return 0, false
	}

	user, err := h.db.GetUserByGithubID(r.Context(), githubID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return 0, false
		}
		h.logger.Error("Failed to get user", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return 0, false
	}
	return user.ID, true
}

// getBalance returns the user's wallet.
// GET /v1/users/{githubID}/balance
func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.getUser(w, r)
	if !ok {
		return
	}

	balance, err := h.db.GetCurrencyBalance(r.Context(), userID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Never earned anything yet.
		respondWithJSON(w, http.StatusOK, map[string]int64{"balance": 0, "total_earned": 0})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get balance", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, balance)
}

// getLedger returns the user's reward audit trail, newest first.
// GET /v1/users/{githubID}/ledger?limit=N
func (h *Handler) getLedger(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, 50)
	if !ok {
		return
	}
	userID, ok := h.getUser(w, r)
	if !ok {
		return
	}

	entries, err := h.db.ListRewardEntriesByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to get reward ledger", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// getAquarium returns the user's fish across all contributed repositories.
// GET /v1/users/{githubID}/aquarium
func (h *Handler) getAquarium(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.getUser(w, r)
	if !ok {
		return
	}

	fish, err := h.db.ListContributorFish(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get aquarium", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, fish)
}

// triggerUserSync queues a reconciliation run over the user's repositories.
// Called by the auth service after login completes.
// POST /v1/users/{githubID}/sync
func (h *Handler) triggerUserSync(w http.ResponseWriter, r *http.Request) {
	githubID, err := strconv.ParseInt(chi.URLParam(r, "githubID"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user identifier")
		return
	}

	jobID, err := h.dispatcher.Submit("sync-user", func(ctx context.Context) error {
		return h.syncer.SyncUser(ctx, githubID)
	})
	if err != nil {
		h.logger.Error("Failed to queue user sync", "github_id", githubID, "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Sync queue unavailable")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID.String()})
}

func limitParam(w http.ResponseWriter, r *http.Request, def int32) (int32, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return def, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
		return 0, false
	}
	return int32(limit), true
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
