// Package mailapi exposes the sift HTTP API: message sync, analysis runs,
// deletion candidates, and stats.
package mailapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sift/internal/analyze"
	"github.com/linnemanlabs/sift/internal/mail"
)

// RunService defines the analysis operations mailapi needs.
type RunService interface {
	Start(ctx context.Context) (*analyze.StartResult, error)
	Get(ctx context.Context, id string) (*analyze.Run, bool)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger            log.Logger
	svc               RunService
	store             mail.Store
	deletionThreshold float64
}

// New creates a new API handler. deletionThreshold is the default score
// ceiling for candidate queries without an explicit min_score.
func New(logger log.Logger, svc RunService, store mail.Store, deletionThreshold float64) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("run service is required"))
	}
	if store == nil {
		panic(xerrors.New("store is required"))
	}
	return &API{
		logger:            logger,
		svc:               svc,
		store:             store,
		deletionThreshold: deletionThreshold,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/messages/sync", a.handleSyncMessages)
		r.Get("/messages", a.handleListMessages)
		r.Post("/analyses", a.handleStartAnalysis)
		r.Get("/analyses/{id}", a.handleGetAnalysis)
		r.Get("/candidates", a.handleCandidates)
		r.Get("/candidates/summary", a.handleCandidatesSummary)
		r.Get("/stats", a.handleStats)
		r.Get("/metadata", a.handleMetadata)
	})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	a.logger.Error(r.Context(), err, msg)
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}
