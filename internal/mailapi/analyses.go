package mailapi

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
)

func (a *API) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	sr, err := a.svc.Start(r.Context())
	if err != nil {
		a.internalError(w, r, err, "failed to start analysis run")
		return
	}

	if sr.Skipped {
		a.writeJSON(w, http.StatusConflict, map[string]any{
			"id":      sr.ID,
			"skipped": true,
			"reason":  sr.Reason,
		})
		return
	}

	a.logger.Info(r.Context(), "analysis run accepted", "run_id", sr.ID)
	a.writeJSON(w, http.StatusAccepted, map[string]any{"id": sr.ID})
}

func (a *API) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.run.id", id))

	run, ok := a.svc.Get(r.Context(), id)
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("sift.run.status", string(run.Status)))

	a.writeJSON(w, http.StatusOK, run)
}
