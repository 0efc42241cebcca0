package mailapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/linnemanlabs/sift/internal/mail"
)

const (
	syncModeReplace = "replace"
	syncModeMerge   = "merge"
)

type syncRequest struct {
	Mode     string          `json:"mode"`
	Messages []*mail.Message `json:"messages"`
}

func (a *API) handleSyncMessages(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		req.Mode = syncModeReplace
	}
	if req.Mode != syncModeReplace && req.Mode != syncModeMerge {
		http.Error(w, `{"error":"mode must be replace or merge"}`, http.StatusBadRequest)
		return
	}
	for _, m := range req.Messages {
		if m.ID == "" {
			http.Error(w, `{"error":"message without id"}`, http.StatusBadRequest)
			return
		}
		m.Normalize()
	}

	var err error
	if req.Mode == syncModeMerge {
		err = a.store.Merge(r.Context(), req.Messages)
	} else {
		err = a.store.Replace(r.Context(), req.Messages)
	}
	if err != nil {
		a.internalError(w, r, err, "message sync failed")
		return
	}

	meta, err := a.store.Metadata(r.Context())
	if err != nil {
		a.internalError(w, r, err, "failed to read metadata after sync")
		return
	}

	a.logger.Info(r.Context(), "messages synced",
		"mode", req.Mode, "received", len(req.Messages), "total", meta.TotalEmails)

	a.writeJSON(w, http.StatusOK, map[string]any{
		"mode":     req.Mode,
		"received": len(req.Messages),
		"total":    meta.TotalEmails,
	})
}

func (a *API) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.store.LoadAll(r.Context())
	if err != nil {
		a.internalError(w, r, err, "failed to load messages")
		return
	}

	out := mail.FormatForDisplay(msgs)
	a.writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(out),
		"messages": out,
	})
}

// minScore reads the min_score query param, falling back to the configured
// deletion threshold. The second return is false on a malformed value.
func (a *API) minScore(r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("min_score")
	if raw == "" {
		return a.deletionThreshold, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (a *API) handleCandidates(w http.ResponseWriter, r *http.Request) {
	minScore, ok := a.minScore(r)
	if !ok {
		http.Error(w, `{"error":"invalid min_score"}`, http.StatusBadRequest)
		return
	}

	cands, err := a.store.Candidates(r.Context(), minScore)
	if err != nil {
		a.internalError(w, r, err, "failed to load candidates")
		return
	}

	out := mail.FormatForDisplay(cands)
	a.writeJSON(w, http.StatusOK, map[string]any{
		"min_score":  minScore,
		"count":      len(out),
		"candidates": out,
	})
}

func (a *API) handleCandidatesSummary(w http.ResponseWriter, r *http.Request) {
	minScore, ok := a.minScore(r)
	if !ok {
		http.Error(w, `{"error":"invalid min_score"}`, http.StatusBadRequest)
		return
	}

	cands, err := a.store.Candidates(r.Context(), minScore)
	if err != nil {
		a.internalError(w, r, err, "failed to load candidates")
		return
	}

	a.writeJSON(w, http.StatusOK, mail.SummarizeCandidates(cands))
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.store.LoadAll(r.Context())
	if err != nil {
		a.internalError(w, r, err, "failed to load messages")
		return
	}
	a.writeJSON(w, http.StatusOK, mail.Summarize(msgs))
}

func (a *API) handleMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := a.store.Metadata(r.Context())
	if err != nil {
		a.internalError(w, r, err, "failed to read metadata")
		return
	}
	a.writeJSON(w, http.StatusOK, meta)
}
