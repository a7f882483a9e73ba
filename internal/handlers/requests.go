package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/tillhanna/lingon/internal/metrics"
	"github.com/tillhanna/lingon/internal/models"
	"github.com/tillhanna/lingon/internal/store"
)

// HandleReviseScore lets a teacher file a score revision for admin
// review. The req_id is caller-supplied and doubles as the primary key;
// a second submission under the same id is a conflict, never an
// overwrite. Eligibility is not re-checked here: the flag only gates
// what the admin granted at score-set time.
func (h *Handler) HandleReviseScore(w http.ResponseWriter, r *http.Request) {
	ident := h.requireRole(w, r, models.RoleTeacher)
	if ident == nil {
		return
	}

	var req models.ScoreRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	if err := h.service.Store.CreateScoreRevision(&req); err != nil {
		if errors.Is(err, store.ErrDuplicateRequest) {
			http.Error(w, "Request id already pending", http.StatusConflict)
			return
		}
		logger.Error.Printf("Failed to create score revision %s: %v", req.ReqID, err)
		http.Error(w, "Failed to submit request", http.StatusInternalServerError)
		return
	}

	metrics.RequestsSubmitted.WithLabelValues(string(models.KindScoreRevision)).Inc()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "accepted",
	})
}

// HandleInfoModify lets a student file a profile change for admin review.
func (h *Handler) HandleInfoModify(w http.ResponseWriter, r *http.Request) {
	ident := h.requireRole(w, r, models.RoleStudent)
	if ident == nil {
		return
	}

	var req models.InfoChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, "Missing or invalid fields", http.StatusBadRequest)
		return
	}

	if err := h.service.Store.CreateInfoChange(&req); err != nil {
		if errors.Is(err, store.ErrDuplicateRequest) {
			http.Error(w, "Request id already pending", http.StatusConflict)
			return
		}
		logger.Error.Printf("Failed to create info change %s: %v", req.ReqID, err)
		http.Error(w, "Failed to submit request", http.StatusInternalServerError)
		return
	}

	metrics.RequestsSubmitted.WithLabelValues(string(models.KindInfoChange)).Inc()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "accepted",
	})
}

type adjudicationRequest struct {
	ReqID     string `json:"req_id"`
	ReqType   string `json:"req_type"`
	ReqStatus string `json:"req_status"`
}

// HandleUnsolveReq is the admin decision on one pending request. The
// response says whether anything was applied: "noop" means the request
// was already gone, which is a success so repeated decisions stay safe.
func (h *Handler) HandleUnsolveReq(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ident := h.requireRole(w, r, models.RoleAdmin)
	if ident == nil {
		return
	}

	var req adjudicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ReqID == "" {
		http.Error(w, "Missing req_id", http.StatusBadRequest)
		return
	}

	kind, err := models.ParseRequestKind(req.ReqType)
	if err != nil {
		http.Error(w, "Unknown req_type", http.StatusBadRequest)
		return
	}
	outcome, err := models.ParseOutcome(req.ReqStatus)
	if err != nil {
		http.Error(w, "Unknown req_status", http.StatusBadRequest)
		return
	}

	existed, err := h.service.Adjudicate(req.ReqID, kind, outcome)
	if err != nil {
		logger.Error.Printf("Adjudication of %s (%s/%s) failed: %v", req.ReqID, kind, outcome, err)
		http.Error(w, "Failed to adjudicate request", http.StatusInternalServerError)
		return
	}

	result := "noop"
	if existed {
		switch outcome {
		case models.OutcomeApprove:
			result = "applied"
		case models.OutcomeCancel:
			result = "rejected"
		}
	}

	metrics.Adjudications.WithLabelValues(string(kind), string(outcome)).Inc()
	metrics.APIRequestDuration.WithLabelValues(
		r.URL.Path,
		r.Method,
		"ok",
	).Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result": result,
	})
}
