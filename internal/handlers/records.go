package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/tillhanna/lingon/internal/app"
	"github.com/tillhanna/lingon/internal/models"
	"github.com/tillhanna/lingon/internal/store"
)

type courseRequest struct {
	CourseID string `json:"course_id"`
}

// HandleGetCourse returns the roster for one course: every enrolled
// student with the score and revision-eligibility flag of the slot that
// matched. Any authenticated role may look.
func (h *Handler) HandleGetCourse(w http.ResponseWriter, r *http.Request) {
	ident := h.requireRole(w, r, models.RoleStudent, models.RoleTeacher, models.RoleAdmin)
	if ident == nil {
		return
	}

	var req courseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CourseID == "" {
		http.Error(w, "Missing course_id", http.StatusBadRequest)
		return
	}

	roster, err := h.service.CourseRoster(req.CourseID)
	if err != nil {
		logger.Error.Printf("Failed to fetch roster for course %s: %v", req.CourseID, err)
		http.Error(w, "Failed to fetch roster", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"students": roster,
	})
}

// HandleInsertScore applies an admin bulk score upload. Entries run in
// order; the first failure stops the call and the response names the
// failing position so nothing is silently skipped.
func (h *Handler) HandleInsertScore(w http.ResponseWriter, r *http.Request) {
	ident := h.requireRole(w, r, models.RoleAdmin)
	if ident == nil {
		return
	}

	var entries []models.ScoreInsert
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		http.Error(w, "Invalid JSON format, expected an array", http.StatusBadRequest)
		return
	}

	if err := h.service.InsertScores(entries); err != nil {
		logger.Error.Printf("Bulk score insert failed: %v", err)

		var insErr *app.ScoreInsertError
		if errors.As(err, &insErr) {
			var vErrs validator.ValidationErrors
			switch {
			case errors.Is(err, store.ErrNotFound):
				http.Error(w, fmt.Sprintf("Entry %d: student %d not found", insErr.Index, insErr.StudentID), http.StatusNotFound)
			case errors.As(err, &vErrs):
				http.Error(w, fmt.Sprintf("Entry %d: invalid fields", insErr.Index), http.StatusBadRequest)
			default:
				http.Error(w, fmt.Sprintf("Entry %d: failed to apply", insErr.Index), http.StatusInternalServerError)
			}
			return
		}
		http.Error(w, "Failed to apply scores", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}
