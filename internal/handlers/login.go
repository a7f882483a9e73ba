package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/tillhanna/lingon/internal/app"
	"github.com/tillhanna/lingon/internal/metrics"
	"github.com/tillhanna/lingon/internal/models"
)

type loginRequest struct {
	Role     string            `json:"role"`
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Password models.Credential `json:"password"`
}

// HandleLogin authenticates any of the three roles and issues a session
// token. Student and teacher ids and passwords are integers on the wire;
// the admin logs in with the configured name/password pair and receives
// the pending review queue alongside the token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "ok"
	defer func() {
		duration := time.Since(start).Seconds()
		metrics.APIRequestDuration.WithLabelValues(
			r.URL.Path,
			r.Method,
			status,
		).Observe(duration)
	}()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = "bad_request"
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		status = "bad_request"
		http.Error(w, "Unknown role", http.StatusBadRequest)
		return
	}
	if req.Password.IsZero() {
		status = "bad_request"
		http.Error(w, "Missing password", http.StatusBadRequest)
		return
	}

	result, err := h.service.Login(r.Context(), role, req.ID, req.Name, req.Password)
	if errors.Is(err, app.ErrInvalidCredentials) {
		metrics.LoginsTotal.WithLabelValues(string(role), "denied").Inc()
		status = "denied"
		http.Error(w, "Incorrect id or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		logger.Error.Printf("Login failed for %s/%d: %v", role, req.ID, err)
		status = "error"
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	metrics.LoginsTotal.WithLabelValues(string(role), "ok").Inc()
	writeJSON(w, http.StatusOK, result)
}
