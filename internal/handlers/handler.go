package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/tillhanna/lingon/internal/app"
	"github.com/tillhanna/lingon/internal/models"
)

type Handler struct {
	service *app.Service
}

func NewHandler(service *app.Service) *Handler {
	return &Handler{
		service: service,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

// requireRole authenticates the request and checks the caller's role
// against the allowed set. On failure the response is already written and
// nil is returned.
func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, roles ...models.Role) *models.Identity {
	ident, err := h.service.Authenticate(r)
	if err != nil {
		http.Error(w, "Please login first", http.StatusUnauthorized)
		return nil
	}

	for _, role := range roles {
		if ident.Role == role {
			return ident
		}
	}

	logger.Debug.Printf("Role %s not allowed on %s", ident.Role, r.URL.Path)
	http.Error(w, "Access denied", http.StatusForbidden)
	return nil
}
