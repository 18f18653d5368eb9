package practice

import (
	"encoding/json"
	"net/http"

	"github.com/odontoapp/turnos-api/pkg/logging"
)

// Handler provides HTTP endpoints for practice profile management.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a new practice handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Get returns the practice profile.
// GET /admin/practice
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get practice settings", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// Update replaces the practice profile.
// PUT /admin/practice
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if settings.Name == "" {
		http.Error(w, `{"error":"name required"}`, http.StatusBadRequest)
		return
	}
	if err := h.store.Set(r.Context(), &settings); err != nil {
		h.logger.Error("failed to save practice settings", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.logger.Info("practice settings updated", "name", settings.Name)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&settings)
}
