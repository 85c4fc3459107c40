package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/fintrack/apiserver/internal/logging"
	"github.com/fintrack/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// ExportHandler serves CSV export jobs of the caller's transactions.
type ExportHandler struct {
	service *services.ExportService
}

func NewExportHandler(service *services.ExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// ExportRouter registers export routes. Authentication is applied by the
// enclosing transaction router.
func ExportRouter(r chi.Router, service *services.ExportService) {
	handler := NewExportHandler(service)

	r.Post("/", handler.Request)
	r.Route("/{exportID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Get("/download", handler.Download)
	})
}

func (h *ExportHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	export, err := h.service.Request(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "failed to request export")
		return
	}
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+export.ID)
	writeJSON(w, http.StatusAccepted, export)
}

func (h *ExportHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	export, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "exportID"))
	if err != nil {
		writeServiceError(w, r, err, "failed to load export")
		return
	}
	writeJSON(w, http.StatusOK, export)
}

func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, export, err := h.service.Open(r.Context(), userID, chi.URLParam(r, "exportID"))
	if err != nil {
		writeServiceError(w, r, err, "failed to download export")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions-`+export.ID+`.csv"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		logging.FromContext(r.Context()).WarnContext(r.Context(), "export download interrupted", logging.Err(err))
	}
}
