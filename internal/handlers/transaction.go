package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fintrack/apiserver/internal/services"
	"github.com/fintrack/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// TransactionHandler serves the caller's transactions and their statistics.
type TransactionHandler struct {
	service *services.TransactionService
}

func NewTransactionHandler(service *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// TransactionRouter registers transaction routes on the given router. Every
// route requires authentication. exportService may be nil, in which case the
// export routes are not mounted.
func TransactionRouter(
	r chi.Router,
	service *services.TransactionService,
	exportService *services.ExportService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewTransactionHandler(service)

	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/statistics", func(r chi.Router) {
		r.Get("/", handler.Statistics)
		r.Get("/categories", handler.Categories)
		r.Get("/monthly", handler.Monthly)
	})
	r.Route("/{transactionID:[0-9]+}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
	if exportService != nil {
		r.Route("/exports", func(r chi.Router) {
			ExportRouter(r, exportService)
		})
	}
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, filter, ok := h.scope(w, r)
	if !ok {
		return
	}

	transactions, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, r, err, "failed to list transactions")
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	tx, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err, "failed to load transaction")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	tx, err := h.service.Create(r.Context(), userID, req.input())
	if err != nil {
		writeServiceError(w, r, err, "failed to create transaction")
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	tx, err := h.service.Update(r.Context(), userID, id, req.input())
	if err != nil {
		writeServiceError(w, r, err, "failed to update transaction")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err, "failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransactionRequest is the body of create and update calls.
type TransactionRequest struct {
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Date        json.RawMessage `json:"date"`
}

// input parses amount and date itself so that a malformed value is reported
// against its field instead of failing the whole body.
func (req TransactionRequest) input() services.TransactionInput {
	in := services.TransactionInput{
		Description: req.Description,
		Type:        req.Type,
		Category:    req.Category,
	}
	malformed := map[string]string{}

	if present(req.Amount) {
		var amount decimal.Decimal
		if err := amount.UnmarshalJSON(req.Amount); err != nil {
			malformed["amount"] = "amount must be a number"
		} else {
			in.Amount = amount
		}
	}
	if present(req.Date) {
		var date types.Date
		if err := date.UnmarshalJSON(req.Date); err != nil {
			malformed["date"] = "date must be a valid YYYY-MM-DD date"
		} else {
			in.Date = date
		}
	}

	if len(malformed) > 0 {
		in.Malformed = malformed
	}
	return in
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// target resolves the caller and the transaction id from the path.
func (h *TransactionHandler) target(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", 0, false
	}
	id, err := parseInt64Param(chi.URLParam(r, "transactionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return "", 0, false
	}
	return userID, id, true
}

// scope resolves the caller and the listing filter from the query string.
func (h *TransactionHandler) scope(w http.ResponseWriter, r *http.Request) (string, types.TransactionFilter, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", types.TransactionFilter{}, false
	}
	filter, fields := parseFilter(r)
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: fields})
		return "", types.TransactionFilter{}, false
	}
	return userID, filter, true
}

func parseFilter(r *http.Request) (types.TransactionFilter, map[string]string) {
	q := r.URL.Query()
	fields := map[string]string{}
	filter := types.TransactionFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
	}

	if value := strings.TrimSpace(q.Get("type")); value != "" {
		txType, ok := types.ParseTransactionType(value)
		if !ok {
			fields["type"] = "type must be Income or Expense"
		}
		filter.Type = txType
	}
	if value := strings.TrimSpace(q.Get("from")); value != "" {
		from, err := types.ParseDate(value)
		if err != nil {
			fields["from"] = "from must be a YYYY-MM-DD date"
		}
		filter.From = from
	}
	if value := strings.TrimSpace(q.Get("to")); value != "" {
		to, err := types.ParseDate(value)
		if err != nil {
			fields["to"] = "to must be a YYYY-MM-DD date"
		}
		filter.To = to
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From.Time) {
		fields["to"] = "to must not be before from"
	}
	return filter, fields
}
