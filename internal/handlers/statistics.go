package handlers

import "net/http"

// Statistics returns income, expense and balance totals over the filtered list.
func (h *TransactionHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	userID, filter, ok := h.scope(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Statistics(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, r, err, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Categories returns expense totals per category, largest first.
func (h *TransactionHandler) Categories(w http.ResponseWriter, r *http.Request) {
	userID, filter, ok := h.scope(w, r)
	if !ok {
		return
	}

	buckets, err := h.service.ByCategory(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, r, err, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// Monthly returns income and expense totals per calendar month.
func (h *TransactionHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	userID, filter, ok := h.scope(w, r)
	if !ok {
		return
	}

	buckets, err := h.service.ByMonth(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, r, err, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}
