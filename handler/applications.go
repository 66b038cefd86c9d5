package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stevemurr/kinder-admissions/database"
	"github.com/stevemurr/kinder-admissions/metrics"
	"github.com/stevemurr/kinder-admissions/schema"
	"github.com/stevemurr/kinder-admissions/store"
)

const (
	defaultListLimit = 20
	maxBodyBytes     = 1 << 20

	consentRequired = "Consent is required to submit an application."
)

type submitResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type listResponse struct {
	Items []database.Document `json:"items"`
	Count int                 `json:"count"`
}

// POST /api/applications
func (h *Handler) submitApplication(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	var app schema.Application
	if err := schema.Decode(r.Body, &app); err != nil {
		var verr *schema.ValidationError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &verr):
			h.metrics.IncrementRejected(metrics.ReasonValidation)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": verr.Fields})
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		default:
			writeError(w, http.StatusBadRequest, "could not read request body: "+err.Error())
		}
		return
	}

	if !app.Consented() {
		h.metrics.IncrementRejected(metrics.ReasonConsent)
		writeError(w, http.StatusBadRequest, consentRequired)
		return
	}

	id, err := h.db.CreateDocument(r.Context(), h.applications, &app)
	if err != nil {
		h.storageFailure(w, r, "insert", err)
		return
	}
	h.metrics.IncrementSubmitted()
	h.logger.InfoContext(r.Context(), "application submitted", "id", id, "program", app.Program, "start_term", app.StartTerm)

	writeJSON(w, http.StatusOK, submitResponse{
		ID:      id,
		Status:  "success",
		Message: "Application submitted",
	})
}

// GET /api/applications?limit=&status=
func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeQueryError(w, "limit", "type_error.integer", "value is not a valid integer")
			return
		}
		// 0 lists everything.
		if n < 0 {
			writeQueryError(w, "limit", "ge", "ensure this value is greater than or equal to 0")
			return
		}
		limit = n
	}

	var filter map[string]any
	if status := q.Get("status"); status != "" {
		filter = map[string]any{"status": status}
	}

	docs, err := h.db.GetDocuments(r.Context(), h.applications, filter, limit)
	if err != nil {
		h.storageFailure(w, r, "find", err)
		return
	}

	items := make([]database.Document, 0, len(docs))
	for _, d := range docs {
		items = append(items, publicDocument(d))
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Count: len(items)})
}

// publicDocument exposes the store identifier as "id" and drops "_id".
func publicDocument(d database.Document) database.Document {
	if raw, ok := d[store.IDField]; ok {
		d["id"] = fmt.Sprint(raw)
		delete(d, store.IDField)
	}
	return d
}

func writeQueryError(w http.ResponseWriter, field, rule, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []schema.FieldError{{Loc: []string{"query", field}, Rule: rule, Message: msg}},
	})
}

// storageFailure maps a data-access error to 500 with the raw message.
func (h *Handler) storageFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.metrics.IncrementStorageErrors(op)
	msg := err.Error()
	var serr *database.StorageError
	if errors.As(err, &serr) {
		msg = serr.Err.Error()
	}
	h.logger.ErrorContext(r.Context(), "storage failure", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}
