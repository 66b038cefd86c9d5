package handler

import (
	"net/http"

	"github.com/stevemurr/kinder-admissions/database"
)

type diagnosticResponse struct {
	Backend          string   `json:"backend"`
	Database         string   `json:"database"`
	DatabaseURL      string   `json:"database_url"`
	DatabaseName     string   `json:"database_name"`
	ConnectionStatus string   `json:"connection_status"`
	Collections      []string `json:"collections"`
}

const reasonLimit = 50

// GET /test always answers 200; failures are described in the body.
func (h *Handler) diagnose(w http.ResponseWriter, r *http.Request) {
	d := h.db.Diagnose(r.Context())
	if d.Status != database.Connected {
		h.logger.WarnContext(r.Context(), "database diagnostic", "status", d.Status.String(), "reason", d.Reason)
	}
	writeJSON(w, http.StatusOK, renderDiagnosis(d, h.opts.DatabaseURLSet, h.opts.DatabaseNameSet))
}

func renderDiagnosis(d database.Diagnosis, urlSet, nameSet bool) diagnosticResponse {
	resp := diagnosticResponse{
		Backend:          "✅ Running",
		ConnectionStatus: "Not Connected",
		DatabaseURL:      setOrNot(urlSet),
		DatabaseName:     setOrNot(nameSet),
		Collections:      d.Collections,
	}
	if resp.Collections == nil {
		resp.Collections = []string{}
	}

	switch d.Status {
	case database.Connected:
		resp.Database = "✅ Connected & Working"
		resp.ConnectionStatus = "Connected"
	case database.QueryFailed:
		// Reachable, but listing collections failed.
		resp.Database = "⚠️  Connected but Error: " + truncate(d.Reason, reasonLimit)
		resp.ConnectionStatus = "Connected"
	case database.ConnectionFailed:
		resp.Database = "❌ Error: " + truncate(d.Reason, reasonLimit)
	default:
		resp.Database = "⚠️  Available but not initialized"
	}
	return resp
}

func setOrNot(set bool) string {
	if set {
		return "✅ Set"
	}
	return "❌ Not Set"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
