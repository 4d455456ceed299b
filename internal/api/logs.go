package api

import (
	"net/http"
	"time"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/model"
)

// LogsHandler handles activity log endpoints.
type LogsHandler struct {
	Activity *activity.Recorder
	Location *time.Location
}

// List handles GET /api/logs?date=YYYY-MM-DD&hidden=true. Hidden entries
// are only listed for super admins.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f activity.Filter
	if s := q.Get("date"); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, h.Location)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		f.Date = d
	}
	if q.Get("hidden") == "true" {
		actor, _ := activity.ActorFrom(r.Context())
		if !model.RoleAtLeast(actor.Role, model.RoleSuperAdmin) {
			jsonError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		f.ShowHidden = true
	}

	logs, err := h.Activity.List(r.Context(), f)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, logs)
}

// ToggleHidden handles PUT /api/logs/{id}/hidden.
func (h *LogsHandler) ToggleHidden(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Activity.ToggleHidden(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, entry)
}

// Delete handles DELETE /api/logs/{id}?confirm=delete.
func (h *LogsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Activity.Delete(r.Context(), r.PathValue("id"), r.URL.Query().Get("confirm")); err != nil {
		serviceError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "log entry deleted"})
}
