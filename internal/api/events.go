package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/events"
)

// EventsHandler streams change notifications as server-sent events.
type EventsHandler struct {
	Events events.Subscriber
	Log    *zap.Logger
}

// heartbeat keeps idle connections open through proxies.
const heartbeat = 25 * time.Second

// Stream handles GET /api/events.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		jsonError(w, http.StatusServiceUnavailable, "events unavailable")
		return
	}

	ch, cancel, err := h.Events.Subscribe(r.Context(), events.AllTopics...)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	defer cancel()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.Log.Warn("streaming unsupported", zap.Error(err))
		return
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.Log.Warn("encoding event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Topic, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
