package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// StreamEvents streams committed batch events as server-sent events until the
// client disconnects.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	id, ch := h.cfg.Events.Subscribe()
	defer h.cfg.Events.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.log.Warn("api: streaming unsupported", "error", err)
		return
	}

	h.log.Debug("api: event subscriber connected", "subscriber", id, "remote", GetIPFromRequest(r))

	keepAlive := time.NewTicker(h.cfg.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Debug("api: event subscriber disconnected", "subscriber", id)
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error("api: failed to encode event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: batch\ndata: %s\n\n", event.BatchID, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
