package handlers

import (
	"net/http"
	"strconv"

	"github.com/agentstation/catalogd/internal/server/cache"
	"github.com/agentstation/catalogd/internal/server/response"
	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/logging"
)

// HandleListCatalogs handles GET /v1/catalogs. The optional connector query
// parameter filters by connector name. Property values are never returned.
func (h *Handlers) HandleListCatalogs(w http.ResponseWriter, r *http.Request) {
	summaries := h.cache.GetOrLoad(cache.KeyCatalogs, func() any {
		return catalogs.Summaries(h.engine.Applied())
	}).([]catalogs.Summary)

	if connector := r.URL.Query().Get("connector"); connector != "" {
		filtered := make([]catalogs.Summary, 0, len(summaries))
		for _, s := range summaries {
			if s.Connector == connector {
				filtered = append(filtered, s)
			}
		}
		summaries = filtered
	}

	response.OK(w, map[string]any{
		"catalogs": summaries,
		"count":    len(summaries),
	})
}

// HandleGetCatalog handles GET /v1/catalogs/{name}.
func (h *Handlers) HandleGetCatalog(w http.ResponseWriter, _ *http.Request, name string) {
	for _, r := range h.engine.Applied() {
		if r.Name() == name {
			response.OK(w, r.Summary())
			return
		}
	}
	response.ErrorFromType(w, errors.NewNotFoundError("catalog", name))
}

// HandleReload handles POST /v1/catalogs/reload. By default it requests an
// early cycle and returns 202. With wait=true it runs a cycle and returns
// its result.
func (h *Handlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		h.engine.Trigger()
		response.Accepted(w, map[string]any{"status": "scheduled"})
		return
	}

	result, err := h.engine.Reconcile(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Msg("Manual reconcile failed")
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, result)
}

// HandleAnnouncement handles GET /v1/announcement.
func (h *Handlers) HandleAnnouncement(w http.ResponseWriter, _ *http.Request) {
	if h.announcer == nil {
		response.NotFound(w, "Announcement not available", "")
		return
	}
	response.OK(w, h.cache.GetOrLoad(cache.KeyAnnouncement, func() any {
		return h.announcer.Snapshot()
	}))
}

// HandleConnectors handles GET /v1/connectors.
func (h *Handlers) HandleConnectors(w http.ResponseWriter, _ *http.Request) {
	if h.connectors == nil {
		response.NotFound(w, "Connector registry not available", "")
		return
	}
	handles := h.connectors.List()
	response.OK(w, map[string]any{
		"connectors": handles,
		"count":      len(handles),
	})
}

// HandleStatus handles GET /v1/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"engine":            h.engine.Status(),
		"cache":             h.cache.GetStats(),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}
