package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/internal/infrastructure/monitor"
	"github.com/fastygo/taskboard/pkg/httpcontext"
)

// StatusSource reports the last observed dependency status.
type StatusSource interface {
	GetStatus() monitor.Status
}

// WorkspaceCounter reports how many actor workspaces are open.
type WorkspaceCounter interface {
	Len() int
}

type HealthHandler struct {
	baseHandler
	monitor    StatusSource
	workspaces WorkspaceCounter
}

func NewHealthHandler(mon StatusSource, workspaces WorkspaceCounter, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
		workspaces:  workspaces,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	open := 0
	if h.workspaces != nil {
		open = h.workspaces.Len()
	}
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"services": map[string]interface{}{
			"postgresql": status.PostgreSQL,
			"redis":      status.Redis,
			"overlay": map[string]interface{}{
				"online": status.Overlay,
				"keys":   status.OverlayKeys,
			},
			"pending_audits": status.PendingAudits,
		},
		"workspaces": open,
		"last_check": status.LastCheck,
	}

	if status.PostgreSQL && status.Redis && status.Overlay {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}
