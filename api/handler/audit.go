package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	"github.com/fastygo/taskboard/repository"
	auditUC "github.com/fastygo/taskboard/usecase/audit"
)

type AuditHandler struct {
	baseHandler
	recorder *auditUC.Recorder
}

func NewAuditHandler(recorder *auditUC.Recorder, adapter *httpcontext.Adapter, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		baseHandler: newBaseHandler(adapter, logger),
		recorder:    recorder,
	}
}

// @Summary Deleted task snapshots, newest first
// @Tags audit
// @Router /api/v1/audit/deleted-tasks [get]
func (h *AuditHandler) List(ctx *fasthttp.RequestCtx) {
	if h.actorID(ctx) == "" {
		return
	}

	args := ctx.QueryArgs()
	filter := repository.AuditFilter{
		DeletedBy: string(args.Peek("deleted_by")),
		TaskType:  domain.TaskType(args.Peek("task_type")),
		Limit:     args.GetUintOrZero("limit"),
	}
	if filter.TaskType != "" && !filter.TaskType.Valid() {
		h.badRequest(ctx, "task_type must be regular or daily")
		return
	}
	var ok bool
	if filter.DateFrom, ok = h.queryTime(ctx, "date_from"); !ok {
		return
	}
	if filter.DateTo, ok = h.queryTime(ctx, "date_to"); !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	records, err := h.recorder.List(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, records)
}

// @Summary Deletion counters
// @Tags audit
// @Router /api/v1/audit/stats [get]
func (h *AuditHandler) Stats(ctx *fasthttp.RequestCtx) {
	if h.actorID(ctx) == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stats, err := h.recorder.Stats(stdCtx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, stats)
}

// @Summary Purge the audit trail (admin, password re-entry)
// @Tags audit
// @Router /api/v1/audit/purge [post]
func (h *AuditHandler) Purge(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	var req transport.PurgeRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	purged, err := h.recorder.Purge(stdCtx, actorID, req.Password)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int64{"purged": purged})
}

func (h *AuditHandler) queryTime(ctx *fasthttp.RequestCtx, key string) (*time.Time, bool) {
	raw := string(ctx.QueryArgs().Peek(key))
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, true
	}
	h.badRequest(ctx, key+" must be YYYY-MM-DD or RFC 3339")
	return nil, false
}
