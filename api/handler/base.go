package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/middleware"
	"github.com/fastygo/taskboard/internal/services"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	appLogger "github.com/fastygo/taskboard/pkg/logger"
)

// Workspaces hands out the live state of a signed-in actor.
type Workspaces interface {
	Get(ctx context.Context, actorID string) (*services.Workspace, error)
}

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, stdCtx context.Context, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		appLogger.WithRequestID(stdCtx, h.logger).Error("request failed", zap.Error(err))
	}
	h.respondJSON(ctx, status, transport.NewError(code, err.Error(), nil))
}

func (h baseHandler) badRequest(ctx *fasthttp.RequestCtx, message string) {
	h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), message, nil))
}

// actorID returns the authenticated actor, answering 401 when there is none.
func (h baseHandler) actorID(ctx *fasthttp.RequestCtx) string {
	actorID := string(ctx.Request.Header.Peek(middleware.HeaderActorID))
	if actorID == "" {
		h.respondJSON(ctx, http.StatusUnauthorized, transport.NewError(string(domain.ErrCodeUnauthenticated), "missing actor", nil))
	}
	return actorID
}

func (h baseHandler) decode(ctx *fasthttp.RequestCtx, dst interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		h.badRequest(ctx, "invalid payload")
		return false
	}
	return true
}

func mapError(err error) (int, string) {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthenticated):
		return http.StatusUnauthorized, string(domain.ErrCodeUnauthenticated)
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusForbidden, string(domain.ErrCodeUnauthorized)
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return http.StatusBadRequest, string(domain.ErrCodeInvalid)
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, string(domain.ErrCodeNotFound)
	case domain.IsDomainError(err, domain.ErrCodeRemoteIO):
		return http.StatusBadGateway, string(domain.ErrCodeRemoteIO)
	case domain.IsDomainError(err, domain.ErrCodeAuditWriteFailed):
		return http.StatusInternalServerError, string(domain.ErrCodeAuditWriteFailed)
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}
