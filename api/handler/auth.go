package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/internal/middleware"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	actorUC "github.com/fastygo/taskboard/usecase/actor"
	authUC "github.com/fastygo/taskboard/usecase/auth"
)

type AuthHandler struct {
	baseHandler
	uc         *authUC.UseCase
	actors     *actorUC.Resolver
	defaultTTL time.Duration
}

func NewAuthHandler(uc *authUC.UseCase, actors *actorUC.Resolver, adapter *httpcontext.Adapter, logger *zap.Logger, ttl time.Duration) *AuthHandler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		actors:      actors,
		defaultTTL:  ttl,
	}
}

// @Summary Sign in with actor id and password
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.LoginRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	grant, err := h.uc.Login(stdCtx, req.ActorID, req.Password, h.ttlFromRequest(req.TTL))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, grant)
}

// @Summary Extend the current session
// @Tags auth
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	sessionID := string(ctx.Request.Header.Peek(middleware.HeaderSessionID))
	if sessionID == "" {
		h.respondJSON(ctx, http.StatusUnauthorized, transport.NewError(string(domain.ErrCodeUnauthenticated), "missing session", nil))
		return
	}

	var req transport.RefreshRequest
	if len(ctx.PostBody()) > 0 && !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	grant, err := h.uc.Refresh(stdCtx, sessionID, h.ttlFromRequest(req.TTL))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, grant)
}

// @Summary End the current session
// @Tags auth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	sessionID := string(ctx.Request.Header.Peek(middleware.HeaderSessionID))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Logout(stdCtx, sessionID); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary The signed-in actor
// @Tags auth
// @Router /api/v1/me [get]
func (h *AuthHandler) Me(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	actor, err := h.actors.Lookup(stdCtx, actorID)
	if err != nil {
		h.respondError(ctx, stdCtx, domain.RemoteIO("resolve actor", err))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, actor)
}

func (h *AuthHandler) ttlFromRequest(ttlSeconds int) time.Duration {
	if ttlSeconds <= 0 {
		return h.defaultTTL
	}
	return time.Duration(ttlSeconds) * time.Second
}
