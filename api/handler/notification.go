package handler

import (
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	notificationUC "github.com/fastygo/taskboard/usecase/notification"
)

type NotificationHandler struct {
	baseHandler
	workspaces Workspaces
	sender     *notificationUC.Sender
}

func NewNotificationHandler(workspaces Workspaces, sender *notificationUC.Sender, adapter *httpcontext.Adapter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		workspaces:  workspaces,
		sender:      sender,
	}
}

// @Summary Visible notifications of the current actor
// @Tags notifications
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, err := h.workspaces.Get(stdCtx, actorID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	if ctx.QueryArgs().GetBool("refresh") {
		// A failed refresh is reported through the view's last_error.
		_, _ = ws.Notifications.FetchAll(stdCtx)
	}
	h.respondSuccess(ctx, http.StatusOK, ws.Notifications.View())
}

// @Summary Send a notification to an actor
// @Tags notifications
// @Router /api/v1/notifications [post]
func (h *NotificationHandler) Send(ctx *fasthttp.RequestCtx) {
	if h.actorID(ctx) == "" {
		return
	}

	var req transport.NotificationRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.sender.Send(stdCtx, req.ToNotification())
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Dismiss one notification
// @Tags notifications
// @Router /api/v1/notifications/{id}/dismiss [post]
func (h *NotificationHandler) Dismiss(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.badRequest(ctx, "missing notification id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, err := h.workspaces.Get(stdCtx, actorID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}

	persisted := true
	if err := ws.Notifications.Dismiss(stdCtx, id); err != nil {
		// The notification is hidden for this process either way.
		persisted = false
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"id":        id,
		"persisted": persisted,
	})
}

// @Summary Dismiss every notification of the current actor
// @Tags notifications
// @Router /api/v1/notifications [delete]
func (h *NotificationHandler) DismissAll(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, err := h.workspaces.Get(stdCtx, actorID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	if err := ws.Notifications.DismissAll(stdCtx); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ws.Notifications.View())
}

// @Summary Unread badge, optionally for a consumer-side filtered count
// @Tags notifications
// @Router /api/v1/badge [get]
func (h *NotificationHandler) Badge(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	var filtered *int
	if raw := ctx.QueryArgs().Peek("filtered"); len(raw) > 0 {
		n, err := strconv.Atoi(string(raw))
		if err != nil || n < 0 {
			h.badRequest(ctx, "filtered must be a non-negative integer")
			return
		}
		filtered = &n
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, err := h.workspaces.Get(stdCtx, actorID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ws.Badge.State(stdCtx, ws.Notifications.UnreadCount(), filtered))
}

// @Summary Hide the unread badge until more notifications arrive
// @Tags notifications
// @Router /api/v1/badge/hide [post]
func (h *NotificationHandler) HideBadge(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, err := h.workspaces.Get(stdCtx, actorID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	unread := ws.Notifications.UnreadCount()
	if err := ws.Badge.Hide(stdCtx, unread); err != nil {
		h.logger.Warn("badge flag not persisted", zap.String("actor_id", actorID), zap.Error(err))
	}
	h.respondSuccess(ctx, http.StatusOK, ws.Badge.State(stdCtx, unread, nil))
}
