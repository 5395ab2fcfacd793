package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	taskUC "github.com/fastygo/taskboard/usecase/task"
)

type TaskHandler struct {
	baseHandler
	workspaces Workspaces
}

func NewTaskHandler(workspaces Workspaces, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		workspaces:  workspaces,
	}
}

// @Summary List tasks, filtered and ordered
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
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
		if _, err := ws.Tasks.FetchAll(stdCtx); err != nil {
			h.respondError(ctx, stdCtx, err)
			return
		}
	}

	h.respondSuccess(ctx, http.StatusOK, ws.Tasks.Tasks(criteriaFromQuery(ctx.QueryArgs())))
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	var req transport.TaskCreateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := req.ToTask()
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}

	ws, err := h.workspaces.Get(stdCtx, actorID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	created, err := ws.Tasks.Add(stdCtx, task)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Partially update task
// @Tags tasks
// @Router /api/v1/tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.badRequest(ctx, "missing task id")
		return
	}

	var req transport.TaskPatchRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	patch, err := req.ToPatch()
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}

	ws, err := h.workspaces.Get(stdCtx, actorID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	updated, err := ws.Tasks.Update(stdCtx, id, patch)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Delete task, recording an audit snapshot first
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	actorID := h.actorID(ctx)
	if actorID == "" {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.badRequest(ctx, "missing task id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ws, err := h.workspaces.Get(stdCtx, actorID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	outcome, err := ws.Tasks.Delete(stdCtx, id)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}

	payload := map[string]interface{}{
		"task_id": outcome.TaskID,
		"audit":   outcome.Audit,
	}
	var warnings []transport.ErrorBody
	if outcome.AuditErr != nil {
		warnings = append(warnings, transport.ErrorBody{
			Code:    string(domain.ErrCodeAuditWriteFailed),
			Message: outcome.AuditErr.Error(),
		})
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewPartial(payload, warnings...))
}

func criteriaFromQuery(args *fasthttp.Args) taskUC.Criteria {
	return taskUC.Criteria{
		Status:      string(args.Peek("status")),
		Priority:    string(args.Peek("priority")),
		ProjectID:   string(args.Peek("project_id")),
		UserID:      string(args.Peek("user_id")),
		AssignedTo:  string(args.Peek("assigned_to")),
		Assignee:    string(args.Peek("assignee")),
		Search:      string(args.Peek("search")),
		DueDateSort: taskUC.SortDirection(args.Peek("due_date_sort")),
	}
}
