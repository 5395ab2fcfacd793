package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/taskboard/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
)

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout     time.Duration
	actorHeader string
}

// NewAdapter constructs an Adapter. actorHeader names the request header the auth
// middleware fills with the signed-in actor.
func NewAdapter(timeout time.Duration, actorHeader string) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		timeout:     timeout,
		actorHeader: actorHeader,
	}
}

// Attach creates a context with timeout derived from the adapter and enriches it with request metadata.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	reqID := getRequestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)
	ctx.Response.Header.Set("X-Request-ID", reqID)

	if a.actorHeader != "" {
		if actorID := string(ctx.Request.Header.Peek(a.actorHeader)); actorID != "" {
			stdCtx = appLogger.ContextWithActorID(stdCtx, actorID)
		}
	}
	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}

	return stdCtx, cancel
}

func getRequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if header := string(ctx.Request.Header.Peek("X-Request-ID")); strings.TrimSpace(header) != "" {
		return header
	}
	return uuid.NewString()
}
