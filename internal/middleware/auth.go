package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
)

// Headers set on authenticated requests for downstream handlers.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderSessionID = "X-Session-ID"
)

// Authenticator validates an access token and returns the session it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

// JWTAuth rejects requests without a valid token and live session. Identity headers sent
// by the client are always overwritten.
func JWTAuth(auth Authenticator, timeout time.Duration, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			ctx.Request.Header.Del(HeaderActorID)
			ctx.Request.Header.Del(HeaderSessionID)

			tokenString := extractToken(ctx)
			if tokenString == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			stdCtx, cancel := context.WithTimeout(context.Background(), timeout)
			session, err := auth.Authenticate(stdCtx, tokenString)
			cancel()
			if err != nil {
				logger.Warn("request not authenticated", zap.Error(err))
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			ctx.Request.Header.Set(HeaderActorID, session.ActorID)
			ctx.Request.Header.Set(HeaderSessionID, session.ID)
			next(ctx)
		}
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
