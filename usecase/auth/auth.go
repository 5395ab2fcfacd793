package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

// Credentials resolves actors and checks their stored credential.
type Credentials interface {
	Lookup(ctx context.Context, id string) (*domain.Actor, error)
	Verify(ctx context.Context, actorID, plaintext string) (bool, error)
}

// Claims are carried in the access token. SessionID ties the token to a revocable session.
type Claims struct {
	ActorID   string           `json:"actor_id"`
	ActorKind domain.ActorKind `json:"actor_kind"`
	SessionID string           `json:"sid"`
	jwt.RegisteredClaims
}

// Grant is the result of a successful sign-in or refresh.
type Grant struct {
	Token   string          `json:"token"`
	Session *domain.Session `json:"session"`
}

type UseCase struct {
	creds    Credentials
	sessions repository.SessionRepository
	secret   []byte
	issuer   string
	logger   *zap.Logger
	now      func() time.Time
}

func New(creds Credentials, sessions repository.SessionRepository, secret, issuer string, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		creds:    creds,
		sessions: sessions,
		secret:   []byte(secret),
		issuer:   issuer,
		logger:   logger,
		now:      time.Now,
	}
}

// Login checks the actor's password and opens a session.
func (uc *UseCase) Login(ctx context.Context, actorID, password string, ttl time.Duration) (*Grant, error) {
	if actorID == "" || password == "" {
		return nil, domain.ErrInvalidPayload
	}
	actor, err := uc.creds.Lookup(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrActorNotFound) {
			return nil, domain.ErrBadCredential
		}
		return nil, domain.RemoteIO("resolve actor", err)
	}
	if !actor.Active {
		uc.logger.Warn("sign-in refused for inactive actor", zap.String("actor_id", actorID))
		return nil, domain.ErrBadCredential
	}
	ok, err := uc.creds.Verify(ctx, actorID, password)
	if err != nil {
		return nil, domain.RemoteIO("verify credential", err)
	}
	if !ok {
		return nil, domain.ErrBadCredential
	}

	now := uc.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		ActorID:   actor.ID,
		ActorKind: actor.Kind,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, domain.RemoteIO("save session", err)
	}

	token, err := uc.sign(session)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("actor signed in", zap.String("actor_id", actor.ID), zap.String("kind", string(actor.Kind)))
	return &Grant{Token: token, Session: session}, nil
}

// Authenticate validates an access token and the session behind it.
func (uc *UseCase) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return uc.secret, nil
	})
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return nil, domain.ErrInvalidToken
	}

	session, err := uc.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, domain.RemoteIO("load session", err)
	}
	if session.IsExpired(uc.now()) {
		_ = uc.sessions.Delete(ctx, session.ID)
		return nil, domain.ErrSessionNotFound
	}
	if session.ActorID != claims.ActorID {
		return nil, domain.ErrInvalidToken
	}
	return session, nil
}

// Refresh extends a live session and issues a new token for it.
func (uc *UseCase) Refresh(ctx context.Context, sessionID string, ttl time.Duration) (*Grant, error) {
	session, err := uc.sessions.Renew(ctx, sessionID, uc.now().Add(ttl))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrInvalidPayload) {
			return nil, err
		}
		return nil, domain.RemoteIO("renew session", err)
	}

	token, err := uc.sign(session)
	if err != nil {
		return nil, err
	}
	return &Grant{Token: token, Session: session}, nil
}

func (uc *UseCase) Logout(ctx context.Context, sessionID string) error {
	if err := uc.sessions.Delete(ctx, sessionID); err != nil {
		return domain.RemoteIO("delete session", err)
	}
	return nil
}

func (uc *UseCase) sign(session *domain.Session) (string, error) {
	claims := Claims{
		ActorID:   session.ActorID,
		ActorKind: session.ActorKind,
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    uc.issuer,
			Subject:   session.ActorID,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.secret)
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeInternal, "sign access token", err)
	}
	return token, nil
}
