package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hackgods/clinic-appointments/internal/clinic"
)

// SessionCookie names the cookie holding the server-side session id.
const SessionCookie = "clinic.sid"

type Channel string

const (
	ChannelNone    Channel = ""
	ChannelBearer  Channel = "bearer"
	ChannelSession Channel = "session"
)

type SessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Lookup(ctx context.Context, id string) (string, error)
	Destroy(ctx context.Context, id string) error
}

type Result struct {
	Authenticated bool
	Identity      *Identity
	Channel       Channel
}

// Gate decides who is calling. A request carrying an Authorization header
// is judged on its bearer token alone; any session cookie is then ignored.
type Gate struct {
	tokens   *TokenIssuer
	sessions SessionStore
	users    clinic.UserRepository
}

func NewGate(tokens *TokenIssuer, sessions SessionStore, users clinic.UserRepository) *Gate {
	return &Gate{tokens: tokens, sessions: sessions, users: users}
}

func (g *Gate) Resolve(r *http.Request) Result {
	if header := r.Header.Get("Authorization"); header != "" {
		return g.fromBearer(r.Context(), header)
	}
	return g.fromSession(r)
}

func (g *Gate) fromBearer(ctx context.Context, header string) Result {
	res := Result{Channel: ChannelBearer}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return res
	}
	claims, err := g.tokens.Parse(raw)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("bearer token rejected")
		return res
	}

	id := claims.Identity
	res.Authenticated = true
	res.Identity = &id
	return res
}

func (g *Gate) fromSession(r *http.Request) Result {
	res := Result{Channel: ChannelSession}
	ctx := r.Context()

	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return Result{}
	}

	userID, err := g.sessions.Lookup(ctx, cookie.Value)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("session lookup failed")
		return res
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return res
	}
	u, err := g.users.GetUser(ctx, oid)
	if err != nil {
		if !errors.Is(err, clinic.ErrUserNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("load session user")
		}
		return res
	}

	id := IdentityOf(u)
	res.Authenticated = true
	res.Identity = &id
	return res
}

type resultKey struct{}

func WithResult(ctx context.Context, res Result) context.Context {
	return context.WithValue(ctx, resultKey{}, res)
}

// FromContext returns the resolved caller, or an unauthenticated result.
func FromContext(ctx context.Context) Result {
	res, _ := ctx.Value(resultKey{}).(Result)
	return res
}
