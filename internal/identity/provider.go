// Package identity turns verified credentials into a server-side session and
// resolves the session cookie back into a policy.Principal.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	gsessions "github.com/gorilla/sessions"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
)

// ErrInvalidCredentials is returned for every failed login, whatever the cause.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apierrors.ErrAuthentication)

// Verifier checks an email/password pair.
type Verifier interface {
	Verify(ctx context.Context, email, password string) (*models.User, bool, error)
}

// Provider stores principals in the request's session. store must be the
// store mounted by the sessions middleware.
type Provider struct {
	verifier Verifier
	store    sessions.Store
	options  sessions.Options
	ttl      time.Duration
	now      func() time.Time
}

// NewProvider creates a Provider whose sessions expire after options.MaxAge
// seconds.
func NewProvider(verifier Verifier, store sessions.Store, options sessions.Options) *Provider {
	return &Provider{
		verifier: verifier,
		store:    store,
		options:  options,
		ttl:      time.Duration(options.MaxAge) * time.Second,
		now:      time.Now,
	}
}

// Login verifies the credentials, discards the session the request arrived
// with and issues a session with a newly generated id.
func (p *Provider) Login(c *gin.Context, email, password string) (*policy.Principal, error) {
	user, ok, err := p.verifier.Verify(c.Request.Context(), email, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	principal := &policy.Principal{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}

	previous := sessions.Default(c)
	if previous.ID() != "" {
		previous.Clear()
		previous.Options(sessions.Options{Path: p.options.Path, MaxAge: -1})
		if err := previous.Save(); err != nil {
			return nil, fmt.Errorf("failed to discard previous session: %w", err)
		}
	}

	session := gsessions.NewSession(p.store, constants.SessionCookieName)
	session.Options = p.options.ToGorillaOptions()
	session.IsNew = true
	session.Values[constants.SessionKeyUserID] = principal.ID
	session.Values[constants.SessionKeyEmail] = principal.Email
	session.Values[constants.SessionKeyName] = principal.Name
	session.Values[constants.SessionKeyRole] = string(principal.Role)
	session.Values[constants.SessionKeyIssuedAt] = p.now().Unix()
	if err := session.Save(c.Request, c.Writer); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return principal, nil
}

// Resolve returns the principal of the current session. Missing, expired and
// malformed sessions all resolve to false.
func (p *Provider) Resolve(c *gin.Context) (*policy.Principal, bool) {
	session := sessions.Default(c)

	id, ok := session.Get(constants.SessionKeyUserID).(uint64)
	if !ok || id == 0 {
		return nil, false
	}
	email, _ := session.Get(constants.SessionKeyEmail).(string)
	name, _ := session.Get(constants.SessionKeyName).(string)
	role, _ := session.Get(constants.SessionKeyRole).(string)
	issuedAt, ok := session.Get(constants.SessionKeyIssuedAt).(int64)
	if !ok {
		return nil, false
	}

	if p.ttl > 0 && p.now().After(time.Unix(issuedAt, 0).Add(p.ttl)) {
		return nil, false
	}
	if !models.Role(role).Valid() {
		return nil, false
	}

	return &policy.Principal{
		ID:    id,
		Email: email,
		Name:  name,
		Role:  models.Role(role),
	}, true
}

// Logout clears the session and expires its cookie. It succeeds when there
// is no session. Server-side stores drop the session itself; the cookie
// store has no server state, so a copied cookie stays valid until its
// issued_at plus the TTL.
func (p *Provider) Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// ErrUnknownStore is returned by NewStore for an unsupported session.store.
var ErrUnknownStore = errors.New("unknown session store")

// NewStore builds the session store selected by cfg.Session.Store.
func NewStore(cfg *config.Config) (sessions.Store, error) {
	secret := []byte(cfg.Session.Secret)

	var store sessions.Store
	switch cfg.Session.Store {
	case "redis":
		s, err := redis.NewStore(
			cfg.Redis.PoolSize,
			"tcp",
			cfg.RedisAddr(),
			"",
			cfg.Redis.Password,
			secret,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		store = s
	case "memory":
		store = memstore.NewStore(secret)
	case "cookie":
		store = cookie.NewStore(secret)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownStore, cfg.Session.Store)
	}

	store.Options(StoreOptions(cfg))

	return store, nil
}

// StoreOptions returns the cookie options for sessions issued under cfg.
func StoreOptions(cfg *config.Config) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
}
