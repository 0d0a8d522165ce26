package constants

const (
	// SessionCookieName is the cookie carrying the opaque session id.
	SessionCookieName = "task_session"

	// ContextKeyPrincipal is the gin context key holding the authenticated principal.
	ContextKeyPrincipal = "principal"
	// ContextKeyRequestID is the gin context key holding the request id.
	ContextKeyRequestID = "request_id"

	// Session value keys
	SessionKeyUserID   = "user_id"
	SessionKeyEmail    = "email"
	SessionKeyName     = "name"
	SessionKeyRole     = "role"
	SessionKeyIssuedAt = "issued_at"

	MinPasswordLength = 8
	MinNameLength     = 2

	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
