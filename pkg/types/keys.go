package types

// ContextKey is the type of request-scoped values stored in a context.Context.
type ContextKey string

const (
	ContextKeyRequestID     ContextKey = "request_id"
	ContextKeyUserID        ContextKey = "user_id"
	ContextKeySessionID     ContextKey = "session_id"
	ContextKeyRequestSource ContextKey = "request_source"
)
