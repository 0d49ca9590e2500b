package managehub

import "context"

type contextKey string

const (
	accountContextKey   contextKey = "managehub:account"
	requestIDContextKey contextKey = "managehub:request_id"
)

// WithAccount returns a context carrying the calling account identifier.
// The HTTP middleware reads it to decide whose role to check.
func WithAccount(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// GetAccount extracts the calling account from the context, if set.
func GetAccount(ctx context.Context) (string, bool) {
	account, ok := ctx.Value(accountContextKey).(string)
	return account, ok && account != ""
}

// WithRequestID returns a context carrying a request identifier for
// correlating audit entries with an external trace.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// GetRequestID extracts the request identifier from the context, if set.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok && id != ""
}
