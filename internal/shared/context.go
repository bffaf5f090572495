// Package shared carries request-scoped values across package boundaries
// without import cycles.
package shared

import "context"

// Context keys for request-scoped data. Keep types unexported to avoid collisions.
type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request-id"
	ctxKeyClient    ctxKey = "client"
)

// Client describes the caller of a request
type Client struct {
	IPAddress string
	UserAgent string
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, ctxKeyClient, c)
}

// ClientFrom returns the caller metadata, or the zero Client
func ClientFrom(ctx context.Context) Client {
	v, _ := ctx.Value(ctxKeyClient).(Client)
	return v
}
