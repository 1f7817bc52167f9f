package core

import (
	"context"

	"github.com/JonMunkholm/audience/internal/logging"
)

type contextKey string

const ctxKeyClient contextKey = "client"

// Client identifies who issued an operation, for operation logs.
type Client struct {
	IP        string
	UserAgent string
}

// WithClient attaches c to ctx. Loggers built from the returned context
// carry client_ip.
func WithClient(ctx context.Context, c Client) context.Context {
	if c.IP != "" {
		ctx = logging.Attach(ctx, "client_ip", c.IP)
	}
	return context.WithValue(ctx, ctxKeyClient, c)
}

// ClientFromContext returns the client attached to ctx, if any.
func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(ctxKeyClient).(Client)
	return c
}
