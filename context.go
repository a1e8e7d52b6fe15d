package authcode

import "context"

type contextKey int

const clientIPKey contextKey = iota

// WithClientIP records the requesting client's IP on the context. The
// throttle uses it for per-IP budgets and audit events carry it; without it
// both simply fall back to per-login accounting.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
