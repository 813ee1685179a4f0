package authcore

import (
	"context"

	"github.com/lumenadmin/authcore/session"
)

type clientIPContextKey struct{}
type deviceInfoContextKey struct{}
type identityContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for per-IP SMS rate limiting and records it on the session.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithDeviceInfo attaches parsed client device information to ctx. The
// Engine records it on the session at login so active-session listings can
// show where each session came from.
func WithDeviceInfo(ctx context.Context, info session.DeviceInfo) context.Context {
	return context.WithValue(ctx, deviceInfoContextKey{}, info)
}

// WithIdentity attaches a validated Identity to ctx. The HTTP guard
// middleware calls this after token validation; handlers read it back with
// IdentityFromContext.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the Identity stored by WithIdentity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}

	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func deviceInfoFromContext(ctx context.Context) session.DeviceInfo {
	if ctx == nil {
		return session.DeviceInfo{}
	}

	info, _ := ctx.Value(deviceInfoContextKey{}).(session.DeviceInfo)
	return info
}
