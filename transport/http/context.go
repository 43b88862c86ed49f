package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/panyu/myblog/core"
)

// identityKey is the gin key holding the caller identity
const identityKey = "identity"

type identityCtxKey struct{}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity core.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFromContext returns the identity bound by the interceptor, if any
func IdentityFromContext(ctx context.Context) (core.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(core.Identity)
	return identity, ok
}

// CurrentIdentity returns the identity bound to the gin context. A cleared
// binding holds nil and reads as absent.
func CurrentIdentity(c *gin.Context) (core.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok || v == nil {
		return core.Identity{}, false
	}
	identity, ok := v.(core.Identity)
	return identity, ok
}
