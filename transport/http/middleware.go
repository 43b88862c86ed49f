package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/panyu/myblog/core"
)

// CorrelationHeader carries the request correlation id
const CorrelationHeader = "X-Correlation-ID"

// TokenValidator resolves a bearer token to the caller identity
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (core.Identity, error)
}

// RequestLogger attaches a correlation id and a request-scoped logger to the
// request context, then logs the completed request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationHeader)
		if id == "" {
			id = xid.New().String()
		}
		c.Header(CorrelationHeader, id)

		logger := log.With().Str("correlation_id", id).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		start := time.Now()
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http.request")
	}
}

// RequireIdentity rejects requests without a valid, unrevoked bearer token and
// binds the caller identity for the rest of the chain.
func RequireIdentity(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			respondUnauthorized(c)
			return
		}

		ctx := c.Request.Context()
		identity, err := validator.ValidateAccessToken(ctx, token)
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("auth.rejected")
			respondUnauthorized(c)
			return
		}

		// gin recycles contexts, so the binding must not outlive this request
		defer func() {
			c.Set(identityKey, nil)
			c.Request = c.Request.WithContext(ctx)
		}()
		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(WithIdentity(ctx, identity))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
