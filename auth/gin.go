package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SravanamCharan20/CodeClash/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	ErrMissingTokenStr  = "missing-token"
	ErrExpiredTokenStr  = "expired-token"
	ErrInvalidTokenStr  = "invalid-token"
	ErrUnknownUserStr   = "unknown-user"
	ErrServerTimeoutStr = "server-timeout"
	ErrUnknownStr       = "unknown-error"
)

const identityKey = "identity"

// RequireIdentity rejects any request that does not carry a resolvable "token" cookie.
func RequireIdentity(resolver IdentityResolver, trollTime time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie("token")
		if err != nil || token == "" {
			ctx.String(http.StatusUnauthorized, ErrMissingTokenStr)
			ctx.Abort()
			return
		}

		identity, err := resolver.Resolve(ctx.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidSigningMethod), errors.Is(err, domain.ErrInvalidTokenSignature), errors.Is(err, domain.ErrCorruptedToken):
				log.Warn().Str("ip", ctx.ClientIP()).Err(err).Msg("rejected forged token")
				time.Sleep(trollTime)
				ctx.String(http.StatusUnauthorized, ErrInvalidTokenStr)
			case errors.Is(err, domain.ErrExpiredToken):
				ctx.String(http.StatusUnauthorized, ErrExpiredTokenStr)
			case errors.Is(err, domain.ErrMissingToken):
				ctx.String(http.StatusUnauthorized, ErrMissingTokenStr)
			case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, ErrIncompleteProfile):
				ctx.String(http.StatusUnauthorized, ErrUnknownUserStr)
			case errors.Is(err, context.DeadlineExceeded):
				ctx.String(http.StatusGatewayTimeout, ErrServerTimeoutStr)
			case errors.Is(err, context.Canceled):
				ctx.Status(499)
			default:
				log.Error().Err(err).Msg("identity resolution failed")
				ctx.String(http.StatusInternalServerError, ErrUnknownStr)
			}
			ctx.Abort()
			return
		}

		ctx.Set(identityKey, identity)
		ctx.Next()
	}
}

func GetIdentity(ctx *gin.Context) (domain.Identity, bool) {
	v, ok := ctx.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}
