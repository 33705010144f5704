package auth

import (
	"context"

	"github.com/SravanamCharan20/CodeClash/domain"
)

type UserGetter interface {
	GetUserById(ctx context.Context, id string) (domain.User, error)
}

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (domain.Identity, error)
}
