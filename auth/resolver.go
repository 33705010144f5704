package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/SravanamCharan20/CodeClash/domain"
)

var ErrIncompleteProfile = errors.New("incomplete-profile")

type Resolver struct {
	tokens TokenVerifier
	users  UserGetter
}

func NewResolver(tokens TokenVerifier, users UserGetter) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve turns a session token into the identity used by every room operation.
func (r *Resolver) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrMissingToken
	}

	id, err := r.tokens.Verify(token)
	if err != nil {
		return domain.Identity{}, err
	}

	user, err := r.users.GetUserById(ctx, id)
	if err != nil {
		return domain.Identity{}, err
	}

	if user.Id == "" || user.Username == "" {
		return domain.Identity{}, fmt.Errorf("%w: user %q", ErrIncompleteProfile, id)
	}
	if user.Role != domain.RoleAdmin {
		user.Role = domain.RoleUser
	}

	return user.Identity(), nil
}
