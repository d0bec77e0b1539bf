package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"interviewhub/backend/internal/models"
	"interviewhub/backend/internal/storage"
)

// ErrUnauthenticated is the single outcome for every authentication failure:
// bad signature, expiry and unknown user are not distinguished to the caller.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is what an authenticated connection carries.
type Identity struct {
	UserID string
	Role   string
}

// UserLookup resolves a user id to its role. ok is false when the user does
// not exist.
type UserLookup func(ctx context.Context, userID string) (role string, ok bool, err error)

// UserDirectory is the part of storage the authenticator reads.
type UserDirectory interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// DirectoryLookup adapts a UserDirectory to a UserLookup.
func DirectoryLookup(dir UserDirectory) UserLookup {
	return func(ctx context.Context, userID string) (string, bool, error) {
		user, err := dir.GetUserByID(ctx, userID)
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return user.Role, true, nil
	}
}

// Authenticator validates a presented token against the user directory.
type Authenticator struct {
	tokens *TokenManager
	lookup UserLookup
}

func NewAuthenticator(tokens *TokenManager, lookup UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, lookup: lookup}
}

// Authenticate resolves token to an identity or fails with ErrUnauthenticated.
// The returned cause is for logging only.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}
	role, ok, err := a.lookup(ctx, claims.UserID)
	if err != nil {
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: claims.UserID, Role: role}, nil
}

// TokenFromRequest reads a bearer token from the Authorization header, or
// from the "token" query parameter for browser websocket clients that cannot
// set headers.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return r.URL.Query().Get("token")
}
