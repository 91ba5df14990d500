package middleware

import (
	"context"
	"errors"
	"net/http"

	"geoauth/internal/common"
	"geoauth/internal/common/security"
	"geoauth/internal/domain/model"
	"geoauth/internal/domain/repository"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const userCtxKey contextKey = "currentUser"

// Authenticator gates protected routes: it extracts the bearer token, verifies
// it, resolves the claims to a live user record, and injects that record into
// the request context. Every failure short-circuits with a 401.
func Authenticator(tokens *security.TokenService, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := jwtauth.TokenFromHeader(r)
			if tokenString == "" {
				common.RespondWithMessage(w, http.StatusUnauthorized, "token missing")
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				common.RespondWithMessage(w, http.StatusUnauthorized, "token invalid: "+err.Error())
				return
			}

			user, err := users.FindByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					common.RespondWithMessage(w, http.StatusUnauthorized, "user not found")
					return
				}
				common.RespondWithMessage(w, http.StatusInternalServerError, "failed to resolve user")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// CurrentUser returns the record resolved by Authenticator.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userCtxKey).(*model.User)
	return user, ok
}
