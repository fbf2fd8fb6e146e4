package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/internal/core/auth"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

const userKey = "user"

// Authenticator resolves a bearer token to the current account
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware validates the bearer token and stores the reloaded user in
// the request context
func AuthMiddleware(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.SendError(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			utils.SendError(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		user, err := authenticator.Authenticate(c.Request.Context(), tokenParts[1])
		if err != nil {
			var authErr *home.AuthError
			if errors.As(err, &authErr) {
				utils.SendError(c, http.StatusUnauthorized, authErr.Message)
			} else {
				utils.SendError(c, http.StatusServiceUnavailable, "Unable to verify session")
			}
			c.Abort()
			return
		}

		c.Set(userKey, user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// RequireAdmin rejects callers whose role is not admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || auth.ResolveRole(user) != models.RoleAdmin {
			utils.SendError(c, http.StatusForbidden, "You do not have permission to perform this action.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, if any
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// Actor returns the actor for entity operations. Unauthenticated requests
// get an actor with no role.
func Actor(c *gin.Context) home.Actor {
	user, ok := CurrentUser(c)
	if !ok {
		return home.Actor{}
	}
	return auth.ActorFor(user)
}
