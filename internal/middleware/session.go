package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/litschool/admissions-portal/internal/services"
	"github.com/litschool/admissions-portal/pkg/jwt"
)

// SessionContextKey is the key used to store the workflow session in context
const SessionContextKey = "workflow_session"

var (
	ErrNoSession      = errors.New("session not found in context")
	ErrInvalidSession = errors.New("invalid session type")
)

// SessionResolver turns a bearer token into a live session
type SessionResolver interface {
	Resolve(token string) (*services.Session, error)
}

// SessionMiddleware requires "Authorization: Bearer <token>" naming a live
// workflow session and adds the session to the context
func SessionMiddleware(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(errors.New("missing bearer token")) //nolint:errcheck
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		session, err := resolver.Resolve(token)
		if err != nil {
			_ = c.Error(err) //nolint:errcheck
			if errors.Is(err, jwt.ErrExpiredToken) || errors.Is(err, services.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(SessionContextKey, session)
		c.Next()
	}
}

// GetSession extracts the workflow session from context
func GetSession(c *gin.Context) (*services.Session, error) {
	val, exists := c.Get(SessionContextKey)
	if !exists {
		return nil, ErrNoSession
	}

	session, ok := val.(*services.Session)
	if !ok {
		return nil, ErrInvalidSession
	}

	return session, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
