package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/deskchat/deskchat/internal/auth"
)

// ContextKeyIdentity is the gin context key holding the authenticated identity.
const ContextKeyIdentity = "identity"

// ErrorResponse is the JSON error envelope for the API surface.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthMiddleware validates the caller's token and stores the identity in
// the request context. Tokens arrive either as "Authorization: Bearer" or,
// for websocket requests where browsers cannot set headers, as a "token"
// query parameter.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			logger.Debug().Str("path", c.Request.URL.Path).Msg("missing credentials")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing credentials"})
			c.Abort()
			return
		}

		identity, err := authService.ValidateToken(token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Next()
	}
}

// identityFrom pulls the authenticated identity placed by AuthMiddleware.
func identityFrom(c *gin.Context) (*auth.Identity, bool) {
	v, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// LoggerMiddleware logs each request after it completes.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
