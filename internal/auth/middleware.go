// Package auth resolves the current dashboard user for each request.
package auth

import (
	"apim-analytics-backend/config"
	"apim-analytics-backend/internal/model"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	usernameKey    = "username"
	UsernameHeader = "X-Username"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator turns request credentials into a username.
type Authenticator interface {
	Middleware() gin.HandlerFunc
	ValidateToken(tokenString string) (string, error)
}

type authenticator struct {
	secret          []byte
	defaultUsername string
}

func NewAuthenticator(cfg *config.Config) Authenticator {
	username := cfg.Auth.DefaultUsername
	if username == "" {
		username = "admin"
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Str("default_user", username).Msg("No JWT secret configured, trusting the X-Username header")
	}
	return &authenticator{secret: []byte(cfg.Auth.JWTSecret), defaultUsername: username}
}

// ValidateToken checks an HS256/384/512 token and returns its username
// claim, falling back to the subject.
func (a *authenticator) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Username != "" {
		return claims.Username, nil
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", fmt.Errorf("%w: no username claim", ErrInvalidToken)
}

func (a *authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(a.secret) == 0 {
			username := strings.TrimSpace(c.GetHeader(UsernameHeader))
			if username == "" {
				username = a.defaultUsername
			}
			c.Set(usernameKey, username)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			// Browsers cannot set headers on websocket handshakes.
			tokenString = c.Query("access_token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewResponse("Missing bearer token", nil))
			return
		}
		username, err := a.ValidateToken(tokenString)
		if err != nil {
			log.Warn().Err(err).Str("path", c.FullPath()).Msg("Rejected request token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewResponse("Invalid token", nil))
			return
		}
		c.Set(usernameKey, username)
		c.Next()
	}
}

// Username returns the user resolved by the middleware.
func Username(c *gin.Context) string {
	return c.GetString(usernameKey)
}
