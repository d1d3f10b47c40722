package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

type ctxKey string

const (
	userCtxKey  ctxKey = "user"
	tokenCtxKey ctxKey = "token"
)

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if u := currentUser(c); u != nil {
			fields = append(fields, zap.String("user_id", u.ID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// authMiddleware resolves the bearer token to a user and stores both on the
// request context.
func authMiddleware(users userService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithMessage(c, http.StatusUnauthorized, "authentication required", "missing bearer token")
			return
		}
		u, err := users.LookupByToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, usersvc.ErrInvalidToken) {
				abortWithMessage(c, http.StatusUnauthorized, "authentication required", err.Error())
				return
			}
			writeError(c, err)
			c.Abort()
			return
		}
		ctx := context.WithValue(c.Request.Context(), userCtxKey, u)
		ctx = context.WithValue(ctx, tokenCtxKey, token)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// adminMiddleware must run after authMiddleware.
func adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil || !u.IsAdmin {
			abortWithMessage(c, http.StatusForbidden, "forbidden", "admin privileges required")
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	u, _ := c.Request.Context().Value(userCtxKey).(*domain.User)
	return u
}

func currentToken(c *gin.Context) string {
	t, _ := c.Request.Context().Value(tokenCtxKey).(string)
	return t
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// uuidParam reads a path parameter, rejects it with 400 unless it is a UUID
// and returns it in canonical lowercase form.
func uuidParam(c *gin.Context, name string) (string, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abortWithMessage(c, http.StatusBadRequest, "invalid "+name, err.Error())
		return "", false
	}
	return id.String(), true
}
