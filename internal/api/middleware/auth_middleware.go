package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hiredup/internal/auth"
	"hiredup/internal/metrics"
	"hiredup/internal/session"
)

const (
	userIDKey = "userID"
	gateKey   = "sessionGate"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*auth.TokenClaims, error)
}

// AbortLoginRequired 返回 401 并附带登录跳转地址，回跳到当前请求。
func AbortLoginRequired(c *gin.Context) {
	metrics.ObserveLoginRedirect()
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":    "unauthorized",
		"redirect": session.LoginRedirect(c.Request.URL.RequestURI()),
	})
}

// AuthMiddleware 校验访问令牌，从会话镜像恢复 Gate 并注入上下文。
// 已登出（镜像被清除）的令牌同样视为未登录。
func AuthMiddleware(tokens tokenValidator, gates session.Factory) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens, gates) {
			AbortLoginRequired(c)
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware behaves like AuthMiddleware but lets anonymous
// requests through without a gate.
func OptionalAuthMiddleware(tokens tokenValidator, gates session.Factory) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, tokens, gates)
		c.Next()
	}
}

func authenticate(c *gin.Context, tokens tokenValidator, gates session.Factory) bool {
	rawToken := BearerToken(c)
	if rawToken == "" {
		return false
	}

	claims, err := tokens.ValidateToken(rawToken)
	if err != nil {
		return false
	}

	gate := gates.New(LoggerFromContext(c))
	if !gate.Restore(c.Request.Context(), claims.UserID) {
		return false
	}

	c.Set(userIDKey, claims.UserID)
	c.Set(gateKey, gate)
	return true
}

// BearerToken 解析 Authorization 头，格式不符时返回空串。
func BearerToken(c *gin.Context) string {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// UserIDFromContext returns the authenticated user id set by the middleware.
func UserIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(userIDKey)
	return id, id != ""
}

// GateFromContext returns the restored session gate, if any.
func GateFromContext(c *gin.Context) (*session.Gate, bool) {
	value, ok := c.Get(gateKey)
	if !ok {
		return nil, false
	}
	gate, ok := value.(*session.Gate)
	return gate, ok
}
