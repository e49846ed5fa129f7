package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hiredup/internal/api/middleware"
	"hiredup/internal/auth"
	"hiredup/internal/session"
)

type tokenIssuer interface {
	GenerateAccessToken(userID, email, name string) (string, error)
	AccessTokenTTL() time.Duration
}

// AuthHandler 处理登录、注册与退出，会话状态由 session.Gate 维护。
type AuthHandler struct {
	gates                 session.Factory
	tokens                tokenIssuer
	counter               redisRateCounter
	loginRateLimitPerHour int
}

// NewAuthHandler 构造认证处理器。counter 为 nil 时不做登录限流。
func NewAuthHandler(gates session.Factory, tokens tokenIssuer, counter redisRateCounter, loginRateLimitPerHour int) *AuthHandler {
	return &AuthHandler{
		gates:                 gates,
		tokens:                tokens,
		counter:               counter,
		loginRateLimitPerHour: loginRateLimitPerHour,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=128"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        session.User `json:"user"`
}

// Login 校验凭据并返回访问令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c).With(slog.String("email", req.Email))

	// 速率限制：每 IP+邮箱 每小时
	if h.counter != nil {
		count, err := incrWithTTL(ctx, h.counter, loginRateKey(c.ClientIP(), req.Email, time.Now()), time.Hour)
		if err != nil {
			logger.Warn("login rate counter unavailable", slog.Any("error", err))
			count = 0
		}
		if count > int64(h.loginRateLimitPerHour) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
	}

	gate := h.gates.New(logger)
	user, err := gate.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			logger.Info("login failed")
			Error(c, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		logger.Error("login failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithToken(c, http.StatusOK, user)
}

// Register 创建账号并直接登录。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	logger := middleware.LoggerFromContext(c).With(slog.String("email", req.Email))

	gate := h.gates.New(logger)
	user, err := gate.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrEmailTaken) {
			logger.Info("register conflict: email already registered")
			Conflict(c, "email already registered")
			return
		}
		if errors.Is(err, auth.ErrPasswordTooLong) || errors.Is(err, auth.ErrEmptyPassword) {
			BadRequest(c, err.Error())
			return
		}
		logger.Error("register failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.String("user_id", user.ID))
	h.replyWithToken(c, http.StatusCreated, user)
}

// Logout 清除会话镜像，之后该用户的令牌不再被接受。
func (h *AuthHandler) Logout(c *gin.Context) {
	gate, ok := middleware.GateFromContext(c)
	if !ok {
		middleware.AbortLoginRequired(c)
		return
	}

	if err := gate.Logout(c.Request.Context()); err != nil {
		middleware.LoggerFromContext(c).Error("logout failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the identity behind the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	gate, ok := middleware.GateFromContext(c)
	if !ok {
		middleware.AbortLoginRequired(c)
		return
	}
	user, _ := gate.User()
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) replyWithToken(c *gin.Context, status int, user session.User) {
	token, err := h.tokens.GenerateAccessToken(user.ID, user.Email, user.Name)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate access token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(status, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokens.AccessTokenTTL().Seconds()),
		User:        user,
	})
}
