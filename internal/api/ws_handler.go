package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"hiredup/internal/api/middleware"
	"hiredup/internal/auth"
	"hiredup/internal/notify"
	"hiredup/internal/session"
)

const wsAuthTimeout = 10 * time.Second

type notificationSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// WsHandler 负责 WebSocket 鉴权，并把用户的通知频道转发给客户端。
type WsHandler struct {
	subscriber     notificationSubscriber
	tokens         tokenValidator
	gates          session.Factory
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

type tokenValidator interface {
	ValidateToken(tokenString string) (*auth.TokenClaims, error)
}

// NewWsHandler 构造 WebSocket 处理器。allowedOrigins 为空时只接受同源请求。
func NewWsHandler(subscriber notificationSubscriber, tokens tokenValidator, gates session.Factory, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &WsHandler{
		subscriber:     subscriber,
		tokens:         tokens,
		gates:          gates,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *WsHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleConnection 升级连接，等待首条 auth 消息后订阅通知频道。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	baseLog := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
		slog.String("correlation_id", middleware.GetCorrelationID(c)),
	)

	userIDCh := make(chan string, 1)
	errCh := make(chan error, 2)

	go h.readLoop(ctx, conn, userIDCh, errCh, cancel, baseLog)

	var userID string
	select {
	case <-ctx.Done():
		return
	case err := <-errCh:
		if err != nil {
			baseLog.Warn("websocket authentication failed", slog.Any("error", err))
		}
		return
	case <-time.After(wsAuthTimeout):
		writeClose(conn, websocket.ClosePolicyViolation, "auth timeout")
		baseLog.Warn("websocket authentication timed out")
		return
	case userID = <-userIDCh:
	}

	userLog := baseLog.With(slog.String("user_id", userID))
	go h.subscribeLoop(ctx, conn, userID, errCh, cancel, userLog)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			userLog.Info("websocket connection closed", slog.Any("error", err))
		} else {
			userLog.Info("websocket connection closed")
		}
	}
}

func (h *WsHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	userIDCh chan<- string,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	authenticated := false

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			writeClose(conn, websocket.CloseAbnormalClosure, "read error")
			errCh <- fmt.Errorf("read message: %w", err)
			cancel()
			return
		}

		if authenticated {
			// 客户端不会再发送业务消息，继续读取只为感知断开。
			continue
		}

		userID, reason, err := h.authenticate(ctx, message, log)
		if err != nil {
			writeClose(conn, websocket.ClosePolicyViolation, reason)
			errCh <- err
			cancel()
			return
		}

		authenticated = true
		userIDCh <- userID
		log.Info("websocket authenticated", slog.String("user_id", userID))
	}
}

// authenticate 校验 auth 消息，返回用户 ID；失败时 reason 作为关闭原因发给客户端。
func (h *WsHandler) authenticate(ctx context.Context, message []byte, log *slog.Logger) (string, string, error) {
	var authMsg wsAuthMessage
	if err := json.Unmarshal(message, &authMsg); err != nil {
		return "", "invalid auth payload", fmt.Errorf("decode auth payload: %w", err)
	}
	if authMsg.Type != "auth" || authMsg.Token == "" {
		return "", "auth required", errors.New("invalid auth message")
	}

	claims, err := h.tokens.ValidateToken(authMsg.Token)
	if err != nil {
		return "", "unauthorized", fmt.Errorf("validate token: %w", err)
	}

	// 已登出的用户即使令牌未过期也不再推送。
	if !h.gates.New(log).Restore(ctx, claims.UserID) {
		return "", "session ended", errors.New("no active session")
	}
	return claims.UserID, "", nil
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (h *WsHandler) subscribeLoop(
	ctx context.Context,
	conn *websocket.Conn,
	userID string,
	errCh chan<- error,
	cancel context.CancelFunc,
	log *slog.Logger,
) {
	channel := notify.Channel(userID)
	pubsub := h.subscriber.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				errCh <- errors.New("pubsub channel closed")
				cancel()
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				errCh <- fmt.Errorf("write message: %w", err)
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				errCh <- fmt.Errorf("write ping: %w", err)
				cancel()
				return
			}
		}
	}
}
