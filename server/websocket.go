package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
)

// StreamUpgrader 将 HTTP 请求升级为 Stream，只接受同源请求。
type StreamUpgrader struct {
	upgrader websocket.Upgrader
}

// NewStreamUpgrader 创建升级器，allowLocalOrigins 为 true 时额外放行 localhost，仅用于开发环境。
func NewStreamUpgrader(allowLocalOrigins bool) *StreamUpgrader {
	return &StreamUpgrader{upgrader: websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, allowLocalOrigins)
		},
	}}
}

func originAllowed(r *http.Request, allowLocal bool) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	// 同源检查，r.Host 可能包含端口.
	requestHost := r.Host
	originHost := u.Host

	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if h, _, err := net.SplitHostPort(originHost); err == nil {
		originHost = h
	}

	if strings.EqualFold(requestHost, originHost) {
		return true
	}

	return allowLocal && (originHost == "localhost" || originHost == "127.0.0.1")
}

// Stream 是一条单请求、服务端推送的 WebSocket 连接。
// 写操作串行化，读操作只允许一个协程。
type Stream struct {
	conn   *websocket.Conn
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

// Upgrade 将 HTTP 请求升级为 Stream。升级失败时 gorilla 已写回错误响应。
func (u *StreamUpgrader) Upgrade(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*Stream, error) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)
	return &Stream{conn: conn, logger: logger.With("remote", conn.RemoteAddr().String())}, nil
}

// ReadJSON 在 pongWait 内读取一条 JSON 消息。
func (s *Stream) ReadJSON(v any) error {
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	return s.conn.ReadJSON(v)
}

// WriteJSON 写出一条 JSON 消息。
func (s *Stream) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

// Watch 启动读协程与心跳协程，对端断开或 ctx 结束时返回的上下文被取消。
// 调用 Watch 之后不得再调用 ReadJSON。
func (s *Stream) Watch(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				s.logger.Debug("websocket reader stopped", "error", err)
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				s.mu.Unlock()
				if err != nil {
					cancel()
					return
				}
			}
		}
	}()

	return ctx, cancel
}

// Close 发送关闭帧并释放连接，可重复调用。
func (s *Stream) Close(code int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	msg := websocket.FormatCloseMessage(code, reason)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		s.logger.Debug("failed to write close message", "error", err)
	}
	_ = s.conn.Close()
}
