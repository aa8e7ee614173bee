// Package server 提供了 HTTP 服务器与 WebSocket 连接的封装。
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GinServer 封装了标准的 `http.Server`，专门用于运行 Gin 引擎，并提供了优雅的启动和关闭功能。
type GinServer struct {
	server *http.Server
	addr   string
	logger *slog.Logger

	ready     chan struct{}
	boundAddr string
}

// GinOption 调整底层 http.Server 参数。
type GinOption func(*http.Server)

// WithTimeouts 设置读写超时，零值表示不限制。
func WithTimeouts(read, write time.Duration) GinOption {
	return func(s *http.Server) {
		s.ReadTimeout = read
		s.WriteTimeout = write
	}
}

// NewGinServer 创建一个新的Gin服务器实例。
func NewGinServer(engine *gin.Engine, addr string, logger *slog.Logger, opts ...GinOption) *GinServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return &GinServer{
		server: srv,
		addr:   addr,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Start 监听地址并处理请求，阻塞到 ctx 结束或服务异常退出。
// ctx 结束时直接返回，关闭由 Stop 负责。
func (s *GinServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.boundAddr = ln.Addr().String()
	close(s.ready)
	s.logger.Info("Starting Gin server", "addr", s.boundAddr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errChan:
		return err
	}
}

// Stop 优雅地停止Gin服务器，等待现有请求在 ctx 截止前完成。
func (s *GinServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping Gin server gracefully")
	return s.server.Shutdown(ctx)
}
