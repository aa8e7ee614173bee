package server

import "context"

// Server 接口定义了一个通用的服务器行为契约。
type Server interface {
	// Start 启动服务器，阻塞直到上下文被取消或发生错误。
	Start(ctx context.Context) error
	// Stop 优雅地停止服务器。
	Stop(ctx context.Context) error
}
