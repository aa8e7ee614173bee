package app

import (
	"time"

	"github.com/wyfcoding/optionlab/server"
)

// Option 是一个函数类型，用于配置应用程序选项。
type Option func(*options)

type options struct {
	servers         []server.Server // 应用程序管理的服务器列表。
	cleanups        []func()        // 应用程序关闭时需要执行的清理函数列表。
	shutdownTimeout time.Duration
}

// WithServer 向应用程序添加一个或多个 `server.Server` 实例。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithCleanup 添加一个关闭时执行的清理函数，按注册的相反顺序执行。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		o.cleanups = append(o.cleanups, cleanup)
	}
}

// WithShutdownTimeout 设置优雅关闭的最长等待时间，默认 10 秒。
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}
