// Package server 提供 HTTP 服务的生命周期封装与路由注册.
package server

import "context"

// Server 可被统一启停的服务.
type Server interface {
	// Start 阻塞运行，直到 ctx 取消或服务出错.
	Start(ctx context.Context) error
	// Stop 优雅关闭，等待进行中的请求完成.
	Stop(ctx context.Context) error
}
