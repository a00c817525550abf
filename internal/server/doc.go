// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 server 管理 HTTP/HTTPS 监听的生命周期：非阻塞启动、优雅关闭与
信号监听。scripturerag 的 serve 命令用它分别运行查询 API 与
Prometheus /metrics 两个监听。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/StartTLS/Shutdown/WaitForShutdown。
  - Config：名称、监听地址、读写与空闲超时、最大请求头、
    优雅关闭超时。

StartTLS 使用 tlsutil 的加固配置。WaitForShutdown 在收到
SIGINT/SIGTERM、ctx 结束或服务异常退出时返回，并返回异常退出的错误。
*/
package server
