// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 scripturerag 的命令行与服务端入口。

# 概述

cmd/scripturerag 基于 cobra 组织子命令：serve 启动 HTTP 问答服务，
build-index 嵌入全部语料并保存快照，ask/texts 直接在本地读取快照问答，
migrate 管理数据库快照表，health/version 用于运维探测。
启动时先用 godotenv 读取 .env，再加载 YAML 配置与环境变量。

# 核心类型

  - app:    一次进程运行的组件集合（语料库、快照后端、编排器、缓存、连接池）
  - Server: 管理 API 与 Metrics 两个监听端口以及优雅关闭
  - Middleware: HTTP 中间件函数签名 func(http.Handler) http.Handler

# 中间件链

Recovery、RequestID、OTelTracing、SecurityHeaders、RequestLogger、
Metrics、CORS、RateLimiter（基于 IP）、APIKeyAuth（X-API-Key 或 query 参数）。

# 构建注入

Version、BuildTime、GitCommit 通过 ldflags 设置。
*/
package main
