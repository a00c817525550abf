// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package tlsutil 提供集中式 TLS 配置（TLS 1.2+，仅 AEAD 密码套件），
// 用于模型提供者的 HTTP 客户端、redis 查询缓存连接以及 HTTPS 监听。
package tlsutil
