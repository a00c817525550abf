// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package api 定义 scripturerag HTTP 接口的请求与响应数据结构。
//
// # 接口概览
//
//   - POST /api/ask：问答，支持单语料过滤、多语料对照与对话历史
//   - GET  /api/texts：列出可检索语料及条目数
//   - GET  /api/health：索引健康（总条目数与各语料条目数）
//   - GET  /healthz、/ready、/version：探针与版本
//
// 所有 JSON 响应都包在统一信封中：
//
//	{"success": true, "data": {...}, "timestamp": "...", "request_id": "..."}
//
// # 认证
//
// 配置了 server.api_keys 时，除探针外的接口需要 X-API-Key 请求头。
package api
