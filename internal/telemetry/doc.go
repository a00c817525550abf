// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

// Package telemetry 封装 OpenTelemetry SDK 初始化：OTLP gRPC 导出 trace 与 metric，
// 注册为全局 provider，供查询编排器的 span 与 HTTP 中间件使用。
// 禁用时保持 noop，不连接任何外部服务。
package telemetry
