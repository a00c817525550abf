// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供经文问答 HTTP API 的请求处理器实现。

# 核心类型

  - QueryHandler: /api/ask 问答与 /api/texts 语料列表
  - HealthHandler: /api/health 索引统计，/healthz、/ready、/version 探针
  - Response: 统一 JSON 信封（success + data + error + timestamp + request_id）
  - ErrorInfo: 结构化错误信息，含 code、message、retryable、provider
  - ResponseWriter: 包装 http.ResponseWriter 以捕获状态码与响应大小
  - HealthCheck: 可插拔就绪检查（索引、数据库、Redis）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteProcessingError
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType、RequireMethod
  - ErrorCode → HTTP 状态码映射：参数错误 400，提供者失败 502，索引缺失 503
  - 问题长度与范围冲突在进入检索之前拒绝
*/
package handlers
