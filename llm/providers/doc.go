// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
# 概述

包 providers 提供生成与向量化服务商的公共基础层：基础配置、
HTTP 状态到 types.Error 的映射，以及 ollama 客户端错误的转换。

# 核心函数

  - MapHTTPError: 将 HTTP 状态码映射为语义化的 types.Error（含 Retryable 标记）
  - MapResponseError: 读取 Google 风格错误体，RESOURCE_EXHAUSTED 视为限流
  - MapTransportError: 网络错误与超时
  - MapOllamaError: 解析 api.StatusError
*/
package providers
