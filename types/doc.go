// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 scripturerag 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 rag、llm、api 等上层模块
提供统一的类型契约，以避免循环依赖。

# 核心类型

  - Error / ErrorCode: 结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记
  - ConversationTurn: 调用方持有的对话历史条目（user / assistant）

# 错误分类

  - RATE_LIMITED: 提供者限流，可重试
  - PROVIDER_FAILURE: 提供者调用失败，对当前操作致命
  - CORRUPT_SNAPSHOT: 快照行数与文档数不一致，加载失败
  - INVALID_REQUEST: 调用方参数错误
*/
package types
