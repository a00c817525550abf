// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、问答、
生成模型、向量化、语料库检索、缓存与数据库。

# 概述

Collector 通过 promauto 统一注册指标，默认注册到全局 Registry，
测试可用 NewCollectorWithRegistry 传入独立 Registry。所有指标按
namespace 隔离。

# 核心类型

  - Collector：同时实现 embedding.BatchObserver、rag.StoreObserver、
    rag.QueryObserver 与 rag.CacheObserver，由组装层注入。

# 主要能力

  - HTTP 指标：请求总数、耗时、响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - 问答指标：按 mode（unscoped/single/compare）与 outcome 计数。
  - 生成指标：请求数、耗时、Token 用量（prompt/completion）。
  - 向量化指标：批次结局、尝试次数、文本数。
  - 语料库指标：文档数与语料数 Gauge、构建耗时、检索候选数。
  - 缓存与数据库：命中/未命中计数，连接数 Gauge。
*/
package metrics
