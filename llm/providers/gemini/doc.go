// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
# 概述

包 gemini 提供 Google Gemini 模型的生成 Provider 适配实现，直接对接
Gemini REST API（generativelanguage.googleapis.com）。

# 核心结构体

  - GeminiProvider: 持有 http.Client 与 GeminiConfig；使用 x-goog-api-key 请求头认证
  - geminiRequest / geminiResponse: Gemini 原生请求/响应结构

# 支持能力

  - 单轮生成（/v1beta/models/{model}:generateContent），systemInstruction 承载系统提示词
  - generationConfig：temperature、topP、maxOutputTokens
  - HealthCheck（/v1beta/models）
  - 429 与 RESOURCE_EXHAUSTED 映射为 RATE_LIMITED
*/
package gemini
