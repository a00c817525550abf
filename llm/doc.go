// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 llm 定义生成服务的统一抽象。

# 概述

问答流程只需要单轮生成：一段系统指令、一条用户消息和固定的采样参数
（temperature、top_p、max_output_tokens）。Provider 接口只暴露这一能力，
具体服务商实现位于 llm/providers 的子包中。

# 子包

  - providers：共享的 HTTP 错误映射与基础配置
  - providers/gemini：Gemini generateContent
  - providers/ollama：本地 Ollama generate
  - embedding：向量化 Provider、分批与限流分类
  - retry：指数退避重试与类型化结果
  - tokenizer：提示词 token 计数
*/
package llm
