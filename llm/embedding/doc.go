// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 embedding 提供统一的文本嵌入接口、Gemini / Ollama 两种实现，
以及带限流退避的分批执行器 Batcher。

# 核心类型

  - Provider：统一嵌入接口，保持输入顺序。
  - InputType：query 与 document 两种检索任务类型。
  - Batcher：按批调用 Provider，批间限速，限流错误按指数退避重试。
  - IsRateLimited：判定错误是否属于限流类。

# 重试语义

只有限流类错误会被重试（默认 5 次尝试，等待 5s、10s、20s、40s），
最后一次失败后不再等待，直接返回 PROVIDER_FAILURE。其它错误立即返回。

# 使用方式

	p := embedding.NewGeminiProvider(embedding.GeminiConfig{APIKey: key})
	b := embedding.NewBatcher(p, embedding.DefaultBatcherConfig(), logger)
	vecs, err := b.EmbedAll(ctx, texts, embedding.InputTypeDocument)
*/
package embedding
