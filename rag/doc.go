// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
# 概述

Package rag 实现多语料经文检索增强问答：把多部经典的条目向量化到一个
内存向量库中，按范围（全部 / 单一语料 / 多语料对比）做精确余弦检索，
并在护栏与阈值过滤之后，把带引用的上下文交给生成模型作答。

# 核心接口/类型

  - CorpusStore: 多语料向量库（Build / Search / ListTexts / Save / Load）
  - Scope: 检索范围，由 ResolveScope 从 text_filter / compare_texts 解析
  - Orchestrator: 问答编排：护栏 → 检索 → 阈值 → 提示 → 生成
  - Snapshotter: 快照后端（FileSnapshotter / SQLSnapshotter）
  - CachedEmbedder: 查询向量的 redis 缓存层
  - Embedder / Retriever: 向量化与检索的抽象，便于替换与测试

# 不变量

  - 嵌入矩阵第 i 行对应第 i 个文档，行数恒等于文档数
  - 检索结果按得分降序，同分按文档位置升序
  - 单一语料检索只返回该语料的文档；未知语料得到空结果
  - 提供者失败以 PROVIDER_FAILURE 错误返回，不会作为回答文本

# 子包

  - rag/loader: 从磁盘读取语料文件（JSON / JSONL）
*/
package rag
