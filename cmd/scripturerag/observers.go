package main

import (
	"time"

	"github.com/BaSui01/scripturerag/llm"
	"github.com/BaSui01/scripturerag/llm/embedding"
	"github.com/BaSui01/scripturerag/llm/retry"
	"github.com/BaSui01/scripturerag/rag"
)

// 同一观测点同时上报 Prometheus 采集器与 OTel 仪表

type queryObservers []rag.QueryObserver

func (obs queryObservers) ObserveQuery(mode, outcome string, d time.Duration) {
	for _, o := range obs {
		o.ObserveQuery(mode, outcome, d)
	}
}

func (obs queryObservers) ObserveGeneration(provider, model, status string, d time.Duration, usage llm.Usage) {
	for _, o := range obs {
		o.ObserveGeneration(provider, model, status, d, usage)
	}
}

type batchObservers []embedding.BatchObserver

func (obs batchObservers) ObserveEmbeddingBatch(provider string, size, attempts int, outcome retry.Outcome, d time.Duration) {
	for _, o := range obs {
		o.ObserveEmbeddingBatch(provider, size, attempts, outcome, d)
	}
}

type cacheObservers []rag.CacheObserver

func (obs cacheObservers) RecordCacheHit(cacheType string) {
	for _, o := range obs {
		o.RecordCacheHit(cacheType)
	}
}

func (obs cacheObservers) RecordCacheMiss(cacheType string) {
	for _, o := range obs {
		o.RecordCacheMiss(cacheType)
	}
}
