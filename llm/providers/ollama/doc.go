// Package ollama 通过 github.com/ollama/ollama/api 客户端调用本地模型，
// 提供 llm.Provider 的离线实现。
package ollama
