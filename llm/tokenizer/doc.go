// Package tokenizer 提供统一的 Token 计数接口，
// 支持 tiktoken 计数与字符估算器，用于记录生成请求的提示词规模。
package tokenizer
