package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenTokenizer 基于 tiktoken 的计数器。
// Gemini 与本地模型没有公开的 BPE 表，cl100k_base 作为近似。
type TiktokenTokenizer struct {
	model     string
	encoding  string
	maxTokens int
	enc       *tiktoken.Tiktoken
	once      sync.Once
	initErr   error
}

type encodingInfo struct {
	encoding  string
	maxTokens int
}

// modelEncodings 模型名前缀 → 编码与上下文大小
var modelEncodings = map[string]encodingInfo{
	"gemini-2.5":  {encoding: "cl100k_base", maxTokens: 1048576},
	"gemini-2.0":  {encoding: "cl100k_base", maxTokens: 1048576},
	"gemini-1.5":  {encoding: "cl100k_base", maxTokens: 1048576},
	"llama3":      {encoding: "cl100k_base", maxTokens: 8192},
	"llama3.1":    {encoding: "cl100k_base", maxTokens: 131072},
	"mistral":     {encoding: "cl100k_base", maxTokens: 32768},
	"qwen2.5":     {encoding: "cl100k_base", maxTokens: 32768},
	"gpt-4o":      {encoding: "o200k_base", maxTokens: 128000},
	"gpt-4o-mini": {encoding: "o200k_base", maxTokens: 128000},
}

// lookupEncoding 精确匹配优先，其次取最长前缀
func lookupEncoding(model string) encodingInfo {
	if info, ok := modelEncodings[model]; ok {
		return info
	}
	best := ""
	for prefix := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return modelEncodings[best]
	}
	return encodingInfo{encoding: "cl100k_base", maxTokens: 8192}
}

// NewTiktokenTokenizer 为给定模型创建 tiktoken 计数器，编码数据延迟加载。
func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	info := lookupEncoding(model)
	return &TiktokenTokenizer{
		model:     model,
		encoding:  info.encoding,
		maxTokens: info.maxTokens,
	}
}

// init 延迟初始化编码（首次使用时可能下载数据）.
func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) MaxTokens() int {
	return t.maxTokens
}

func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}
