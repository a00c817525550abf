package tokenizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEstimatorTokenizer_CountTokens(t *testing.T) {
	e := NewEstimatorTokenizer("gemini-2.5-flash", 0)

	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = e.CountTokens("a")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "non-empty text counts at least one token")

	n, err = e.CountTokens("You have a right to your actions, but never to the fruits.")
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	n, err = e.CountTokens("行动")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// 天城文逐字符计：ध र ् म
	n, err = e.CountTokens("धर्म")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// IAST 转写按拉丁字母计
	n, err = e.CountTokens("dharmakṣetre")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, 8192, e.MaxTokens())
	assert.Equal(t, "estimator", e.Name())
}

func TestLookupEncoding(t *testing.T) {
	tests := []struct {
		model     string
		encoding  string
		maxTokens int
	}{
		{"gemini-2.5-flash", "cl100k_base", 1048576},
		{"llama3.1:8b", "cl100k_base", 131072},
		{"llama3:latest", "cl100k_base", 8192},
		{"gpt-4o-mini", "o200k_base", 128000},
		{"unknown-model", "cl100k_base", 8192},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			info := lookupEncoding(tt.model)
			assert.Equal(t, tt.encoding, info.encoding)
			assert.Equal(t, tt.maxTokens, info.maxTokens)
		})
	}
}

type failingTokenizer struct{ calls int }

func (f *failingTokenizer) CountTokens(string) (int, error) {
	f.calls++
	return 0, errors.New("bpe data unavailable")
}
func (f *failingTokenizer) MaxTokens() int { return 100 }
func (f *failingTokenizer) Name() string   { return "failing" }

func TestFallbackTokenizer_DegradesOnce(t *testing.T) {
	primary := &failingTokenizer{}
	tok := &fallbackTokenizer{
		primary:  primary,
		fallback: NewEstimatorTokenizer("m", 100),
		logger:   zap.NewNop(),
	}

	assert.Equal(t, "failing", tok.Name())

	n, err := tok.CountTokens("abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = tok.CountTokens("abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls, "primary is not retried after degrading")
	assert.Equal(t, "estimator", tok.Name())
	assert.Equal(t, 100, tok.MaxTokens())
}

func TestForModel_ReportsModelContext(t *testing.T) {
	tok := ForModel("gemini-2.5-flash", nil)
	assert.Equal(t, 1048576, tok.MaxTokens())
	assert.Equal(t, "tiktoken[cl100k_base]", tok.Name())
}
