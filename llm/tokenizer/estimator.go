package tokenizer

import "unicode"

// 每个 token 大约对应的字符数。BPE 词表对天城文几乎逐字符切分，
// 汉字约 1.5 字符一个 token，拉丁字母（英文译文、IAST 转写）约 4 个。
const (
	charsPerTokenIndic = 1.0
	charsPerTokenHan   = 1.5
	charsPerTokenLatin = 4.0
)

// EstimatorTokenizer 不依赖词表的估算器，tiktoken 不可用时兜底
type EstimatorTokenizer struct {
	model     string
	maxTokens int
}

// NewEstimatorTokenizer maxTokens <= 0 时取 8192
func NewEstimatorTokenizer(model string, maxTokens int) *EstimatorTokenizer {
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &EstimatorTokenizer{model: model, maxTokens: maxTokens}
}

// CountTokens 按文字类别分别折算后求和，非空文本至少 1
func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	var indic, han, other int
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Devanagari, unicode.Bengali, unicode.Tamil, unicode.Telugu):
			indic++
		case isHan(r):
			han++
		default:
			other++
		}
	}

	estimated := int(float64(indic)/charsPerTokenIndic +
		float64(han)/charsPerTokenHan +
		float64(other)/charsPerTokenLatin)
	return max(estimated, 1), nil
}

func (e *EstimatorTokenizer) MaxTokens() int { return e.maxTokens }

func (e *EstimatorTokenizer) Name() string { return "estimator" }

func isHan(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		(r >= 0x3000 && r <= 0x303F) || // CJK 标点
		(r >= 0xFF00 && r <= 0xFFEF) // 全角
}
