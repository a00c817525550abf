package guardrails

import "strings"

// DefaultAdviceMarkers 寻求建议的固定短语（小写）
var DefaultAdviceMarkers = []string{
	"should i",
	"what should",
	"is it right",
	"is it wrong",
	"advice for",
	"how to deal with",
	"in modern",
	"in today",
	"apply to",
	"real life",
	"practical advice",
	"life advice",
}

// Label 分类结果
type Label string

const (
	LabelNormal Label = "normal"
	LabelAdvice Label = "advice_seeking"
)

// Verdict 一次分类的结论
type Verdict struct {
	Label Label `json:"label"`
	// Marker 命中的短语，Normal 时为空
	Marker string `json:"marker,omitempty"`
}

// Flagged 报告问题是否被判定为寻求建议
func (v Verdict) Flagged() bool {
	return v.Label == LabelAdvice
}

// AdviceClassifier 寻求建议检测器。
// 问题先 trim 并转小写，再与短语表做子串匹配，无状态、并发安全。
type AdviceClassifier struct {
	markers []string
}

// NewAdviceClassifier 创建检测器，markers 为空时使用 DefaultAdviceMarkers
func NewAdviceClassifier(markers []string) *AdviceClassifier {
	if len(markers) == 0 {
		markers = DefaultAdviceMarkers
	}
	normalized := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			normalized = append(normalized, m)
		}
	}
	return &AdviceClassifier{markers: normalized}
}

// Classify 对问题做二元判定，Marker 是短语表顺序中第一个命中的短语
func (c *AdviceClassifier) Classify(question string) Verdict {
	q := strings.ToLower(strings.TrimSpace(question))
	for _, m := range c.markers {
		if strings.Contains(q, m) {
			return Verdict{Label: LabelAdvice, Marker: m}
		}
	}
	return Verdict{Label: LabelNormal}
}

// IsAdviceSeeking Classify 的布尔简写
func (c *AdviceClassifier) IsAdviceSeeking(question string) bool {
	return c.Classify(question).Flagged()
}

// Markers 返回短语表副本
func (c *AdviceClassifier) Markers() []string {
	out := make([]string, len(c.markers))
	copy(out, c.markers)
	return out
}
