package rag

import (
	"sort"
	"strings"

	"github.com/BaSui01/scripturerag/types"
)

// ScopeKind 检索范围类型
type ScopeKind int

const (
	// ScopeUnscoped 全部语料
	ScopeUnscoped ScopeKind = iota
	// ScopeSingle 单一语料
	ScopeSingle
	// ScopeSet 多个语料的并集
	ScopeSet
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeSingle:
		return "single"
	case ScopeSet:
		return "compare"
	default:
		return "unscoped"
	}
}

// Scope 检索范围，三种形态互斥
type Scope struct {
	kind  ScopeKind
	names []string
}

// Unscoped 全部语料
func Unscoped() Scope {
	return Scope{kind: ScopeUnscoped}
}

// SingleCorpus 单一语料
func SingleCorpus(name string) Scope {
	return Scope{kind: ScopeSingle, names: []string{name}}
}

// CorpusSet 多个语料的并集，保持调用方给出的顺序
func CorpusSet(names ...string) Scope {
	cp := make([]string, len(names))
	copy(cp, names)
	return Scope{kind: ScopeSet, names: cp}
}

// Kind 返回范围类型
func (s Scope) Kind() ScopeKind { return s.kind }

// Names 返回范围内的语料名（副本）
func (s Scope) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Filter 单一语料范围的语料名，其余情况为空
func (s Scope) Filter() string {
	if s.kind == ScopeSingle {
		return s.names[0]
	}
	return ""
}

// IsUnscoped 是否为全部语料
func (s Scope) IsUnscoped() bool { return s.kind == ScopeUnscoped }

// CompareMode 是否为对比模式（两个及以上语料）
func (s Scope) CompareMode() bool { return s.kind == ScopeSet && len(s.names) > 1 }

// ResolveScope 把请求中的 text_filter / compare_texts 解析为检索范围。
//
//   - 两者同时给出是调用方错误（INVALID_REQUEST）。
//   - compare_texts 先 trim、去空、去重；剩 2 个及以上为对比模式，
//     剩 1 个等同于单一语料过滤，剩 0 个等同于未指定。
//     注意：单个 compare 名称只在该语料内检索，不按全语料检索，
//     也不放宽到 UnscopedMinTopK。
//   - 只有 text_filter 时为单一语料。
//   - 都没有时为全部语料。
//
// 语料名不做存在性校验：未知名称得到空候选集，由编排器返回"无依据"回答。
func ResolveScope(textFilter string, compareTexts []string) (Scope, error) {
	filter := strings.TrimSpace(textFilter)
	names := normalizeNames(compareTexts)

	if filter != "" && len(compareTexts) > 0 {
		return Scope{}, types.NewError(types.ErrInvalidRequest,
			"Cannot use text_filter and compare_texts together. Use one or the other.")
	}

	switch {
	case len(names) > 1:
		return CorpusSet(names...), nil
	case len(names) == 1:
		return SingleCorpus(names[0]), nil
	case filter != "":
		return SingleCorpus(filter), nil
	default:
		return Unscoped(), nil
	}
}

func normalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// allowedPositions 返回范围内的文档位置（升序、去重）。
// 返回 nil 表示不限制；返回空切片表示候选集为空。
func (s Scope) allowedPositions(index map[string][]int) []int {
	if s.kind == ScopeUnscoped {
		return nil
	}
	seen := make(map[int]struct{})
	out := make([]int, 0)
	for _, name := range s.names {
		for _, pos := range index[name] {
			if _, ok := seen[pos]; ok {
				continue
			}
			seen[pos] = struct{}{}
			out = append(out, pos)
		}
	}
	sort.Ints(out)
	return out
}
