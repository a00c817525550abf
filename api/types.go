package api

import (
	"github.com/BaSui01/scripturerag/types"
)

// =============================================================================
// 问答类型
// =============================================================================

// AskRequest /api/ask 请求体。
// text_filter 与 compare_texts 互斥；compare_texts 含两部及以上语料时为对照模式。
// @Description 经文问答请求
type AskRequest struct {
	// 问题（去除首尾空白后非空，最长 500 字符）
	Question string `json:"question" example:"What does the Gita say about duty?"`
	// 仅在该语料中检索
	TextFilter string `json:"text_filter,omitempty" example:"Bhagavad Gita"`
	// 在这些语料的并集中检索
	CompareTexts []string `json:"compare_texts,omitempty"`
	// 之前的对话，仅最近 6 条进入提示词
	ChatHistory []types.ConversationTurn `json:"chat_history,omitempty"`
}

// Verse 回答引用的一条经文
// @Description 引用经文
type Verse struct {
	TextName          string  `json:"text_name" example:"Bhagavad Gita"`
	Section           string  `json:"section"`
	Chapter           string  `json:"chapter" example:"2"`
	Verse             string  `json:"verse" example:"47"`
	Translation       string  `json:"translation"`
	TranslationSource string  `json:"translation_source"`
	Tradition         string  `json:"tradition" example:"Vedic"`
	RelevanceScore    float64 `json:"relevance_score" example:"0.812"`
}

// AskResponse /api/ask 响应数据
// @Description 经文问答结果
type AskResponse struct {
	Query       string  `json:"query"`
	Answer      string  `json:"answer"`
	Verses      []Verse `json:"verses"`
	TextFilter  *string `json:"text_filter"`
	CompareMode bool    `json:"compare_mode"`
	// answered / refused_advice / refused_no_evidence
	Outcome     string `json:"outcome"`
	RawResponse string `json:"raw_response,omitempty"`
}

// =============================================================================
// 语料与健康
// =============================================================================

// TextInfo 一部可检索的语料
// @Description 语料概况
type TextInfo struct {
	Name       string `json:"name" example:"Upanishads"`
	Tradition  string `json:"tradition" example:"Vedic"`
	EntryCount int    `json:"entry_count" example:"1200"`
}

// TextsResponse /api/texts 响应数据
type TextsResponse struct {
	Texts []TextInfo `json:"texts"`
}

// StoreHealth /api/health 响应数据
// @Description 索引健康状况
type StoreHealth struct {
	Status       string         `json:"status" example:"ok"`
	TotalEntries int            `json:"total_entries" example:"5400"`
	Texts        map[string]int `json:"texts"`
}
