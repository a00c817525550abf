package rag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// VerseRef 章节号或偈颂号。语料文件里可能是数字也可能是字符串（如 "1.2"、"12a"），
// 统一按字符串保存。
type VerseRef string

// UnmarshalJSON 同时接受 JSON 字符串与数字
func (r *VerseRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = VerseRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("verse reference must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*r = VerseRef(strconv.FormatInt(i, 10))
		return nil
	}
	*r = VerseRef(n.String())
	return nil
}

func (r VerseRef) String() string { return string(r) }

// Entry 语料文件中的一条记录
type Entry struct {
	TextName          string   `json:"text_name"`
	Section           string   `json:"section,omitempty"`
	Chapter           VerseRef `json:"chapter"`
	Verse             VerseRef `json:"verse"`
	Translation       string   `json:"translation"`
	TranslationSource string   `json:"translation_source"`
	Tradition         string   `json:"tradition"`
}

// Corpus 一部经典的全部条目
type Corpus struct {
	Name      string
	Tradition string
	Entries   []Entry
}

// Document 检索单元：一条条目加上用于嵌入的合成文本
type Document struct {
	ID                string `json:"id"`
	TextName          string `json:"text_name"`
	Section           string `json:"section,omitempty"`
	Chapter           string `json:"chapter"`
	Verse             string `json:"verse"`
	Translation       string `json:"translation"`
	TranslationSource string `json:"translation_source"`
	Tradition         string `json:"tradition"`
	DocText           string `json:"doc_text"`
}

// DocumentID 生成 "<lower(name) 空格转下划线>_<chapter>_<verse>"
func DocumentID(corpusName, chapter, verse string) string {
	slug := strings.ReplaceAll(strings.ToLower(corpusName), " ", "_")
	return slug + "_" + chapter + "_" + verse
}

// BuildDocText 合成嵌入文本。Section 为空时省略该段。
//
//	Bhagavad Gita. Section: Sankhya Yoga. Chapter 2, Verse 47. Translation: ...
func BuildDocText(e Entry) string {
	parts := make([]string, 0, 4)
	parts = append(parts, e.TextName)
	if e.Section != "" {
		parts = append(parts, "Section: "+e.Section)
	}
	parts = append(parts, fmt.Sprintf("Chapter %s, Verse %s", e.Chapter, e.Verse))
	parts = append(parts, "Translation: "+e.Translation)
	return strings.Join(parts, ". ")
}

// NewDocument 由条目构造文档。ID 用语料名生成；
// 条目缺少 text_name / tradition 时回退到语料自身的值。
func NewDocument(c Corpus, e Entry) Document {
	if e.TextName == "" {
		e.TextName = c.Name
	}
	if e.Tradition == "" {
		e.Tradition = c.Tradition
	}
	return Document{
		ID:                DocumentID(c.Name, e.Chapter.String(), e.Verse.String()),
		TextName:          e.TextName,
		Section:           e.Section,
		Chapter:           e.Chapter.String(),
		Verse:             e.Verse.String(),
		Translation:       e.Translation,
		TranslationSource: e.TranslationSource,
		Tradition:         e.Tradition,
		DocText:           BuildDocText(e),
	}
}
