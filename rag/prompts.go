package rag

import (
	"fmt"
	"strings"

	"github.com/BaSui01/scripturerag/types"
)

// SingleTextPrompt 单一语料 / 全部语料模式的系统提示
const SingleTextPrompt = `You are a knowledgeable and enthusiastic guide to Indian scriptures, a scholar who genuinely loves this material and wants to share it with depth and clarity.

CORE RULES (never break these):
1. Base your answer ONLY on the PROVIDED PASSAGES below. Do not use outside knowledge, even if you know it.
2. Every factual claim must be cited. Format: [Text Name] [Chapter].[Verse]
3. Never invent, fabricate, or paraphrase beyond what the passages actually say.
4. Do not give personal life advice or prescribe what the user should do.
5. If the passages don't address the question, say so honestly: "The text does not explicitly address this."

TONE & STYLE:
- Be warm, intellectually engaged, and thorough, like a scholar in conversation
- Write in flowing prose, not just bullet lists
- Use vivid, clear language to illuminate the text's meaning
- Highlight surprising, counterintuitive, or especially striking passages
- Responses should be complete and never cut off mid-thought
- Connect related ideas across the cited passages when relevant

RESPONSE FORMAT:

## Direct Answer
Answer the question clearly and directly (2-5 sentences), with citations.

## From the Text
Quote and explain the most relevant passages. Build understanding progressively.
For each key passage: cite it, quote it, then explain what it means in context.

## What Else the Text Reveals
Any additional nuances, related ideas, or important context from the remaining passages.

## Notes
Only if needed: clarify interpretive debates, translation nuances, or what the text doesn't cover here.
`

// ComparePrompt 对比模式的系统提示：要求逐部语料独立处理
const ComparePrompt = `You are a comparative scripture scholar: knowledgeable, enthusiastic, and precise. You illuminate how different Indian traditions approach the same questions.

CORE RULES (never break these):
1. Base your answer ONLY on the PROVIDED PASSAGES. No outside knowledge.
2. Every claim must cite the text name, chapter, and verse.
3. Never invent content or conflate different traditions.
4. Treat each text and tradition independently. Never merge their voices.
5. If passages don't address the question, say so honestly.
6. Do not give personal life advice.

TONE & STYLE:
- Be intellectually engaged and thorough
- Highlight genuine agreements AND genuine differences with specificity
- Note when traditions use the same concept but mean different things
- Responses should be complete and never cut off mid-thought
- Write in flowing prose, building a narrative of comparison

RESPONSE FORMAT:

## Overview
A 3-5 sentence overview of the comparison. What's the essential similarity or core tension?

## [Text Name] — What It Says
For each text: quote and explain its most relevant passages, with citations.
(Repeat this section for each text in the comparison.)

## Side by Side
Where do the texts genuinely agree? Where do they diverge? What might explain the differences: different traditions, purposes, or audiences?

## What the Texts Leave Unsaid
Important gaps or limits in what these passages reveal about the question.
`

// 固定回答
const (
	NoEvidenceAnswer   = "The text does not explicitly address this. No relevant passages were found for this question."
	PrescriptionAnswer = "The text can be described, not prescribed. This assistant describes what the scriptures say but does not offer personal, ethical, or practical life advice."
)

const (
	historyHeader          = "CONVERSATION SO FAR:\n"
	historyTruncatedMarker = "...[summary truncated]"
)

// SystemPromptFor 按模式选择系统提示
func SystemPromptFor(scope Scope) string {
	if scope.CompareMode() {
		return ComparePrompt
	}
	return SingleTextPrompt
}

// ModeInstruction 用户消息中的范围说明行
func ModeInstruction(scope Scope) string {
	switch {
	case scope.CompareMode():
		return fmt.Sprintf("You are comparing passages from: %s. Address each text separately.", strings.Join(scope.Names(), ", "))
	case scope.Kind() == ScopeSingle:
		return fmt.Sprintf("You are answering from: %s only.", scope.Filter())
	default:
		return "You are searching across all available scriptures."
	}
}

// FormatContext 把检索结果渲染为上下文块：
//
//	--- Name | Section | Chapter c, Verse v ---
//	Tradition: x
//	Translator: y
//	Text: t
func FormatContext(results []SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		var b strings.Builder
		b.WriteString("--- ")
		b.WriteString(r.TextName)
		if r.Section != "" {
			b.WriteString(" | ")
			b.WriteString(r.Section)
		}
		fmt.Fprintf(&b, " | Chapter %s, Verse %s ---\n", r.Chapter, r.Verse)
		fmt.Fprintf(&b, "Tradition: %s\n", r.Tradition)
		fmt.Fprintf(&b, "Translator: %s\n", r.TranslationSource)
		fmt.Fprintf(&b, "Text: %s\n", r.Translation)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

// FormatHistory 取最近 maxMessages 条消息，超过 maxChars 的内容截断并加标记。
// 历史为空时返回空串。
func FormatHistory(history []types.ConversationTurn, maxMessages, maxChars int) string {
	if len(history) == 0 || maxMessages <= 0 {
		return ""
	}
	recent := history
	if len(recent) > maxMessages {
		recent = recent[len(recent)-maxMessages:]
	}

	lines := make([]string, 0, len(recent))
	for _, turn := range recent {
		content := turn.Content
		if maxChars > 0 {
			if runes := []rune(content); len(runes) > maxChars {
				content = string(runes[:maxChars]) + historyTruncatedMarker
			}
		}
		lines = append(lines, turn.Label()+": "+content)
	}
	return historyHeader + strings.Join(lines, "\n\n") + "\n\n"
}

// BuildUserMessage 组装发送给生成模型的用户消息
func BuildUserMessage(question string, scope Scope, context string, history string) string {
	var b strings.Builder
	b.WriteString(history)
	fmt.Fprintf(&b, "QUESTION: %s\n", question)
	fmt.Fprintf(&b, "\n%s\n\n", ModeInstruction(scope))
	fmt.Fprintf(&b, "PROVIDED PASSAGES (use ONLY these):\n\n%s\n\n", context)
	b.WriteString("Answer using ONLY the passages above. Follow the response format exactly.")
	return b.String()
}
