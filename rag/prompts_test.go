package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/scripturerag/types"
)

func TestSystemPromptFor(t *testing.T) {
	assert.Equal(t, SingleTextPrompt, SystemPromptFor(Unscoped()))
	assert.Equal(t, SingleTextPrompt, SystemPromptFor(SingleCorpus("A")))
	assert.Equal(t, SingleTextPrompt, SystemPromptFor(CorpusSet("A")))
	assert.Equal(t, ComparePrompt, SystemPromptFor(CorpusSet("A", "B")))

	for _, heading := range []string{"## Direct Answer", "## From the Text", "## What Else the Text Reveals", "## Notes"} {
		assert.Contains(t, SingleTextPrompt, heading)
	}
	for _, heading := range []string{"## Overview", "## Side by Side", "## What the Texts Leave Unsaid"} {
		assert.Contains(t, ComparePrompt, heading)
	}
}

func TestModeInstruction(t *testing.T) {
	assert.Equal(t, "You are searching across all available scriptures.", ModeInstruction(Unscoped()))
	assert.Equal(t, "You are answering from: Dhammapada only.", ModeInstruction(SingleCorpus("Dhammapada")))
	assert.Equal(t,
		"You are comparing passages from: Bhagavad Gita, Dhammapada. Address each text separately.",
		ModeInstruction(CorpusSet("Bhagavad Gita", "Dhammapada")))
}

func TestFormatContext(t *testing.T) {
	results := []SearchResult{
		{Document: Document{TextName: "Bhagavad Gita", Section: "Sankhya Yoga", Chapter: "2", Verse: "47",
			Translation: "You have a right to action alone.", TranslationSource: "Edwin Arnold", Tradition: "Vedic"}},
		{Document: Document{TextName: "Dhammapada", Chapter: "1", Verse: "1",
			Translation: "Mind precedes all things.", TranslationSource: "Müller", Tradition: "Buddhist"}},
	}

	want := "--- Bhagavad Gita | Sankhya Yoga | Chapter 2, Verse 47 ---\n" +
		"Tradition: Vedic\n" +
		"Translator: Edwin Arnold\n" +
		"Text: You have a right to action alone.\n" +
		"\n" +
		"--- Dhammapada | Chapter 1, Verse 1 ---\n" +
		"Tradition: Buddhist\n" +
		"Translator: Müller\n" +
		"Text: Mind precedes all things.\n"
	assert.Equal(t, want, FormatContext(results))
	assert.Equal(t, "", FormatContext(nil))
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "", FormatHistory(nil, 6, 800))

	history := []types.ConversationTurn{
		{Role: types.RoleUser, Content: "What is karma?"},
		{Role: types.RoleAssistant, Content: "Karma is action."},
	}
	assert.Equal(t,
		"CONVERSATION SO FAR:\nUser: What is karma?\n\nAssistant: Karma is action.\n\n",
		FormatHistory(history, 6, 800))
}

func TestFormatHistory_KeepsMostRecent(t *testing.T) {
	history := make([]types.ConversationTurn, 10)
	for i := range history {
		history[i] = types.ConversationTurn{Role: types.RoleUser, Content: string(rune('a' + i))}
	}

	got := FormatHistory(history, 6, 800)
	assert.NotContains(t, got, "User: d\n")
	assert.Contains(t, got, "User: e\n")
	assert.Contains(t, got, "User: j\n")
	assert.Equal(t, 6, strings.Count(got, "User: "))
}

func TestFormatHistory_TruncatesLongMessages(t *testing.T) {
	long := strings.Repeat("ॐ", 900)
	got := FormatHistory([]types.ConversationTurn{{Role: types.RoleAssistant, Content: long}}, 6, 800)

	assert.Contains(t, got, "Assistant: "+strings.Repeat("ॐ", 800)+"...[summary truncated]")
	assert.NotContains(t, got, strings.Repeat("ॐ", 801))
}

func TestBuildUserMessage(t *testing.T) {
	msg := BuildUserMessage("What is duty?", SingleCorpus("Bhagavad Gita"), "--- ctx ---\n", "CONVERSATION SO FAR:\nUser: hi\n\n")

	assert.True(t, strings.HasPrefix(msg, "CONVERSATION SO FAR:"))
	assert.Contains(t, msg, "QUESTION: What is duty?\n")
	assert.Contains(t, msg, "You are answering from: Bhagavad Gita only.")
	assert.Contains(t, msg, "PROVIDED PASSAGES (use ONLY these):\n\n--- ctx ---\n")
	assert.True(t, strings.HasSuffix(msg, "Follow the response format exactly."))

	noHistory := BuildUserMessage("q", Unscoped(), "c", "")
	assert.True(t, strings.HasPrefix(noHistory, "QUESTION: q\n"))
}
