package rag

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BaSui01/scripturerag/testutil"
	"github.com/BaSui01/scripturerag/testutil/mocks"
)

const fixedQuery = "what is the nature of action"

// unitAt 返回与 (1,0) 夹角余弦为 score 的二维单位向量
func unitAt(score float64) []float64 {
	return []float64{score, math.Sqrt(1 - score*score)}
}

func entry(name, chapter, verse, translation string) Entry {
	return Entry{
		TextName:          name,
		Chapter:           VerseRef(chapter),
		Verse:             VerseRef(verse),
		Translation:       translation,
		TranslationSource: "test translator",
	}
}

// scenarioCorpora A 有两条（0.9 / 0.2），B 有一条（0.4）
func scenarioCorpora() ([]Corpus, *mocks.MockEmbedder) {
	a1 := entry("A", "1", "1", "action without attachment")
	a2 := entry("A", "1", "2", "the river flows east")
	b1 := entry("B", "3", "7", "deeds bear fruit")

	emb := mocks.NewMockEmbedder(2).
		WithVector(fixedQuery, []float64{1, 0}).
		WithVector(BuildDocText(a1), unitAt(0.9)).
		WithVector(BuildDocText(a2), unitAt(0.2)).
		WithVector(BuildDocText(b1), unitAt(0.4))

	corpora := []Corpus{
		{Name: "A", Tradition: "Vedic", Entries: []Entry{a1, a2}},
		{Name: "B", Tradition: "Buddhist", Entries: []Entry{b1}},
	}
	return corpora, emb
}

func newScenarioStore(t *testing.T) (*CorpusStore, *mocks.MockEmbedder) {
	t.Helper()
	corpora, emb := scenarioCorpora()
	store := NewCorpusStore(emb, nil, nil)
	require.NoError(t, store.Build(testutil.TestContext(t), corpora))
	return store, emb
}
