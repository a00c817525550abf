package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/scripturerag/rag"
	"github.com/BaSui01/scripturerag/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const gitaJSON = `[
  {"text_name": "Bhagavad Gita", "section": "Sankhya Yoga", "chapter": 2, "verse": 47,
   "translation": "You have a right to action alone.", "translation_source": "Edwin Arnold", "tradition": "Vedic"},
  {"text_name": "Bhagavad Gita", "chapter": "2", "verse": "48a",
   "translation": "Perform action, abandoning attachment.", "translation_source": "Edwin Arnold", "tradition": "Vedic"}
]`

func TestNewEntryDecoderRegistry_HasJSON(t *testing.T) {
	t.Parallel()

	r := NewEntryDecoderRegistry()
	assert.Equal(t, []string{".json", ".jsonl"}, r.SupportedTypes())
}

func TestEntryDecoderRegistry_Decode_NoExtension(t *testing.T) {
	t.Parallel()

	_, err := NewEntryDecoderRegistry().Decode(context.Background(), "noextension")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no extension")
}

func TestEntryDecoderRegistry_Decode_UnknownExtension(t *testing.T) {
	t.Parallel()

	_, err := NewEntryDecoderRegistry().Decode(context.Background(), "corpus.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no decoder registered")
}

func TestJSONDecoder_Array(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "corpus_gita.json", gitaJSON)
	entries, err := NewJSONDecoder().Decode(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, rag.VerseRef("2"), entries[0].Chapter)
	assert.Equal(t, rag.VerseRef("47"), entries[0].Verse)
	assert.Equal(t, "Sankhya Yoga", entries[0].Section)
	assert.Equal(t, rag.VerseRef("48a"), entries[1].Verse)
	assert.Empty(t, entries[1].Section)
}

func TestJSONDecoder_JSONL(t *testing.T) {
	t.Parallel()

	content := `{"text_name":"Upanishads","chapter":1,"verse":1,"translation":"Om.","translation_source":"Muller","tradition":"Vedic"}

{"text_name":"Upanishads","chapter":1,"verse":2,"translation":"All this is Brahman.","translation_source":"Muller","tradition":"Vedic"}
`
	path := writeFile(t, t.TempDir(), "corpus_upanishads.jsonl", content)
	entries, err := NewJSONDecoder().Decode(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "All this is Brahman.", entries[1].Translation)
}

func TestJSONDecoder_Malformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewJSONDecoder().Decode(context.Background(), writeFile(t, dir, "bad.json", `[{"chapter": }]`))
	assert.Error(t, err)

	_, err = NewJSONDecoder().Decode(context.Background(), writeFile(t, dir, "bad.jsonl", "{\"chapter\":1}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestJSONDecoder_EmptyFile(t *testing.T) {
	t.Parallel()

	entries, err := NewJSONDecoder().Decode(context.Background(), writeFile(t, t.TempDir(), "empty.json", "  \n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCorpusLoader_LoadCatalog_SkipsMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "corpus_gita.json", gitaJSON)

	catalog := rag.NewCatalog(
		rag.CatalogEntry{Name: "Bhagavad Gita", Tradition: "Vedic", File: "corpus_gita.json"},
		rag.CatalogEntry{Name: "Ramayana", Tradition: "Epic", File: "corpus_ramayana.json"},
	)

	l := NewCorpusLoader(dir, zaptest.NewLogger(t))
	corpora, err := l.LoadCatalog(context.Background(), catalog)
	require.NoError(t, err)
	require.Len(t, corpora, 1)
	assert.Equal(t, "Bhagavad Gita", corpora[0].Name)
	assert.Equal(t, "Vedic", corpora[0].Tradition)
	assert.Len(t, corpora[0].Entries, 2)
}

func TestCorpusLoader_LoadCatalog_MalformedAborts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "corpus_gita.json", `{not json`)

	catalog := rag.NewCatalog(rag.CatalogEntry{Name: "Bhagavad Gita", File: "corpus_gita.json"})
	_, err := NewCorpusLoader(dir, nil).LoadCatalog(context.Background(), catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bhagavad Gita")
}

func TestCorpusLoader_LoadCorpus_Missing(t *testing.T) {
	_, err := NewCorpusLoader(t.TempDir(), nil).LoadCorpus(context.Background(), rag.CatalogEntry{Name: "X", File: "x.json"})
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrCorpusUnavailable))
}

func TestCorpusLoader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	catalog := rag.NewCatalog(rag.CatalogEntry{Name: "X", File: "x.json"})
	_, err := NewCorpusLoader(t.TempDir(), nil).LoadCatalog(ctx, catalog)
	assert.ErrorIs(t, err, context.Canceled)
}
