package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BaSui01/scripturerag/testutil"
	"github.com/BaSui01/scripturerag/types"
)

func validSnapshot() *Snapshot {
	return &Snapshot{
		Version:   SnapshotVersion,
		Model:     "text-embedding-004",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Corpora: []SnapshotCorpus{
			{Name: "A", Tradition: "Vedic", Positions: []int{0, 1}},
			{Name: "B", Tradition: "Buddhist", Positions: []int{2}},
		},
		Documents: []Document{
			{ID: "a_1_1", TextName: "A", Section: "Opening", Chapter: "1", Verse: "1", Translation: "one", TranslationSource: "tr", Tradition: "Vedic", DocText: "A. Section: Opening. Chapter 1, Verse 1. Translation: one"},
			{ID: "a_1_2", TextName: "A", Chapter: "1", Verse: "2", Translation: "two", TranslationSource: "tr", Tradition: "Vedic", DocText: "A. Chapter 1, Verse 2. Translation: two"},
			{ID: "b_3_7", TextName: "B", Chapter: "3", Verse: "7", Translation: "three", TranslationSource: "tr", Tradition: "Buddhist", DocText: "B. Chapter 3, Verse 7. Translation: three"},
		},
		Embeddings: [][]float64{{0.9, 0.1}, {-0.25, 1e-7}, {0.4, 0.916515138991168}},
	}
}

func TestSnapshot_Validate(t *testing.T) {
	require.NoError(t, validSnapshot().Validate())
	require.NoError(t, (&Snapshot{}).Validate())

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"fewer rows than documents", func(s *Snapshot) { s.Embeddings = s.Embeddings[:2] }},
		{"more rows than documents", func(s *Snapshot) { s.Embeddings = append(s.Embeddings, []float64{1, 1}) }},
		{"ragged rows", func(s *Snapshot) { s.Embeddings[1] = []float64{1, 2, 3} }},
		{"position out of range", func(s *Snapshot) { s.Corpora[1].Positions = []int{3} }},
		{"negative position", func(s *Snapshot) { s.Corpora[1].Positions = []int{-1} }},
		{"cross-listed position", func(s *Snapshot) { s.Corpora[1].Positions = []int{1, 2} }},
		{"duplicate corpus", func(s *Snapshot) { s.Corpora[1].Name = "A" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSnapshot()
			tt.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, types.HasCode(err, types.ErrCorruptSnapshot))
		})
	}

	var nilSnap *Snapshot
	assert.True(t, types.HasCode(nilSnap.Validate(), types.ErrCorruptSnapshot))
}

// =============================================================================
// 文件快照
// =============================================================================

func TestFileSnapshotter_RoundTrip(t *testing.T) {
	ctx := testutil.TestContext(t)
	path := filepath.Join(t.TempDir(), "nested", "index.json")
	fs := NewFileSnapshotter(path)
	assert.Equal(t, path, fs.Path())

	want := validSnapshot()
	require.NoError(t, fs.SaveSnapshot(ctx, want))

	got, err := fs.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Corpora, got.Corpora)
	assert.Equal(t, want.Documents, got.Documents)
	assert.Equal(t, want.Embeddings, got.Embeddings)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

	// 没有残留的临时文件
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileSnapshotter_Missing(t *testing.T) {
	fs := NewFileSnapshotter(filepath.Join(t.TempDir(), "missing.json"))

	_, err := fs.LoadSnapshot(testutil.TestContext(t))
	assert.True(t, types.HasCode(err, types.ErrSnapshotNotFound))
}

func TestFileSnapshotter_CorruptFile(t *testing.T) {
	ctx := testutil.TestContext(t)
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o644))
	_, err := NewFileSnapshotter(garbage).LoadSnapshot(ctx)
	assert.True(t, types.HasCode(err, types.ErrCorruptSnapshot))

	// 行数与文档数不一致：不截断也不补齐
	short := filepath.Join(dir, "short.json")
	s := validSnapshot()
	s.Embeddings = s.Embeddings[:1]
	require.NoError(t, os.WriteFile(short, []byte(testutil.MustJSON(t, s)), 0o644))
	_, err = NewFileSnapshotter(short).LoadSnapshot(ctx)
	assert.True(t, types.HasCode(err, types.ErrCorruptSnapshot))
}

func TestFileSnapshotter_RefusesToSaveInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	s := validSnapshot()
	s.Embeddings = s.Embeddings[:1]

	err := NewFileSnapshotter(path).SaveSnapshot(testutil.TestContext(t), s)
	assert.True(t, types.HasCode(err, types.ErrCorruptSnapshot))
	assert.NoFileExists(t, path)
}

func TestFileSnapshotter_CancelledContext(t *testing.T) {
	fs := NewFileSnapshotter(filepath.Join(t.TempDir(), "index.json"))
	assert.ErrorIs(t, fs.SaveSnapshot(testutil.CancelledContext(), validSnapshot()), context.Canceled)
}

func TestCorpusStore_SaveLoadFile(t *testing.T) {
	store, _ := newScenarioStore(t)
	ctx := testutil.TestContext(t)
	backend := NewFileSnapshotter(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, store.Save(ctx, backend))

	restored := NewCorpusStore(nil, nil, nil)
	require.NoError(t, restored.Load(ctx, backend))
	require.NoError(t, restored.Ready())
	assert.Equal(t, store.Count(), restored.Count())
	assert.Equal(t, store.ListTexts(), restored.ListTexts())
}

// =============================================================================
// 数据库快照
// =============================================================================

func newSQLSnapshotter(t *testing.T) (*SQLSnapshotter, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// :memory: 每个连接是独立的库
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := NewSQLSnapshotter(db)
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s, db
}

func TestSQLSnapshotter_RoundTrip(t *testing.T) {
	s, _ := newSQLSnapshotter(t)
	ctx := testutil.TestContext(t)

	want := validSnapshot()
	require.NoError(t, s.SaveSnapshot(ctx, want))

	got, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.Model, got.Model)
	assert.Equal(t, want.Corpora, got.Corpora)
	assert.Equal(t, want.Documents, got.Documents)
	assert.Equal(t, want.Embeddings, got.Embeddings)
}

func TestSQLSnapshotter_KeepsOnlyLatest(t *testing.T) {
	s, db := newSQLSnapshotter(t)
	ctx := testutil.TestContext(t)

	require.NoError(t, s.SaveSnapshot(ctx, validSnapshot()))

	second := validSnapshot()
	second.Corpora = []SnapshotCorpus{{Name: "C", Tradition: "Jain", Positions: []int{0}}}
	second.Documents = second.Documents[:1]
	second.Documents[0].TextName = "C"
	second.Embeddings = [][]float64{{1, 0}}
	require.NoError(t, s.SaveSnapshot(ctx, second))

	var heads, docs int64
	require.NoError(t, db.Model(&snapshotRecord{}).Count(&heads).Error)
	require.NoError(t, db.Model(&snapshotDocumentRecord{}).Count(&docs).Error)
	assert.Equal(t, int64(1), heads)
	assert.Equal(t, int64(1), docs)

	got, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "C", got.Corpora[0].Name)
	assert.Len(t, got.Documents, 1)
}

func TestSQLSnapshotter_Empty(t *testing.T) {
	s, _ := newSQLSnapshotter(t)

	_, err := s.LoadSnapshot(testutil.TestContext(t))
	assert.True(t, types.HasCode(err, types.ErrSnapshotNotFound))
}

func TestSQLSnapshotter_DetectsMissingRows(t *testing.T) {
	s, db := newSQLSnapshotter(t)
	ctx := testutil.TestContext(t)
	require.NoError(t, s.SaveSnapshot(ctx, validSnapshot()))

	require.NoError(t, db.Where("position = ?", 2).Delete(&snapshotDocumentRecord{}).Error)

	_, err := s.LoadSnapshot(ctx)
	assert.True(t, types.HasCode(err, types.ErrCorruptSnapshot))
}

func TestSQLSnapshotter_DetectsBadBlob(t *testing.T) {
	s, db := newSQLSnapshotter(t)
	ctx := testutil.TestContext(t)
	require.NoError(t, s.SaveSnapshot(ctx, validSnapshot()))

	require.NoError(t, db.Model(&snapshotDocumentRecord{}).Where("position = ?", 1).
		Update("embedding", []byte{1, 2, 3}).Error)

	_, err := s.LoadSnapshot(ctx)
	assert.True(t, types.HasCode(err, types.ErrCorruptSnapshot))
}

func TestSQLSnapshotter_DetectsRaggedDimension(t *testing.T) {
	s, db := newSQLSnapshotter(t)
	ctx := testutil.TestContext(t)
	require.NoError(t, s.SaveSnapshot(ctx, validSnapshot()))

	require.NoError(t, db.Model(&snapshotDocumentRecord{}).Where("position = ?", 0).
		Update("embedding", encodeVector([]float64{1, 2, 3})).Error)

	_, err := s.LoadSnapshot(ctx)
	assert.True(t, types.HasCode(err, types.ErrCorruptSnapshot))
}

func TestCorpusStore_SaveLoadSQL(t *testing.T) {
	store, _ := newScenarioStore(t)
	backend, _ := newSQLSnapshotter(t)
	ctx := testutil.TestContext(t)
	require.NoError(t, store.Save(ctx, backend))

	restored := NewCorpusStore(nil, nil, nil)
	require.NoError(t, restored.Load(ctx, backend))
	assert.Equal(t, store.CorpusCounts(), restored.CorpusCounts())
	assert.Equal(t, store.Snapshot().Embeddings, restored.Snapshot().Embeddings)
}

func TestVectorCodec(t *testing.T) {
	v := []float64{0, -1.5, 3.141592653589793, 1e-300}
	got, err := decodeVector(encodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = decodeVector([]byte{1})
	assert.Error(t, err)
}
