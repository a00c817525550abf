package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/scripturerag/rag"
	"github.com/BaSui01/scripturerag/types"
)

// EntryDecoder decodes the entries of one corpus file.
type EntryDecoder interface {
	// Decode reads source and returns its entries in file order.
	Decode(ctx context.Context, source string) ([]rag.Entry, error)

	// SupportedTypes returns the file extensions this decoder handles (e.g. ".json").
	SupportedTypes() []string
}

// EntryDecoderRegistry routes Decode calls by file extension.
type EntryDecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[string]EntryDecoder // extension (lowercase, with dot) -> decoder
}

// NewEntryDecoderRegistry creates a registry pre-populated with the JSON decoder.
func NewEntryDecoderRegistry() *EntryDecoderRegistry {
	r := &EntryDecoderRegistry{
		decoders: make(map[string]EntryDecoder),
	}
	r.Register(NewJSONDecoder())
	return r
}

// Register adds or replaces the decoder for every extension it supports.
func (r *EntryDecoderRegistry) Register(d EntryDecoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range d.SupportedTypes() {
		r.decoders[strings.ToLower(ext)] = d
	}
}

// Decode determines the decoder from the source's file extension and delegates to it.
func (r *EntryDecoderRegistry) Decode(ctx context.Context, source string) ([]rag.Entry, error) {
	ext := strings.ToLower(filepath.Ext(source))
	if ext == "" {
		return nil, fmt.Errorf("loader: cannot determine file type for %q (no extension)", source)
	}

	r.mu.RLock()
	d, ok := r.decoders[ext]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("loader: no decoder registered for extension %q", ext)
	}
	return d.Decode(ctx, source)
}

// SupportedTypes returns all registered extensions, sorted.
func (r *EntryDecoderRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.decoders))
	for ext := range r.decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// CorpusLoader loads catalog corpora from a directory.
type CorpusLoader struct {
	dir      string
	registry *EntryDecoderRegistry
	logger   *zap.Logger
}

// NewCorpusLoader creates a loader rooted at dir.
func NewCorpusLoader(dir string, logger *zap.Logger) *CorpusLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorpusLoader{
		dir:      dir,
		registry: NewEntryDecoderRegistry(),
		logger:   logger.With(zap.String("component", "corpus_loader")),
	}
}

// Registry exposes the decoder registry for custom formats.
func (l *CorpusLoader) Registry() *EntryDecoderRegistry { return l.registry }

// LoadCatalog loads every catalog corpus in catalog order. A corpus whose
// file does not exist is skipped with a warning; any other failure aborts.
func (l *CorpusLoader) LoadCatalog(ctx context.Context, catalog *rag.Catalog) ([]rag.Corpus, error) {
	entries := catalog.Entries()
	corpora := make([]rag.Corpus, 0, len(entries))
	for _, ce := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := l.LoadCorpus(ctx, ce)
		if err != nil {
			if types.HasCode(err, types.ErrCorpusUnavailable) {
				l.logger.Warn("skip corpus", zap.String("corpus", ce.Name), zap.String("file", ce.File), zap.Error(err))
				continue
			}
			return nil, err
		}
		corpora = append(corpora, c)
	}
	return corpora, nil
}

// LoadCorpus loads a single corpus. A missing file yields CORPUS_UNAVAILABLE.
func (l *CorpusLoader) LoadCorpus(ctx context.Context, ce rag.CatalogEntry) (rag.Corpus, error) {
	path := ce.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, path)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rag.Corpus{}, types.NewError(types.ErrCorpusUnavailable,
				fmt.Sprintf("%s not found", path)).WithCause(err)
		}
		return rag.Corpus{}, fmt.Errorf("stat corpus %s: %w", path, err)
	}

	entries, err := l.registry.Decode(ctx, path)
	if err != nil {
		return rag.Corpus{}, fmt.Errorf("load corpus %q: %w", ce.Name, err)
	}
	l.logger.Info("corpus file loaded", zap.String("corpus", ce.Name), zap.Int("entries", len(entries)))

	return rag.Corpus{Name: ce.Name, Tradition: ce.Tradition, Entries: entries}, nil
}
