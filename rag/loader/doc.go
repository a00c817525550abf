// Package loader reads scripture corpus files into rag.Corpus values.
//
// A corpus file holds the entries of one text, either as a JSON array
// (.json) or as one JSON object per line (.jsonl). Each entry follows the
// schema {text_name, section, chapter, verse, translation,
// translation_source, tradition}; chapter and verse may be strings or numbers.
//
// Use EntryDecoderRegistry to route decoding by file extension, and
// CorpusLoader to load every catalog corpus from a directory:
//
//	l := loader.NewCorpusLoader("data", logger)
//	corpora, err := l.LoadCatalog(ctx, catalog)
//
// Missing files are skipped with a warning; malformed files are errors.
package loader
