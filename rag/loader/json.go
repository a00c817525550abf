package loader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BaSui01/scripturerag/rag"
)

// maxJSONLLine 单行最大字节数
const maxJSONLLine = 4 << 20

// JSONDecoder decodes JSON arrays (.json) and JSON lines (.jsonl) of entries.
type JSONDecoder struct{}

// NewJSONDecoder creates a JSONDecoder.
func NewJSONDecoder() *JSONDecoder {
	return &JSONDecoder{}
}

// Decode reads a JSON or JSONL file and returns its entries.
func (d *JSONDecoder) Decode(ctx context.Context, source string) ([]rag.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.ToLower(filepath.Ext(source)) == ".jsonl" {
		return d.decodeJSONL(source)
	}
	return d.decodeJSON(source)
}

// decodeJSON handles .json files (an array, or a single entry object).
func (d *JSONDecoder) decodeJSON(source string) ([]rag.Entry, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("json decoder: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []rag.Entry{}, nil
	}

	if data[0] == '[' {
		var entries []rag.Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("json decoder: parsing array in %s: %w", source, err)
		}
		if entries == nil {
			entries = []rag.Entry{}
		}
		return entries, nil
	}

	var e rag.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("json decoder: parsing object in %s: %w", source, err)
	}
	return []rag.Entry{e}, nil
}

// decodeJSONL handles .jsonl files (one entry per line).
func (d *JSONDecoder) decodeJSONL(source string) ([]rag.Entry, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("jsonl decoder: %w", err)
	}
	defer f.Close()

	entries := []rag.Entry{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxJSONLLine)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e rag.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("jsonl decoder: line %d in %s: %w", lineNum, source, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl decoder: reading %s: %w", source, err)
	}
	return entries, nil
}

// SupportedTypes returns the extensions handled by JSONDecoder.
func (d *JSONDecoder) SupportedTypes() []string {
	return []string{".json", ".jsonl"}
}
