package rag

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BaSui01/scripturerag/types"
)

// FileSnapshotter 以单个 JSON 文件保存快照。写入先落到同目录临时文件再 rename，
// 读者看到的要么是旧快照要么是完整的新快照。
type FileSnapshotter struct {
	path string
}

// NewFileSnapshotter 创建文件快照后端
func NewFileSnapshotter(path string) *FileSnapshotter {
	return &FileSnapshotter{path: path}
}

// Path 快照文件路径
func (f *FileSnapshotter) Path() string { return f.path }

// SaveSnapshot 原子写入
func (f *FileSnapshotter) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "snapshot-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	w := bufio.NewWriter(tmp)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		cleanup()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename temp snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot 读取并校验快照
func (f *FileSnapshotter) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.NewError(types.ErrSnapshotNotFound,
				fmt.Sprintf("snapshot %s not found; run build-index first", f.path)).WithCause(err)
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	var snap Snapshot
	if err := json.NewDecoder(bufio.NewReader(file)).Decode(&snap); err != nil {
		return nil, types.NewError(types.ErrCorruptSnapshot,
			fmt.Sprintf("decode snapshot %s", f.path)).WithCause(err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}
