package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/scripturerag/types"
)

// SnapshotVersion 当前快照格式版本
const SnapshotVersion = 1

// SnapshotCorpus 快照中的一部语料：名称、传统与文档位置
type SnapshotCorpus struct {
	Name      string `json:"name"`
	Tradition string `json:"tradition"`
	Positions []int  `json:"positions"`
}

// Snapshot 语料库的完整持久化单元：文档、嵌入矩阵与语料索引必须一起保存和加载
type Snapshot struct {
	Version    int              `json:"version"`
	Model      string           `json:"model,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	Corpora    []SnapshotCorpus `json:"corpora"`
	Documents  []Document       `json:"documents"`
	Embeddings [][]float64      `json:"embeddings"`
}

// Snapshotter 快照持久化后端
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

// Dimension 返回向量维度，空快照为 0
func (s *Snapshot) Dimension() int {
	if len(s.Embeddings) == 0 {
		return 0
	}
	return len(s.Embeddings[0])
}

// Validate 检查快照一致性，失败返回 CORRUPT_SNAPSHOT：
// 行数等于文档数、维度一致、位置在范围内且每个位置最多属于一部语料。
func (s *Snapshot) Validate() error {
	if s == nil {
		return corruptSnapshot("snapshot is nil")
	}
	if len(s.Embeddings) != len(s.Documents) {
		return corruptSnapshot(fmt.Sprintf("embedding rows (%d) != document count (%d)",
			len(s.Embeddings), len(s.Documents)))
	}

	dim := s.Dimension()
	for i, row := range s.Embeddings {
		if len(row) != dim {
			return corruptSnapshot(fmt.Sprintf("embedding row %d has dimension %d, expected %d", i, len(row), dim))
		}
	}

	owner := make(map[int]string, len(s.Documents))
	names := make(map[string]struct{}, len(s.Corpora))
	for _, c := range s.Corpora {
		if _, dup := names[c.Name]; dup {
			return corruptSnapshot(fmt.Sprintf("corpus %q listed twice", c.Name))
		}
		names[c.Name] = struct{}{}
		for _, pos := range c.Positions {
			if pos < 0 || pos >= len(s.Documents) {
				return corruptSnapshot(fmt.Sprintf("corpus %q references position %d out of range [0,%d)",
					c.Name, pos, len(s.Documents)))
			}
			if prev, taken := owner[pos]; taken {
				return corruptSnapshot(fmt.Sprintf("position %d belongs to both %q and %q", pos, prev, c.Name))
			}
			owner[pos] = c.Name
		}
	}
	return nil
}

func corruptSnapshot(msg string) error {
	return types.NewError(types.ErrCorruptSnapshot, msg)
}
