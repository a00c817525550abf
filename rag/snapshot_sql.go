package rag

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/BaSui01/scripturerag/types"
)

// sqlInsertBatchSize 单条 INSERT 的最大行数
const sqlInsertBatchSize = 200

// snapshotRecord 快照头
type snapshotRecord struct {
	ID            uint      `gorm:"primaryKey"`
	Version       int       `gorm:"not null"`
	Model         string    `gorm:"size:200"`
	DocumentCount int       `gorm:"not null"`
	Dimension     int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (snapshotRecord) TableName() string { return "sr_snapshots" }

// snapshotCorpusRecord 快照中的语料（保持顺序）
type snapshotCorpusRecord struct {
	ID         uint   `gorm:"primaryKey"`
	SnapshotID uint   `gorm:"not null;index:idx_sr_corpora_snapshot"`
	Ordinal    int    `gorm:"not null"`
	Name       string `gorm:"size:200;not null"`
	Tradition  string `gorm:"size:200"`
}

func (snapshotCorpusRecord) TableName() string { return "sr_snapshot_corpora" }

// snapshotDocumentRecord 一个文档及其向量（小端 float64 编码）
type snapshotDocumentRecord struct {
	ID                uint   `gorm:"primaryKey"`
	SnapshotID        uint   `gorm:"not null;index:idx_sr_documents_snapshot"`
	Position          int    `gorm:"not null"`
	CorpusName        string `gorm:"size:200;not null"`
	DocID             string `gorm:"size:300;not null"`
	TextName          string `gorm:"size:200"`
	Section           string `gorm:"size:300"`
	Chapter           string `gorm:"size:50"`
	Verse             string `gorm:"size:50"`
	Translation       string `gorm:"type:text"`
	TranslationSource string `gorm:"size:300"`
	Tradition         string `gorm:"size:200"`
	DocText           string `gorm:"type:text"`
	Embedding         []byte
}

func (snapshotDocumentRecord) TableName() string { return "sr_snapshot_documents" }

// SQLSnapshotter 通过 gorm 把快照写入关系数据库（postgres / mysql / sqlite）。
// 保存在一个事务内完成，并删除旧快照，库中始终只有一份完整快照。
type SQLSnapshotter struct {
	db *gorm.DB
}

// NewSQLSnapshotter 创建数据库快照后端
func NewSQLSnapshotter(db *gorm.DB) *SQLSnapshotter {
	return &SQLSnapshotter{db: db}
}

// EnsureSchema 自动建表（开发与测试用；生产环境走 migrate 命令）
func (s *SQLSnapshotter) EnsureSchema(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&snapshotRecord{}, &snapshotCorpusRecord{}, &snapshotDocumentRecord{})
}

// SaveSnapshot 在单个事务内写入快照并清除旧快照
func (s *SQLSnapshotter) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	corpusOf := make([]string, len(snap.Documents))
	for _, c := range snap.Corpora {
		for _, pos := range c.Positions {
			corpusOf[pos] = c.Name
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		head := snapshotRecord{
			Version:       snap.Version,
			Model:         snap.Model,
			DocumentCount: len(snap.Documents),
			Dimension:     snap.Dimension(),
			CreatedAt:     snap.CreatedAt,
		}
		if head.CreatedAt.IsZero() {
			head.CreatedAt = time.Now().UTC()
		}
		if err := tx.Create(&head).Error; err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		if len(snap.Corpora) > 0 {
			corpora := make([]snapshotCorpusRecord, len(snap.Corpora))
			for i, c := range snap.Corpora {
				corpora[i] = snapshotCorpusRecord{SnapshotID: head.ID, Ordinal: i, Name: c.Name, Tradition: c.Tradition}
			}
			if err := tx.CreateInBatches(corpora, sqlInsertBatchSize).Error; err != nil {
				return fmt.Errorf("insert snapshot corpora: %w", err)
			}
		}

		if len(snap.Documents) > 0 {
			docs := make([]snapshotDocumentRecord, len(snap.Documents))
			for i, d := range snap.Documents {
				docs[i] = snapshotDocumentRecord{
					SnapshotID:        head.ID,
					Position:          i,
					CorpusName:        corpusOf[i],
					DocID:             d.ID,
					TextName:          d.TextName,
					Section:           d.Section,
					Chapter:           d.Chapter,
					Verse:             d.Verse,
					Translation:       d.Translation,
					TranslationSource: d.TranslationSource,
					Tradition:         d.Tradition,
					DocText:           d.DocText,
					Embedding:         encodeVector(snap.Embeddings[i]),
				}
			}
			if err := tx.CreateInBatches(docs, sqlInsertBatchSize).Error; err != nil {
				return fmt.Errorf("insert snapshot documents: %w", err)
			}
		}

		// 旧快照
		if err := tx.Where("snapshot_id <> ?", head.ID).Delete(&snapshotDocumentRecord{}).Error; err != nil {
			return fmt.Errorf("delete old documents: %w", err)
		}
		if err := tx.Where("snapshot_id <> ?", head.ID).Delete(&snapshotCorpusRecord{}).Error; err != nil {
			return fmt.Errorf("delete old corpora: %w", err)
		}
		if err := tx.Where("id <> ?", head.ID).Delete(&snapshotRecord{}).Error; err != nil {
			return fmt.Errorf("delete old snapshots: %w", err)
		}
		return nil
	})
}

// LoadSnapshot 读取最新快照并校验
func (s *SQLSnapshotter) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	db := s.db.WithContext(ctx)

	var head snapshotRecord
	if err := db.Order("id DESC").First(&head).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.ErrSnapshotNotFound, "no snapshot in database; run build-index first").WithCause(err)
		}
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	var corpora []snapshotCorpusRecord
	if err := db.Where("snapshot_id = ?", head.ID).Order("ordinal ASC").Find(&corpora).Error; err != nil {
		return nil, fmt.Errorf("query snapshot corpora: %w", err)
	}
	var docs []snapshotDocumentRecord
	if err := db.Where("snapshot_id = ?", head.ID).Order("position ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("query snapshot documents: %w", err)
	}

	if len(docs) != head.DocumentCount {
		return nil, corruptSnapshot(fmt.Sprintf("snapshot %d declares %d documents, found %d", head.ID, head.DocumentCount, len(docs)))
	}

	snap := &Snapshot{
		Version:    head.Version,
		Model:      head.Model,
		CreatedAt:  head.CreatedAt,
		Corpora:    make([]SnapshotCorpus, len(corpora)),
		Documents:  make([]Document, len(docs)),
		Embeddings: make([][]float64, len(docs)),
	}
	slot := make(map[string]int, len(corpora))
	for i, c := range corpora {
		snap.Corpora[i] = SnapshotCorpus{Name: c.Name, Tradition: c.Tradition, Positions: []int{}}
		slot[c.Name] = i
	}

	for i, d := range docs {
		if d.Position != i {
			return nil, corruptSnapshot(fmt.Sprintf("document positions are not contiguous at %d (got %d)", i, d.Position))
		}
		vec, err := decodeVector(d.Embedding)
		if err != nil {
			return nil, corruptSnapshot(fmt.Sprintf("document %d: %v", i, err))
		}
		ci, ok := slot[d.CorpusName]
		if !ok {
			return nil, corruptSnapshot(fmt.Sprintf("document %d belongs to unknown corpus %q", i, d.CorpusName))
		}
		snap.Corpora[ci].Positions = append(snap.Corpora[ci].Positions, i)
		snap.Documents[i] = Document{
			ID:                d.DocID,
			TextName:          d.TextName,
			Section:           d.Section,
			Chapter:           d.Chapter,
			Verse:             d.Verse,
			Translation:       d.Translation,
			TranslationSource: d.TranslationSource,
			Tradition:         d.Tradition,
			DocText:           d.DocText,
		}
		snap.Embeddings[i] = vec
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 8", len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}
