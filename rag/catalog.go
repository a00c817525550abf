package rag

// UnknownTradition 语料没有任何传统信息时的占位
const UnknownTradition = "Unknown"

// CatalogEntry 已知语料：名称、传统与语料文件
type CatalogEntry struct {
	Name      string `json:"name"`
	Tradition string `json:"tradition"`
	File      string `json:"file"`
}

// Catalog 有序的语料目录
type Catalog struct {
	entries []CatalogEntry
	byName  map[string]int
}

// NewCatalog 按给定顺序创建目录，同名条目以第一次出现为准
func NewCatalog(entries ...CatalogEntry) *Catalog {
	c := &Catalog{
		entries: make([]CatalogEntry, 0, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		if _, dup := c.byName[e.Name]; dup {
			continue
		}
		c.byName[e.Name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c
}

// Entries 返回目录副本
func (c *Catalog) Entries() []CatalogEntry {
	if c == nil {
		return nil
	}
	out := make([]CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup 按名称查找
func (c *Catalog) Lookup(name string) (CatalogEntry, bool) {
	if c == nil {
		return CatalogEntry{}, false
	}
	i, ok := c.byName[name]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.entries[i], true
}

// Tradition 返回目录中的传统，未知时为 UnknownTradition
func (c *Catalog) Tradition(name string) string {
	if e, ok := c.Lookup(name); ok && e.Tradition != "" {
		return e.Tradition
	}
	return UnknownTradition
}

// Len 目录条目数
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}
