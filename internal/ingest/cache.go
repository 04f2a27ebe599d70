package ingest

import (
	"lotbot/internal/domain"
	"lotbot/internal/parse"
)

// CategoryCache remembers the category observed for each lot so that
// messages from non-authoritative sections can be back-filled. Entries are
// never removed; the newest write for a lot wins.
type CategoryCache struct {
	entries map[string]string
}

func NewCategoryCache() *CategoryCache {
	return &CategoryCache{entries: make(map[string]string)}
}

// Seed fills the cache from historical sheet rows. Only rows from the
// authoritative section count; the lot is re-extracted from the lot column
// because historical rows may carry extra text around the code.
func (c *CategoryCache) Seed(rows []map[string]string, authoritative string) {
	for _, row := range rows {
		if row[domain.ColSection] != authoritative {
			continue
		}
		lot, ok := parse.ExtractLot(row[domain.ColLot])
		if !ok {
			continue
		}
		if category := row[domain.ColCategory]; category != "" {
			c.entries[lot] = category
		}
	}
}

// Lookup returns the cached category for a lot, or empty string.
func (c *CategoryCache) Lookup(lot string) string {
	return c.entries[lot]
}

// Put records or overwrites the category for a lot.
func (c *CategoryCache) Put(lot, category string) {
	c.entries[lot] = category
}

// Len reports the number of cached lots.
func (c *CategoryCache) Len() int {
	return len(c.entries)
}
