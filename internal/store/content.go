package store

import (
	"sort"
	"strings"

	"github.com/AbdouEl-Ghazali/link-builder/internal/models"
)

// ContentIndex holds the business's own published material keyed by URL.
// Duplicate URLs in the source file are last-write-wins; insertion order of
// first appearance is retained so matching tie-breaks stay deterministic.
type ContentIndex struct {
	items []models.ContentItem
	byURL map[string]int
}

func LoadContent(path string) (*ContentIndex, error) {
	var raw []models.ContentItem
	if err := ReadJSON(path, &raw); err != nil {
		return nil, err
	}
	return IndexContent(raw), nil
}

func IndexContent(items []models.ContentItem) *ContentIndex {
	idx := &ContentIndex{byURL: make(map[string]int, len(items))}
	for _, it := range items {
		if i, ok := idx.byURL[it.URL]; ok {
			idx.items[i] = it
			continue
		}
		idx.items = append(idx.items, it)
		idx.byURL[it.URL] = len(idx.items) - 1
	}
	return idx
}

func (c *ContentIndex) Items() []models.ContentItem { return c.items }

func (c *ContentIndex) Len() int { return len(c.items) }

func (c *ContentIndex) Get(url string) (models.ContentItem, bool) {
	i, ok := c.byURL[url]
	if !ok {
		return models.ContentItem{}, false
	}
	return c.items[i], true
}

// AllTopics collects every normalized topic keyword across the index, both
// the topics as written and their individual words. Used as keyword hints
// for prospect discovery.
func (c *ContentIndex) AllTopics() []string {
	set := make(map[string]struct{})
	for _, it := range c.items {
		for _, t := range it.Topics {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			set[t] = struct{}{}
			for _, w := range strings.Fields(t) {
				set[w] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
