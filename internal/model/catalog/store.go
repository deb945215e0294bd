package catalog

import (
	"sort"
	"strings"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Kind      Kind
	Category  string
	Species   string
	Adoptable *bool
	InStock   *bool
}

func (f Filter) match(item Item) bool {
	if f.Kind != "" && item.Kind != f.Kind {
		return false
	}
	if f.Category != "" && !strings.EqualFold(item.Category, f.Category) {
		return false
	}
	if f.Species != "" && !strings.EqualFold(item.Species, f.Species) {
		return false
	}
	if f.Adoptable != nil && item.Adoptable != *f.Adoptable {
		return false
	}
	if f.InStock != nil && item.InStock != *f.InStock {
		return false
	}
	return true
}

// CategoryCount is the number of listings in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Kind     Kind   `json:"kind"`
	Count    int    `json:"count"`
}

// Store exposes catalog retrieval for HTTP handlers and the assistant.
type Store interface {
	List(filter Filter) []Item
	FindByID(id string) (Item, bool)
	CategoryCounts() []CategoryCount
	Search(query string, limit int) []Item
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Item
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied items.
func NewMemoryStore(items []Item) *MemoryStore {
	return &MemoryStore{items: append([]Item(nil), items...)}
}

// List returns the items matching filter in catalog order.
func (s *MemoryStore) List(filter Filter) []Item {
	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if filter.match(item) {
			out = append(out, item)
		}
	}
	return out
}

// FindByID looks up an item by identifier.
func (s *MemoryStore) FindByID(id string) (Item, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// CategoryCounts tallies listings per category, sorted by category name.
func (s *MemoryStore) CategoryCounts() []CategoryCount {
	index := make(map[string]int)
	var counts []CategoryCount
	for _, item := range s.items {
		key := string(item.Kind) + "/" + item.Category
		if i, ok := index[key]; ok {
			counts[i].Count++
			continue
		}
		index[key] = len(counts)
		counts = append(counts, CategoryCount{Category: item.Category, Kind: item.Kind, Count: 1})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Category == counts[j].Category {
			return counts[i].Kind < counts[j].Kind
		}
		return counts[i].Category < counts[j].Category
	})
	return counts
}

// Search ranks items by how many query words appear in their searchable fields.
// Items without any hit are left out. limit <= 0 means no limit.
func (s *MemoryStore) Search(query string, limit int) []Item {
	words := tokenize(query)
	if len(words) == 0 {
		return nil
	}

	type hit struct {
		item  Item
		score int
		order int
	}
	var hits []hit
	for i, item := range s.items {
		haystack := searchable(item)
		score := 0
		for _, word := range words {
			if _, ok := haystack[word]; ok {
				score++
			} else if _, ok := haystack[strings.TrimSuffix(word, "s")]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{item: item, score: score, order: i})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score == hits[j].score {
			return hits[i].order < hits[j].order
		}
		return hits[i].score > hits[j].score
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Item, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.item)
	}
	return out
}

func searchable(item Item) map[string]struct{} {
	set := make(map[string]struct{})
	fields := []string{item.Name, item.Category, item.Species, item.Breed, item.Description}
	fields = append(fields, item.Tags...)
	for _, field := range fields {
		for _, word := range tokenize(field) {
			set[word] = struct{}{}
			// let "dogs" match "dog" and the reverse
			set[strings.TrimSuffix(word, "s")] = struct{}{}
		}
	}
	return set
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 || stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

var stopWords = map[string]bool{
	"the": true, "and": true, "you": true, "your": true, "have": true, "for": true,
	"with": true, "any": true, "are": true, "can": true, "what": true, "how": true,
	"does": true, "there": true, "about": true, "want": true, "need": true,
}

var _ Store = (*MemoryStore)(nil)
