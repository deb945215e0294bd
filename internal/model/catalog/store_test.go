package catalog

import "testing"

func boolPtr(v bool) *bool { return &v }

func TestListFilters(t *testing.T) {
	store := NewMemoryStore(Seed())

	dogs := store.List(Filter{Kind: KindPet, Species: "DOG"})
	if len(dogs) != 2 {
		t.Fatalf("expected 2 dogs, got %d", len(dogs))
	}

	adoptableDogs := store.List(Filter{Kind: KindPet, Species: "dog", Adoptable: boolPtr(true)})
	if len(adoptableDogs) != 1 || adoptableDogs[0].ID != "pet-biscuit" {
		t.Fatalf("unexpected adoptable dogs: %#v", adoptableDogs)
	}

	outOfStock := store.List(Filter{InStock: boolPtr(false)})
	if len(outOfStock) != 1 || outOfStock[0].ID != "prod-hay" {
		t.Fatalf("unexpected out of stock items: %#v", outOfStock)
	}

	if all := store.List(Filter{}); len(all) != len(Seed()) {
		t.Fatalf("empty filter should match everything, got %d", len(all))
	}
}

func TestFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())
	if _, ok := store.FindByID("pet-miso"); !ok {
		t.Fatal("expected pet-miso to exist")
	}
	if _, ok := store.FindByID("missing"); ok {
		t.Fatal("expected missing id lookup to fail")
	}
}

func TestCategoryCounts(t *testing.T) {
	store := NewMemoryStore(Seed())
	counts := store.CategoryCounts()

	got := map[string]int{}
	for i, c := range counts {
		got[c.Category] = c.Count
		if i > 0 && counts[i-1].Category > c.Category {
			t.Fatalf("counts not sorted: %#v", counts)
		}
	}

	if got["dogs"] != 2 || got["food"] != 2 || got["cats"] != 1 {
		t.Fatalf("unexpected counts: %#v", got)
	}
}

func TestSearchRanksByHits(t *testing.T) {
	store := NewMemoryStore(Seed())

	results := store.Search("Do you have a puppy chew toy?", 2)
	if len(results) == 0 || results[0].ID != "prod-chew-toy" {
		t.Fatalf("expected chew toy first, got %#v", results)
	}
	if len(results) > 2 {
		t.Fatalf("limit not applied: %d", len(results))
	}

	if got := store.Search("the and you", 0); len(got) != 0 {
		t.Fatalf("stop words should not match, got %#v", got)
	}
}

func TestSearchMatchesPlural(t *testing.T) {
	store := NewMemoryStore(Seed())
	results := store.Search("rabbits", 0)
	if len(results) == 0 {
		t.Fatal("expected rabbit listings for plural query")
	}
}
