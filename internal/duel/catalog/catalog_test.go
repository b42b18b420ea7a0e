package catalog

import (
	"testing"
)

func TestLoad(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cat.Size() == 0 {
		t.Fatal("expected non-empty catalog")
	}
	if len(cat.Categories()) == 0 {
		t.Fatal("expected categories")
	}
}

func TestCatalog_RandomWord(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		w := cat.RandomWord()
		if w.Word == "" {
			t.Fatal("expected non-empty word")
		}
		if w.Category == "" {
			t.Fatalf("word %q has no category", w.Word)
		}
		seen[w.Word] = true
	}
	// 50회 추첨에서 단어가 하나뿐이면 분포가 깨진 것이다.
	if len(seen) < 2 {
		t.Errorf("expected varied words, got %d unique", len(seen))
	}
}

func TestCatalog_WordByCategory(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	category := cat.Categories()[0]
	w := cat.WordByCategory(category)
	if w.Category != category {
		t.Errorf("expected category %q, got %q", category, w.Category)
	}
}

func TestCatalog_WordByCategory_UnknownFallsBack(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	w := cat.WordByCategory("no-such-category")
	if w.Word == "" {
		t.Fatal("expected fallback to random word")
	}
}
