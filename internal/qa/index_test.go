package qa

import (
	"fmt"
	"sync"
	"testing"
)

func TestFindSimilarExactMatch(t *testing.T) {
	ix := NewIndex()
	ix.Record("What is the weather?", "Sunny.")

	answer, ok := ix.FindSimilar("What is the weather?", DefaultThreshold)
	if !ok {
		t.Fatal("exact question should match")
	}
	if answer != "Sunny." {
		t.Errorf("expected recorded answer, got %q", answer)
	}
}

func TestFindSimilarTrailingPunctuation(t *testing.T) {
	ix := NewIndex()
	ix.Record("What is the weather", "Sunny.")

	answer, ok := ix.FindSimilar("What is the weather?", DefaultThreshold)
	if !ok {
		t.Fatal("near-identical question should match above 0.8")
	}
	if answer != "Sunny." {
		t.Errorf("expected recorded answer, got %q", answer)
	}
}

func TestFindSimilarNoMatch(t *testing.T) {
	ix := NewIndex()
	ix.Record("What is the weather?", "Sunny.")

	if _, ok := ix.FindSimilar("How do I cook rice?", DefaultThreshold); ok {
		t.Error("unrelated question should not match")
	}
}

func TestFindSimilarFirstMatchWins(t *testing.T) {
	ix := NewIndex()
	ix.Record("What's the capital?", "Paris")
	ix.Record("What's the capital??", "London")

	// both entries qualify; insertion order decides
	answer, ok := ix.FindSimilar("What's the capital?", DefaultThreshold)
	if !ok {
		t.Fatal("expected a match")
	}
	if answer != "Paris" {
		t.Errorf("expected first-recorded answer, got %q", answer)
	}
}

func TestRecordOverwritesSameQuestion(t *testing.T) {
	ix := NewIndex()
	ix.Record("What's the capital?", "Paris")
	ix.Record("  What's the capital?  ", "Lyon")

	if ix.Len() != 1 {
		t.Fatalf("expected 1 entry after overwrite, got %d", ix.Len())
	}

	answer, _ := ix.FindSimilar("What's the capital?", DefaultThreshold)
	if answer != "Lyon" {
		t.Errorf("last answer should win, got %q", answer)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"hello", "hello", 1, 1},
		{"", "", 1, 1},
		{"abc", "xyz", 0, 0},
		{"What's the capital?", "What's the capital??", 0.9, 1},
		{"hello", "", 0, 0},
	}

	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("Similarity(%q, %q) = %v, want [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
		}

		if sym := Similarity(tt.b, tt.a); sym != got {
			t.Errorf("Similarity not symmetric for %q/%q: %v vs %v", tt.a, tt.b, got, sym)
		}
	}
}

func TestConcurrentRecordAndFind(t *testing.T) {
	ix := NewIndex()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ix.Record(fmt.Sprintf("question %d?", n), "answer")
		}(i)

		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ix.FindSimilar(fmt.Sprintf("question %d?", n), DefaultThreshold)
		}(i)
	}

	wg.Wait()

	if ix.Len() != 50 {
		t.Errorf("expected 50 entries, got %d", ix.Len())
	}
}
