package qa

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold is the similarity ratio a stored question must exceed
// to be reused for a new one.
const DefaultThreshold = 0.8

type entry struct {
	question string
	answer   string
}

// Index remembers human-provided answers to questions seen in group
// chats. Lookups scan entries in insertion order and return the first
// qualifying match, not the best one. Entries are never evicted.
type Index struct {
	mu      sync.Mutex
	entries []entry
	byText  map[string]int
}

func NewIndex() *Index {
	return &Index{byText: make(map[string]int)}
}

// Record stores an answer for a question, overwriting in place when the
// same trimmed question text was recorded before.
func (ix *Index) Record(question, answer string) {
	question = strings.TrimSpace(question)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if i, ok := ix.byText[question]; ok {
		ix.entries[i].answer = answer
		return
	}

	ix.byText[question] = len(ix.entries)
	ix.entries = append(ix.entries, entry{question: question, answer: answer})
}

// FindSimilar returns the answer of the first stored question whose
// similarity ratio to question exceeds threshold.
func (ix *Index) FindSimilar(question string, threshold float64) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, e := range ix.entries {
		if Similarity(e.question, question) > threshold {
			return e.answer, true
		}
	}

	return "", false
}

func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.entries)
}

// Similarity is a normalized edit-distance ratio in [0,1]: 1 for
// identical strings, 0 for strings with nothing in common. Symmetric.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	longest := utf8.RuneCountInString(a)
	if lb := utf8.RuneCountInString(b); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}

	dist := levenshtein.ComputeDistance(a, b)

	return 1 - float64(dist)/float64(longest)
}
