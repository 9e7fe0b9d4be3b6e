package relay

import (
	"strings"
	"time"

	"github.com/telollama/telollama/internal/ollama"
)

// boundaryChars end a sentence (or line) and make the buffered text worth
// flushing before the stream finishes.
const boundaryChars = ".\n!?"

// Flush is a segment of generated text deemed complete enough to deliver.
// Text is the full accumulated output so far, not a delta. Duration is
// only set on the terminal flush.
type Flush struct {
	Text     string
	Done     bool
	Duration time.Duration
}

// Aggregator folds one request's chunk stream into flush events. The
// zero value is ready to use; an Aggregator serves a single request.
type Aggregator struct {
	buf strings.Builder
}

// Push feeds the next chunk and reports whether it produced a flush
// event. Chunks without a message payload are skipped. A boundary occurs
// when the fragment contains sentence-ending punctuation or the chunk is
// terminal; a buffer that trims to nothing never flushes.
func (a *Aggregator) Push(chunk *ollama.ChatChunk) (Flush, bool) {
	if chunk.Message == nil {
		return Flush{}, false
	}

	fragment := chunk.Message.Content
	a.buf.WriteString(fragment)

	if !strings.ContainsAny(fragment, boundaryChars) && !chunk.Done {
		return Flush{}, false
	}

	candidate := strings.TrimSpace(a.buf.String())
	if candidate == "" {
		return Flush{}, false
	}

	return Flush{Text: candidate, Done: chunk.Done, Duration: chunk.TotalDuration}, true
}
