package chunker

import (
	"strings"
)

type Config struct {
	MaxSize    int
	Overlap    int
	MinSize    int
	Separators []string
}

// Chunk is a contiguous span of the source text. StartPos/EndPos are byte
// offsets into the input; consecutive chunks overlap by roughly
// Config.Overlap bytes. Oversize marks an unbreakable run that exceeded
// MaxSize and was emitted whole rather than truncated.
type Chunk struct {
	Content    string
	StartPos   int
	EndPos     int
	TokenCount int
	Oversize   bool
}

func (c Config) withDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = 1000
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.Overlap > c.MaxSize/2 {
		c.Overlap = c.MaxSize / 2
	}
	if c.MinSize < 0 {
		c.MinSize = 0
	}
	if c.MinSize > c.MaxSize {
		c.MinSize = c.MaxSize
	}
	if len(c.Separators) == 0 {
		c.Separators = []string{"\n\n", "\n", ". ", "! ", "? "}
	}
	return c
}

// Split cuts text into ordered, overlapping chunks. Cut points prefer the
// highest-priority separator inside the size window; a window without any
// separator is extended to the next separator (or end of input) and flagged
// oversize. Empty input yields no chunks.
func Split(text string, cfg Config) []Chunk {
	if text == "" {
		return nil
	}
	cfg = cfg.withDefaults()

	var chunks []Chunk
	start := 0
	prevEnd := 0
	for start < len(text) {
		end := start + cfg.MaxSize
		oversize := false
		if end >= len(text) {
			end = len(text)
		} else {
			cut := findCut(text, start, end, prevEnd, cfg)
			if cut < 0 {
				end = extendToSeparator(text, end, cfg.Separators)
				oversize = end-start > cfg.MaxSize
			} else {
				end = cut
			}
		}
		chunks = append(chunks, Chunk{
			Content:    text[start:end],
			StartPos:   start,
			EndPos:     end,
			TokenCount: EstimateTokens(text[start:end]),
			Oversize:   oversize,
		})
		if end >= len(text) {
			break
		}
		prevEnd = end
		next := end - cfg.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return mergeSmallTail(text, chunks, cfg)
}

// findCut returns the position just past the best separator occurrence within
// (start, end], or -1 when the window contains no usable separator.
// Separators are tried in priority order; within one separator the latest
// occurrence wins so chunks stay as large as the window allows. Cuts at or
// before prevEnd are rejected so every chunk extends coverage.
func findCut(text string, start, end, prevEnd int, cfg Config) int {
	window := text[start:end]
	fallback := -1
	for _, sep := range cfg.Separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := start + idx + len(sep)
		if cut <= start || cut <= prevEnd {
			continue
		}
		if cut-start >= cfg.MinSize {
			return cut
		}
		// only a tiny chunk is possible with this separator; remember it and
		// let a lower-priority separator offer a later cut first
		if fallback < cut {
			fallback = cut
		}
	}
	return fallback
}

// extendToSeparator grows an unbreakable run until the earliest following
// separator (inclusive) or the end of input. Content is never dropped.
func extendToSeparator(text string, from int, separators []string) int {
	best := -1
	for _, sep := range separators {
		idx := strings.Index(text[from:], sep)
		if idx < 0 {
			continue
		}
		cut := from + idx + len(sep)
		if best < 0 || cut < best {
			best = cut
		}
	}
	if best < 0 {
		return len(text)
	}
	return best
}

// mergeSmallTail folds a final chunk into its predecessor when the tail
// contributes less than minSize of new content beyond the shared overlap.
// The merge is skipped when it would grow the predecessor past
// maxSize+minSize, which only happens after an oversize run.
func mergeSmallTail(text string, chunks []Chunk, cfg Config) []Chunk {
	n := len(chunks)
	if n < 2 || cfg.MinSize <= 0 {
		return chunks
	}
	last := chunks[n-1]
	prev := chunks[n-2]
	novel := last.EndPos - prev.EndPos
	if novel >= cfg.MinSize {
		return chunks
	}
	if last.EndPos-prev.StartPos > cfg.MaxSize+cfg.MinSize {
		return chunks
	}
	merged := Chunk{
		Content:  text[prev.StartPos:last.EndPos],
		StartPos: prev.StartPos,
		EndPos:   last.EndPos,
		Oversize: prev.Oversize || last.Oversize,
	}
	merged.TokenCount = EstimateTokens(merged.Content)
	return append(chunks[:n-2], merged)
}

// EstimateTokens is a cheap heuristic: one token per CJK rune plus one per
// whitespace-delimited word.
func EstimateTokens(text string) int {
	count := 0
	for _, r := range text {
		if r > 127 {
			count++
		}
	}
	count += len(strings.Fields(text))
	if count == 0 && len(text) > 0 {
		return 1
	}
	return count
}
