package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func defaultConfig() Config {
	return Config{
		MaxSize:    100,
		Overlap:    20,
		MinSize:    10,
		Separators: []string{"\n\n", "\n", ". "},
	}
}

// requireCoverage asserts that chunk spans cover [0, len(text)) with no gaps
// and that consecutive chunks overlap when overlap is configured.
func requireCoverage(t *testing.T, text string, chunks []Chunk, overlap int) {
	t.Helper()
	require.NotEmpty(t, chunks)
	require.Equal(t, 0, chunks[0].StartPos)
	require.Equal(t, len(text), chunks[len(chunks)-1].EndPos)
	for i, c := range chunks {
		require.Equal(t, text[c.StartPos:c.EndPos], c.Content, "chunk %d content must match its span", i)
		require.Less(t, c.StartPos, c.EndPos, "chunk %d must be non-empty", i)
		if i == 0 {
			continue
		}
		prev := chunks[i-1]
		require.LessOrEqual(t, c.StartPos, prev.EndPos, "chunk %d must not leave a gap", i)
		if overlap > 0 && c.StartPos > prev.StartPos {
			require.Less(t, c.StartPos, prev.EndPos, "chunk %d must overlap its predecessor", i)
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	require.Empty(t, Split("", defaultConfig()))
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	text := "just one small paragraph"
	chunks := Split(text, defaultConfig())
	require.Len(t, chunks, 1)
	require.Equal(t, text, chunks[0].Content)
	require.Equal(t, 0, chunks[0].StartPos)
	require.Equal(t, len(text), chunks[0].EndPos)
	require.False(t, chunks[0].Oversize)
	require.Positive(t, chunks[0].TokenCount)
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	para1 := strings.Repeat("alpha ", 10) // 60 bytes
	para2 := strings.Repeat("beta ", 12)
	text := para1 + "\n\n" + para2
	chunks := Split(text, defaultConfig())
	require.GreaterOrEqual(t, len(chunks), 2)
	// first cut lands right after the paragraph break, not mid-sentence
	require.Equal(t, len(para1)+2, chunks[0].EndPos)
	requireCoverage(t, text, chunks, 20)
}

func TestSplitCoverageLongText(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
		if i%5 == 4 {
			sb.WriteString("\n\n")
		}
	}
	text := sb.String()
	cfg := defaultConfig()
	chunks := Split(text, cfg)
	require.Greater(t, len(chunks), 3)
	requireCoverage(t, text, chunks, cfg.Overlap)
	for i, c := range chunks {
		require.False(t, c.Oversize, "chunk %d should not be oversize", i)
		require.LessOrEqual(t, len(c.Content), cfg.MaxSize+cfg.MinSize)
	}
	// no chunk contributes less new content than the configured minimum
	for i := 1; i < len(chunks); i++ {
		require.GreaterOrEqual(t, chunks[i].EndPos-chunks[i-1].EndPos, cfg.MinSize)
	}
}

func TestSplitOversizeRunEmittedWhole(t *testing.T) {
	run := strings.Repeat("x", 250)
	text := run + "\nshort tail after the run that keeps going for a while"
	cfg := defaultConfig()
	chunks := Split(text, cfg)
	require.NotEmpty(t, chunks)
	require.True(t, chunks[0].Oversize)
	require.Equal(t, run+"\n", chunks[0].Content, "unbreakable run must not be truncated")
	requireCoverage(t, text, chunks, cfg.Overlap)
}

func TestSplitNoSeparatorAtAll(t *testing.T) {
	text := strings.Repeat("y", 300)
	chunks := Split(text, defaultConfig())
	require.Len(t, chunks, 1)
	require.True(t, chunks[0].Oversize)
	require.Equal(t, text, chunks[0].Content)
}

func TestSplitMergesSmallTail(t *testing.T) {
	text := strings.Repeat("word ", 19) + "\n\ntiny"
	cfg := defaultConfig()
	chunks := Split(text, cfg)
	require.Len(t, chunks, 1)
	require.Equal(t, len(text), chunks[0].EndPos)
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("Sentence number content filler here. ")
	}
	text := sb.String()
	cfg := defaultConfig()
	chunks := Split(text, cfg)
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		shared := chunks[i-1].EndPos - chunks[i].StartPos
		require.Positive(t, shared, "consecutive chunks must share trailing context")
	}
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 2, EstimateTokens("hello world"))
	require.Equal(t, 2, EstimateTokens("你好"))
	require.Equal(t, 1, EstimateTokens("   "))
}

func TestExtractMarkdownText(t *testing.T) {
	md := "# Title\n\nFirst paragraph here.\n\n```go\nfmt.Println(\"hi\")\n```\n\nSecond paragraph."
	out := ExtractMarkdownText(md)
	require.Contains(t, out, "Title")
	require.Contains(t, out, "First paragraph here.")
	require.Contains(t, out, "fmt.Println(\"hi\")")
	require.Contains(t, out, "Second paragraph.")
	require.NotContains(t, out, "# ")
	require.NotContains(t, out, "```")
}
