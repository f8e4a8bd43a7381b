package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/askgate/internal/config"
	"github.com/xxxsen/askgate/internal/model"
)

// retrievableFake serves only chunks whose owning document completed, the way
// the persistent store does.
type retrievableFake struct {
	docs   *fakeDocStore
	chunks *fakeChunkWriter
}

func (f *retrievableFake) ListRetrievable(_ context.Context, limit int) ([]*model.DocumentChunk, error) {
	var out []*model.DocumentChunk
	for docID, chunks := range f.chunks.byDoc {
		doc, ok := f.docs.docs[docID]
		if !ok || doc.Status != model.DocumentStatusCompleted {
			continue
		}
		for _, chunk := range chunks {
			out = append(out, chunk)
			if len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// taskEmbedder embeds documents as [1,0] and queries as a unit vector at 0.85
// cosine similarity to them.
type taskEmbedder struct{}

func (taskEmbedder) Embed(_ context.Context, _ string, taskType string) ([]float32, error) {
	if taskType == "RETRIEVAL_DOCUMENT" {
		return []float32{1, 0}, nil
	}
	return []float32{0.85, 0.5268}, nil
}

func (taskEmbedder) ModelName() string { return "flow-test" }

func TestIngestThenAskGroundedFlow(t *testing.T) {
	docs := newFakeDocStore()
	chunks := newFakeChunkWriter()
	ingest := NewIngestService(docs, chunks, taskEmbedder{}, newFakeFileStore(), config.IngestConfig{
		MaxFileSizeBytes:  1 << 20,
		AllowedExtensions: []string{".txt"},
		Chunk: config.ChunkConfig{
			MaxSize: 120,
			Overlap: 20,
			MinSize: 30,
		},
	}, config.PaginationConfig{DefaultLimit: 20, MaxLimit: 100}, time.Second)

	body := strings.Join([]string{
		"The deploy pipeline builds a static binary and pushes it to the registry before anything else runs at all.",
		"Rollouts happen one region at a time with a health gate between regions so a bad build never goes global.",
		"Rollback is a single command that repoints the service at the previous image within about thirty seconds.",
	}, "\n\n")
	doc, err := ingest.Ingest(context.Background(), "deploy runbook", "runbook.txt", []byte(body))
	require.NoError(t, err)
	require.Equal(t, model.DocumentStatusCompleted, doc.Status)
	require.GreaterOrEqual(t, len(chunks.byDoc[doc.ID]), 2)

	chats := newFakeChatStore()
	gen := &fakeGenerator{answer: "one region at a time with a health gate"}
	qa := NewQAService(chats, &retrievableFake{docs: docs, chunks: chunks}, gen, taskEmbedder{}, config.QAConfig{
		HighConfidenceThreshold: 0.92,
		RelevanceThreshold:      0.6,
		TopK:                    4,
		RecentPoolSize:          200,
	}, time.Second, 2000)

	first, err := qa.Ask(context.Background(), "How do rollouts work?")
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Contains(t, gen.prompt, "CONTEXT START")
	require.Contains(t, gen.prompt, "health gate")
	require.Len(t, chats.records, 1)

	second, err := qa.Ask(context.Background(), "How do rollouts work?")
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Answer, second.Answer)
	require.Equal(t, 1, gen.calls)
}
