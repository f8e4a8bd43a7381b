package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/askgate/internal/config"
	"github.com/xxxsen/askgate/internal/model"
	appErr "github.com/xxxsen/askgate/internal/pkg/errors"
)

type fakeChatStore struct {
	records map[string]*model.ChatRecord
	upserts int
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{records: make(map[string]*model.ChatRecord)}
}

func (f *fakeChatStore) Upsert(_ context.Context, rec *model.ChatRecord) error {
	f.upserts++
	if existing, ok := f.records[rec.Fingerprint]; ok {
		existing.Answer = rec.Answer
		existing.Embedding = rec.Embedding
		return nil
	}
	clone := *rec
	f.records[rec.Fingerprint] = &clone
	return nil
}

func (f *fakeChatStore) GetByFingerprint(_ context.Context, fingerprint string) (*model.ChatRecord, error) {
	return f.records[fingerprint], nil
}

func (f *fakeChatStore) ListRecentWithEmbedding(_ context.Context, limit int) ([]*model.ChatRecord, error) {
	var out []*model.ChatRecord
	for _, rec := range f.records {
		if len(rec.Embedding) == 0 {
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeChunkStore struct {
	chunks []*model.DocumentChunk
}

func (f *fakeChunkStore) ListRetrievable(_ context.Context, limit int) ([]*model.DocumentChunk, error) {
	if limit > len(f.chunks) {
		limit = len(f.chunks)
	}
	return f.chunks[:limit], nil
}

type fakeGenerator struct {
	answer string
	err    error
	calls  int
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.answer, f.err
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

func (f *fakeEmbedder) ModelName() string { return "fake-model" }

func newQAForTest(chats *fakeChatStore, chunks *fakeChunkStore, gen *fakeGenerator, emb *fakeEmbedder) *QAService {
	svc := NewQAService(chats, chunks, gen, emb, config.QAConfig{
		HighConfidenceThreshold: 0.92,
		RelevanceThreshold:      0.6,
		TopK:                    4,
		RecentPoolSize:          200,
	}, time.Second, 2000)
	svc.now = func() time.Time { return time.Unix(1000, 0) }
	return svc
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	svc := newQAForTest(newFakeChatStore(), &fakeChunkStore{}, &fakeGenerator{}, &fakeEmbedder{})
	_, err := svc.Ask(context.Background(), "   ")
	require.True(t, appErr.IsInvalid(err))
}

func TestAskRejectsOverlongQuestion(t *testing.T) {
	svc := newQAForTest(newFakeChatStore(), &fakeChunkStore{}, &fakeGenerator{}, &fakeEmbedder{})
	svc.maxQuestionChars = 5
	_, err := svc.Ask(context.Background(), "this question is too long")
	require.True(t, appErr.IsInvalid(err))
}

func TestAskExactCacheHitSkipsUpstream(t *testing.T) {
	chats := newFakeChatStore()
	require.NoError(t, chats.Upsert(context.Background(), &model.ChatRecord{
		Fingerprint: Fingerprint("What is Go?"),
		Question:    "What is Go?",
		Answer:      "a language",
	}))
	gen := &fakeGenerator{answer: "unused"}
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	svc := newQAForTest(chats, &fakeChunkStore{}, gen, emb)

	res, err := svc.Ask(context.Background(), "  what   is go?  ")
	require.NoError(t, err)
	require.True(t, res.Cached)
	require.Equal(t, "a language", res.Answer)
	require.Zero(t, gen.calls)
	require.Zero(t, emb.calls)
}

func TestAskSemanticCacheHit(t *testing.T) {
	chats := newFakeChatStore()
	require.NoError(t, chats.Upsert(context.Background(), &model.ChatRecord{
		Fingerprint: Fingerprint("What is Golang?"),
		Question:    "What is Golang?",
		Answer:      "a language",
		Embedding:   []float32{1, 0},
	}))
	gen := &fakeGenerator{answer: "unused"}
	svc := newQAForTest(chats, &fakeChunkStore{}, gen, &fakeEmbedder{vec: []float32{0.99, 0.01}})

	res, err := svc.Ask(context.Background(), "What is Go?")
	require.NoError(t, err)
	require.True(t, res.Cached)
	require.Equal(t, "a language", res.Answer)
	require.Zero(t, gen.calls)
}

func TestAskBelowConfidenceGeneratesFresh(t *testing.T) {
	chats := newFakeChatStore()
	require.NoError(t, chats.Upsert(context.Background(), &model.ChatRecord{
		Fingerprint: Fingerprint("unrelated"),
		Question:    "unrelated",
		Answer:      "stale",
		Embedding:   []float32{0, 1},
	}))
	gen := &fakeGenerator{answer: "fresh answer"}
	svc := newQAForTest(chats, &fakeChunkStore{}, gen, &fakeEmbedder{vec: []float32{1, 0}})

	res, err := svc.Ask(context.Background(), "What is Go?")
	require.NoError(t, err)
	require.False(t, res.Cached)
	require.Equal(t, "fresh answer", res.Answer)
	require.Equal(t, 1, gen.calls)
}

func TestAskGroundedGenerationUsesRelevantChunks(t *testing.T) {
	chunks := &fakeChunkStore{chunks: []*model.DocumentChunk{
		{ID: "hit", Content: "go is a compiled language", Embedding: []float32{1, 0}},
		{ID: "miss", Content: "cooking with cast iron", Embedding: []float32{0, 1}},
	}}
	gen := &fakeGenerator{answer: "grounded answer"}
	svc := newQAForTest(newFakeChatStore(), chunks, gen, &fakeEmbedder{vec: []float32{1, 0}})

	res, err := svc.Ask(context.Background(), "What is Go?")
	require.NoError(t, err)
	require.False(t, res.Cached)
	require.Contains(t, gen.prompt, "go is a compiled language")
	require.NotContains(t, gen.prompt, "cooking with cast iron")
}

func TestAskOpenDomainFallbackWithoutContext(t *testing.T) {
	gen := &fakeGenerator{answer: "open answer"}
	svc := newQAForTest(newFakeChatStore(), &fakeChunkStore{}, gen, &fakeEmbedder{vec: []float32{1, 0}})

	res, err := svc.Ask(context.Background(), "What is Go?")
	require.NoError(t, err)
	require.Equal(t, "open answer", res.Answer)
	require.NotContains(t, gen.prompt, "CONTEXT START")
}

func TestAskGenerationFailureLeavesNoRecord(t *testing.T) {
	chats := newFakeChatStore()
	gen := &fakeGenerator{err: appErr.Wrap(appErr.ErrUpstreamTimeout, "generate", context.DeadlineExceeded)}
	svc := newQAForTest(chats, &fakeChunkStore{}, gen, &fakeEmbedder{vec: []float32{1, 0}})

	_, err := svc.Ask(context.Background(), "What is Go?")
	require.ErrorIs(t, err, appErr.ErrUpstreamTimeout)
	require.Empty(t, chats.records)
}

func TestAskEmptyAnswerIsUpstreamFailure(t *testing.T) {
	chats := newFakeChatStore()
	gen := &fakeGenerator{answer: "   "}
	svc := newQAForTest(chats, &fakeChunkStore{}, gen, &fakeEmbedder{vec: []float32{1, 0}})

	_, err := svc.Ask(context.Background(), "What is Go?")
	require.ErrorIs(t, err, appErr.ErrUpstreamUnavailable)
	require.Empty(t, chats.records)
}

func TestAskSecondCallServedFromCache(t *testing.T) {
	chats := newFakeChatStore()
	gen := &fakeGenerator{answer: "answer one"}
	svc := newQAForTest(chats, &fakeChunkStore{}, gen, &fakeEmbedder{vec: []float32{1, 0}})

	first, err := svc.Ask(context.Background(), "What is Go?")
	require.NoError(t, err)
	require.False(t, first.Cached)

	gen.answer = "answer two"
	second, err := svc.Ask(context.Background(), "what is GO?")
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, "answer one", second.Answer)
	require.Equal(t, 1, gen.calls)
}
