package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askgate/internal/ai"
	"github.com/xxxsen/askgate/internal/config"
	"github.com/xxxsen/askgate/internal/model"
	appErr "github.com/xxxsen/askgate/internal/pkg/errors"
)

const chunkScanLimit = 1000

type chatStore interface {
	Upsert(ctx context.Context, rec *model.ChatRecord) error
	GetByFingerprint(ctx context.Context, fingerprint string) (*model.ChatRecord, error)
	ListRecentWithEmbedding(ctx context.Context, limit int) ([]*model.ChatRecord, error)
}

type retrievableChunkStore interface {
	ListRetrievable(ctx context.Context, limit int) ([]*model.DocumentChunk, error)
}

type AskResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Cached   bool   `json:"cached"`
}

// QAService decides, per question, between an exact cache hit, a semantic
// cache hit, and fresh generation grounded on retrieved chunks.
type QAService struct {
	chats            chatStore
	chunks           retrievableChunkStore
	generator        ai.IGenerator
	embedder         ai.IEmbedder
	cfg              config.QAConfig
	timeout          time.Duration
	maxQuestionChars int
	now              func() time.Time
}

func NewQAService(
	chats chatStore,
	chunks retrievableChunkStore,
	generator ai.IGenerator,
	embedder ai.IEmbedder,
	cfg config.QAConfig,
	timeout time.Duration,
	maxQuestionChars int,
) *QAService {
	return &QAService{
		chats:            chats,
		chunks:           chunks,
		generator:        generator,
		embedder:         embedder,
		cfg:              cfg,
		timeout:          timeout,
		maxQuestionChars: maxQuestionChars,
		now:              time.Now,
	}
}

// Ask runs the cache-policy ladder. Concurrent first-time asks of the same
// question may each generate; the upsert is last-write-wins on answer and
// embedding, which is accepted rather than serialized per fingerprint.
func (s *QAService) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, appErr.New(appErr.ErrInvalid, "question is required")
	}
	if s.maxQuestionChars > 0 && len(question) > s.maxQuestionChars {
		return nil, appErr.New(appErr.ErrInvalid, "question too long")
	}
	fingerprint := Fingerprint(question)
	logger := logutil.GetLogger(ctx).With(zap.String("fingerprint", fingerprint))

	if rec, err := s.chats.GetByFingerprint(ctx, fingerprint); err != nil {
		return nil, err
	} else if rec != nil {
		logger.Debug("exact cache hit")
		return &AskResult{Question: question, Answer: rec.Answer, Cached: true}, nil
	}

	embedding, err := s.embed(ctx, question)
	if err != nil {
		return nil, err
	}

	if answer, ok, err := s.semanticCacheHit(ctx, embedding); err != nil {
		return nil, err
	} else if ok {
		logger.Info("semantic cache hit")
		return &AskResult{Question: question, Answer: answer, Cached: true}, nil
	}

	contextParts, err := s.retrieveContext(ctx, embedding)
	if err != nil {
		return nil, err
	}
	grounded := len(contextParts) > 0
	logger.Info("generating answer", zap.Bool("grounded", grounded), zap.Int("context_chunks", len(contextParts)))

	answer, err := s.generate(ctx, question, contextParts)
	if err != nil {
		return nil, err
	}

	if err := s.chats.Upsert(ctx, &model.ChatRecord{
		Fingerprint: fingerprint,
		Question:    question,
		Answer:      answer,
		Embedding:   embedding,
		Ctime:       s.now().Unix(),
	}); err != nil {
		return nil, err
	}
	return &AskResult{Question: question, Answer: answer, Cached: false}, nil
}

func (s *QAService) embed(ctx context.Context, question string) ([]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.embedder.Embed(ctx, question, "RETRIEVAL_QUERY")
}

func (s *QAService) semanticCacheHit(ctx context.Context, embedding []float32) (string, bool, error) {
	recent, err := s.chats.ListRecentWithEmbedding(ctx, s.cfg.RecentPoolSize)
	if err != nil {
		return "", false, err
	}
	candidates := make([]Candidate, 0, len(recent))
	for _, rec := range recent {
		candidates = append(candidates, Candidate{
			ID:        rec.Fingerprint,
			Embedding: rec.Embedding,
			Payload:   rec.Answer,
			Ctime:     rec.Ctime,
		})
	}
	best := RankBySimilarity(embedding, candidates, 1)
	if len(best) == 0 || best[0].Score < s.cfg.HighConfidenceThreshold {
		return "", false, nil
	}
	return best[0].Payload, true, nil
}

func (s *QAService) retrieveContext(ctx context.Context, embedding []float32) ([]string, error) {
	chunks, err := s.chunks.ListRetrievable(ctx, chunkScanLimit)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(chunks))
	for _, chunk := range chunks {
		candidates = append(candidates, Candidate{
			ID:        chunk.ID,
			Embedding: chunk.Embedding,
			Payload:   chunk.Content,
			Ctime:     chunk.Ctime,
		})
	}
	var parts []string
	for _, item := range RankBySimilarity(embedding, candidates, s.cfg.TopK) {
		if item.Score < s.cfg.RelevanceThreshold {
			break
		}
		parts = append(parts, item.Payload)
	}
	return parts, nil
}

func (s *QAService) generate(ctx context.Context, question string, contextParts []string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	answer, err := s.generator.Generate(ctx, buildPrompt(question, contextParts))
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", appErr.Wrap(appErr.ErrUpstreamUnavailable, "generate answer", fmt.Errorf("empty response"))
	}
	return answer, nil
}

func buildPrompt(question string, contextParts []string) string {
	if len(contextParts) == 0 {
		return fmt.Sprintf(`You are a helpful assistant.
Answer the question below concisely. If you are not sure, say so instead of guessing.

QUESTION:
%s`, question)
	}
	return fmt.Sprintf(`You are a helpful assistant.
Answer the question using the context below. If the context does not contain the
answer, say that the information is not available.

--- CONTEXT START ---
%s
--- CONTEXT END ---

QUESTION:
%s`, strings.Join(contextParts, "\n\n"), question)
}
