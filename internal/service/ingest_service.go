package service

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askgate/internal/ai"
	"github.com/xxxsen/askgate/internal/chunker"
	"github.com/xxxsen/askgate/internal/config"
	"github.com/xxxsen/askgate/internal/filestore"
	"github.com/xxxsen/askgate/internal/model"
	appErr "github.com/xxxsen/askgate/internal/pkg/errors"
)

type documentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	SetStatus(ctx context.Context, id string, status model.DocumentStatus) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	List(ctx context.Context, limit, offset int) ([]*model.Document, error)
	Delete(ctx context.Context, id string) error
}

type chunkStore interface {
	SaveBatch(ctx context.Context, chunks []*model.DocumentChunk) error
	ListByDocument(ctx context.Context, documentID string) ([]*model.DocumentChunk, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

type DocumentDetail struct {
	*model.Document
	ChunkCount int `json:"chunk_count"`
}

// IngestService turns an uploaded document into an embedded, retrievable
// chunk set. A document is completed only after every chunk is durably
// persisted with its embedding; any failure rolls partial chunks back and
// fails the document terminally.
type IngestService struct {
	docs     documentStore
	chunks   chunkStore
	embedder ai.IEmbedder
	files    filestore.Store
	cfg      config.IngestConfig
	page     config.PaginationConfig
	timeout  time.Duration
	now      func() time.Time
}

func NewIngestService(
	docs documentStore,
	chunks chunkStore,
	embedder ai.IEmbedder,
	files filestore.Store,
	cfg config.IngestConfig,
	page config.PaginationConfig,
	timeout time.Duration,
) *IngestService {
	return &IngestService{
		docs:     docs,
		chunks:   chunks,
		embedder: embedder,
		files:    files,
		cfg:      cfg,
		page:     page,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (s *IngestService) Ingest(ctx context.Context, title, filename string, payload []byte) (*model.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.extensionAllowed(ext) {
		return nil, appErr.New(appErr.ErrInvalid, "file type not allowed: "+ext)
	}
	if int64(len(payload)) > s.cfg.MaxFileSizeBytes {
		return nil, appErr.New(appErr.ErrInvalid, "file exceeds max size")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), ext)
	}

	id := uuid.NewString()
	key := id + ext
	if err := s.files.Save(ctx, key, bytes.NewReader(payload), int64(len(payload))); err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "store document payload", err)
	}

	doc := &model.Document{
		ID:        id,
		Title:     title,
		Path:      key,
		FileType:  ext,
		SizeBytes: int64(len(payload)),
		Status:    model.DocumentStatusProcessing,
		Ctime:     s.now().Unix(),
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.process(ctx, doc, payload); err != nil {
		s.fail(ctx, doc)
		return nil, err
	}
	if err := s.docs.SetStatus(ctx, doc.ID, model.DocumentStatusCompleted); err != nil {
		s.fail(ctx, doc)
		return nil, err
	}
	doc.Status = model.DocumentStatusCompleted
	return doc, nil
}

func (s *IngestService) process(ctx context.Context, doc *model.Document, payload []byte) error {
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", doc.ID))
	text := string(payload)
	if s.cfg.Chunk.Method == "markdown" && doc.FileType == ".md" {
		text = chunker.ExtractMarkdownText(text)
	}
	pieces := chunker.Split(text, chunker.Config{
		MaxSize:    s.cfg.Chunk.MaxSize,
		Overlap:    s.cfg.Chunk.Overlap,
		MinSize:    s.cfg.Chunk.MinSize,
		Separators: s.cfg.Chunk.Separators,
	})
	logger.Info("document chunked", zap.Int("chunks", len(pieces)))

	records := make([]*model.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		if piece.Oversize {
			logger.Warn("oversize chunk emitted whole",
				zap.Int("chunk_index", i),
				zap.Int("size", len(piece.Content)),
			)
		}
		embedding, err := s.embedChunk(ctx, piece.Content)
		if err != nil {
			return err
		}
		records = append(records, &model.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    piece.Content,
			Embedding:  embedding,
			StartPos:   piece.StartPos,
			EndPos:     piece.EndPos,
			TokenCount: piece.TokenCount,
			Ctime:      s.now().Unix(),
		})
	}
	return s.chunks.SaveBatch(ctx, records)
}

func (s *IngestService) embedChunk(ctx context.Context, content string) ([]float32, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.embedder.Embed(ctx, content, "RETRIEVAL_DOCUMENT")
}

// fail rolls partial chunks back and marks the document failed so it can
// never be mistaken for one with a usable chunk set.
func (s *IngestService) fail(ctx context.Context, doc *model.Document) {
	logger := logutil.GetLogger(ctx).With(zap.String("document_id", doc.ID))
	if err := s.chunks.DeleteByDocument(ctx, doc.ID); err != nil {
		logger.Error("failed to roll back partial chunks", zap.Error(err))
	}
	if err := s.docs.SetStatus(ctx, doc.ID, model.DocumentStatusFailed); err != nil {
		logger.Error("failed to mark document failed", zap.Error(err))
		return
	}
	doc.Status = model.DocumentStatusFailed
}

func (s *IngestService) extensionAllowed(ext string) bool {
	for _, allowed := range s.cfg.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func (s *IngestService) List(ctx context.Context, limit, offset int) ([]*model.Document, error) {
	if limit <= 0 {
		limit = s.page.DefaultLimit
	}
	if limit > s.page.MaxLimit {
		limit = s.page.MaxLimit
	}
	if offset < 0 {
		offset = s.page.DefaultOffset
	}
	return s.docs.List(ctx, limit, offset)
}

func (s *IngestService) Get(ctx context.Context, id string) (*DocumentDetail, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.chunks.CountByDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{Document: doc, ChunkCount: count}, nil
}

func (s *IngestService) Delete(ctx context.Context, id string) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.chunks.DeleteByDocument(ctx, id); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, doc.Path); err != nil {
		logutil.GetLogger(ctx).Warn("failed to delete stored payload",
			zap.String("document_id", id), zap.Error(err))
	}
	return nil
}
