package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askgate/internal/repo"
)

// DocumentReaperJob fails documents stuck in processing past the deadline,
// typically after a crash mid-ingest. Retrieval only reads completed
// documents, so failing the row keeps half-embedded chunks out of answers.
type DocumentReaperJob struct {
	docs            *repo.DocumentRepo
	deadlineMinutes int
}

func NewDocumentReaperJob(docs *repo.DocumentRepo, deadlineMinutes int) *DocumentReaperJob {
	return &DocumentReaperJob{docs: docs, deadlineMinutes: deadlineMinutes}
}

func (j *DocumentReaperJob) Name() string {
	return "document_reaper"
}

func (j *DocumentReaperJob) Run(ctx context.Context) error {
	deadline := j.deadlineMinutes
	if deadline <= 0 {
		deadline = 30
	}
	cutoff := time.Now().Add(-time.Duration(deadline) * time.Minute).Unix()
	failed, err := j.docs.MarkStaleProcessingFailed(ctx, cutoff)
	if err != nil {
		return err
	}
	if failed > 0 {
		logutil.GetLogger(ctx).Warn("reaped stale processing documents", zap.Int64("failed", failed))
	}
	return nil
}
