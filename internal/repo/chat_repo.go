package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/askgate/internal/model"
	appErr "github.com/xxxsen/askgate/internal/pkg/errors"
)

// ChatRepo is the durable exact-match cache: one row per question fingerprint.
type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Upsert writes rec. On conflict only answer and embedding are replaced; the
// originally stored question text and ctime are kept.
func (r *ChatRepo) Upsert(ctx context.Context, rec *model.ChatRecord) error {
	const query = `
		INSERT INTO chat_records (fingerprint, question, answer, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint) DO UPDATE SET
			answer = EXCLUDED.answer,
			embedding = EXCLUDED.embedding
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.Fingerprint,
		rec.Question,
		rec.Answer,
		pgvector.NewVector(rec.Embedding),
		rec.Ctime,
	)
	if err != nil {
		return appErr.Wrap(appErr.ErrStorage, "upsert chat record", err)
	}
	return nil
}

// GetByFingerprint returns (nil, nil) on a simple miss.
func (r *ChatRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*model.ChatRecord, error) {
	const query = `
		SELECT fingerprint, question, answer, embedding, ctime
		FROM chat_records
		WHERE fingerprint = $1
	`
	row := r.db.QueryRowContext(ctx, query, fingerprint)
	rec, err := scanChatRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "get chat record", err)
	}
	return rec, nil
}

// ListRecentWithEmbedding returns up to limit newest records whose embedding
// is present, newest first. This is the candidate pool for semantic cache
// hits; it is a bounded snapshot, not a live view.
func (r *ChatRepo) ListRecentWithEmbedding(ctx context.Context, limit int) ([]*model.ChatRecord, error) {
	const query = `
		SELECT fingerprint, question, answer, embedding, ctime
		FROM chat_records
		WHERE embedding IS NOT NULL
		ORDER BY ctime DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "list recent chat records", err)
	}
	defer rows.Close()
	var out []*model.ChatRecord
	for rows.Next() {
		rec, err := scanChatRecord(rows)
		if err != nil {
			return nil, appErr.Wrap(appErr.ErrStorage, "scan chat record", err)
		}
		if len(rec.Embedding) == 0 {
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "list recent chat records", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChatRecord(row rowScanner) (*model.ChatRecord, error) {
	var rec model.ChatRecord
	var embedding pgvector.Vector
	if err := row.Scan(&rec.Fingerprint, &rec.Question, &rec.Answer, &embedding, &rec.Ctime); err != nil {
		return nil, err
	}
	rec.Embedding = embedding.Slice()
	return &rec, nil
}
