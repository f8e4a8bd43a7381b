package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/askgate/internal/model"
	appErr "github.com/xxxsen/askgate/internal/pkg/errors"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// SaveBatch persists all chunks of a document in one transaction so a failed
// ingestion never leaves a partial chunk set behind.
func (r *ChunkRepo) SaveBatch(ctx context.Context, chunks []*model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return appErr.Wrap(appErr.ErrStorage, "begin chunk batch", err)
	}
	const query = `
		INSERT INTO document_chunks
			(id, document_id, chunk_index, content, embedding, start_pos, end_pos, token_count, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx, query,
			chunk.ID,
			chunk.DocumentID,
			chunk.ChunkIndex,
			chunk.Content,
			pgvector.NewVector(chunk.Embedding),
			chunk.StartPos,
			chunk.EndPos,
			chunk.TokenCount,
			chunk.Ctime,
		)
		if err != nil {
			_ = tx.Rollback()
			return appErr.Wrap(appErr.ErrStorage, "insert document chunk", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return appErr.Wrap(appErr.ErrStorage, "commit chunk batch", err)
	}
	return nil
}

// ListRetrievable returns chunks owned by completed documents only; chunks of
// processing or failed documents are never served as retrieval context.
func (r *ChunkRepo) ListRetrievable(ctx context.Context, limit int) ([]*model.DocumentChunk, error) {
	const query = `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.embedding,
		       c.start_pos, c.end_pos, c.token_count, c.ctime
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = $1 AND c.embedding IS NOT NULL
		ORDER BY c.ctime DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, string(model.DocumentStatusCompleted), limit)
	if err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "list retrievable chunks", err)
	}
	defer rows.Close()
	var out []*model.DocumentChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, appErr.Wrap(appErr.ErrStorage, "scan chunk", err)
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "list retrievable chunks", err)
	}
	return out, nil
}

func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]*model.DocumentChunk, error) {
	const query = `
		SELECT id, document_id, chunk_index, content, embedding,
		       start_pos, end_pos, token_count, ctime
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index ASC
	`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "list document chunks", err)
	}
	defer rows.Close()
	var out []*model.DocumentChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, appErr.Wrap(appErr.ErrStorage, "scan chunk", err)
		}
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "list document chunks", err)
	}
	return out, nil
}

func (r *ChunkRepo) CountByDocument(ctx context.Context, documentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, documentID).Scan(&count); err != nil {
		return 0, appErr.Wrap(appErr.ErrStorage, "count document chunks", err)
	}
	return count, nil
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	const query = `DELETE FROM document_chunks WHERE document_id = $1`
	if _, err := r.db.ExecContext(ctx, query, documentID); err != nil {
		return appErr.Wrap(appErr.ErrStorage, "delete document chunks", err)
	}
	return nil
}

func scanChunk(row rowScanner) (*model.DocumentChunk, error) {
	var chunk model.DocumentChunk
	var embedding pgvector.Vector
	if err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.ChunkIndex,
		&chunk.Content,
		&embedding,
		&chunk.StartPos,
		&chunk.EndPos,
		&chunk.TokenCount,
		&chunk.Ctime,
	); err != nil {
		return nil, err
	}
	chunk.Embedding = embedding.Slice()
	return &chunk, nil
}
