package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/askgate/internal/model"
	"github.com/xxxsen/askgate/internal/pkg/dbutil"
	appErr "github.com/xxxsen/askgate/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

var documentFields = []string{"id", "title", "path", "file_type", "size_bytes", "status", "ctime"}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":         doc.ID,
		"title":      doc.Title,
		"path":       doc.Path,
		"file_type":  doc.FileType,
		"size_bytes": doc.SizeBytes,
		"status":     string(doc.Status),
		"ctime":      doc.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return appErr.Wrap(appErr.ErrStorage, "build document insert", err)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.Wrap(appErr.ErrInvalid, "document already exists", err)
		}
		return appErr.Wrap(appErr.ErrStorage, "insert document", err)
	}
	return nil
}

// SetStatus moves a document out of processing. Terminal states are never
// overwritten: the transition only applies while the row is still processing.
func (r *DocumentRepo) SetStatus(ctx context.Context, id string, status model.DocumentStatus) error {
	if !status.Terminal() {
		return appErr.New(appErr.ErrInvalid, "document status transition must be terminal")
	}
	const query = `UPDATE documents SET status = $1 WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, string(status), id, string(model.DocumentStatusProcessing))
	if err != nil {
		return appErr.Wrap(appErr.ErrStorage, "update document status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return appErr.Wrap(appErr.ErrStorage, "update document status", err)
	}
	if affected == 0 {
		return appErr.New(appErr.ErrNotFound, "document not processing")
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "build document select", err)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, appErr.New(appErr.ErrNotFound, "document not found")
	}
	if err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "get document", err)
	}
	return doc, nil
}

func (r *DocumentRepo) List(ctx context.Context, limit, offset int) ([]*model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
		"_limit":   []uint{uint(offset), uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "build document list", err)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "list documents", err)
	}
	defer rows.Close()
	var out []*model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, appErr.Wrap(appErr.ErrStorage, "scan document", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrap(appErr.ErrStorage, "list documents", err)
	}
	return out, nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return appErr.Wrap(appErr.ErrStorage, "delete document", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return appErr.Wrap(appErr.ErrStorage, "delete document", err)
	}
	if affected == 0 {
		return appErr.New(appErr.ErrNotFound, "document not found")
	}
	return nil
}

// MarkStaleProcessingFailed fails documents stuck in processing since before
// cutoff. Used by the reaper job; returns how many rows were failed.
func (r *DocumentRepo) MarkStaleProcessingFailed(ctx context.Context, cutoff int64) (int64, error) {
	const query = `UPDATE documents SET status = $1 WHERE status = $2 AND ctime < $3`
	res, err := r.db.ExecContext(ctx, query,
		string(model.DocumentStatusFailed),
		string(model.DocumentStatusProcessing),
		cutoff,
	)
	if err != nil {
		return 0, appErr.Wrap(appErr.ErrStorage, "mark stale documents failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, appErr.Wrap(appErr.ErrStorage, "mark stale documents failed", err)
	}
	return affected, nil
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var doc model.Document
	var status string
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Path, &doc.FileType, &doc.SizeBytes, &status, &doc.Ctime); err != nil {
		return nil, err
	}
	doc.Status = model.DocumentStatus(status)
	if !doc.Status.Valid() {
		return nil, appErr.New(appErr.ErrStorage, "unknown document status: "+status)
	}
	return &doc, nil
}
