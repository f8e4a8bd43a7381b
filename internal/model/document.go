package model

type DocumentStatus string

// Status is a terminal state machine: processing -> completed | failed.
// A failed document is never resurrected in place; re-ingestion creates a new
// document row.
const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusProcessing, DocumentStatusCompleted, DocumentStatusFailed:
		return true
	}
	return false
}

func (s DocumentStatus) Terminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusFailed
}

type Document struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Path      string         `json:"path"`
	FileType  string         `json:"file_type"`
	SizeBytes int64          `json:"size_bytes"`
	Status    DocumentStatus `json:"status"`
	Ctime     int64          `json:"ctime"`
}
