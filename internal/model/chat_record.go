package model

// ChatRecord is one cached question/answer pair keyed by the fingerprint of
// the normalized question text.
type ChatRecord struct {
	Fingerprint string    `json:"fingerprint"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
