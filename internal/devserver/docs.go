package devserver

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/storage"
)

// Stored documents. Each is saved whole as a record payload and listed back
// in the same shape, keyed "_id" like the production API's history endpoints.

type videoDoc struct {
	ID           string     `json:"_id"`
	UserID       string     `json:"user_id"`
	Title        string     `json:"title"`
	FilePath     string     `json:"file_path,omitempty"`
	FileSize     int64      `json:"file_size,omitempty"`
	URL          string     `json:"url,omitempty"`
	Type         string     `json:"type,omitempty"`
	Status       string     `json:"status"`
	Summary      string     `json:"summary,omitempty"`
	SummaryType  string     `json:"summary_type,omitempty"`
	VideoOCRText string     `json:"video_ocr_text,omitempty"`
	CreatedAt    naiveTime  `json:"created_at"`
	LastUpdated  *naiveTime `json:"last_updated,omitempty"`
}

type quizDoc struct {
	ID         string            `json:"_id"`
	UserID     string            `json:"user_id"`
	Title      string            `json:"title"`
	Questions  []client.Question `json:"questions"`
	Difficulty string            `json:"difficulty"`
	CreatedAt  naiveTime         `json:"created_at"`
}

type ocrDoc struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	Mode      string    `json:"mode"`
	CreatedAt naiveTime `json:"created_at"`
}

type mathDoc struct {
	ID         string    `json:"_id"`
	UserID     string    `json:"user_id"`
	Expression string    `json:"expression"`
	Solution   string    `json:"solution"`
	Type       string    `json:"type"`
	CreatedAt  naiveTime `json:"created_at"`
}

type essayDoc struct {
	ID        string       `json:"_id"`
	UserID    string       `json:"user_id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Grade     client.Grade `json:"grade"`
	CreatedAt naiveTime    `json:"created_at"`
}

type chatDoc struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp naiveTime `json:"timestamp"`
}

type plagiarismDoc struct {
	ID             string                  `json:"_id"`
	UserID         string                  `json:"user_id"`
	ContentPreview string                  `json:"content_preview"`
	Report         client.PlagiarismReport `json:"report"`
	CreatedAt      naiveTime               `json:"created_at"`
}

type pathDoc struct {
	UserID    string              `json:"user_id"`
	Path      client.LearningPath `json:"path"`
	UpdatedAt naiveTime           `json:"updated_at"`
}

func saveDoc(deps Deps, userID string, kind storage.Kind, id string, createdAt time.Time, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", kind, id, err)
	}
	return deps.Store.SaveRecord(storage.Record{
		ID:          id,
		UserID:      userID,
		Kind:        kind,
		PayloadJSON: string(payload),
		CreatedAt:   createdAt,
		UpdatedAt:   deps.Now(),
	})
}

func getDoc[T any](deps Deps, userID string, kind storage.Kind, id string) (T, error) {
	var doc T
	rec, err := deps.Store.GetRecord(userID, kind, id)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal([]byte(rec.PayloadJSON), &doc); err != nil {
		return doc, fmt.Errorf("decoding %s %s: %w", kind, id, err)
	}
	return doc, nil
}

// listDocs returns up to historyLimit documents. The result is never nil so
// an empty history encodes as [].
func listDocs[T any](deps Deps, userID string, kind storage.Kind, oldestFirst bool) ([]T, error) {
	recs, err := deps.Store.ListRecords(userID, kind, historyLimit, oldestFirst)
	if err != nil {
		return nil, err
	}
	return decodeRecords[T](recs)
}

func decodeRecords[T any](recs []storage.Record) ([]T, error) {
	docs := make([]T, 0, len(recs))
	for _, rec := range recs {
		var doc T
		if err := json.Unmarshal([]byte(rec.PayloadJSON), &doc); err != nil {
			return nil, fmt.Errorf("decoding %s %s: %w", rec.Kind, rec.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
