package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a user with the same email already exists.
var ErrDuplicate = errors.New("already exists")

type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	ProfilePicture string
	AuthProvider   string // "password", "google", "github"
	CreatedAt      time.Time
	LastLogin      time.Time
}

// Kind names a per-user collection of records.
type Kind string

const (
	KindVideo      Kind = "video"
	KindQuiz       Kind = "quiz"
	KindOCR        Kind = "ocr"
	KindMath       Kind = "math"
	KindEssay      Kind = "essay"
	KindChat       Kind = "chat"
	KindPlagiarism Kind = "plagiarism"
	KindPath       Kind = "learning_path"
)

// Record is one stored document of a user. The payload is the JSON document
// the API returns for it.
type Record struct {
	ID          string
	UserID      string
	Kind        Kind
	PayloadJSON string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
