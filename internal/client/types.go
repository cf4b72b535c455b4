package client

import (
	"encoding/json"

	"github.com/kalambet/smartlearn/internal/session"
)

// decodeDoc decodes a stored document into v. History endpoints key the
// identifier as "_id" while create endpoints use "id"; either fills *id.
func decodeDoc(data []byte, v any, id *string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	if *id != "" {
		return nil
	}
	var alt struct {
		ID session.UserID `json:"_id"`
	}
	if err := json.Unmarshal(data, &alt); err != nil {
		return err
	}
	*id = string(alt.ID)
	return nil
}

// Summary styles accepted by the video endpoints.
const (
	SummaryBrief    = "brief"
	SummaryBullet   = "bullet"
	SummaryDetailed = "detailed"
)

type Video struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	URL          string            `json:"url,omitempty"`
	Type         string            `json:"type,omitempty"`
	Status       string            `json:"status"`
	Summary      string            `json:"summary,omitempty"`
	SummaryType  string            `json:"summary_type,omitempty"`
	VideoOCRText string            `json:"video_ocr_text,omitempty"`
	CreatedAt    session.Timestamp `json:"created_at,omitzero"`
}

func (v *Video) UnmarshalJSON(data []byte) error {
	type plain Video
	return decodeDoc(data, (*plain)(v), &v.ID)
}

type UploadedVideo struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

type VideoSummary struct {
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

type VideoText struct {
	Text    string `json:"text"`
	VideoID string `json:"video_id"`
}

// Quiz difficulty levels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

type Quiz struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Questions  []Question        `json:"questions"`
	Difficulty string            `json:"difficulty,omitempty"`
	CreatedAt  session.Timestamp `json:"created_at,omitzero"`
}

func (q *Quiz) UnmarshalJSON(data []byte) error {
	type plain Quiz
	return decodeDoc(data, (*plain)(q), &q.ID)
}

type QuizRequest struct {
	Content      string
	File         *File
	Difficulty   string
	NumQuestions int
}

// OCR modes.
const (
	OCRDefault    = "default"
	OCRStructured = "structured"
	OCRClean      = "clean"
)

type OCRRecord struct {
	ID        string            `json:"id"`
	Title     string            `json:"title,omitempty"`
	Text      string            `json:"text"`
	Mode      string            `json:"mode,omitempty"`
	CreatedAt session.Timestamp `json:"created_at,omitzero"`
}

func (r *OCRRecord) UnmarshalJSON(data []byte) error {
	type plain OCRRecord
	return decodeDoc(data, (*plain)(r), &r.ID)
}

type MathSolution struct {
	ID         string            `json:"id"`
	Expression string            `json:"expression,omitempty"`
	Solution   string            `json:"solution"`
	Type       string            `json:"type,omitempty"`
	CreatedAt  session.Timestamp `json:"created_at,omitzero"`
}

func (m *MathSolution) UnmarshalJSON(data []byte) error {
	type plain MathSolution
	return decodeDoc(data, (*plain)(m), &m.ID)
}

type Grade struct {
	GrammarScore   float64  `json:"grammar_score"`
	StructureScore float64  `json:"structure_score"`
	ContentScore   float64  `json:"content_score"`
	OverallScore   float64  `json:"overall_score"`
	Feedback       string   `json:"feedback"`
	Suggestions    []string `json:"suggestions"`
}

type Essay struct {
	ID        string            `json:"id"`
	Title     string            `json:"title,omitempty"`
	Content   string            `json:"content,omitempty"`
	Grade     Grade             `json:"grade"`
	CreatedAt session.Timestamp `json:"created_at,omitzero"`
}

func (e *Essay) UnmarshalJSON(data []byte) error {
	type plain Essay
	return decodeDoc(data, (*plain)(e), &e.ID)
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID        string            `json:"id,omitempty"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp session.Timestamp `json:"timestamp,omitzero"`
}

func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type plain ChatMessage
	return decodeDoc(data, (*plain)(m), &m.ID)
}

type ClearResult struct {
	Status       string `json:"status"`
	DeletedCount int    `json:"deleted_count"`
}

type PlagiarismReport struct {
	SimilarityScore float64  `json:"similarity_score"`
	AIProbability   float64  `json:"ai_probability"`
	Status          string   `json:"status"`
	Findings        []string `json:"findings"`
	DetailedReport  string   `json:"detailed_report"`
}

// DefaultCategory is the learning-path focus used when none is given.
const DefaultCategory = "General Knowledge"

type Phase struct {
	Title string   `json:"title"`
	Goal  string   `json:"goal"`
	Tasks []string `json:"tasks"`
}

type LearningPath struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Phases      []Phase `json:"phases"`
}

type Message struct {
	Message string `json:"message"`
}
