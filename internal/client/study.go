package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// GenerateQuiz builds a quiz from pasted content, an uploaded document, or
// both. Difficulty defaults to medium and the question count to five.
func (c *Client) GenerateQuiz(ctx context.Context, req QuizRequest) (*Quiz, error) {
	if strings.TrimSpace(req.Content) == "" && req.File == nil {
		return nil, errors.New("quiz needs content or a file")
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = DifficultyMedium
	}
	switch difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return nil, fmt.Errorf("invalid difficulty %q (want %s, %s or %s)", difficulty, DifficultyEasy, DifficultyMedium, DifficultyHard)
	}
	n := req.NumQuestions
	if n <= 0 {
		n = 5
	}

	fields := map[string]string{
		"difficulty":    difficulty,
		"num_questions": strconv.Itoa(n),
	}
	if req.Content != "" {
		fields["content"] = req.Content
	}

	resp, err := c.postMultipart(ctx, "/api/quizzes/generate", fields, req.File)
	if err != nil {
		return nil, err
	}
	var q Quiz
	if err := decodeJSON(resp, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) ListQuizzes(ctx context.Context) ([]Quiz, error) {
	resp, err := c.get(ctx, "/api/quizzes/")
	if err != nil {
		return nil, err
	}
	var quizzes []Quiz
	if err := decodeJSON(resp, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// UploadHandwriting runs OCR over an image of notes.
func (c *Client) UploadHandwriting(ctx context.Context, f File, mode string) (*OCRRecord, error) {
	if mode == "" {
		mode = OCRDefault
	}
	switch mode {
	case OCRDefault, OCRStructured, OCRClean:
	default:
		return nil, fmt.Errorf("invalid OCR mode %q (want %s, %s or %s)", mode, OCRDefault, OCRStructured, OCRClean)
	}
	resp, err := c.postMultipart(ctx, "/api/ocr/upload", map[string]string{"mode": mode}, &f)
	if err != nil {
		return nil, err
	}
	var r OCRRecord
	if err := decodeJSON(resp, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) OCRHistory(ctx context.Context) ([]OCRRecord, error) {
	resp, err := c.get(ctx, "/api/ocr/history")
	if err != nil {
		return nil, err
	}
	var records []OCRRecord
	if err := decodeJSON(resp, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) DeleteOCR(ctx context.Context, id string) error {
	resp, err := c.delete(ctx, "/api/ocr/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// SolveImage reads an expression from a photo and solves it.
func (c *Client) SolveImage(ctx context.Context, f File) (*MathSolution, error) {
	resp, err := c.postMultipart(ctx, "/api/math/solve", nil, &f)
	if err != nil {
		return nil, err
	}
	var m MathSolution
	if err := decodeJSON(resp, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) SolveText(ctx context.Context, expression string) (*MathSolution, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, errors.New("expression cannot be empty")
	}
	resp, err := c.postJSON(ctx, "/api/math/solve-text", map[string]string{"expression": expression})
	if err != nil {
		return nil, err
	}
	var m MathSolution
	if err := decodeJSON(resp, &m); err != nil {
		return nil, err
	}
	if m.Expression == "" {
		m.Expression = expression
	}
	return &m, nil
}

func (c *Client) MathHistory(ctx context.Context) ([]MathSolution, error) {
	resp, err := c.get(ctx, "/api/math/history")
	if err != nil {
		return nil, err
	}
	var items []MathSolution
	if err := decodeJSON(resp, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) DeleteMath(ctx context.Context, id string) error {
	resp, err := c.delete(ctx, "/api/math/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// SubmitEssay scores an essay for grammar, structure and content.
func (c *Client) SubmitEssay(ctx context.Context, title, content string) (*Essay, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("essay content cannot be empty")
	}
	resp, err := c.postJSON(ctx, "/api/essays/submit", map[string]string{
		"title":   title,
		"content": content,
	})
	if err != nil {
		return nil, err
	}
	var e Essay
	if err := decodeJSON(resp, &e); err != nil {
		return nil, err
	}
	if e.Title == "" {
		e.Title = title
	}
	return &e, nil
}

func (c *Client) ListEssays(ctx context.Context) ([]Essay, error) {
	resp, err := c.get(ctx, "/api/essays/")
	if err != nil {
		return nil, err
	}
	var essays []Essay
	if err := decodeJSON(resp, &essays); err != nil {
		return nil, err
	}
	return essays, nil
}

func (c *Client) CheckPlagiarism(ctx context.Context, content string) (*PlagiarismReport, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("content cannot be empty")
	}
	resp, err := c.postJSON(ctx, "/api/plagiarism/check", map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	var r PlagiarismReport
	if err := decodeJSON(resp, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SendMessage asks the tutor a question. The server keeps the conversation.
func (c *Client) SendMessage(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.New("message cannot be empty")
	}
	resp, err := c.postJSON(ctx, "/api/chat/message", map[string]string{"message": message})
	if err != nil {
		return "", err
	}
	var r struct {
		Reply string `json:"reply"`
	}
	if err := decodeJSON(resp, &r); err != nil {
		return "", err
	}
	return r.Reply, nil
}

func (c *Client) ChatHistory(ctx context.Context) ([]ChatMessage, error) {
	resp, err := c.get(ctx, "/api/chat/history")
	if err != nil {
		return nil, err
	}
	var msgs []ChatMessage
	if err := decodeJSON(resp, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) ClearChat(ctx context.Context) (*ClearResult, error) {
	resp, err := c.delete(ctx, "/api/chat/history")
	if err != nil {
		return nil, err
	}
	var r ClearResult
	if err := decodeJSON(resp, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GenerateLearningPath generates a study roadmap for the given focus category.
func (c *Client) GenerateLearningPath(ctx context.Context, category string) (*LearningPath, error) {
	if strings.TrimSpace(category) == "" {
		category = DefaultCategory
	}
	resp, err := c.get(ctx, "/api/learning-path/generate?category="+url.QueryEscape(category))
	if err != nil {
		return nil, err
	}
	var lp LearningPath
	if err := decodeJSON(resp, &lp); err != nil {
		return nil, err
	}
	return &lp, nil
}
