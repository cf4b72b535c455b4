package mcpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/guard"
	"github.com/kalambet/smartlearn/internal/session"
)

// --- mocks ---

type mockGate struct {
	user *session.User
}

func (g mockGate) Require(context.Context) (*session.User, error) {
	if g.user == nil {
		return nil, guard.ErrLoginRequired
	}
	return g.user, nil
}

type mockAPI struct {
	mu    sync.Mutex
	calls []string
	err   error

	quizReq     client.QuizRequest
	summaryType string
	category    string
}

func (m *mockAPI) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	return m.err
}

func (m *mockAPI) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockAPI) SolveText(_ context.Context, expression string) (*client.MathSolution, error) {
	if err := m.record("SolveText"); err != nil {
		return nil, err
	}
	return &client.MathSolution{ID: "m1", Expression: expression, Solution: `x = 2, so \boxed{x = 2}`}, nil
}

func (m *mockAPI) SubmitEssay(_ context.Context, title, content string) (*client.Essay, error) {
	if err := m.record("SubmitEssay"); err != nil {
		return nil, err
	}
	return &client.Essay{ID: "e1", Title: title, Content: content, Grade: client.Grade{OverallScore: 82, Feedback: "Solid."}}, nil
}

func (m *mockAPI) CheckPlagiarism(context.Context, string) (*client.PlagiarismReport, error) {
	if err := m.record("CheckPlagiarism"); err != nil {
		return nil, err
	}
	return &client.PlagiarismReport{SimilarityScore: 12, Status: "safe"}, nil
}

func (m *mockAPI) SendMessage(_ context.Context, message string) (string, error) {
	if err := m.record("SendMessage"); err != nil {
		return "", err
	}
	return "About " + message + ": start with a definition.", nil
}

func (m *mockAPI) GenerateLearningPath(_ context.Context, category string) (*client.LearningPath, error) {
	if err := m.record("GenerateLearningPath"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.category = category
	m.mu.Unlock()
	return &client.LearningPath{Title: "Your " + category + " Roadmap"}, nil
}

func (m *mockAPI) GenerateQuiz(_ context.Context, req client.QuizRequest) (*client.Quiz, error) {
	if err := m.record("GenerateQuiz"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.quizReq = req
	m.mu.Unlock()
	return &client.Quiz{ID: "q1", Title: "Quiz: Cells", Difficulty: req.Difficulty}, nil
}

func (m *mockAPI) SummarizeYouTube(_ context.Context, videoURL, summaryType string) (*client.Video, error) {
	if err := m.record("SummarizeYouTube"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.summaryType = summaryType
	m.mu.Unlock()
	return &client.Video{ID: "v1", URL: videoURL, Summary: "A lecture about cells."}, nil
}

// --- helpers ---

func newTestDeps(loggedIn bool) (Deps, *mockAPI) {
	api := &mockAPI{}
	gate := mockGate{}
	if loggedIn {
		gate.user = &session.User{ID: "u1", Username: "sam", Email: "sam@example.com"}
	}
	return Deps{API: api, Gate: gate}, api
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestMCPTool_SolveMath(t *testing.T) {
	deps, _ := newTestDeps(true)
	handler := gated(deps, mcpSolveMath(deps))

	result, err := handler(context.Background(), makeCallToolRequest("solve_math", map[string]interface{}{
		"expression": "2x + 3 = 7",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if !strings.Contains(toolText(t, result), `\boxed{x = 2}`) {
		t.Fatalf("expected boxed answer, got %q", toolText(t, result))
	}
}

func TestMCPTool_MissingArgument(t *testing.T) {
	deps, api := newTestDeps(true)

	result, err := mcpSolveMath(deps)(context.Background(), makeCallToolRequest("solve_math", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing expression")
	}
	if api.callCount() != 0 {
		t.Fatalf("API called %d times for invalid input", api.callCount())
	}
}

func TestMCPTool_RequiresLogin(t *testing.T) {
	deps, api := newTestDeps(false)
	handler := gated(deps, mcpAskTutor(deps))

	result, err := handler(context.Background(), makeCallToolRequest("ask_tutor", map[string]interface{}{
		"message": "hello",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error while logged out")
	}
	if toolText(t, result) != guard.ErrLoginRequired.Error() {
		t.Fatalf("unexpected message: %q", toolText(t, result))
	}
	if api.callCount() != 0 {
		t.Fatal("API called while logged out")
	}
}

func TestMCPTool_GradeEssay(t *testing.T) {
	deps, _ := newTestDeps(true)

	result, err := mcpGradeEssay(deps)(context.Background(), makeCallToolRequest("grade_essay", map[string]interface{}{
		"title":   "Cells",
		"content": "Cells are the unit of life.",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var grade client.Grade
	if err := json.Unmarshal([]byte(toolText(t, result)), &grade); err != nil {
		t.Fatalf("failed to parse grade JSON: %v", err)
	}
	if grade.OverallScore != 82 {
		t.Fatalf("expected overall score 82, got %v", grade.OverallScore)
	}
}

func TestMCPTool_APIError(t *testing.T) {
	deps, api := newTestDeps(true)
	api.err = &client.StatusError{Code: 400, Detail: "No content provided"}

	result, err := mcpCheckPlagiarism(deps)(context.Background(), makeCallToolRequest("check_plagiarism", map[string]interface{}{
		"content": "x",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(toolText(t, result), "No content provided") {
		t.Fatalf("server detail missing from %q", toolText(t, result))
	}
}

func TestMCPTool_GenerateQuizDefaults(t *testing.T) {
	deps, api := newTestDeps(true)

	result, err := mcpGenerateQuiz(deps)(context.Background(), makeCallToolRequest("generate_quiz", map[string]interface{}{
		"content":       "Mitochondria produce ATP.",
		"num_questions": float64(50),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if api.quizReq.Difficulty != client.DifficultyMedium {
		t.Errorf("difficulty = %q, want medium", api.quizReq.Difficulty)
	}
	if api.quizReq.NumQuestions != 20 {
		t.Errorf("num_questions = %d, want capped at 20", api.quizReq.NumQuestions)
	}
}

func TestMCPTool_SummarizeYouTubeAndPathDefaults(t *testing.T) {
	deps, api := newTestDeps(true)

	result, err := mcpSummarizeYouTube(deps)(context.Background(), makeCallToolRequest("summarize_youtube", map[string]interface{}{
		"url": "https://youtu.be/abc",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolText(t, result) != "A lecture about cells." || api.summaryType != client.SummaryBrief {
		t.Fatalf("summary = %q (type %q)", toolText(t, result), api.summaryType)
	}

	if _, err := mcpLearningPath(deps)(context.Background(), makeCallToolRequest("generate_learning_path", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.category != client.DefaultCategory {
		t.Fatalf("category = %q, want %q", api.category, client.DefaultCategory)
	}
}

func TestMCPResource_Profile(t *testing.T) {
	deps, _ := newTestDeps(true)
	req := mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: "user://profile"}}

	contents, err := mcpResourceProfile(deps)(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var u session.User
	if err := json.Unmarshal([]byte(tc.Text), &u); err != nil {
		t.Fatalf("failed to parse profile JSON: %v", err)
	}
	if u.Username != "sam" {
		t.Fatalf("expected username sam, got %q", u.Username)
	}

	loggedOut, _ := newTestDeps(false)
	if _, err := mcpResourceProfile(loggedOut)(context.Background(), req); !errors.Is(err, guard.ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps, api := newTestDeps(true)
	solve := gated(deps, mcpSolveMath(deps))
	tutor := gated(deps, mcpAskTutor(deps))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := solve(context.Background(), makeCallToolRequest("solve_math", map[string]interface{}{"expression": "1+1"})); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := tutor(context.Background(), makeCallToolRequest("ask_tutor", map[string]interface{}{"message": "cells"})); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
	if api.callCount() != 10 {
		t.Fatalf("expected 10 API calls, got %d", api.callCount())
	}
}

func TestNewServer_RegistersTools(t *testing.T) {
	deps, _ := newTestDeps(true)
	s := NewServer(deps, "test")

	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"solve_math", "grade_essay", "check_plagiarism", "ask_tutor", "generate_learning_path", "generate_quiz", "summarize_youtube"} {
		if !strings.Contains(string(b), `"`+name+`"`) {
			t.Errorf("tool %s not registered", name)
		}
	}
}
