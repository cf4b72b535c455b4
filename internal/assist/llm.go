package assist

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/kalambet/smartlearn/internal/client"
)

const (
	tutorSystemPrompt = "You are a helpful and knowledgeable virtual tutor. Help the user understand complex concepts, solve problems, and provide educational guidance. Keep responses encouraging and professional."
	// historyTurns bounds the conversation context sent with each tutor message.
	historyTurns = 10
	// promptChars bounds source text embedded in a prompt.
	promptChars = 4000
)

// LLM generates output with an OpenAI-compatible chat model. Failed calls and
// unusable responses fall back to Canned so the dev server keeps answering.
type LLM struct {
	model    llms.Model
	fallback Generator
	logger   *slog.Logger
}

// LLMConfig selects the endpoint. BaseURL defaults to OpenAI's.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func NewLLM(cfg LLMConfig, logger *slog.Logger) (*LLM, error) {
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	return newLLMWithModel(model, logger), nil
}

func newLLMWithModel(model llms.Model, logger *slog.Logger) *LLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{model: model, fallback: NewCanned(), logger: logger}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (g *LLM) complete(ctx context.Context, system, prompt string, opts ...llms.CallOption) (string, error) {
	resp, err := g.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// completeJSON asks for a JSON object and decodes it into v.
func (g *LLM) completeJSON(ctx context.Context, system, prompt string, v any) error {
	out, err := g.complete(ctx, system, prompt, llms.WithJSONMode())
	if err != nil {
		return err
	}
	out = strings.TrimSuffix(strings.TrimPrefix(out, "```json"), "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), v); err != nil {
		return fmt.Errorf("decoding model output: %w", err)
	}
	return nil
}

func (g *LLM) fellBack(op string, err error) {
	g.logger.Warn("LLM call failed, using canned output", "op", op, "error", err)
}

func (g *LLM) Summarize(ctx context.Context, text, summaryType string) (string, error) {
	var prompt string
	switch summaryType {
	case client.SummaryBrief:
		prompt = "Provide a concise summary (3-5 core sentences) of the following content:\n\n"
	case client.SummaryBullet:
		prompt = "Extract 5-10 key points as bullet points from the following content:\n\n"
	default:
		prompt = "Provide a comprehensive summary of the following content, covering the main topics, key arguments, and final conclusions:\n\n"
	}
	out, err := g.complete(ctx, "You are a helpful education assistant specialized in lecture summarization.", prompt+truncate(text, promptChars))
	if err != nil || out == "" {
		g.fellBack("summarize", err)
		return g.fallback.Summarize(ctx, text, summaryType)
	}
	return out, nil
}

func (g *LLM) Quiz(ctx context.Context, text, difficulty string, n int) (QuizDraft, error) {
	prompt := fmt.Sprintf(`Generate a JSON quiz based on this content.
Difficulty: %s
Number of questions: %d

Format:
{"title": "Quiz Title", "questions": [{"question": "The question text?", "options": ["Option A", "Option B", "Option C", "Option D"], "correct_answer": "Option A", "explanation": "Brief explanation"}]}

Content: %s`, difficulty, n, truncate(text, promptChars))

	var draft QuizDraft
	if err := g.completeJSON(ctx, "You are a specialized quiz generator. Return ONLY valid JSON.", prompt, &draft); err != nil || len(draft.Questions) == 0 {
		g.fellBack("quiz", err)
		return g.fallback.Quiz(ctx, text, difficulty, n)
	}
	if draft.Title == "" {
		draft.Title = "Untitled Quiz"
	}
	return draft, nil
}

var ocrPrompts = map[string][2]string{
	client.OCRStructured: {
		"You are an expert OCR system specialized in handwritten documents. Your priority is preserving the structural layout (columns, lists, headers).",
		"Transcribe this handwritten page. Maintain the original layout. If there are columns, use a clear text representation of them. Output ONLY the transcribed text.",
	},
	client.OCRClean: {
		"You are an expert OCR system focused on readability and flow.",
		"Convert this handwritten note into clean, professional digital text. Correct spelling mistakes and format it for high readability. Output ONLY the transcribed text.",
	},
	client.OCRDefault: {
		"You are an accurate OCR system for handwritten text.",
		"Please accurately transcribe all handwritten text in this image. Do not add any commentary. Output ONLY the text found.",
	},
}

func (g *LLM) Transcribe(ctx context.Context, image []byte, mimeType, mode string) (string, error) {
	prompts, ok := ocrPrompts[mode]
	if !ok {
		prompts = ocrPrompts[client.OCRDefault]
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	resp, err := g.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompts[0]),
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompts[1]), llms.ImageURLPart(dataURL)},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		g.fellBack("transcribe", err)
		return g.fallback.Transcribe(ctx, image, mimeType, mode)
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func (g *LLM) Solve(ctx context.Context, expression string) (string, error) {
	prompt := fmt.Sprintf(`Problem: %s

Please provide a rigorous, professional, step-by-step mathematical solution.
Use LaTeX for all mathematical symbols: $...$ inline and $$...$$ for block equations.
Explain the reasoning behind each step and give the final result in a boxed LaTeX expression at the end.`, expression)
	out, err := g.complete(ctx, "You are a professional mathematician and tutor. You provide clear, rigorous, and easy-to-understand solutions.", prompt)
	if err != nil || out == "" {
		g.fellBack("solve", err)
		return g.fallback.Solve(ctx, expression)
	}
	return out, nil
}

func (g *LLM) Grade(ctx context.Context, title, content string) (client.Grade, error) {
	prompt := fmt.Sprintf(`Grade the following essay based on three criteria: Grammar, Structure, and Content.
Provide a score (0-10) for each and a detailed feedback summary with improvement suggestions.

Essay Title: %s
Essay Content: %s

Format JSON:
{"grammar_score": 8, "structure_score": 7, "content_score": 9, "overall_score": 8, "feedback": "...", "suggestions": ["suggestion 1", "suggestion 2"]}`, title, content)

	var grade client.Grade
	if err := g.completeJSON(ctx, "You are a professional academic grader. Return ONLY valid JSON.", prompt, &grade); err != nil {
		g.fellBack("grade", err)
		return g.fallback.Grade(ctx, title, content)
	}
	return grade, nil
}

func (g *LLM) CheckPlagiarism(ctx context.Context, content string, corpus []string) (client.PlagiarismReport, error) {
	prompt := fmt.Sprintf(`Analyze the following content for plagiarism or AI-generated characteristics.
Provide a similarity percentage and a report on potential sources or stylistic inconsistencies.

Content: %s

Format JSON:
{"similarity_score": 15, "ai_probability": 80, "status": "caution/safe/flagged", "findings": ["..."], "detailed_report": "..."}`, content)

	var report client.PlagiarismReport
	if err := g.completeJSON(ctx, "You are a plagiarism detection expert. Return ONLY valid JSON.", prompt, &report); err != nil {
		g.fellBack("plagiarism", err)
		return g.fallback.CheckPlagiarism(ctx, content, corpus)
	}
	return report, nil
}

func (g *LLM) Reply(ctx context.Context, history []Turn, message string) (string, error) {
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	msgs := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, tutorSystemPrompt)}
	for _, t := range history {
		role := llms.ChatMessageTypeHuman
		if t.Role == client.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, t.Content))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, message))

	resp, err := g.model.GenerateContent(ctx, msgs)
	if err != nil || len(resp.Choices) == 0 {
		g.fellBack("reply", err)
		return g.fallback.Reply(ctx, history, message)
	}
	return resp.Choices[0].Content, nil
}

func (g *LLM) LearningPath(ctx context.Context, category string, stats PathStats) (client.LearningPath, error) {
	summary, _ := json.Marshal(map[string]any{
		"user":           stats.Username,
		"focus_category": category,
		"quiz_count":     stats.QuizCount,
		"essay_count":    stats.EssayCount,
	})
	prompt := fmt.Sprintf(`Based on the user's performance summary and their chosen focus category '%s',
generate a personalized learning roadmap with 4 phases tailored to that category.
Each phase should have a goal and 3 specific tasks.

Performance Data: %s

Format JSON:
{"title": "Your Custom Roadmap", "description": "...", "phases": [{"title": "Phase 1: Foundation", "goal": "Master the basics", "tasks": ["Task 1", "Task 2", "Task 3"]}]}`, category, summary)

	var path client.LearningPath
	if err := g.completeJSON(ctx, "You are an expert curriculum designer. Return ONLY valid JSON.", prompt, &path); err != nil || len(path.Phases) == 0 {
		g.fellBack("learning_path", err)
		return g.fallback.LearningPath(ctx, category, stats)
	}
	return path, nil
}
