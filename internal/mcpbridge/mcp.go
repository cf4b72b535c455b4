// Package mcpbridge exposes the SmartLearn study tools to MCP clients. Every
// tool call runs as the logged-in user and is refused while nobody is.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/session"
)

// API is the part of client.Client the tools call.
type API interface {
	SolveText(ctx context.Context, expression string) (*client.MathSolution, error)
	SubmitEssay(ctx context.Context, title, content string) (*client.Essay, error)
	CheckPlagiarism(ctx context.Context, content string) (*client.PlagiarismReport, error)
	SendMessage(ctx context.Context, message string) (string, error)
	GenerateLearningPath(ctx context.Context, category string) (*client.LearningPath, error)
	GenerateQuiz(ctx context.Context, req client.QuizRequest) (*client.Quiz, error)
	SummarizeYouTube(ctx context.Context, videoURL, summaryType string) (*client.Video, error)
}

// Gate resolves the logged-in user. *guard.Guard satisfies it.
type Gate interface {
	Require(ctx context.Context) (*session.User, error)
}

// Deps holds dependencies for the MCP server.
type Deps struct {
	API    API
	Gate   Gate
	Logger *slog.Logger
}

// NewServer creates an MCP server with the study tools and the profile
// resource registered.
func NewServer(deps Deps, version string) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := server.NewMCPServer(
		"smartlearn",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("SmartLearn study assistant: math solving, essay grading, plagiarism checks, tutoring, quizzes and learning paths for the logged-in user."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("solve_math",
			mcp.WithDescription("Solve a math problem step by step."),
			mcp.WithString("expression", mcp.Description("The problem, e.g. 2x + 3 = 7"), mcp.Required()),
		),
		gated(deps, mcpSolveMath(deps)),
	)

	s.AddTool(
		mcp.NewTool("grade_essay",
			mcp.WithDescription("Grade an essay for grammar, structure and content, and store it in the user's essay history."),
			mcp.WithString("title", mcp.Description("Essay title"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Essay text"), mcp.Required()),
		),
		gated(deps, mcpGradeEssay(deps)),
	)

	s.AddTool(
		mcp.NewTool("check_plagiarism",
			mcp.WithDescription("Estimate similarity to earlier submissions and the probability the text is AI-generated."),
			mcp.WithString("content", mcp.Description("Text to check"), mcp.Required()),
		),
		gated(deps, mcpCheckPlagiarism(deps)),
	)

	s.AddTool(
		mcp.NewTool("ask_tutor",
			mcp.WithDescription("Send a message to the virtual tutor. The tutor remembers the user's chat history."),
			mcp.WithString("message", mcp.Description("Question or message for the tutor"), mcp.Required()),
		),
		gated(deps, mcpAskTutor(deps)),
	)

	s.AddTool(
		mcp.NewTool("generate_learning_path",
			mcp.WithDescription("Build a four-phase learning roadmap from the user's quiz and essay history."),
			mcp.WithString("category", mcp.Description("Focus area (default "+client.DefaultCategory+")")),
		),
		gated(deps, mcpLearningPath(deps)),
	)

	s.AddTool(
		mcp.NewTool("generate_quiz",
			mcp.WithDescription("Generate a multiple-choice quiz from study material."),
			mcp.WithString("content", mcp.Description("Source material"), mcp.Required()),
			mcp.WithString("difficulty",
				mcp.Description("Question difficulty"),
				mcp.Enum(client.DifficultyEasy, client.DifficultyMedium, client.DifficultyHard),
			),
			mcp.WithNumber("num_questions", mcp.Description("Number of questions (default 5)")),
		),
		gated(deps, mcpGenerateQuiz(deps)),
	)

	s.AddTool(
		mcp.NewTool("summarize_youtube",
			mcp.WithDescription("Summarize a YouTube lecture and store it in the user's video history."),
			mcp.WithString("url", mcp.Description("YouTube video URL"), mcp.Required()),
			mcp.WithString("summary_type",
				mcp.Description("Summary style (default brief)"),
				mcp.Enum(client.SummaryBrief, client.SummaryBullet, client.SummaryDetailed),
			),
		),
		gated(deps, mcpSummarizeYouTube(deps)),
	)

	s.AddResource(
		mcp.NewResource(
			"user://profile",
			"User Profile",
			mcp.WithResourceDescription("The logged-in SmartLearn user as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

// gated refuses the call unless a user is logged in.
func gated(deps Deps, next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		user, err := deps.Gate.Require(ctx)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		deps.Logger.Debug("mcp tool call", "tool", req.Params.Name, "user", user.Username)
		return next(ctx, req)
	}
}

func mcpSolveMath(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		expression, err := req.RequireString("expression")
		if err != nil || expression == "" {
			return mcpError("expression is required"), nil
		}
		sol, err := deps.API.SolveText(ctx, expression)
		if err != nil {
			return mcpError(fmt.Sprintf("solve failed: %v", err)), nil
		}
		return mcpText(sol.Solution), nil
	}
}

func mcpGradeEssay(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcpError("title is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		essay, err := deps.API.SubmitEssay(ctx, title, content)
		if err != nil {
			return mcpError(fmt.Sprintf("grading failed: %v", err)), nil
		}
		return mcpJSON(essay.Grade)
	}
}

func mcpCheckPlagiarism(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		report, err := deps.API.CheckPlagiarism(ctx, content)
		if err != nil {
			return mcpError(fmt.Sprintf("plagiarism check failed: %v", err)), nil
		}
		return mcpJSON(report)
	}
}

func mcpAskTutor(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil || message == "" {
			return mcpError("message is required"), nil
		}
		reply, err := deps.API.SendMessage(ctx, message)
		if err != nil {
			return mcpError(fmt.Sprintf("tutor unavailable: %v", err)), nil
		}
		return mcpText(reply), nil
	}
}

func mcpLearningPath(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category := req.GetString("category", client.DefaultCategory)
		path, err := deps.API.GenerateLearningPath(ctx, category)
		if err != nil {
			return mcpError(fmt.Sprintf("learning path failed: %v", err)), nil
		}
		return mcpJSON(path)
	}
}

func mcpGenerateQuiz(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		n := req.GetInt("num_questions", 5)
		if n <= 0 {
			n = 5
		}
		if n > 20 {
			n = 20
		}
		quiz, err := deps.API.GenerateQuiz(ctx, client.QuizRequest{
			Content:      content,
			Difficulty:   req.GetString("difficulty", client.DifficultyMedium),
			NumQuestions: n,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("quiz generation failed: %v", err)), nil
		}
		return mcpJSON(quiz)
	}
}

func mcpSummarizeYouTube(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		videoURL, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}
		video, err := deps.API.SummarizeYouTube(ctx, videoURL, req.GetString("summary_type", client.SummaryBrief))
		if err != nil {
			return mcpError(fmt.Sprintf("summary failed: %v", err)), nil
		}
		return mcpText(video.Summary), nil
	}
}

func mcpResourceProfile(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		user, err := deps.Gate.Require(ctx)
		if err != nil {
			return nil, err
		}

		b, err := json.Marshal(user)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
