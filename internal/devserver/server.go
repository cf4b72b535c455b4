// Package devserver is a local stand-in for the SmartLearn API. It serves the
// same routes and payload shapes as the production backend, keeps accounts and
// history in SQLite, and produces AI output through an assist.Generator.
package devserver

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/kalambet/smartlearn/internal/assist"
	"github.com/kalambet/smartlearn/internal/storage"
)

const (
	DefaultTokenTTL = 24 * time.Hour
	DefaultResetTTL = time.Hour

	maxJSONBodySize  = 1 << 20   // 1MB
	maxImageSize     = 20 << 20  // 20MB
	maxDocumentSize  = 20 << 20  // 20MB
	maxVideoSize     = 512 << 20 // 512MB
	multipartMemory  = 32 << 20
	historyLimit     = 100
	performanceLimit = 10
	chatContextTurns = 10
)

// Deps configures the dev server handler.
type Deps struct {
	Store     *storage.Store
	Generator assist.Generator
	// Secret signs access and reset tokens. A random secret is generated when
	// empty, so tokens do not survive a restart.
	Secret []byte
	// FrontendURL receives OAuth redirects (/dashboard?token=...) and appears
	// in password reset links.
	FrontendURL string
	TokenTTL    time.Duration
	ResetTTL    time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// UploadDir keeps uploaded videos on disk. Empty discards the bytes and
	// records only metadata.
	UploadDir string
	// OnResetToken is called with each issued password reset token, in place
	// of sending an email.
	OnResetToken func(email, token string)
	Logger       *slog.Logger
	Now          func() time.Time
}

func NewHandler(deps Deps) (http.Handler, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("devserver: store is required")
	}
	if deps.Generator == nil {
		deps.Generator = assist.NewCanned()
	}
	if len(deps.Secret) == 0 {
		deps.Secret = make([]byte, 32)
		if _, err := rand.Read(deps.Secret); err != nil {
			return nil, fmt.Errorf("generating token secret: %w", err)
		}
	}
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = DefaultTokenTTL
	}
	if deps.ResetTTL <= 0 {
		deps.ResetTTL = DefaultResetTTL
	}
	if deps.BcryptCost == 0 {
		deps.BcryptCost = bcrypt.DefaultCost
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.FrontendURL = strings.TrimRight(deps.FrontendURL, "/")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(deps.Logger))
	r.Use(cors(deps.FrontendURL))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Smart Multimodal Learning Platform API"})
	})
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", handleSignup(deps))
		r.Post("/login", handleLogin(deps))
		r.Post("/forgot-password", handleForgotPassword(deps))
		r.Post("/reset-password", handleResetPassword(deps))
		r.Get("/{provider}/login", handleOAuthLogin(deps))
		r.Get("/{provider}/callback", handleOAuthCallback(deps))
		r.With(bearerAuth(deps)).Get("/me", handleMe(deps))
	})

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(deps))

		r.Post("/api/videos/upload", handleUploadVideo(deps))
		r.Get("/api/videos/", handleListVideos(deps))
		r.Get("/api/videos", handleListVideos(deps))
		r.Post("/api/videos/youtube", handleSummarizeYouTube(deps))
		r.Post("/api/videos/{id}/summarize", handleSummarizeVideo(deps))
		r.Post("/api/vdo-ocr/{id}", handleVideoOCR(deps))

		r.Post("/api/quizzes/generate", handleGenerateQuiz(deps))
		r.Get("/api/quizzes/", handleListQuizzes(deps))
		r.Get("/api/quizzes", handleListQuizzes(deps))

		r.Post("/api/ocr/upload", handleOCRUpload(deps))
		r.Get("/api/ocr/history", handleOCRHistory(deps))
		r.Delete("/api/ocr/{id}", handleDeleteOCR(deps))

		r.Post("/api/math/solve", handleSolveImage(deps))
		r.Post("/api/math/solve-text", handleSolveText(deps))
		r.Get("/api/math/history", handleMathHistory(deps))
		r.Delete("/api/math/{id}", handleDeleteMath(deps))

		r.Post("/api/essays/submit", handleSubmitEssay(deps))
		r.Get("/api/essays/", handleListEssays(deps))
		r.Get("/api/essays", handleListEssays(deps))

		r.Post("/api/chat/message", handleChatMessage(deps))
		r.Get("/api/chat/history", handleChatHistory(deps))
		r.Delete("/api/chat/history", handleClearChat(deps))

		r.Post("/api/plagiarism/check", handleCheckPlagiarism(deps))

		r.Get("/api/learning-path/generate", handleLearningPath(deps))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// httpError writes the API's error shape: {"detail": "..."}.
func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

// fieldError is one entry of a 422 validation response.
type fieldError struct {
	Type string `json:"type"`
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
}

func validationError(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": errs})
}

func missing(field string) fieldError {
	return fieldError{Type: "missing", Loc: []any{"body", field}, Msg: "Field required"}
}

// decodeBody reads a JSON object body into v. It writes the error response
// and returns false when the body is unusable.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		validationError(w, []fieldError{{Type: "json_invalid", Loc: []any{"body"}, Msg: "JSON decode error: " + err.Error()}})
		return false
	}
	return true
}

// naiveTime marshals as a zone-less UTC datetime with microseconds, the
// format the production API emits.
type naiveTime struct {
	time.Time
}

const naiveLayout = "2006-01-02T15:04:05.999999"

func (t naiveTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(naiveLayout))
}

func (t *naiveTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.Parse(naiveLayout, raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (d Deps) now() naiveTime {
	return naiveTime{d.Now().UTC()}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// cors lets the configured frontend origin call the API from a browser.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin != "" && r.Header.Get("Origin") == origin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
					w.WriteHeader(http.StatusOK)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
