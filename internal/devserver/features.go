package devserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	"github.com/kalambet/smartlearn/internal/assist"
	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/document"
	"github.com/kalambet/smartlearn/internal/storage"
)

const solveFailedText = "I encountered an error while trying to solve this problem. Please check the expression and try again."

// parseMultipart reads a multipart body of at most limit bytes. Large files
// spill to temporary files that the caller removes with
// r.MultipartForm.RemoveAll.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, "File too large (limit %d MB)", limit>>20)
			return false
		}
		validationError(w, []fieldError{{Type: "value_error", Loc: []any{"body"}, Msg: "Expected multipart form data: " + err.Error()}})
		return false
	}
	return true
}

// uploadedFile returns the "file" part. It writes a 422 when the part is
// required and absent.
func uploadedFile(w http.ResponseWriter, r *http.Request, required bool) (multipart.File, *multipart.FileHeader, bool) {
	f, fh, err := r.FormFile("file")
	if err != nil {
		if required {
			validationError(w, []fieldError{missing("file")})
		}
		return nil, nil, false
	}
	return f, fh, true
}

func readAll(f multipart.File) ([]byte, error) {
	defer f.Close()
	return io.ReadAll(f)
}

func isKind(fh *multipart.FileHeader, prefix string) bool {
	return strings.HasPrefix(fh.Header.Get("Content-Type"), prefix)
}

// --- Videos ---

func handleUploadVideo(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseMultipart(w, r, maxVideoSize) {
			return
		}
		defer r.MultipartForm.RemoveAll()
		f, fh, ok := uploadedFile(w, r, true)
		if !ok {
			return
		}
		defer f.Close()
		if !isKind(fh, "video/") {
			httpError(w, http.StatusBadRequest, "File must be a video")
			return
		}

		user := currentUser(r.Context())
		doc := videoDoc{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			Title:     fh.Filename,
			Type:      "upload",
			Status:    "uploaded",
			CreatedAt: deps.now(),
		}
		var dst io.Writer = io.Discard
		if deps.UploadDir != "" {
			doc.FilePath = filepath.Join(deps.UploadDir, doc.ID+filepath.Ext(fh.Filename))
			out, err := os.Create(doc.FilePath)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "failed to store video: %v", err)
				return
			}
			defer out.Close()
			dst = out
		}
		n, err := io.Copy(dst, f)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to store video: %v", err)
			return
		}
		doc.FileSize = n

		if err := saveDoc(deps, user.ID, storage.KindVideo, doc.ID, doc.CreatedAt.Time, doc); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save video: %v", err)
			return
		}
		deps.Logger.Info("video uploaded", "user_id", user.ID, "video_id", doc.ID, "bytes", n)
		writeJSON(w, http.StatusOK, map[string]string{
			"id":       doc.ID,
			"filename": fh.Filename,
			"status":   doc.Status,
		})
	}
}

func handleListVideos(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := listDocs[videoDoc](deps, currentUser(r.Context()).ID, storage.KindVideo, false)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list videos: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

// youTubeID extracts the video id from the URL forms YouTube shares.
func youTubeID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	var id string
	switch u.Hostname() {
	case "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
	case "www.youtube.com", "youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.Split(u.Path, "/")[2]
		case strings.HasPrefix(u.Path, "/v/"):
			id = strings.Split(u.Path, "/")[2]
		}
	}
	return id, id != ""
}

func summaryType(r *http.Request) string {
	if t := r.FormValue("summary_type"); t != "" {
		return t
	}
	return client.SummaryDetailed
}

// summarize never fails: generation errors become the summary text.
func summarize(deps Deps, r *http.Request, transcript, kind string) string {
	summary, err := deps.Generator.Summarize(r.Context(), transcript, kind)
	if err != nil {
		deps.Logger.Warn("summary generation failed", "summary_type", kind, "error", err)
		return fmt.Sprintf("Error generating %s summary.", kind)
	}
	return summary
}

func handleSummarizeYouTube(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
		rawURL := r.FormValue("url")
		if rawURL == "" {
			validationError(w, []fieldError{missing("url")})
			return
		}
		videoID, ok := youTubeID(rawURL)
		if !ok {
			httpError(w, http.StatusBadRequest, "Invalid YouTube URL")
			return
		}

		// No transcript service is reachable from the dev server, so the
		// summary is built from a stand-in transcript.
		transcript := fmt.Sprintf("This is a simulated transcript for the YouTube lecture %s. "+
			"The presenter introduces the topic and defines the core vocabulary. "+
			"Several worked examples show how the ideas apply in practice. "+
			"The lecture closes with a recap of the key takeaways and suggested exercises.", videoID)

		user := currentUser(r.Context())
		kind := summaryType(r)
		doc := videoDoc{
			ID:          uuid.New().String(),
			UserID:      user.ID,
			Title:       "YouTube: " + videoID,
			URL:         rawURL,
			Type:        "youtube",
			Status:      "summarized",
			Summary:     summarize(deps, r, transcript, kind),
			SummaryType: kind,
			CreatedAt:   deps.now(),
		}
		if err := saveDoc(deps, user.ID, storage.KindVideo, doc.ID, doc.CreatedAt.Time, doc); err != nil {
			httpError(w, http.StatusInternalServerError, "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

// hasFile reports whether an uploaded video's bytes are available. Uploads
// kept without an upload dir count as present.
func (v videoDoc) hasFile() bool {
	if v.Type == "youtube" {
		return false
	}
	if v.FilePath == "" {
		return v.FileSize > 0
	}
	_, err := os.Stat(v.FilePath)
	return err == nil
}

func loadVideo(deps Deps, w http.ResponseWriter, r *http.Request) (videoDoc, bool) {
	doc, err := getDoc[videoDoc](deps, currentUser(r.Context()).ID, storage.KindVideo, chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "Video not found")
		return doc, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load video: %v", err)
		return doc, false
	}
	return doc, true
}

func handleSummarizeVideo(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
		doc, ok := loadVideo(deps, w, r)
		if !ok {
			return
		}
		if !doc.hasFile() {
			httpError(w, http.StatusBadRequest, "Video file missing on server")
			return
		}

		transcript := fmt.Sprintf("This is a simulated transcript for the lecture '%s'. "+
			"The instructor explains how large systems stay maintainable by decoupling components. "+
			"Scalability depends on careful state management and clean interfaces. "+
			"The recording ends with a short review of the main design principles.", doc.Title)

		kind := summaryType(r)
		now := deps.now()
		doc.Status = "summarized"
		doc.Summary = summarize(deps, r, transcript, kind)
		doc.SummaryType = kind
		doc.LastUpdated = &now
		if err := saveDoc(deps, doc.UserID, storage.KindVideo, doc.ID, doc.CreatedAt.Time, doc); err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to process video: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"summary": doc.Summary, "status": doc.Status})
	}
}

func handleVideoOCR(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := loadVideo(deps, w, r)
		if !ok {
			return
		}
		if !doc.hasFile() {
			httpError(w, http.StatusBadRequest, "Video file not found on disk. Video OCR only works for uploaded files.")
			return
		}

		// The dev server has no frame extractor; every video reads as text-free.
		doc.VideoOCRText = "No text detected in video."
		if err := saveDoc(deps, doc.UserID, storage.KindVideo, doc.ID, doc.CreatedAt.Time, doc); err != nil {
			httpError(w, http.StatusInternalServerError, "Video OCR failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"text": doc.VideoOCRText, "video_id": doc.ID})
	}
}

// --- Quizzes ---

// documentText extracts the text of an uploaded document. Formats without
// extractable text contribute nothing.
func documentText(deps Deps, f multipart.File, fh *multipart.FileHeader) string {
	defer f.Close()
	tmp, err := os.CreateTemp("", "smartlearn-doc-*"+filepath.Ext(fh.Filename))
	if err != nil {
		deps.Logger.Warn("failed to buffer document", "error", err)
		return ""
	}
	defer os.Remove(tmp.Name())
	_, err = io.Copy(tmp, f)
	tmp.Close()
	if err != nil {
		deps.Logger.Warn("failed to buffer document", "error", err)
		return ""
	}
	text, err := document.ExtractText(tmp.Name())
	if err != nil {
		deps.Logger.Debug("no text extracted from document", "filename", fh.Filename, "error", err)
		return ""
	}
	return text
}

func handleGenerateQuiz(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseMultipart(w, r, maxDocumentSize) {
			return
		}
		defer r.MultipartForm.RemoveAll()

		difficulty := r.FormValue("difficulty")
		if difficulty == "" {
			difficulty = client.DifficultyMedium
		}
		n := 5
		if raw := r.FormValue("num_questions"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				validationError(w, []fieldError{{Type: "int_parsing", Loc: []any{"body", "num_questions"}, Msg: "Input should be a valid integer, unable to parse string as an integer"}})
				return
			}
			if v < 1 {
				validationError(w, []fieldError{{Type: "greater_than_equal", Loc: []any{"body", "num_questions"}, Msg: "Input should be greater than or equal to 1"}})
				return
			}
			n = v
		}

		source := r.FormValue("content")
		if f, fh, ok := uploadedFile(w, r, false); ok {
			if text := documentText(deps, f, fh); text != "" {
				if source != "" {
					source += "\n"
				}
				source += text
			}
		}
		if strings.TrimSpace(source) == "" {
			httpError(w, http.StatusBadRequest, "No content provided")
			return
		}

		draft, err := deps.Generator.Quiz(r.Context(), source, difficulty, n)
		if errors.Is(err, assist.ErrNoContent) {
			httpError(w, http.StatusBadRequest, "No content provided")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to generate quiz: %v", err)
			return
		}

		user := currentUser(r.Context())
		doc := quizDoc{
			ID:         uuid.New().String(),
			UserID:     user.ID,
			Title:      draft.Title,
			Questions:  draft.Questions,
			Difficulty: difficulty,
			CreatedAt:  deps.now(),
		}
		if doc.Questions == nil {
			doc.Questions = []client.Question{}
		}
		if err := saveDoc(deps, user.ID, storage.KindQuiz, doc.ID, doc.CreatedAt.Time, doc); err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to generate quiz: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":        doc.ID,
			"title":     doc.Title,
			"questions": doc.Questions,
		})
	}
}

func handleListQuizzes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := listDocs[quizDoc](deps, currentUser(r.Context()).ID, storage.KindQuiz, true)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list quizzes: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

// --- Handwriting OCR ---

func handleOCRUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseMultipart(w, r, maxImageSize) {
			return
		}
		defer r.MultipartForm.RemoveAll()
		f, fh, ok := uploadedFile(w, r, true)
		if !ok {
			return
		}
		if !isKind(fh, "image/") {
			f.Close()
			httpError(w, http.StatusBadRequest, "Only image files are supported for OCR.")
			return
		}
		data, err := readAll(f)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to process image OCR.")
			return
		}
		mode := r.FormValue("mode")
		if mode == "" {
			mode = client.OCRDefault
		}

		text, err := deps.Generator.Transcribe(r.Context(), data, fh.Header.Get("Content-Type"), mode)
		if err != nil {
			deps.Logger.Warn("transcription failed", "error", err)
			text = ""
		}
		if strings.TrimSpace(text) == "" {
			text = "No legible text could be extracted from this image."
		}

		user := currentUser(r.Context())
		doc := ocrDoc{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			Title:     fh.Filename,
			Text:      text,
			Type:      "handwriting",
			Mode:      mode,
			CreatedAt: deps.now(),
		}
		if err := saveDoc(deps, user.ID, storage.KindOCR, doc.ID, doc.CreatedAt.Time, doc); err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to process image OCR.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": doc.ID, "text": doc.Text, "mode": doc.Mode})
	}
}

func handleOCRHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := listDocs[ocrDoc](deps, currentUser(r.Context()).ID, storage.KindOCR, false)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list OCR history: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func deleteHandler(deps Deps, kind storage.Kind, notFound string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteRecord(currentUser(r.Context()).ID, kind, chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "%s", notFound)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to delete: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

func handleDeleteOCR(deps Deps) http.HandlerFunc {
	return deleteHandler(deps, storage.KindOCR, "OCR record not found.")
}

// --- Math ---

func solve(deps Deps, r *http.Request, expression string) string {
	solution, err := deps.Generator.Solve(r.Context(), expression)
	if err != nil {
		deps.Logger.Debug("solve failed", "error", err)
		return solveFailedText
	}
	return solution
}

func saveMath(deps Deps, w http.ResponseWriter, doc mathDoc) bool {
	if err := saveDoc(deps, doc.UserID, storage.KindMath, doc.ID, doc.CreatedAt.Time, doc); err != nil {
		httpError(w, http.StatusInternalServerError, "Failed to solve math expression.")
		return false
	}
	return true
}

func handleSolveImage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseMultipart(w, r, maxImageSize) {
			return
		}
		defer r.MultipartForm.RemoveAll()
		f, fh, ok := uploadedFile(w, r, true)
		if !ok {
			return
		}
		if !isKind(fh, "image/") {
			f.Close()
			httpError(w, http.StatusBadRequest, "Invalid file type. Please upload an image.")
			return
		}
		data, err := readAll(f)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to process math image.")
			return
		}

		expression, err := deps.Generator.Transcribe(r.Context(), data, fh.Header.Get("Content-Type"), client.OCRDefault)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to process math image.")
			return
		}
		expression = strings.TrimSpace(expression)

		user := currentUser(r.Context())
		doc := mathDoc{
			ID:         uuid.New().String(),
			UserID:     user.ID,
			Expression: expression,
			Solution:   solve(deps, r, expression),
			Type:       "image",
			CreatedAt:  deps.now(),
		}
		if !saveMath(deps, w, doc) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": doc.ID, "expression": doc.Expression, "solution": doc.Solution})
	}
}

func handleSolveText(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Expression *string `json:"expression"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Expression == nil {
			validationError(w, []fieldError{missing("expression")})
			return
		}
		if strings.TrimSpace(*req.Expression) == "" {
			httpError(w, http.StatusBadRequest, "Expression cannot be empty.")
			return
		}

		user := currentUser(r.Context())
		doc := mathDoc{
			ID:         uuid.New().String(),
			UserID:     user.ID,
			Expression: *req.Expression,
			Solution:   solve(deps, r, *req.Expression),
			Type:       "text",
			CreatedAt:  deps.now(),
		}
		if !saveMath(deps, w, doc) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": doc.ID, "solution": doc.Solution})
	}
}

func handleMathHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := listDocs[mathDoc](deps, currentUser(r.Context()).ID, storage.KindMath, false)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list math history: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func handleDeleteMath(deps Deps) http.HandlerFunc {
	return deleteHandler(deps, storage.KindMath, "Item not found")
}

// --- Essays ---

func handleSubmitEssay(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title   *string `json:"title"`
			Content *string `json:"content"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		var errs []fieldError
		if req.Title == nil {
			errs = append(errs, missing("title"))
		}
		if req.Content == nil {
			errs = append(errs, missing("content"))
		}
		if len(errs) > 0 {
			validationError(w, errs)
			return
		}

		grade, err := deps.Generator.Grade(r.Context(), *req.Title, *req.Content)
		if errors.Is(err, assist.ErrNoContent) {
			httpError(w, http.StatusBadRequest, "No content provided")
			return
		}
		if err != nil {
			deps.Logger.Warn("grading failed", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to grade essay")
			return
		}
		if grade.Suggestions == nil {
			grade.Suggestions = []string{}
		}

		user := currentUser(r.Context())
		doc := essayDoc{
			ID:        uuid.New().String(),
			UserID:    user.ID,
			Title:     *req.Title,
			Content:   *req.Content,
			Grade:     grade,
			CreatedAt: deps.now(),
		}
		if err := saveDoc(deps, user.ID, storage.KindEssay, doc.ID, doc.CreatedAt.Time, doc); err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to grade essay")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": doc.ID, "grade": doc.Grade})
	}
}

func handleListEssays(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := listDocs[essayDoc](deps, currentUser(r.Context()).ID, storage.KindEssay, true)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list essays: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

// --- Plagiarism ---

func handleCheckPlagiarism(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Content *string `json:"content"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Content == nil {
			validationError(w, []fieldError{missing("content")})
			return
		}

		user := currentUser(r.Context())
		essays, err := listDocs[essayDoc](deps, user.ID, storage.KindEssay, true)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to check plagiarism")
			return
		}
		corpus := make([]string, 0, len(essays))
		for _, e := range essays {
			corpus = append(corpus, e.Content)
		}

		report, err := deps.Generator.CheckPlagiarism(r.Context(), *req.Content, corpus)
		if errors.Is(err, assist.ErrNoContent) {
			httpError(w, http.StatusBadRequest, "No content provided")
			return
		}
		if err != nil {
			deps.Logger.Warn("plagiarism check failed", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to check plagiarism")
			return
		}
		if report.Findings == nil {
			report.Findings = []string{}
		}

		preview := []rune(*req.Content)
		if len(preview) > 100 {
			preview = preview[:100]
		}
		doc := plagiarismDoc{
			ID:             uuid.New().String(),
			UserID:         user.ID,
			ContentPreview: string(preview),
			Report:         report,
			CreatedAt:      deps.now(),
		}
		if err := saveDoc(deps, user.ID, storage.KindPlagiarism, doc.ID, doc.CreatedAt.Time, doc); err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to check plagiarism")
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// --- Tutor chat ---

func handleChatMessage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message *string `json:"message"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Message == nil {
			validationError(w, []fieldError{missing("message")})
			return
		}

		user := currentUser(r.Context())
		recent, err := deps.Store.ListRecords(user.ID, storage.KindChat, chatContextTurns, false)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to get tutor response")
			return
		}
		slices.Reverse(recent)
		msgs, err := decodeRecords[chatDoc](recent)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to get tutor response")
			return
		}
		history := make([]assist.Turn, 0, len(msgs))
		for _, m := range msgs {
			history = append(history, assist.Turn{Role: m.Role, Content: m.Content})
		}

		reply, err := deps.Generator.Reply(r.Context(), history, *req.Message)
		if err != nil {
			deps.Logger.Warn("tutor reply failed", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to get tutor response")
			return
		}

		now := deps.Now().UTC()
		for i, m := range []struct{ role, content string }{
			{client.RoleUser, *req.Message},
			{client.RoleAssistant, reply},
		} {
			at := now.Add(time.Duration(i) * time.Microsecond)
			doc := chatDoc{
				ID:        shortuuid.New(),
				UserID:    user.ID,
				Role:      m.role,
				Content:   m.content,
				Timestamp: naiveTime{at},
			}
			if err := saveDoc(deps, user.ID, storage.KindChat, doc.ID, at, doc); err != nil {
				httpError(w, http.StatusInternalServerError, "Failed to get tutor response")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
	}
}

func handleChatHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := listDocs[chatDoc](deps, currentUser(r.Context()).ID, storage.KindChat, true)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load chat history: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func handleClearChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Store.DeleteRecords(currentUser(r.Context()).ID, storage.KindChat)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to clear chat history: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "deleted_count": n})
	}
}

// --- Learning path ---

// pathRecordID keys the single stored learning path of a user.
const pathRecordID = "current"

func handleLearningPath(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		if category == "" {
			category = client.DefaultCategory
		}
		user := currentUser(r.Context())

		stats := assist.PathStats{Username: user.Username}
		for kind, dst := range map[storage.Kind]*int{
			storage.KindQuiz:  &stats.QuizCount,
			storage.KindEssay: &stats.EssayCount,
		} {
			n, err := deps.Store.CountRecords(user.ID, kind)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "Failed to generate learning path")
				return
			}
			*dst = min(n, performanceLimit)
		}

		path, err := deps.Generator.LearningPath(r.Context(), category, stats)
		if err != nil {
			deps.Logger.Warn("learning path generation failed", "error", err)
			httpError(w, http.StatusInternalServerError, "Failed to generate learning path")
			return
		}

		doc := pathDoc{UserID: user.ID, Path: path, UpdatedAt: deps.now()}
		if err := saveDoc(deps, user.ID, storage.KindPath, pathRecordID, doc.UpdatedAt.Time, doc); err != nil {
			httpError(w, http.StatusInternalServerError, "Failed to generate learning path")
			return
		}
		writeJSON(w, http.StatusOK, path)
	}
}
