package devserver

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kalambet/smartlearn/internal/assist"
	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/storage"
)

var ctx = context.Background()

const lecture = `Photosynthesis converts sunlight into chemical fuel. Chlorophyll absorbs light in the chloroplast.
The chloroplast contains stacks called thylakoids. Photosynthesis releases oxygen as a byproduct.
Glucose produced by photosynthesis feeds the plant. Chlorophyll gives leaves their green color.`

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	server *httptest.Server
	store  *storage.Store
	clock  *fakeClock

	mu     sync.Mutex
	resets map[string]string
}

func newTestEnv(t *testing.T, gen assist.Generator) *testEnv {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		store:  store,
		clock:  &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		resets: map[string]string{},
	}
	h, err := NewHandler(Deps{
		Store:       store,
		Generator:   gen,
		Secret:      []byte("test-secret"),
		FrontendURL: "http://frontend.test/",
		BcryptCost:  bcrypt.MinCost,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         env.clock.Now,
		OnResetToken: func(email, token string) {
			env.mu.Lock()
			env.resets[email] = token
			env.mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	env.server = httptest.NewServer(h)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) client(token string) *client.Client {
	return client.New(e.server.URL, client.StaticToken(token), client.WithHTTPClient(e.server.Client()))
}

// account signs up and logs in, returning a client carrying the new token.
func (e *testEnv) account(t *testing.T, username, email string) *client.Client {
	t.Helper()
	anon := e.client("")
	if _, err := anon.Signup(ctx, username, email, "secret1"); err != nil {
		t.Fatalf("Signup(%s): %v", email, err)
	}
	tok, err := anon.Login(ctx, email, "secret1")
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	return e.client(tok.AccessToken)
}

func (e *testEnv) resetToken(email string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resets[email]
}

func statusDetail(t *testing.T, err error, code int) string {
	t.Helper()
	var se *client.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want a *client.StatusError", err)
	}
	if se.Code != code {
		t.Fatalf("status = %d (%s), want %d", se.Code, se.Detail, code)
	}
	return se.Detail
}

func pngFile(t *testing.T, name string) client.File {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 30, 10))); err != nil {
		t.Fatal(err)
	}
	return client.File{Name: name, Content: &buf}
}

func TestSignupLoginMe(t *testing.T) {
	env := newTestEnv(t, nil)
	anon := env.client("")

	u, err := anon.Signup(ctx, "Sam", "sam@example.com", "secret1")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if u.ID == "" || u.Username != "Sam" || u.CreatedAt.IsZero() {
		t.Errorf("signup user = %+v", u)
	}

	_, err = anon.Signup(ctx, "Sam", "SAM@example.com", "secret1")
	if d := statusDetail(t, err, http.StatusBadRequest); d != "Email already registered" {
		t.Errorf("duplicate detail = %q", d)
	}

	tok, err := anon.Login(ctx, "sam@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.TokenType != "bearer" {
		t.Errorf("TokenType = %q", tok.TokenType)
	}
	me, err := anon.Me(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.ID != u.ID || me.Email != "sam@example.com" {
		t.Errorf("Me = %+v, want %+v", me, u)
	}

	stored, err := env.store.GetUserByEmail("sam@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if stored.LastLogin.IsZero() {
		t.Error("login did not record last_login")
	}
}

func TestSignup_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.client("").Signup(ctx, "Al", "not-an-email", "123")
	d := statusDetail(t, err, http.StatusUnprocessableEntity)
	for _, field := range []string{"username", "email", "password"} {
		if !strings.Contains(d, field+":") {
			t.Errorf("detail %q does not mention %s", d, field)
		}
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	env.account(t, "Sam", "sam@example.com")

	_, err := env.client("").Login(ctx, "sam@example.com", "wrong-password")
	if !client.IsUnauthorized(err) {
		t.Fatalf("err = %v, want 401", err)
	}
	_, err = env.client("").Login(ctx, "nobody@example.com", "secret1")
	if d := statusDetail(t, err, http.StatusUnauthorized); d != "Incorrect email or password" {
		t.Errorf("detail = %q", d)
	}
}

func TestBearerAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.account(t, "Sam", "sam@example.com")
	if _, err := c.ListVideos(ctx); err != nil {
		t.Fatalf("authenticated ListVideos: %v", err)
	}

	_, err := env.client("").ListVideos(ctx)
	if d := statusDetail(t, err, http.StatusUnauthorized); d != "Not authenticated" {
		t.Errorf("no token detail = %q", d)
	}

	_, err = env.client("garbage").ListVideos(ctx)
	if d := statusDetail(t, err, http.StatusUnauthorized); d != "Could not validate credentials" {
		t.Errorf("bad token detail = %q", d)
	}

	if _, err := env.client("").ForgotPassword(ctx, "sam@example.com"); err != nil {
		t.Fatal(err)
	}
	_, err = env.client(env.resetToken("sam@example.com")).ListVideos(ctx)
	if !client.IsUnauthorized(err) {
		t.Errorf("reset token accepted as bearer: %v", err)
	}

	env.clock.Advance(DefaultTokenTTL + time.Minute)
	if _, err := c.ListVideos(ctx); !client.IsUnauthorized(err) {
		t.Errorf("expired token err = %v, want 401", err)
	}
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t, nil)
	env.account(t, "Sam", "sam@example.com")
	anon := env.client("")

	msg, err := anon.ForgotPassword(ctx, "sam@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	unknown, err := anon.ForgotPassword(ctx, "ghost@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword(unknown): %v", err)
	}
	if msg != unknown {
		t.Errorf("messages differ for known and unknown emails: %q vs %q", msg, unknown)
	}
	if env.resetToken("ghost@example.com") != "" {
		t.Error("reset token issued for an unknown email")
	}

	token := env.resetToken("sam@example.com")
	if token == "" {
		t.Fatal("no reset token issued")
	}
	if _, err := anon.ResetPassword(ctx, "bogus", "newsecret"); statusDetail(t, err, http.StatusBadRequest) != "Invalid or expired reset token" {
		t.Errorf("bogus token err = %v", err)
	}
	if msg, err := anon.ResetPassword(ctx, token, "newsecret"); err != nil || msg != "Password reset successful" {
		t.Fatalf("ResetPassword = %q, %v", msg, err)
	}
	if _, err := anon.Login(ctx, "sam@example.com", "secret1"); !client.IsUnauthorized(err) {
		t.Errorf("old password still works: %v", err)
	}
	if _, err := anon.Login(ctx, "sam@example.com", "newsecret"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	if _, err := anon.ForgotPassword(ctx, "sam@example.com"); err != nil {
		t.Fatal(err)
	}
	env.clock.Advance(DefaultResetTTL + time.Minute)
	if _, err := anon.ResetPassword(ctx, env.resetToken("sam@example.com"), "another"); !client.HasStatus(err, http.StatusBadRequest) {
		t.Errorf("expired reset token err = %v, want 400", err)
	}
}

func TestOAuthFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	hc := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	follow := func(rawURL string) *url.URL {
		t.Helper()
		resp, err := hc.Get(rawURL)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusTemporaryRedirect {
			t.Fatalf("GET %s = %d, want 307", rawURL, resp.StatusCode)
		}
		loc, err := resp.Location()
		if err != nil {
			t.Fatal(err)
		}
		return loc
	}

	tests := []struct {
		provider, query, wantUsername string
	}{
		{"google", "email=ada%40example.com", "ada"},
		{"github", "email=linus%40example.com", "linus@example.com"},
		{"github", "email=grace%40example.com&name=Grace", "Grace"},
	}
	for _, tt := range tests {
		loginURL, err := env.client("").OAuthLoginURL(tt.provider)
		if err != nil {
			t.Fatal(err)
		}
		callback := follow(loginURL + "?" + tt.query)
		final := follow(callback.String())
		if final.Host != "frontend.test" || final.Path != "/dashboard" {
			t.Fatalf("final redirect = %s", final)
		}
		me, err := env.client("").Me(ctx, final.Query().Get("token"))
		if err != nil {
			t.Fatalf("Me: %v", err)
		}
		if me.Username != tt.wantUsername {
			t.Errorf("%s username = %q, want %q", tt.provider, me.Username, tt.wantUsername)
		}
	}

	// OAuth accounts have no password to log in with.
	if _, err := env.client("").Login(ctx, "ada@example.com", ""); !client.IsUnauthorized(err) {
		t.Errorf("password login for oauth account err = %v", err)
	}
}

func TestVideos(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.account(t, "Sam", "sam@example.com")

	_, err := c.UploadVideo(ctx, client.File{Name: "notes.txt", Content: strings.NewReader("text")})
	if d := statusDetail(t, err, http.StatusBadRequest); d != "File must be a video" {
		t.Errorf("non-video detail = %q", d)
	}

	up, err := c.UploadVideo(ctx, client.File{Name: "lecture.mp4", Content: strings.NewReader("fake video bytes")})
	if err != nil {
		t.Fatalf("UploadVideo: %v", err)
	}
	if up.Filename != "lecture.mp4" || up.Status != "uploaded" {
		t.Errorf("upload = %+v", up)
	}

	sum, err := c.SummarizeVideo(ctx, up.ID, client.SummaryBullet)
	if err != nil {
		t.Fatalf("SummarizeVideo: %v", err)
	}
	if sum.Status != "summarized" || !strings.HasPrefix(sum.Summary, "- ") {
		t.Errorf("summary = %+v", sum)
	}

	text, err := c.VideoOCR(ctx, up.ID)
	if err != nil {
		t.Fatalf("VideoOCR: %v", err)
	}
	if text.VideoID != up.ID || text.Text != "No text detected in video." {
		t.Errorf("video text = %+v", text)
	}

	_, err = c.SummarizeYouTube(ctx, "https://example.com/watch?v=abc", client.SummaryBrief)
	if d := statusDetail(t, err, http.StatusBadRequest); d != "Invalid YouTube URL" {
		t.Errorf("bad url detail = %q", d)
	}
	yt, err := c.SummarizeYouTube(ctx, "https://youtu.be/dQw4w9WgXcQ", client.SummaryBrief)
	if err != nil {
		t.Fatalf("SummarizeYouTube: %v", err)
	}
	if yt.ID == "" || yt.Title != "YouTube: dQw4w9WgXcQ" || yt.Type != "youtube" || yt.Summary == "" {
		t.Errorf("youtube video = %+v", yt)
	}

	_, err = c.VideoOCR(ctx, yt.ID)
	if !client.HasStatus(err, http.StatusBadRequest) {
		t.Errorf("youtube video OCR err = %v, want 400", err)
	}
	_, err = c.SummarizeVideo(ctx, "missing", client.SummaryBrief)
	if d := statusDetail(t, err, http.StatusNotFound); d != "Video not found" {
		t.Errorf("missing video detail = %q", d)
	}

	videos, err := c.ListVideos(ctx)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != yt.ID || videos[1].ID != up.ID {
		t.Fatalf("videos = %+v, want youtube then upload", videos)
	}
	if videos[1].Summary != sum.Summary || videos[1].VideoOCRText == "" {
		t.Errorf("upload not updated in history: %+v", videos[1])
	}
}

func TestYouTubeID(t *testing.T) {
	tests := map[string]string{
		"https://youtu.be/abc123":                     "abc123",
		"https://www.youtube.com/watch?v=abc123&t=10": "abc123",
		"https://youtube.com/embed/abc123":            "abc123",
		"https://www.youtube.com/v/abc123":            "abc123",
		"https://www.youtube.com/watch":               "",
		"https://vimeo.com/123":                       "",
		"not a url":                                   "",
	}
	for in, want := range tests {
		got, ok := youTubeID(in)
		if got != want || ok != (want != "") {
			t.Errorf("youTubeID(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
}

func TestQuizzes(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.account(t, "Sam", "sam@example.com")

	q, err := c.GenerateQuiz(ctx, client.QuizRequest{Content: lecture, NumQuestions: 3})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if q.ID == "" || len(q.Questions) != 3 {
		t.Errorf("quiz = %+v", q)
	}

	fromFile, err := c.GenerateQuiz(ctx, client.QuizRequest{
		File:       &client.File{Name: "notes.txt", Content: strings.NewReader(lecture)},
		Difficulty: client.DifficultyEasy,
	})
	if err != nil {
		t.Fatalf("GenerateQuiz(file): %v", err)
	}
	if len(fromFile.Questions[0].Options) != 3 {
		t.Errorf("easy quiz options = %v", fromFile.Questions[0].Options)
	}

	_, err = c.GenerateQuiz(ctx, client.QuizRequest{
		File: &client.File{Name: "scan.bin", Content: bytes.NewReader([]byte{0xff, 0xfe, 0x00})},
	})
	if d := statusDetail(t, err, http.StatusBadRequest); d != "No content provided" {
		t.Errorf("binary file detail = %q", d)
	}

	quizzes, err := c.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	if len(quizzes) != 2 || quizzes[0].ID != q.ID || quizzes[1].Difficulty != client.DifficultyEasy {
		t.Errorf("quizzes = %+v", quizzes)
	}
}

func TestOCR(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.account(t, "Sam", "sam@example.com")

	_, err := c.UploadHandwriting(ctx, client.File{Name: "notes.txt", Content: strings.NewReader("x")}, "")
	if d := statusDetail(t, err, http.StatusBadRequest); d != "Only image files are supported for OCR." {
		t.Errorf("non-image detail = %q", d)
	}

	rec, err := c.UploadHandwriting(ctx, pngFile(t, "page.png"), client.OCRClean)
	if err != nil {
		t.Fatalf("UploadHandwriting: %v", err)
	}
	if rec.Mode != client.OCRClean || !strings.Contains(rec.Text, "30x10") {
		t.Errorf("record = %+v", rec)
	}

	unreadable, err := c.UploadHandwriting(ctx, client.File{Name: "broken.png", Content: strings.NewReader("not a png")}, "")
	if err != nil {
		t.Fatalf("UploadHandwriting(broken): %v", err)
	}
	if unreadable.Text != "No legible text could be extracted from this image." {
		t.Errorf("unreadable text = %q", unreadable.Text)
	}

	history, err := c.OCRHistory(ctx)
	if err != nil {
		t.Fatalf("OCRHistory: %v", err)
	}
	if len(history) != 2 || history[0].ID != unreadable.ID || history[1].Title != "page.png" {
		t.Errorf("history = %+v", history)
	}

	if err := c.DeleteOCR(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteOCR: %v", err)
	}
	if err := c.DeleteOCR(ctx, rec.ID); !client.IsNotFound(err) {
		t.Errorf("second delete err = %v, want 404", err)
	}
}

func TestMath(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.account(t, "Sam", "sam@example.com")

	sol, err := c.SolveText(ctx, "2x + 3 = 7")
	if err != nil {
		t.Fatalf("SolveText: %v", err)
	}
	if !strings.Contains(sol.Solution, `\boxed{x = 2}`) {
		t.Errorf("solution = %q", sol.Solution)
	}

	bad, err := c.SolveText(ctx, "2 +")
	if err != nil {
		t.Fatalf("SolveText(bad): %v", err)
	}
	if bad.Solution != solveFailedText {
		t.Errorf("unsolvable solution = %q", bad.Solution)
	}

	_, err = c.SolveImage(ctx, client.File{Name: "notes.txt", Content: strings.NewReader("1+1")})
	if d := statusDetail(t, err, http.StatusBadRequest); d != "Invalid file type. Please upload an image." {
		t.Errorf("non-image detail = %q", d)
	}
	img, err := c.SolveImage(ctx, pngFile(t, "problem.png"))
	if err != nil {
		t.Fatalf("SolveImage: %v", err)
	}
	if img.Expression == "" || img.Solution == "" {
		t.Errorf("image solution = %+v", img)
	}

	history, err := c.MathHistory(ctx)
	if err != nil {
		t.Fatalf("MathHistory: %v", err)
	}
	if len(history) != 3 || history[0].Type != "image" || history[2].Expression != "2x + 3 = 7" {
		t.Errorf("history = %+v", history)
	}

	if err := c.DeleteMath(ctx, sol.ID); err != nil {
		t.Fatalf("DeleteMath: %v", err)
	}
	if err := c.DeleteMath(ctx, sol.ID); !client.IsNotFound(err) {
		t.Errorf("second delete err = %v, want 404", err)
	}
}

func TestEssaysAndPlagiarism(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.account(t, "Sam", "sam@example.com")
	const essay = "The quick brown fox jumps over the lazy dog near the river bank today."

	e, err := c.SubmitEssay(ctx, "Foxes", essay)
	if err != nil {
		t.Fatalf("SubmitEssay: %v", err)
	}
	if e.ID == "" || e.Grade.Feedback == "" {
		t.Errorf("essay = %+v", e)
	}

	essays, err := c.ListEssays(ctx)
	if err != nil {
		t.Fatalf("ListEssays: %v", err)
	}
	if len(essays) != 1 || essays[0].Title != "Foxes" || essays[0].Grade.OverallScore != e.Grade.OverallScore {
		t.Errorf("essays = %+v", essays)
	}

	report, err := c.CheckPlagiarism(ctx, essay)
	if err != nil {
		t.Fatalf("CheckPlagiarism: %v", err)
	}
	if report.SimilarityScore != 100 || report.Status != "flagged" {
		t.Errorf("report = %+v, want 100%% flagged against own essay", report)
	}
	if n, _ := env.store.CountRecords(mustUserID(t, env, "sam@example.com"), storage.KindPlagiarism); n != 1 {
		t.Errorf("stored %d plagiarism checks, want 1", n)
	}
}

func mustUserID(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	u, err := env.store.GetUserByEmail(email)
	if err != nil {
		t.Fatal(err)
	}
	return u.ID
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.account(t, "Sam", "sam@example.com")

	first, err := c.SendMessage(ctx, "Explain mitochondria")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !strings.HasPrefix(first, "Great question!") {
		t.Errorf("first reply = %q", first)
	}
	second, err := c.SendMessage(ctx, "And ribosomes?")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !strings.HasPrefix(second, "Building on what we discussed") {
		t.Errorf("second reply ignores history: %q", second)
	}

	history, err := c.ChatHistory(ctx)
	if err != nil {
		t.Fatalf("ChatHistory: %v", err)
	}
	wantRoles := []string{client.RoleUser, client.RoleAssistant, client.RoleUser, client.RoleAssistant}
	if len(history) != len(wantRoles) {
		t.Fatalf("history has %d messages, want %d", len(history), len(wantRoles))
	}
	for i, m := range history {
		if m.Role != wantRoles[i] {
			t.Errorf("history[%d].Role = %q, want %q", i, m.Role, wantRoles[i])
		}
	}
	if history[0].Content != "Explain mitochondria" || history[3].Content != second {
		t.Errorf("history = %+v", history)
	}

	cleared, err := c.ClearChat(ctx)
	if err != nil {
		t.Fatalf("ClearChat: %v", err)
	}
	if cleared.Status != "success" || cleared.DeletedCount != 4 {
		t.Errorf("clear = %+v", cleared)
	}
	if history, _ := c.ChatHistory(ctx); len(history) != 0 {
		t.Errorf("history after clear = %+v", history)
	}
}

func TestLearningPath(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.account(t, "Sam", "sam@example.com")
	if _, err := c.GenerateQuiz(ctx, client.QuizRequest{Content: lecture, NumQuestions: 1}); err != nil {
		t.Fatal(err)
	}

	path, err := c.GenerateLearningPath(ctx, "")
	if err != nil {
		t.Fatalf("GenerateLearningPath: %v", err)
	}
	if path.Title != "Your General Knowledge Roadmap" || len(path.Phases) != 4 {
		t.Errorf("path = %+v", path)
	}
	if !strings.Contains(path.Phases[1].Tasks[0], "1 quizzes") {
		t.Errorf("practice task ignores quiz history: %q", path.Phases[1].Tasks[0])
	}

	if _, err := c.GenerateLearningPath(ctx, "Biology"); err != nil {
		t.Fatal(err)
	}
	rec, err := env.store.GetRecord(mustUserID(t, env, "sam@example.com"), storage.KindPath, pathRecordID)
	if err != nil {
		t.Fatalf("stored path: %v", err)
	}
	if !strings.Contains(rec.PayloadJSON, "Your Biology Roadmap") {
		t.Errorf("stored path was not replaced: %s", rec.PayloadJSON)
	}
}

func TestRecordsAreIsolatedPerUser(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.account(t, "Alice", "alice@example.com")
	bob := env.account(t, "Bob", "bob@example.com")

	sol, err := alice.SolveText(ctx, "1 + 1")
	if err != nil {
		t.Fatal(err)
	}
	if history, _ := bob.MathHistory(ctx); len(history) != 0 {
		t.Errorf("bob sees alice's history: %+v", history)
	}
	if err := bob.DeleteMath(ctx, sol.ID); !client.IsNotFound(err) {
		t.Errorf("bob deleting alice's record err = %v, want 404", err)
	}
	if history, _ := alice.MathHistory(ctx); len(history) != 1 {
		t.Errorf("alice history = %+v", history)
	}
}

// failingGenerator fails every call.
type failingGenerator struct{ assist.Generator }

var errModelDown = errors.New("model down")

func (failingGenerator) Summarize(context.Context, string, string) (string, error) {
	return "", errModelDown
}

func (failingGenerator) Reply(context.Context, []assist.Turn, string) (string, error) {
	return "", errModelDown
}

func (failingGenerator) Grade(context.Context, string, string) (client.Grade, error) {
	return client.Grade{}, errModelDown
}

func TestGeneratorFailures(t *testing.T) {
	env := newTestEnv(t, failingGenerator{})
	c := env.account(t, "Sam", "sam@example.com")

	yt, err := c.SummarizeYouTube(ctx, "https://youtu.be/abc", client.SummaryBrief)
	if err != nil {
		t.Fatalf("SummarizeYouTube: %v", err)
	}
	if yt.Summary != "Error generating brief summary." {
		t.Errorf("summary = %q", yt.Summary)
	}

	_, err = c.SendMessage(ctx, "hi")
	if d := statusDetail(t, err, http.StatusInternalServerError); d != "Failed to get tutor response" {
		t.Errorf("chat detail = %q", d)
	}
	if history, _ := c.ChatHistory(ctx); len(history) != 0 {
		t.Errorf("failed exchange was stored: %+v", history)
	}

	_, err = c.SubmitEssay(ctx, "T", "Body text.")
	if d := statusDetail(t, err, http.StatusInternalServerError); d != "Failed to grade essay" {
		t.Errorf("essay detail = %q", d)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	req, _ := http.NewRequest(http.MethodOptions, env.server.URL+"/api/auth/login", nil)
	req.Header.Set("Origin", "http://frontend.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://frontend.test" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestNaiveTimeFormat(t *testing.T) {
	data, err := naiveTime{time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)}.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"2024-05-01T12:00:00.123456"` {
		t.Errorf("naiveTime = %s", data)
	}
}
