package assist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/disintegration/imaging"

	"github.com/kalambet/smartlearn/internal/client"
)

// ErrNoContent is returned when the input has nothing to work from.
var ErrNoContent = errors.New("no usable content")

// Canned is the offline generator. Output depends only on the input.
type Canned struct{}

func NewCanned() *Canned {
	return &Canned{}
}

func (c *Canned) Summarize(_ context.Context, text, summaryType string) (string, error) {
	sents := sentences(text)
	if len(sents) == 0 {
		return "", ErrNoContent
	}

	switch summaryType {
	case client.SummaryBrief:
		return strings.Join(topSentences(text, sents, 3), " "), nil
	case client.SummaryBullet:
		k := min(max(len(sents), 5), 10)
		var b strings.Builder
		for i, s := range topSentences(text, sents, k) {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- " + s)
		}
		return b.String(), nil
	default:
		terms := keyTerms(text, 5)
		var b strings.Builder
		if len(terms) > 0 {
			fmt.Fprintf(&b, "**Main topics:** %s.\n\n", strings.Join(terms, ", "))
		}
		b.WriteString(strings.Join(topSentences(text, sents, 8), " "))
		if len(terms) > 0 {
			fmt.Fprintf(&b, "\n\n**Conclusion:** the material centers on %s.", terms[0])
		}
		return b.String(), nil
	}
}

// topSentences returns the k highest-scoring sentences in their original order.
func topSentences(text string, sents []string, k int) []string {
	if k >= len(sents) {
		return sents
	}
	weight := make(map[string]int)
	for i, t := range keyTerms(text, 20) {
		weight[t] = 20 - i
	}
	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, len(sents))
	for i, s := range sents {
		ranked[i].idx = i
		for _, w := range words(s) {
			ranked[i].score += weight[w]
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	ranked = ranked[:k]
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].idx < ranked[j].idx })

	out := make([]string, k)
	for i, r := range ranked {
		out[i] = sents[r.idx]
	}
	return out
}

func (c *Canned) Quiz(_ context.Context, text, difficulty string, n int) (QuizDraft, error) {
	terms := keyTerms(text, n+3)
	if len(terms) == 0 {
		return QuizDraft{}, ErrNoContent
	}
	sents := sentences(text)

	numOptions := 4
	if difficulty == client.DifficultyEasy {
		numOptions = 3
	}

	draft := QuizDraft{Title: "Quiz: " + title(terms[0])}
	for i := 0; i < n && i < len(terms); i++ {
		term := terms[i]
		sentence := ""
		for _, s := range sents {
			if containsWord(s, term) {
				sentence = s
				break
			}
		}

		options := []string{term}
		for j := 1; len(options) < numOptions && j < len(terms); j++ {
			options = append(options, terms[(i+j)%len(terms)])
		}
		if len(options) == 1 {
			options = append(options, "none of the above")
		}
		rot := i % len(options)
		options = append(append([]string{}, options[rot:]...), options[:rot]...)

		blanked := regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`).ReplaceAllString(sentence, "_____")
		q := client.Question{
			Question:      fmt.Sprintf("Which term completes the statement: %q?", blanked),
			Options:       options,
			CorrectAnswer: term,
			Explanation:   fmt.Sprintf("The source reads: %q", sentence),
		}
		if difficulty == client.DifficultyHard {
			q.Question = fmt.Sprintf("Without looking back, which term is missing: %q?", blanked)
		}
		draft.Questions = append(draft.Questions, q)
	}
	return draft, nil
}

var modeLabels = map[string]string{
	client.OCRDefault:    "verbatim",
	client.OCRStructured: "layout-preserving",
	client.OCRClean:      "cleaned-up",
}

// Transcribe cannot read handwriting offline. It validates the image and
// describes it so the OCR flow can be exercised end to end.
func (c *Canned) Transcribe(_ context.Context, image []byte, mimeType, mode string) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(image))
	if err != nil {
		return "", nil
	}
	label, ok := modeLabels[mode]
	if !ok {
		label = modeLabels[client.OCRDefault]
	}
	b := img.Bounds()
	return fmt.Sprintf("Handwritten page (%dx%d %s) transcribed in %s mode.", b.Dx(), b.Dy(), mimeType, label), nil
}

func (c *Canned) Solve(ctx context.Context, expression string) (string, error) {
	return solveExpression(ctx, expression)
}

func (c *Canned) Grade(_ context.Context, essayTitle, content string) (client.Grade, error) {
	sents := sentences(content)
	ws := words(content)
	if len(ws) == 0 {
		return client.Grade{}, ErrNoContent
	}

	wellFormed := 0
	for _, s := range sents {
		first, _ := utf8.DecodeRuneInString(s)
		last, _ := utf8.DecodeLastRuneInString(s)
		if unicode.IsUpper(first) && strings.ContainsRune(".!?\"'", last) {
			wellFormed++
		}
	}
	grammar := math.Round(10 * float64(wellFormed) / float64(max(len(sents), 1)))

	var structure float64
	switch n := len(paragraphs(content)); {
	case n >= 6:
		structure = 9
	case n >= 3:
		structure = 8
	case n == 2:
		structure = 6
	default:
		structure = 4
	}
	if t := len(strings.Fields(essayTitle)); t > 0 && t <= 12 {
		structure++
	}

	var substance float64
	switch n := len(ws); {
	case n >= 300:
		substance = 8
	case n >= 150:
		substance = 7
	case n >= 50:
		substance = 5
	default:
		substance = 3
	}
	unique := make(map[string]bool)
	for _, w := range ws {
		unique[w] = true
	}
	if float64(len(unique))/float64(len(ws)) > 0.5 {
		substance++
	}

	g := client.Grade{
		GrammarScore:   min(grammar, 10),
		StructureScore: min(structure, 10),
		ContentScore:   min(substance, 10),
	}
	g.OverallScore = math.Round((g.GrammarScore + g.StructureScore + g.ContentScore) / 3)

	if g.GrammarScore < 7 {
		g.Suggestions = append(g.Suggestions, "Start every sentence with a capital letter and end it with punctuation.")
	}
	if g.StructureScore < 7 {
		g.Suggestions = append(g.Suggestions, "Organize the essay into an introduction, body paragraphs and a conclusion.")
	}
	if g.ContentScore < 7 {
		g.Suggestions = append(g.Suggestions, "Develop your argument further with evidence and examples.")
	}
	if len(g.Suggestions) == 0 {
		g.Suggestions = []string{"Tighten the conclusion so it restates your thesis in new words."}
	}
	g.Feedback = fmt.Sprintf("The essay has %d words in %d sentences. Grammar %s/10, structure %s/10, content %s/10.",
		len(ws), len(sents), formatNum(g.GrammarScore), formatNum(g.StructureScore), formatNum(g.ContentScore))
	return g, nil
}

// Plagiarism status thresholds.
const (
	flaggedSimilarity = 50
	cautionSimilarity = 20
	flaggedAI         = 80
	cautionAI         = 50
)

func (c *Canned) CheckPlagiarism(_ context.Context, content string, corpus []string) (client.PlagiarismReport, error) {
	if len(words(content)) == 0 {
		return client.PlagiarismReport{}, ErrNoContent
	}

	own := shingles(content)
	best, bestIdx := 0.0, -1
	for i, doc := range corpus {
		if s := jaccard(own, shingles(doc)); s > best {
			best, bestIdx = s, i
		}
	}
	similarity := math.Round(best * 100)
	ai := aiLikelihood(content)

	r := client.PlagiarismReport{
		SimilarityScore: similarity,
		AIProbability:   ai,
	}
	switch {
	case similarity >= flaggedSimilarity || ai >= flaggedAI:
		r.Status = "flagged"
	case similarity >= cautionSimilarity || ai >= cautionAI:
		r.Status = "caution"
	default:
		r.Status = "safe"
	}

	if bestIdx >= 0 && similarity > 0 {
		r.Findings = append(r.Findings, fmt.Sprintf("%s%% phrase overlap with an earlier submission", formatNum(similarity)))
	}
	if ai >= cautionAI {
		r.Findings = append(r.Findings, "sentence lengths are unusually uniform")
	}
	if len(r.Findings) == 0 {
		r.Findings = []string{"no overlapping passages found"}
	}
	r.DetailedReport = fmt.Sprintf("Compared against %d earlier submission(s). Highest similarity %s%%, estimated AI probability %s%%.",
		len(corpus), formatNum(similarity), formatNum(ai))
	return r, nil
}

// shingles returns the set of word trigrams in s.
func shingles(s string) map[string]bool {
	ws := words(s)
	set := make(map[string]bool)
	if len(ws) < 3 {
		if len(ws) > 0 {
			set[strings.Join(ws, " ")] = true
		}
		return set
	}
	for i := 0; i+3 <= len(ws); i++ {
		set[strings.Join(ws[i:i+3], " ")] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// aiLikelihood scores uniformity of sentence length: machine text tends to
// vary less than human writing.
func aiLikelihood(content string) float64 {
	sents := sentences(content)
	if len(sents) < 3 {
		return 10
	}
	lengths := make([]float64, len(sents))
	var mean float64
	for i, s := range sents {
		lengths[i] = float64(len(strings.Fields(s)))
		mean += lengths[i]
	}
	mean /= float64(len(lengths))
	var variance float64
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	cv := math.Sqrt(variance/float64(len(lengths))) / mean
	return math.Round(math.Max(0, math.Min(100, 100-cv*150)))
}

var arithmetic = regexp.MustCompile(`^[\d\s+\-*/().^×÷=a-z]*\d[\d\s+\-*/().^×÷=a-z]*$`)

func (c *Canned) Reply(ctx context.Context, history []Turn, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrNoContent
	}

	probe := strings.TrimSuffix(strings.ToLower(message), "?")
	probe = strings.TrimPrefix(probe, "what is ")
	if arithmetic.MatchString(probe) && strings.ContainsAny(probe, "+-*/^×÷=") {
		if solution, err := solveExpression(ctx, probe); err == nil {
			return "Let's work through it together.\n\n" + solution, nil
		}
	}

	terms := keyTerms(message, 3)
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Building on what we discussed, ")
	} else {
		b.WriteString("Great question! ")
	}
	if len(terms) == 0 {
		b.WriteString("could you tell me a little more about what you are studying? I can explain concepts, check your reasoning or quiz you.")
		return b.String(), nil
	}
	fmt.Fprintf(&b, "let's break down **%s**.\n\n", terms[0])
	b.WriteString("1. Start with a one-sentence definition in your own words.\n")
	if len(terms) > 1 {
		fmt.Fprintf(&b, "2. Connect it to **%s**: how does one affect the other?\n", strings.Join(terms[1:], "** and **"))
	} else {
		b.WriteString("2. Find one concrete example where it applies.\n")
	}
	b.WriteString("3. Test yourself: explain it to a friend without notes.\n\n")
	b.WriteString("Which step would you like to try first?")
	return b.String(), nil
}

var phaseNames = [4]struct{ name, goal string }{
	{"Foundation", "Master the core vocabulary and ideas of %s"},
	{"Practice", "Apply %s to short exercises and check your understanding"},
	{"Application", "Use %s in a realistic project or essay"},
	{"Mastery", "Teach, critique and extend your knowledge of %s"},
}

func (c *Canned) LearningPath(_ context.Context, category string, stats PathStats) (client.LearningPath, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = client.DefaultCategory
	}
	name := title(category)

	quizTask := fmt.Sprintf("Generate a %s quiz and score at least 80%%", name)
	if stats.QuizCount > 0 {
		quizTask = fmt.Sprintf("Retake one of your %d quizzes and beat your previous score", stats.QuizCount)
	}
	essayTask := fmt.Sprintf("Write a short essay on a %s topic and have it graded", name)
	if stats.EssayCount > 0 {
		essayTask = fmt.Sprintf("Revise one of your %d graded essays using its suggestions", stats.EssayCount)
	}

	tasks := [4][3]string{
		{
			fmt.Sprintf("Summarize an introductory %s lecture video", name),
			fmt.Sprintf("List ten key terms from %s with definitions", name),
			"Ask the tutor to explain the concept you find hardest",
		},
		{
			quizTask,
			"Solve five practice problems with the math solver and review each step",
			"Digitize your handwritten notes and highlight gaps",
		},
		{
			essayTask,
			"Run your essay through the plagiarism checker",
			fmt.Sprintf("Summarize an advanced %s video in bullet points", name),
		},
		{
			fmt.Sprintf("Explain a %s topic to the tutor as if teaching it", name),
			"Create a hard quiz from your own notes",
			"Reflect on your progress and set the next learning goal",
		},
	}

	who := "you"
	if stats.Username != "" {
		who = stats.Username
	}
	path := client.LearningPath{
		Title:       fmt.Sprintf("Your %s Roadmap", name),
		Description: fmt.Sprintf("A four-phase plan for %s to build %s skills from fundamentals to mastery.", who, name),
	}
	for i, p := range phaseNames {
		path.Phases = append(path.Phases, client.Phase{
			Title: fmt.Sprintf("Phase %d: %s", i+1, p.name),
			Goal:  fmt.Sprintf(p.goal, name),
			Tasks: tasks[i][:],
		})
	}
	return path, nil
}
