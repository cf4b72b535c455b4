package assist

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	sentenceEnd = regexp.MustCompile(`([.!?])\s+`)
	blankLine   = regexp.MustCompile(`\n\s*\n`)
)

// sentences splits text at terminal punctuation followed by whitespace.
func sentences(text string) []string {
	text = norm.NFKC.String(text)
	marked := sentenceEnd.ReplaceAllString(text, "$1\x00")
	var out []string
	for _, s := range strings.Split(marked, "\x00") {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// paragraphs splits text at blank lines.
func paragraphs(text string) []string {
	var out []string
	for _, p := range blankLine.Split(strings.TrimSpace(text), -1) {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// words returns the case-folded words of s.
func words(s string) []string {
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "also": true, "because": true,
	"been": true, "before": true, "being": true, "between": true, "both": true,
	"could": true, "does": true, "doing": true, "during": true, "each": true,
	"from": true, "have": true, "having": true, "here": true, "into": true,
	"just": true, "like": true, "more": true, "most": true, "much": true,
	"only": true, "other": true, "over": true, "same": true, "should": true,
	"some": true, "such": true, "than": true, "that": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "very": true, "were": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"will": true, "with": true, "would": true, "your": true, "it's": true,
	"explain": true, "please": true, "tell": true, "help": true, "understand": true,
}

// keyTerms returns up to n frequent content words, most frequent first.
// Ties keep first-appearance order.
func keyTerms(text string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range words(text) {
		if len([]rune(w)) < 4 || stopwords[w] || isNumber(w) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func title(s string) string {
	return cases.Title(language.English).String(s)
}

// containsWord reports whether sentence contains w as a whole folded word.
func containsWord(sentence, w string) bool {
	for _, x := range words(sentence) {
		if x == w {
			return true
		}
	}
	return false
}
