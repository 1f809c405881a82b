package aggregate

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// TopWordsLimit caps the word-frequency table.
const TopWordsLimit = 15

// minWordLength is the shortest token counted; anything this short or
// shorter is noise.
const minWordLength = 4

// nonWord matches anything that is neither a word character nor whitespace.
// RE2's \s is ASCII-only, so Unicode separators and the BOM are listed too.
var nonWord = regexp.MustCompile(`[^\w\s\p{Z}\x{FEFF}]`)

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Z, r) || r == '\uFEFF'
}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by from as
		is was are were been be have has had do does did will would could should may
		might must can it its i we they them their my your our`) {
		stopWords[w] = struct{}{}
	}
}

// TextMetric summarizes one free-text question.
type TextMetric struct {
	ID            string      `json:"id"`
	Label         string      `json:"label"`
	ResponseCount int         `json:"response_count"`
	TopWords      []WordCount `json:"top_words,omitempty"`
	Responses     []string    `json:"responses,omitempty"`
	Answer        string      `json:"answer,omitempty"` // single view only
}

// WordCount is one row of a word-frequency table.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Text collects the non-empty answers to q and builds their word-frequency
// table.
func Text(q domain.Question, responses []*domain.Response) TextMetric {
	texts := collectTexts(q.ID, responses)
	return TextMetric{
		ID:            q.ID,
		Label:         q.DisplayLabel(),
		ResponseCount: len(texts),
		TopWords:      WordFrequency(texts, TopWordsLimit),
		Responses:     texts,
	}
}

// SingleText surfaces the raw answer of a single response.
func SingleText(q domain.Question, responses []*domain.Response) TextMetric {
	m := TextMetric{ID: q.ID, Label: q.DisplayLabel()}
	texts := collectTexts(q.ID, responses)
	if len(texts) > 0 {
		m.ResponseCount = 1
		m.Answer = texts[0]
	}
	return m
}

func collectTexts(id string, responses []*domain.Response) []string {
	var texts []string
	for _, r := range responses {
		s, ok := r.Answers[id].(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			texts = append(texts, s)
		}
	}
	return texts
}

// Tokenize lower-cases text, strips punctuation and returns the words worth
// counting: longer than three characters and not a stop word.
func Tokenize(text string) []string {
	lower := cases.Lower(language.Und).String(text)
	cleaned := nonWord.ReplaceAllString(lower, "")

	var words []string
	for _, w := range strings.FieldsFunc(cleaned, isSeparator) {
		if len(w) < minWordLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		words = append(words, w)
	}
	return words
}

// WordFrequency counts words across texts and returns the top limit entries,
// by count descending with ties broken alphabetically.
func WordFrequency(texts []string, limit int) []WordCount {
	counts := make(map[string]int)
	for _, t := range texts {
		for _, w := range Tokenize(t) {
			counts[w]++
		}
	}

	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{Word: w, Count: c})
	}
	slices.SortFunc(out, func(a, b WordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Word, b.Word)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
