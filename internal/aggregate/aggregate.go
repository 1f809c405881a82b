// Package aggregate computes dashboard statistics over completed responses.
//
// Summaries are pure functions of the tracked questions and the response set.
// The input is put into a canonical order first, so the same set of responses
// always produces the same summary.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/feedbackapp/feedback-server/internal/catalog"
	"github.com/feedbackapp/feedback-server/internal/domain"
)

// Summary is the full analytics view for a response set.
type Summary struct {
	ResponseCount int             `json:"response_count"`
	Single        bool            `json:"single"`
	Numeric       []NumericMetric `json:"numeric"`
	Grouped       []GroupedMetric `json:"grouped"`
	Text          []TextMetric    `json:"text"`
}

// Options tunes a summary.
type Options struct {
	// Single switches text questions to the raw answer of the one response
	// instead of a word-frequency table.
	Single bool
}

// Summarize computes every tracked metric over responses.
func Summarize(tracked catalog.Tracked, responses []*domain.Response, opts Options) Summary {
	ordered := canonicalOrder(responses)

	s := Summary{
		ResponseCount: len(ordered),
		Single:        opts.Single,
		Numeric:       make([]NumericMetric, 0, len(tracked.Numeric)),
		Grouped:       make([]GroupedMetric, 0, len(tracked.Grouped)),
		Text:          make([]TextMetric, 0, len(tracked.Text)),
	}
	for _, q := range tracked.Numeric {
		s.Numeric = append(s.Numeric, Numeric(q, ordered))
	}
	for _, q := range tracked.Grouped {
		s.Grouped = append(s.Grouped, Grouped(q, ordered))
	}
	for _, q := range tracked.Text {
		if opts.Single {
			s.Text = append(s.Text, SingleText(q, ordered))
			continue
		}
		s.Text = append(s.Text, Text(q, ordered))
	}
	return s
}

// canonicalOrder returns a copy sorted by completion time, then id.
func canonicalOrder(responses []*domain.Response) []*domain.Response {
	out := make([]*domain.Response, 0, len(responses))
	for _, r := range responses {
		if r != nil {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Response) int {
		if c := a.CompletedAt.Compare(b.CompletedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// toNumber extracts a numeric answer. JSON-decoded numbers arrive as float64;
// the integer cases cover answers built in code.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
