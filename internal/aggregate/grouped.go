package aggregate

import (
	"cmp"
	"slices"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// GroupedMetric ranks the items of one rating-group question.
type GroupedMetric struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Items []ItemScore `json:"items"`
}

// ItemScore is the mean rating of one item.
type ItemScore struct {
	Item    string `json:"item"`
	Average string `json:"average"`
	Count   int    `json:"count"`
}

// Grouped flattens rating-group answers into per-item ratings and ranks
// items by mean, highest first. Null ratings ("not attended") are skipped,
// and items nobody rated are left out. Items with equal displayed means keep
// declared order, followed by undeclared items alphabetically.
func Grouped(q domain.Question, responses []*domain.Response) GroupedMetric {
	ratings := make(map[string][]float64)
	for _, r := range responses {
		group, ok := r.Answers[q.ID].(map[string]any)
		if !ok {
			continue
		}
		for item, v := range group {
			if n, ok := toNumber(v); ok {
				ratings[item] = append(ratings[item], n)
			}
		}
	}

	order := make([]string, 0, len(ratings))
	declared := make(map[string]struct{}, len(q.Options.Items))
	for _, item := range q.Options.Items {
		declared[item] = struct{}{}
		if _, ok := ratings[item]; ok {
			order = append(order, item)
		}
	}
	var extra []string
	for item := range ratings {
		if _, ok := declared[item]; !ok {
			extra = append(extra, item)
		}
	}
	slices.Sort(extra)
	order = append(order, extra...)

	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(roundedMean(ratings[b]), roundedMean(ratings[a]))
	})

	items := make([]ItemScore, 0, len(order))
	for _, item := range order {
		items = append(items, ItemScore{
			Item:    item,
			Average: formatMean(ratings[item]),
			Count:   len(ratings[item]),
		})
	}

	return GroupedMetric{ID: q.ID, Label: q.DisplayLabel(), Items: items}
}
