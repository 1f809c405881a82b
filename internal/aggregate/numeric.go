package aggregate

import (
	"fmt"
	"math"
	"slices"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// NumericMetric summarizes one scale question.
type NumericMetric struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Average      string   `json:"average"`
	Count        int      `json:"count"`
	Distribution []Bucket `json:"distribution"`
}

// Bucket counts answers with one rating value.
type Bucket struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// Numeric computes the mean and histogram for a scale question.
// The histogram covers the question's declared range.
func Numeric(q domain.Question, responses []*domain.Response) NumericMetric {
	var values []float64
	for _, r := range responses {
		if v, ok := toNumber(r.Answers[q.ID]); ok {
			values = append(values, v)
		}
	}

	lo, hi := q.Options.Min, q.Options.Max
	if hi < lo {
		lo, hi = hi, lo
	}
	dist := make([]Bucket, 0, hi-lo+1)
	for rating := lo; rating <= hi; rating++ {
		count := 0
		for _, v := range values {
			if v == float64(rating) {
				count++
			}
		}
		dist = append(dist, Bucket{Rating: rating, Count: count})
	}

	return NumericMetric{
		ID:           q.ID,
		Label:        q.DisplayLabel(),
		Average:      formatMean(values),
		Count:        len(values),
		Distribution: dist,
	}
}

// mean returns the arithmetic mean. Values are summed in sorted order so the
// result does not depend on input order.
func mean(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}

// formatMean renders a mean to two decimals, or "0" for an empty set.
func formatMean(values []float64) string {
	if len(values) == 0 {
		return "0"
	}
	return fmt.Sprintf("%.2f", mean(values))
}

// roundedMean is the mean as displayed, used for ranking.
func roundedMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return math.Round(mean(values)*100) / 100
}
