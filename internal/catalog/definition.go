package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feedbackapp/feedback-server/internal/domain"
)

// Definition is one versioned survey question tree with a flow per
// participant type.
type Definition struct {
	ID    string                                   `json:"id"`
	Title string                                   `json:"title"`
	Flows map[domain.ParticipantType][]domain.Page `json:"flows"`
}

// Parse decodes and validates a definition document.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks the structural rules every definition must satisfy.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("definition id is required")
	}

	for pt := range d.Flows {
		if !pt.Valid() {
			return fmt.Errorf("definition %s: unknown participant type %q", d.ID, pt)
		}
	}

	for _, pt := range domain.ParticipantTypes {
		pages := d.Flows[pt]
		if len(pages) == 0 {
			return fmt.Errorf("definition %s: %s flow has no pages", d.ID, pt)
		}

		seen := make(map[string]struct{})
		for pi, page := range pages {
			for _, q := range page.Questions {
				if err := validateQuestion(q); err != nil {
					return fmt.Errorf("definition %s: %s page %d: %w", d.ID, pt, pi, err)
				}
				if _, dup := seen[q.ID]; dup {
					return fmt.Errorf("definition %s: %s flow: duplicate question id %q", d.ID, pt, q.ID)
				}
				seen[q.ID] = struct{}{}
			}
		}
	}
	return nil
}

func validateQuestion(q domain.Question) error {
	if q.ID == "" {
		return fmt.Errorf("question id is required")
	}
	if !q.Kind.Valid() {
		return fmt.Errorf("question %s: unknown kind %q", q.ID, q.Kind)
	}
	switch q.Kind {
	case domain.QuestionScale:
		if q.Options.Min >= q.Options.Max {
			return fmt.Errorf("question %s: scale min %d must be below max %d", q.ID, q.Options.Min, q.Options.Max)
		}
	case domain.QuestionRatingGroup:
		if len(q.Options.Items) == 0 {
			return fmt.Errorf("question %s: rating group has no items", q.ID)
		}
		if q.Options.Min >= q.Options.Max {
			return fmt.Errorf("question %s: rating min %d must be below max %d", q.ID, q.Options.Min, q.Options.Max)
		}
	}
	return nil
}

// Pages returns the question flow for a participant type.
func (d *Definition) Pages(pt domain.ParticipantType) []domain.Page {
	return d.Flows[pt]
}

// Tracked groups the questions the aggregation engine reports on.
type Tracked struct {
	Numeric []domain.Question
	Grouped []domain.Question
	Text    []domain.Question
}

// Tracked returns the analytics questions for one participant type, or for
// every flow when pt is empty. Across flows the first occurrence of an id
// wins, in flow then page order.
func (d *Definition) Tracked(pt domain.ParticipantType) Tracked {
	flows := domain.ParticipantTypes
	if pt != "" {
		flows = []domain.ParticipantType{pt}
	}

	var t Tracked
	seen := make(map[string]struct{})
	for _, flow := range flows {
		for _, page := range d.Flows[flow] {
			for _, q := range page.Questions {
				if _, ok := seen[q.ID]; ok {
					continue
				}
				seen[q.ID] = struct{}{}

				switch {
				case q.Kind == domain.QuestionScale:
					t.Numeric = append(t.Numeric, q)
				case q.Kind == domain.QuestionRatingGroup:
					t.Grouped = append(t.Grouped, q)
				case q.Kind.IsText():
					t.Text = append(t.Text, q)
				}
			}
		}
	}
	return t
}
