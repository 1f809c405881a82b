package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAnswered(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, false},
		{"empty string", "", false},
		{"whitespace", "  \n\t", false},
		{"text", "great", true},
		{"number", float64(3), true},
		{"zero", float64(0), true},
		{"bool", false, true},
		{"empty group", map[string]any{}, false},
		{"group", map[string]any{"Trade Show": nil}, true},
		{"empty list", []any{}, false},
		{"list", []any{"x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAnswered(tt.value))
		})
	}
}

func TestAnswers_Merge(t *testing.T) {
	prev := Answers{"a": 1.0, "b": "old"}
	merged := prev.Merge(Answers{"b": "new", "c": true})

	assert.Equal(t, Answers{"a": 1.0, "b": "new", "c": true}, merged)
	assert.Equal(t, "old", prev["b"], "merge must not mutate the receiver")

	var empty Answers
	assert.Equal(t, Answers{"x": 1.0}, empty.Merge(Answers{"x": 1.0}))
	assert.True(t, merged.Answered("a"))
	assert.False(t, merged.Answered("missing"))
}

func TestAnswers_Clone(t *testing.T) {
	var nilAnswers Answers
	assert.Nil(t, nilAnswers.Clone())

	a := Answers{"k": "v"}
	c := a.Clone()
	c["k"] = "changed"
	assert.Equal(t, "v", a["k"])
}
