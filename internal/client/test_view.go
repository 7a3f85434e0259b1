package client

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
)

// TestShape records which payload shape a TestView was resolved from
type TestShape int

const (
	// ShapeFlat is a bare test or template object
	ShapeFlat TestShape = iota
	// ShapeNested is an assignment carrying its template under testTemplate
	ShapeNested
)

func (s TestShape) String() string {
	if s == ShapeNested {
		return "nested"
	}
	return "flat"
}

// TestView is the single normalized shape the session works with
type TestView struct {
	ID               uint
	Title            string
	Description      string
	TimeLimitMinutes int
	Questions        []models.QuestionView

	Shape        TestShape
	AssignmentID uint
}

// TotalPoints sums the point values of every question
func (v *TestView) TotalPoints() int {
	total := 0
	for _, q := range v.Questions {
		total += q.Points
	}
	return total
}

// flatTest accepts both the template field names and the older test ones
type flatTest struct {
	ID          uint                  `json:"id"`
	Title       string                `json:"title"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	TimeLimit   int                   `json:"timeLimit"`
	Duration    int                   `json:"duration"`
	Questions   []models.QuestionView `json:"questions"`
}

func (f *flatTest) view() TestView {
	title := f.Title
	if title == "" {
		title = f.Name
	}
	limit := f.TimeLimit
	if limit == 0 {
		limit = f.Duration
	}
	return TestView{
		ID:               f.ID,
		Title:            title,
		Description:      f.Description,
		TimeLimitMinutes: limit,
		Questions:        f.Questions,
		Shape:            ShapeFlat,
	}
}

type nestedTest struct {
	ID           uint     `json:"id"`
	TestTemplate flatTest `json:"testTemplate"`
}

// normalizeTest resolves either payload shape into a TestView with questions
// in presentation order.
func normalizeTest(raw json.RawMessage) (*TestView, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("decoding test payload: %w", err)
	}

	var view TestView
	if _, nested := keys["testTemplate"]; nested {
		var n nestedTest
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("decoding nested test: %w", err)
		}
		view = n.TestTemplate.view()
		view.Shape = ShapeNested
		view.AssignmentID = n.ID
	} else {
		var f flatTest
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decoding test: %w", err)
		}
		view = f.view()
	}

	sort.SliceStable(view.Questions, func(i, j int) bool {
		return view.Questions[i].Order < view.Questions[j].Order
	})
	return &view, nil
}
