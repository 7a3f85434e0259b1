package session

import "github.com/SAP-F-2025/aptitude-service/internal/models"

// Draft is the local answer draft. Each question keeps the position of its
// first answer; later answers overwrite the value.
type Draft struct {
	order   []uint
	answers map[uint]string
}

func NewDraft() *Draft {
	return &Draft{answers: make(map[uint]string)}
}

func (d *Draft) Record(questionID uint, value string) {
	if _, seen := d.answers[questionID]; !seen {
		d.order = append(d.order, questionID)
	}
	d.answers[questionID] = value
}

func (d *Draft) Answer(questionID uint) (string, bool) {
	v, ok := d.answers[questionID]
	return v, ok && v != ""
}

// Len counts non-empty answers
func (d *Draft) Len() int {
	n := 0
	for _, v := range d.answers {
		if v != "" {
			n++
		}
	}
	return n
}

// Responses builds the submission batch in drafting order. Empty answers are
// omitted rather than sent as empty strings.
func (d *Draft) Responses() []models.ResponseItem {
	items := make([]models.ResponseItem, 0, len(d.order))
	for _, id := range d.order {
		if v := d.answers[id]; v != "" {
			items = append(items, models.ResponseItem{QuestionID: id, Answer: v})
		}
	}
	return items
}
