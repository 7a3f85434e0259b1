// Package memory provides an in-process Repository used when no database is
// configured and by service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/SAP-F-2025/aptitude-service/internal/repositories"
)

type store struct {
	mu sync.RWMutex

	nextID      uint
	templates   map[uint]*models.TestTemplate
	assignments map[uint]*models.Assignment
	attempts    map[uint]*models.Attempt
}

func (s *store) id() uint {
	s.nextID++
	return s.nextID
}

// Repository implements repositories.Repository over in-memory maps
type Repository struct {
	store *store
}

func NewRepository() *Repository {
	return &Repository{store: &store{
		templates:   make(map[uint]*models.TestTemplate),
		assignments: make(map[uint]*models.Assignment),
		attempts:    make(map[uint]*models.Attempt),
	}}
}

func (r *Repository) Template() repositories.TemplateRepository {
	return &templateRepo{store: r.store}
}

func (r *Repository) Assignment() repositories.AssignmentRepository {
	return &assignmentRepo{store: r.store}
}

func (r *Repository) Attempt() repositories.AttemptRepository {
	return &attemptRepo{store: r.store}
}

// WithTransaction runs fn against the same store; writes are not rolled back on error
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *Repository) Ping(ctx context.Context) error { return ctx.Err() }
func (r *Repository) Close() error                   { return nil }

// ===== TEMPLATES =====

type templateRepo struct {
	store *store
}

func (t *templateRepo) Create(ctx context.Context, template *models.TestTemplate) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	now := time.Now()
	template.ID = t.store.id()
	template.CreatedAt, template.UpdatedAt = now, now
	for i := range template.Questions {
		q := &template.Questions[i]
		q.ID = t.store.id()
		q.TemplateID = template.ID
		q.CreatedAt, q.UpdatedAt = now, now
	}
	t.store.templates[template.ID] = cloneTemplate(template)
	return nil
}

func (t *templateRepo) GetByID(ctx context.Context, id uint) (*models.TestTemplate, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	stored, ok := t.store.templates[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	result := cloneTemplate(stored)
	result.SortQuestions()
	return result, nil
}

func (t *templateRepo) List(ctx context.Context, filters repositories.TemplateFilters) ([]*models.TestTemplate, int64, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	var result []*models.TestTemplate
	for _, tmpl := range t.store.templates {
		if filters.Category != nil && tmpl.Category != *filters.Category {
			continue
		}
		if filters.Department != nil && tmpl.Department != *filters.Department {
			continue
		}
		if filters.CreatedBy != nil && tmpl.CreatedBy != *filters.CreatedBy {
			continue
		}
		c := cloneTemplate(tmpl)
		c.SortQuestions()
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	total := int64(len(result))
	return paginate(result, filters.Limit, filters.Offset), total, nil
}

func (t *templateRepo) Update(ctx context.Context, template *models.TestTemplate) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	stored, ok := t.store.templates[template.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.Name = template.Name
	stored.Description = template.Description
	stored.Category = template.Category
	stored.Department = template.Department
	stored.TimeLimit = template.TimeLimit
	stored.UpdatedAt = time.Now()
	template.UpdatedAt = stored.UpdatedAt
	return nil
}

func (t *templateRepo) Delete(ctx context.Context, id uint) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.store.templates[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(t.store.templates, id)
	return nil
}

func (t *templateRepo) AddQuestion(ctx context.Context, question *models.Question) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	stored, ok := t.store.templates[question.TemplateID]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	question.ID = t.store.id()
	question.CreatedAt, question.UpdatedAt = now, now
	stored.Questions = append(stored.Questions, cloneQuestion(*question))
	return nil
}

// ===== ASSIGNMENTS =====

type assignmentRepo struct {
	store *store
}

func (a *assignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	now := time.Now()
	assignment.ID = a.store.id()
	assignment.CreatedAt, assignment.UpdatedAt = now, now
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = now
	}
	a.store.assignments[assignment.ID] = cloneAssignment(assignment)
	return nil
}

func (a *assignmentRepo) GetByID(ctx context.Context, id uint) (*models.Assignment, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	stored, ok := a.store.assignments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return a.withTemplate(stored), nil
}

func (a *assignmentRepo) GetLatestForUser(ctx context.Context, userID string, templateID uint) (*models.Assignment, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	var latest *models.Assignment
	for _, asg := range a.store.assignments {
		if asg.UserID != userID || asg.TemplateID != templateID {
			continue
		}
		if latest == nil || asg.ID > latest.ID {
			latest = asg
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	return a.withTemplate(latest), nil
}

func (a *assignmentRepo) ListByUser(ctx context.Context, userID string) ([]*models.Assignment, error) {
	list, _, err := a.List(ctx, repositories.AssignmentFilters{UserID: &userID})
	return list, err
}

func (a *assignmentRepo) List(ctx context.Context, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	var result []*models.Assignment
	for _, asg := range a.store.assignments {
		if filters.UserID != nil && asg.UserID != *filters.UserID {
			continue
		}
		if filters.TemplateID != nil && asg.TemplateID != *filters.TemplateID {
			continue
		}
		if filters.Status != nil && asg.Status != *filters.Status {
			continue
		}
		result = append(result, a.withTemplate(asg))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	total := int64(len(result))
	return paginate(result, filters.Limit, filters.Offset), total, nil
}

func (a *assignmentRepo) UpdateStatus(ctx context.Context, id uint, status models.AssignmentStatus) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	stored, ok := a.store.assignments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.Status = status
	stored.UpdatedAt = time.Now()
	return nil
}

func (a *assignmentRepo) ListOverdue(ctx context.Context, now time.Time) ([]*models.Assignment, error) {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	var result []*models.Assignment
	for _, asg := range a.store.assignments {
		if asg.IsOverdue(now) {
			result = append(result, cloneAssignment(asg))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// withTemplate must be called with the read lock held
func (a *assignmentRepo) withTemplate(stored *models.Assignment) *models.Assignment {
	c := cloneAssignment(stored)
	if tmpl, ok := a.store.templates[stored.TemplateID]; ok {
		c.Template = cloneTemplate(tmpl)
		c.Template.SortQuestions()
	}
	return c
}

// ===== ATTEMPTS =====

type attemptRepo struct {
	store *store
}

func (r *attemptRepo) Create(ctx context.Context, attempt *models.Attempt) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.attempts {
		if existing.AssignmentID == attempt.AssignmentID {
			return repositories.ErrDuplicate
		}
	}
	now := time.Now()
	attempt.ID = r.store.id()
	attempt.CreatedAt, attempt.UpdatedAt = now, now
	r.store.attempts[attempt.ID] = cloneAttempt(attempt)
	return nil
}

func (r *attemptRepo) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stored, ok := r.store.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneAttempt(stored), nil
}

func (r *attemptRepo) GetByAssignment(ctx context.Context, assignmentID uint) (*models.Attempt, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, a := range r.store.attempts {
		if a.AssignmentID == assignmentID {
			return cloneAttempt(a), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *attemptRepo) Update(ctx context.Context, attempt *models.Attempt) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.attempts[attempt.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	answers := stored.Answers
	updated := cloneAttempt(attempt)
	updated.Answers = answers
	updated.UpdatedAt = time.Now()
	r.store.attempts[attempt.ID] = updated
	return nil
}

func (r *attemptRepo) UpsertAnswers(ctx context.Context, attemptID uint, answers []models.AttemptAnswer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.attempts[attemptID]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	for _, ans := range answers {
		ans.AttemptID = attemptID
		ans.UpdatedAt = now
		if existing, found := stored.AnswerFor(ans.QuestionID); found {
			ans.ID = existing.ID
			ans.CreatedAt = existing.CreatedAt
			*existing = cloneAnswer(ans)
			continue
		}
		ans.ID = r.store.id()
		ans.CreatedAt = now
		stored.Answers = append(stored.Answers, cloneAnswer(ans))
	}
	return nil
}

func (r *attemptRepo) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*models.Attempt
	for _, a := range r.store.attempts {
		if filters.UserID != nil && a.UserID != *filters.UserID {
			continue
		}
		if filters.TemplateID != nil && a.TemplateID != *filters.TemplateID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		result = append(result, cloneAttempt(a))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	total := int64(len(result))
	return paginate(result, filters.Limit, filters.Offset), total, nil
}

func (r *attemptRepo) CountByTemplate(ctx context.Context, templateID uint) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var count int64
	for _, a := range r.store.attempts {
		if a.TemplateID == templateID {
			count++
		}
	}
	return count, nil
}

// ===== HELPERS =====

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneTemplate(t *models.TestTemplate) *models.TestTemplate {
	c := *t
	c.Questions = make([]models.Question, len(t.Questions))
	for i, q := range t.Questions {
		c.Questions[i] = cloneQuestion(q)
	}
	return &c
}

func cloneQuestion(q models.Question) models.Question {
	q.Options = append(q.Options[:0:0], q.Options...)
	q.CorrectAnswers = append(q.CorrectAnswers[:0:0], q.CorrectAnswers...)
	return q
}

func cloneAssignment(a *models.Assignment) *models.Assignment {
	c := *a
	c.Template = nil
	if a.DueDate != nil {
		due := *a.DueDate
		c.DueDate = &due
	}
	if a.ReassignedFrom != nil {
		from := *a.ReassignedFrom
		c.ReassignedFrom = &from
	}
	return &c
}

func cloneAttempt(a *models.Attempt) *models.Attempt {
	c := *a
	c.Answers = make([]models.AttemptAnswer, len(a.Answers))
	for i, ans := range a.Answers {
		c.Answers[i] = cloneAnswer(ans)
	}
	if a.SubmittedAt != nil {
		at := *a.SubmittedAt
		c.SubmittedAt = &at
	}
	c.Score = clonePtr(a.Score)
	c.Approved = clonePtr(a.Approved)
	c.ReviewedBy = clonePtr(a.ReviewedBy)
	c.Feedback = clonePtr(a.Feedback)
	return &c
}

func cloneAnswer(a models.AttemptAnswer) models.AttemptAnswer {
	a.PointsAwarded = clonePtr(a.PointsAwarded)
	a.IsCorrect = clonePtr(a.IsCorrect)
	return a
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
