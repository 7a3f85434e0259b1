package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/SAP-F-2025/aptitude-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field or business rule violation
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps go-playground validator with the service's business rules
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{validate: validator.New()}
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.registerBusinessRules()
	return v
}

// Validate runs struct validation and returns ValidationErrors or nil
func (v *Validator) Validate(s interface{}) error {
	if errs := v.validateStruct(s); len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *Validator) validateStruct(s interface{}) ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return ToValidationErrors(err)
}

// ToValidationErrors converts go-playground errors into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	result := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		result = append(result, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return result
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "question_type":
		return "must be one of multiple-choice, sentence, boolean"
	case "time_limit":
		return "must be between 1 and 600 minutes"
	case "points_range":
		return "must be between 1 and 100"
	case "template_name":
		return "must be between 1 and 200 characters"
	case "future_date":
		return "must be in the future"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

// ValidateTemplateCreate validates template creation including every nested question
func (v *Validator) ValidateTemplateCreate(req *TemplateCreateRequest) error {
	errs := v.validateStruct(req)
	for i := range req.Questions {
		for _, e := range questionRules(&req.Questions[i]) {
			e.Field = fmt.Sprintf("questions[%d].%s", i, e.Field)
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateQuestionCreate validates a single question against its type's shape
func (v *Validator) ValidateQuestionCreate(req *QuestionCreateRequest) error {
	errs := v.validateStruct(req)
	errs = append(errs, questionRules(req)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateAttemptTransition validates a forward-only attempt status change
func (v *Validator) ValidateAttemptTransition(current, next models.AttemptStatus) error {
	if current.CanTransitionTo(next) {
		return nil
	}
	return ValidationErrors{{
		Field:   "status",
		Message: fmt.Sprintf("cannot transition from %s to %s", current, next),
		Value:   next,
		Rule:    "status_transition",
	}}
}

// ValidateMark checks awarded points against each question's value and the template total
func (v *Validator) ValidateMark(req *MarkRequest, template *models.TestTemplate) error {
	errs := v.validateStruct(req)
	for i, s := range req.Scores {
		q, ok := template.QuestionByID(s.QuestionID)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("scores[%d].questionId", i),
				Message: "question does not belong to this test",
				Value:   s.QuestionID,
				Rule:    "business_logic",
			})
			continue
		}
		if s.Points > float64(q.Points) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("scores[%d].points", i),
				Message: fmt.Sprintf("cannot exceed question value of %d", q.Points),
				Value:   s.Points,
				Rule:    "max_points",
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func questionRules(req *QuestionCreateRequest) ValidationErrors {
	var errs ValidationErrors

	switch req.Type {
	case models.QuestionMultipleChoice:
		if len(req.Options) < 2 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: "multiple-choice questions need at least 2 options",
				Value:   len(req.Options),
				Rule:    "business_logic",
			})
		}
		for _, answer := range req.CorrectAnswers {
			if !contains(req.Options, answer) {
				errs = append(errs, ValidationError{
					Field:   "correctAnswers",
					Message: "correct answer must be one of the options",
					Value:   answer,
					Rule:    "business_logic",
				})
			}
		}
	case models.QuestionBoolean:
		for _, answer := range req.CorrectAnswers {
			if answer != "true" && answer != "false" {
				errs = append(errs, ValidationError{
					Field:   "correctAnswers",
					Message: "boolean answers must be \"true\" or \"false\"",
					Value:   answer,
					Rule:    "business_logic",
				})
			}
		}
		if len(req.Options) > 0 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: "only multiple-choice questions carry options",
				Rule:    "business_logic",
			})
		}
	case models.QuestionSentence:
		if len(req.Options) > 0 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: "only multiple-choice questions carry options",
				Rule:    "business_logic",
			})
		}
	}

	return errs
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// registerBusinessRules registers custom business rule validators
func (v *Validator) registerBusinessRules() {
	// Time limit in minutes (1-600)
	v.validate.RegisterValidation("time_limit", func(fl validator.FieldLevel) bool {
		limit := fl.Field().Int()
		return limit >= 1 && limit <= 600
	})

	// Points range validation
	v.validate.RegisterValidation("points_range", func(fl validator.FieldLevel) bool {
		points := fl.Field().Int()
		return points >= 1 && points <= 100
	})

	v.validate.RegisterValidation("template_name", func(fl validator.FieldLevel) bool {
		name := strings.TrimSpace(fl.Field().String())
		return len(name) >= 1 && len(name) <= 200
	})

	v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).IsValid()
	})

	// Due date validation (must be in future)
	v.validate.RegisterValidation("future_date", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				return true
			}
			field = field.Elem()
		}
		dueDate, ok := field.Interface().(time.Time)
		if !ok {
			return false
		}
		return dueDate.After(time.Now())
	})
}
