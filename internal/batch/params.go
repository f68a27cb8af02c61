package batch

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	MinQuestions = 1
	MaxQuestions = 100
)

// Params is one validated generation request from the UI or CLI.
type Params struct {
	// TotalPages is filled in by the Runner from the loaded document.
	TotalPages int    `validate:"min=1"`
	APIKey     string `validate:"required"`
	StartPage  int    `validate:"min=1"`
	EndPage    int    `validate:"gtefield=StartPage,ltefield=TotalPages"`
	Count      int    `validate:"min=1,max=100"`
}

// ValidationError is a user-facing input problem. No generation is attempted
// when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the page range and question count against the document.
func (p Params) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Message: p.message(fe)}
}

func (p Params) message(fe validator.FieldError) string {
	switch fe.Field() {
	case "APIKey":
		return "Please enter your OpenAI API key to generate questions."
	case "StartPage":
		return fmt.Sprintf("Start page must be between 1 and %d.", p.TotalPages)
	case "EndPage":
		if fe.Tag() == "gtefield" {
			return "Start page must be less than or equal to end page."
		}
		return fmt.Sprintf("End page must be at most %d.", p.TotalPages)
	case "Count":
		return fmt.Sprintf("Questions per page must be between %d and %d.", MinQuestions, MaxQuestions)
	case "TotalPages":
		return "No text extracted from the PDF."
	default:
		return fe.Error()
	}
}
