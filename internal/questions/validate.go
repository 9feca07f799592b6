package questions

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// MaxEmptyOptions is how many of A..E may be blank; some questions only
// have A..C.
const MaxEmptyOptions = 2

// Issue is one validation failure.
type Issue struct {
	Number  int
	Field   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("question %d: %s %s", i.Number, i.Field, i.Message)
}

var validate = validator.New()

// Validate checks every question and returns all issues found.
func Validate(qs []Question) []Issue {
	var issues []Issue
	for _, q := range qs {
		if err := validate.Struct(q); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				issues = append(issues, Issue{Number: q.Number, Message: err.Error()})
				continue
			}
			for _, e := range verrs {
				issues = append(issues, Issue{Number: q.Number, Field: e.Field(), Message: fmt.Sprintf("failed on '%s' tag", e.Tag())})
			}
		}

		empty := 0
		for _, o := range q.Options {
			if o == "" {
				empty++
			}
		}
		if empty > MaxEmptyOptions {
			issues = append(issues, Issue{Number: q.Number, Field: "Options", Message: fmt.Sprintf("only %d options", len(q.Options)-empty)})
		}
	}
	return issues
}
