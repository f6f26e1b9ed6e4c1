package attendance

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/0xPratikag/clinicctl/internal/model"
	"github.com/0xPratikag/clinicctl/internal/timecalc"
)

// DefaultDays is how far back the default range reaches.
const DefaultDays = 12

// Filters are the operator-chosen constraints of an attendance query.
type Filters struct {
	From   model.Day            `validate:"required"`
	To     model.Day            `validate:"required"`
	Status model.ApprovalStatus `validate:"omitempty,oneof=pending approved rejected"`
	Query  string
}

// DefaultFilters covers today minus days through today with no status or text.
func DefaultFilters(now time.Time, days int) Filters {
	from, to := timecalc.DefaultRange(now, days)
	return Filters{From: from, To: to}
}

// Summary describes f for report headers.
func (f Filters) Summary() string {
	parts := []string{fmt.Sprintf("From %s to %s", f.From, f.To)}
	if f.Status != "" {
		parts = append(parts, "Status: "+string(f.Status))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, "Search: "+q)
	}
	return strings.Join(parts, "   •   ")
}

// ValidationError is a local rejection raised before any request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Day is validated through its string form; the zero Day renders as "".
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		return f.Interface().(model.Day).String()
	}, model.Day{})
	return v
}

// Validate checks the filters: both dates present, from not after to, status
// one of the known values.
func (f Filters) Validate() error {
	if err := validate.Struct(f); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			switch fe.Field() {
			case "From", "To":
				return &ValidationError{Field: strings.ToLower(fe.Field()), Message: "date is required"}
			case "Status":
				return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid status %q", fe.Value())}
			}
			return &ValidationError{Field: fe.Field(), Message: fe.Tag()}
		}
		return err
	}
	if f.To.Before(f.From) {
		return &ValidationError{Field: "from", Message: "from must not be after to"}
	}
	return nil
}
