// Package food defines the logged food entry and its validation rules.
package food

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
)

// MealType is the meal a food entry belongs to.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// MealTypes lists the meal types in display order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, Snack}

// ParseMealType converts user input such as "Lunch" into a MealType.
func ParseMealType(s string) (MealType, error) {
	m := MealType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range MealTypes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown meal type %q (want breakfast, lunch, dinner or snack)", s)
}

// Title returns the capitalised meal name, e.g. "Breakfast".
func (m MealType) Title() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// Entry is one logged food occurrence. Entries are never edited in place.
type Entry struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name" validate:"required"`
	Calories float64    `json:"calories" validate:"finite,gte=0"`
	Quantity float64    `json:"quantity" validate:"finite,gt=0"`
	Meal     MealType   `json:"meal" validate:"oneof=breakfast lunch dinner snack"`
	Date     civil.Date `json:"date"`
	Protein  float64    `json:"protein,omitempty" validate:"finite,gte=0"`
	Carbs    float64    `json:"carbs,omitempty" validate:"finite,gte=0"`
	Fats     float64    `json:"fats,omitempty" validate:"finite,gte=0"`
}

// CaloriesContributed is the per-unit calories multiplied by the quantity.
func (e Entry) CaloriesContributed() float64 {
	return e.Calories * e.Quantity
}

// ErrInvalidEntry is wrapped by every validation failure returned from Validate.
var ErrInvalidEntry = errors.New("invalid food entry")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// JSON cannot encode NaN or Inf, so such an entry could never be saved.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// Validate checks the entry against the ledger constraints. Blank names count as missing.
func Validate(e Entry) error {
	e.Name = strings.TrimSpace(e.Name)
	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalidEntry, strings.Join(msgs, "; "))
	}
	if !e.Date.IsValid() {
		return fmt.Errorf("%w: date is required", ErrInvalidEntry)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return fe.Field() + " must be a finite number"
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fe.Field() + " must not be negative"
	case "gt":
		return fe.Field() + " must be greater than zero"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
