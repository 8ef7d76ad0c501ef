package telegram

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"calorie-tracker/internal/food"

	"cloud.google.com/go/civil"
)

var errAddUsage = errors.New("Usage: /add name calories [quantity] [meal] [YYYY-MM-DD]")

// parseAddArgs reads "/add" arguments from the end: an optional date, an
// optional meal, then calories and an optional quantity. Whatever is left is
// the name. Without numbers the name is looked up in the common foods.
func parseAddArgs(args string, today civil.Date, defaultMeal food.MealType) (food.Entry, error) {
	tokens := strings.Fields(args)
	e := food.Entry{Quantity: 1, Meal: defaultMeal, Date: today}

	if n := len(tokens); n > 1 {
		if d, err := civil.ParseDate(tokens[n-1]); err == nil {
			e.Date = d
			tokens = tokens[:n-1]
		}
	}
	if n := len(tokens); n > 1 {
		if m, err := food.ParseMealType(tokens[n-1]); err == nil {
			e.Meal = m
			tokens = tokens[:n-1]
		}
	}

	n := len(tokens)
	switch {
	case n >= 3 && isNumber(tokens[n-1]) && isNumber(tokens[n-2]):
		e.Calories, _ = strconv.ParseFloat(tokens[n-2], 64)
		e.Quantity, _ = strconv.ParseFloat(tokens[n-1], 64)
		tokens = tokens[:n-2]
	case n >= 2 && isNumber(tokens[n-1]):
		e.Calories, _ = strconv.ParseFloat(tokens[n-1], 64)
		tokens = tokens[:n-1]
	default:
		c, ok := food.LookupCommon(strings.Join(tokens, " "))
		if !ok {
			return food.Entry{}, errAddUsage
		}
		return c.Entry(e.Meal, e.Date), nil
	}

	e.Name = strings.Join(tokens, " ")
	if e.Name == "" {
		return food.Entry{}, errAddUsage
	}
	return e, nil
}

// isNumber accepts finite numbers only; ParseFloat also takes "Inf" and "NaN".
func isNumber(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}
