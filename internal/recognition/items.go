package recognition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"calorie-tracker/internal/food"

	"cloud.google.com/go/civil"
)

// Instruction is the text part sent alongside the photo.
const Instruction = "Give calories of each item in this image in this below JSON format only\n" +
	" {items:[{item_name:name of item, total_calories:in kcal, total_protein:in gm, total_carbs:in gm, total_fats:in gm},...]}"

// DetectedItem is one food the vision model found. It is transient until promoted.
type DetectedItem struct {
	Name          string
	TotalCalories float64
	Protein       float64
	Carbs         float64
	Fats          float64
}

// ErrUnparsable is returned when the model content is not the expected JSON.
var ErrUnparsable = errors.New("failed to parse AI response")

type rawItem struct {
	ItemName      string      `json:"item_name"`
	TotalCalories *flexNumber `json:"total_calories"`
	TotalProtein  *flexNumber `json:"total_protein"`
	TotalProtien  *flexNumber `json:"total_protien"`
	TotalCarbs    *flexNumber `json:"total_carbs"`
	ToalCarbs     *flexNumber `json:"toal_carbs"`
	TotalFats     *flexNumber `json:"total_fats"`
	ToalFats      *flexNumber `json:"toal_fats"`
}

type rawAnalysis struct {
	Items []rawItem `json:"items"`
}

// flexNumber accepts 12, 12.5, "12" and "12 g".
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := parseLeadingNumber(s)
		if err != nil {
			return err
		}
		*n = flexNumber(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

func parseLeadingNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || s[end] == '-' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 {
		if s == "" {
			return 0, nil
		}
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return strconv.ParseFloat(s[:end], 64)
}

func first(values ...*flexNumber) float64 {
	for _, v := range values {
		if v != nil {
			return float64(*v)
		}
	}
	return 0
}

// ParseItems decodes the model's message content. A missing items list yields
// no items; content that is not JSON yields ErrUnparsable.
func ParseItems(content string) ([]DetectedItem, error) {
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	items := make([]DetectedItem, 0, len(raw.Items))
	for _, r := range raw.Items {
		name := strings.TrimSpace(r.ItemName)
		if name == "" {
			continue
		}
		items = append(items, DetectedItem{
			Name:          name,
			TotalCalories: first(r.TotalCalories),
			Protein:       first(r.TotalProtein, r.TotalProtien),
			Carbs:         first(r.TotalCarbs, r.ToalCarbs),
			Fats:          first(r.TotalFats, r.ToalFats),
		})
	}
	return items, nil
}

// Promote turns a detected item into a ledger entry with quantity 1.
func Promote(item DetectedItem, meal food.MealType, date civil.Date) food.Entry {
	return food.Entry{
		Name:     item.Name,
		Calories: math.Max(0, math.Round(item.TotalCalories)),
		Quantity: 1,
		Meal:     meal,
		Date:     date,
		Protein:  math.Max(0, item.Protein),
		Carbs:    math.Max(0, item.Carbs),
		Fats:     math.Max(0, item.Fats),
	}
}
