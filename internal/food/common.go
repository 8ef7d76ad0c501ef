package food

import (
	"strings"

	"cloud.google.com/go/civil"
)

// CommonFood is a catalogue item used to pre-fill manual entries.
type CommonFood struct {
	Name     string
	Calories float64
}

var commonFoods = []CommonFood{
	{Name: "Apple", Calories: 95},
	{Name: "Banana", Calories: 105},
	{Name: "Chicken Breast (100g)", Calories: 165},
	{Name: "Rice (1 cup)", Calories: 205},
	{Name: "Bread Slice", Calories: 80},
	{Name: "Egg", Calories: 70},
	{Name: "Milk (1 cup)", Calories: 150},
	{Name: "Pasta (1 cup)", Calories: 220},
	{Name: "Salmon (100g)", Calories: 208},
	{Name: "Broccoli (1 cup)", Calories: 25},
	{Name: "Yogurt (1 cup)", Calories: 150},
	{Name: "Oatmeal (1 cup)", Calories: 150},
}

// CommonFoods returns a copy of the built-in catalogue.
func CommonFoods() []CommonFood {
	out := make([]CommonFood, len(commonFoods))
	copy(out, commonFoods)
	return out
}

// LookupCommon finds a catalogue item by case-insensitive name.
func LookupCommon(name string) (CommonFood, bool) {
	name = strings.TrimSpace(name)
	for _, cf := range commonFoods {
		if strings.EqualFold(cf.Name, name) {
			return cf, true
		}
	}
	return CommonFood{}, false
}

// Entry pre-fills a one-unit entry from the catalogue item.
func (c CommonFood) Entry(meal MealType, date civil.Date) Entry {
	return Entry{
		Name:     c.Name,
		Calories: c.Calories,
		Quantity: 1,
		Meal:     meal,
		Date:     date,
	}
}
