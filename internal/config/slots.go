package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

//go:embed slots.toml
var defaultSlotsTOML []byte

// fallbackTemplate is used for the slots of a meal count that has no template.
const fallbackTemplate = 2

// MealSlot names a meal position in the day.
type MealSlot struct {
	Name string `toml:"name"`
	Time string `toml:"time"`
}

// SlotTemplates maps a number of meals per day to its named slots.
type SlotTemplates struct {
	Meals map[string][]MealSlot `toml:"meals"`
}

// LoadSlots reads slot templates from a TOML file. An empty path returns the built-in templates.
func LoadSlots(path string) (*SlotTemplates, error) {
	data := defaultSlotsTOML
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read planner config %s: %w", path, err)
		}
		data = raw
	}

	var t SlotTemplates
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse planner config: %w", err)
	}
	for key := range t.Meals {
		if _, err := strconv.Atoi(key); err != nil {
			return nil, fmt.Errorf("invalid meal count %q in planner config", key)
		}
	}
	return &t, nil
}

// DefaultSlots returns the built-in slot templates.
func DefaultSlots() *SlotTemplates {
	t, err := LoadSlots("")
	if err != nil {
		panic(fmt.Sprintf("embedded slot templates are invalid: %v", err))
	}
	return t
}

// Slot returns the name and time for slot i of a day with numMeals meals.
func (t *SlotTemplates) Slot(numMeals, i int) MealSlot {
	template, ok := t.Meals[strconv.Itoa(numMeals)]
	if !ok {
		template = t.Meals[strconv.Itoa(fallbackTemplate)]
	}
	if i >= 0 && i < len(template) {
		return template[i]
	}
	return MealSlot{Name: fmt.Sprintf("Meal %d", i+1), Time: "12:00 PM"}
}
