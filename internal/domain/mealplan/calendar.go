package mealplan

import (
	"fmt"
	"sort"
	"time"

	"github.com/alchemorsel/planner/internal/domain/recipe"
)

// Lookup returns the assembled graph of a recipe that has already been
// fetched. It must not block.
type Lookup func(recipeID string) (*recipe.Graph, error)

// FailureMapper lets the caller translate a per-item error before it is
// stored on the entry.
type FailureMapper func(item Item, err error) error

// Entry is one planned item in the calendar. Exactly one of Recipe and Err
// is set.
type Entry struct {
	Item    Item                `json:"item"`
	Recipe  *recipe.ScaledGraph `json:"recipe,omitempty"`
	Err     error               `json:"-"`
	Failure string              `json:"failure,omitempty"`
}

// Resolved reports whether the entry carries a scaled recipe
func (e Entry) Resolved() bool {
	return e.Err == nil
}

// MealGroup holds the entries of one raw meal-type string within a day
type MealGroup struct {
	MealType string  `json:"meal_type"`
	Entries  []Entry `json:"entries"`
}

// IngredientTotal is a scaled quantity summed over one exact (name, unit)
type IngredientTotal struct {
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity"`
}

// Summary counts and totals over a set of entries
type Summary struct {
	Items       int               `json:"items"`
	Resolved    int               `json:"resolved"`
	Unresolved  int               `json:"unresolved"`
	Servings    int               `json:"servings"`
	Ingredients []IngredientTotal `json:"ingredients"`
}

// DayBucket is one calendar date of the view
type DayBucket struct {
	Date    time.Time   `json:"date"`
	Groups  []MealGroup `json:"groups"`
	Summary Summary     `json:"summary"`
}

// Calendar is the aggregated view of a meal plan over a date range
type Calendar struct {
	MealPlanID string      `json:"meal_plan_id"`
	Range      DateRange   `json:"range"`
	Days       []DayBucket `json:"days"`
	Summary    Summary     `json:"summary"`
}

// Failures returns every unresolved entry in calendar order
func (c *Calendar) Failures() []Entry {
	var out []Entry
	for _, day := range c.Days {
		for _, group := range day.Groups {
			for _, e := range group.Entries {
				if !e.Resolved() {
					out = append(out, e)
				}
			}
		}
	}
	return out
}

// Entries returns every entry in calendar order
func (c *Calendar) Entries() []Entry {
	var out []Entry
	for _, day := range c.Days {
		for _, group := range day.Groups {
			out = append(out, group.Entries...)
		}
	}
	return out
}

// SortItems orders items by date then id so the view does not depend on
// storage order.
func SortItems(items []Item) {
	sort.SliceStable(items, func(a, b int) bool {
		if !items[a].Date.Equal(items[b].Date) {
			return items[a].Date.Before(items[b].Date)
		}
		return items[a].ID < items[b].ID
	})
}

// BuildCalendar lays out items that fall in rng into day buckets and scales
// each item's recipe to the item's servings. A failing item becomes a failed
// entry; it never fails the whole calendar. Days without items are omitted.
func BuildCalendar(mealPlanID string, rng DateRange, items []Item, lookup Lookup, mapFailure FailureMapper) *Calendar {
	inRange := make([]Item, 0, len(items))
	for _, item := range items {
		if rng.Contains(item.Date) {
			inRange = append(inRange, item)
		}
	}
	SortItems(inRange)

	cal := &Calendar{
		MealPlanID: mealPlanID,
		Range:      rng,
		Days:       []DayBucket{},
	}
	total := newSummaryBuilder()

	var (
		day    *DayBucket
		daySum *summaryBuilder
		groups map[string]int
	)
	flush := func() {
		if day != nil {
			day.Summary = daySum.build()
			cal.Days = append(cal.Days, *day)
		}
	}

	for _, item := range inRange {
		date := rng.DayOf(item.Date)
		if day == nil || !day.Date.Equal(date) {
			flush()
			day = &DayBucket{Date: date}
			daySum = newSummaryBuilder()
			groups = make(map[string]int)
		}

		entry := resolveEntry(item, lookup)
		if entry.Err != nil {
			if mapFailure != nil {
				entry.Err = mapFailure(item, entry.Err)
			}
			entry.Failure = entry.Err.Error()
		}

		idx, ok := groups[item.MealType]
		if !ok {
			idx = len(day.Groups)
			groups[item.MealType] = idx
			day.Groups = append(day.Groups, MealGroup{MealType: item.MealType})
		}
		day.Groups[idx].Entries = append(day.Groups[idx].Entries, entry)

		daySum.add(entry)
		total.add(entry)
	}
	flush()

	cal.Summary = total.build()
	return cal
}

func resolveEntry(item Item, lookup Lookup) Entry {
	entry := Entry{Item: item}

	if item.Servings <= 0 {
		entry.Err = fmt.Errorf("%w: item %s has %d", ErrInvalidServings, item.ID, item.Servings)
		return entry
	}

	graph, err := lookup(item.RecipeID)
	if err != nil {
		entry.Err = err
		return entry
	}
	if !graph.IsComplete() {
		entry.Err = fmt.Errorf("%w: recipe %s", ErrIncompleteRecipe, item.RecipeID)
		return entry
	}

	scaled, err := recipe.ScaleGraph(graph, item.Servings)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Recipe = scaled
	return entry
}

type totalKey struct {
	name string
	unit string
}

type summaryBuilder struct {
	summary Summary
	index   map[totalKey]int
}

func newSummaryBuilder() *summaryBuilder {
	return &summaryBuilder{
		summary: Summary{Ingredients: []IngredientTotal{}},
		index:   make(map[totalKey]int),
	}
}

func (b *summaryBuilder) add(e Entry) {
	b.summary.Items++
	if !e.Resolved() {
		b.summary.Unresolved++
		return
	}
	b.summary.Resolved++
	b.summary.Servings += e.Item.Servings

	for _, c := range e.Recipe.Components {
		for _, ing := range c.Component.Ingredients {
			k := totalKey{name: ing.Name, unit: ing.Unit}
			i, ok := b.index[k]
			if !ok {
				i = len(b.summary.Ingredients)
				b.index[k] = i
				b.summary.Ingredients = append(b.summary.Ingredients, IngredientTotal{Name: ing.Name, Unit: ing.Unit})
			}
			b.summary.Ingredients[i].Quantity += ing.Quantity
		}
	}
}

func (b *summaryBuilder) build() Summary {
	return b.summary
}
