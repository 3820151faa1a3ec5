// Package recipe contains the recipe composition model: the ordered,
// read-only recipe graph assembled from stored rows and the servings-based
// scaling that runs over it.
package recipe

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Ingredient is one ingredient line of a component
type Ingredient struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Order       int     `json:"order"`
	Preparation string  `json:"preparation,omitempty"`
}

// Instruction is one step of a component
type Instruction struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// Component is a sub-part of a recipe such as "dough" or "filling".
type Component struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Storeable    bool          `json:"storeable"`
	BaseServings *int          `json:"base_servings"`
	Order        int           `json:"order"`
	Ingredients  []Ingredient  `json:"ingredients"`
	Instructions []Instruction `json:"instructions"`
}

// IsScalingAware reports whether the component's quantities follow the
// serving count.
func (c Component) IsScalingAware() bool {
	return c.BaseServings != nil
}

func (c Component) clone() Component {
	out := c
	if c.BaseServings != nil {
		base := *c.BaseServings
		out.BaseServings = &base
	}
	out.Ingredients = append(make([]Ingredient, 0, len(c.Ingredients)), c.Ingredients...)
	out.Instructions = append(make([]Instruction, 0, len(c.Instructions)), c.Instructions...)
	return out
}

// Graph is the assembled, ordered tree of one recipe. It is never mutated
// after Assemble returns; accessors hand out copies.
type Graph struct {
	id          string
	name        string
	description string
	createdBy   string
	createdAt   time.Time
	updatedAt   time.Time
	components  []Component
}

// ID returns the recipe id
func (g *Graph) ID() string { return g.id }

// Name returns the recipe name
func (g *Graph) Name() string { return g.name }

// Description returns the recipe description
func (g *Graph) Description() string { return g.description }

// CreatedBy returns the owning user id
func (g *Graph) CreatedBy() string { return g.createdBy }

// CreatedAt returns when the recipe was created
func (g *Graph) CreatedAt() time.Time { return g.createdAt }

// UpdatedAt returns when the recipe was last updated
func (g *Graph) UpdatedAt() time.Time { return g.updatedAt }

// ComponentCount returns the number of components
func (g *Graph) ComponentCount() int { return len(g.components) }

// Components returns a copy of the ordered components
func (g *Graph) Components() []Component {
	out := make([]Component, len(g.components))
	for i, c := range g.components {
		out[i] = c.clone()
	}
	return out
}

// IsComplete reports whether the recipe can be shared or planned.
// A recipe without components is a valid draft but not complete.
func (g *Graph) IsComplete() bool {
	return len(g.components) > 0
}

// MarshalJSON renders the graph for presentation layers
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string      `json:"id"`
		Name        string      `json:"name"`
		Description string      `json:"description,omitempty"`
		CreatedBy   string      `json:"created_by"`
		CreatedAt   time.Time   `json:"created_at"`
		UpdatedAt   time.Time   `json:"updated_at"`
		IsComplete  bool        `json:"is_complete"`
		Components  []Component `json:"components"`
	}{
		ID:          g.id,
		Name:        g.name,
		Description: g.description,
		CreatedBy:   g.createdBy,
		CreatedAt:   g.createdAt,
		UpdatedAt:   g.updatedAt,
		IsComplete:  g.IsComplete(),
		Components:  g.components,
	})
}

// Assemble builds the ordered graph from stored rows. Order values are not
// unique in storage, so a collision within a sibling set is reported as an
// integrity violation instead of being resolved arbitrarily.
func Assemble(rows Rows) (*Graph, error) {
	g := &Graph{
		id:          rows.Recipe.ID,
		name:        rows.Recipe.Name,
		description: rows.Recipe.Description,
		createdBy:   rows.Recipe.CreatedBy,
		createdAt:   rows.Recipe.CreatedAt,
		updatedAt:   rows.Recipe.UpdatedAt,
	}

	index := make(map[string]int, len(rows.Components))
	componentOrders := make(map[int]string, len(rows.Components))
	components := make([]Component, 0, len(rows.Components))

	for _, row := range rows.Components {
		if row.RecipeID != "" && row.RecipeID != rows.Recipe.ID {
			return nil, fmt.Errorf("%w: component %s belongs to recipe %s", ErrForeignComponent, row.ID, row.RecipeID)
		}
		if other, dup := componentOrders[row.Order]; dup {
			return nil, fmt.Errorf("%w: components %s and %s share order %d", ErrDuplicateOrder, other, row.ID, row.Order)
		}
		componentOrders[row.Order] = row.ID

		var base *int
		if row.BaseServings != nil {
			v := *row.BaseServings
			base = &v
		}

		index[row.ID] = len(components)
		components = append(components, Component{
			ID:           row.ID,
			Name:         row.Name,
			Storeable:    row.Storeable,
			BaseServings: base,
			Order:        row.Order,
			Ingredients:  []Ingredient{},
			Instructions: []Instruction{},
		})
	}

	ingredientOrders := make(map[string]map[int]string)
	for _, row := range rows.Ingredients {
		i, ok := index[row.ComponentID]
		if !ok {
			return nil, fmt.Errorf("%w: ingredient %s references component %s", ErrUnknownComponent, row.ID, row.ComponentID)
		}
		if row.Quantity < 0 {
			return nil, fmt.Errorf("%w: ingredient %s has quantity %g", ErrNegativeQuantity, row.ID, row.Quantity)
		}
		if err := claimOrder(ingredientOrders, row.ComponentID, row.Order, row.ID, "ingredients"); err != nil {
			return nil, err
		}
		components[i].Ingredients = append(components[i].Ingredients, Ingredient{
			ID:          row.ID,
			Name:        row.Name,
			Quantity:    row.Quantity,
			Unit:        row.Unit,
			Order:       row.Order,
			Preparation: row.Preparation,
		})
	}

	instructionOrders := make(map[string]map[int]string)
	for _, row := range rows.Instructions {
		i, ok := index[row.ComponentID]
		if !ok {
			return nil, fmt.Errorf("%w: instruction %s references component %s", ErrUnknownComponent, row.ID, row.ComponentID)
		}
		if err := claimOrder(instructionOrders, row.ComponentID, row.Order, row.ID, "instructions"); err != nil {
			return nil, err
		}
		components[i].Instructions = append(components[i].Instructions, Instruction{
			ID:    row.ID,
			Text:  row.Text,
			Order: row.Order,
		})
	}

	sort.Slice(components, func(a, b int) bool { return components[a].Order < components[b].Order })
	for i := range components {
		ingredients := components[i].Ingredients
		sort.Slice(ingredients, func(a, b int) bool { return ingredients[a].Order < ingredients[b].Order })
		instructions := components[i].Instructions
		sort.Slice(instructions, func(a, b int) bool { return instructions[a].Order < instructions[b].Order })
	}

	g.components = components
	return g, nil
}

func claimOrder(seen map[string]map[int]string, componentID string, order int, rowID, kind string) error {
	orders, ok := seen[componentID]
	if !ok {
		orders = make(map[int]string)
		seen[componentID] = orders
	}
	if other, dup := orders[order]; dup {
		return fmt.Errorf("%w: %s %s and %s of component %s share order %d", ErrDuplicateOrder, kind, other, rowID, componentID, order)
	}
	orders[order] = rowID
	return nil
}
