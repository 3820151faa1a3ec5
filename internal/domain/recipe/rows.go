package recipe

import "time"

// Rows are the raw records of one recipe as returned by the storage
// collaborator. Slices are in storage order, which carries no meaning.
type Rows struct {
	Recipe       RecipeRow
	Components   []ComponentRow
	Ingredients  []IngredientRow
	Instructions []InstructionRow
}

// RecipeRow is the stored recipe header
type RecipeRow struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ComponentRow is a stored recipe component.
// A nil BaseServings marks a component that does not scale.
type ComponentRow struct {
	ID           string
	RecipeID     string
	Name         string
	Storeable    bool
	BaseServings *int
	Order        int
}

// IngredientRow is a stored ingredient line of a component
type IngredientRow struct {
	ID          string
	ComponentID string
	Name        string
	Quantity    float64
	Unit        string
	Order       int
	Preparation string
}

// InstructionRow is a stored instruction step of a component
type InstructionRow struct {
	ID          string
	ComponentID string
	Text        string
	Order       int
}
