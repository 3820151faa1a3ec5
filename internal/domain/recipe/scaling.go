package recipe

import "fmt"

// ScaledComponent is a non-mutating view of a component at a requested
// serving count.
type ScaledComponent struct {
	Component      Component `json:"component"`
	TargetServings int       `json:"target_servings"`
	Factor         float64   `json:"factor"`
	// Scaled is false for components that do not follow the serving count.
	Scaled bool `json:"scaled"`
}

// ScaledGraph is a recipe graph viewed at one serving count
type ScaledGraph struct {
	Recipe         *Graph            `json:"-"`
	RecipeID       string            `json:"recipe_id"`
	RecipeName     string            `json:"recipe_name"`
	TargetServings int               `json:"target_servings"`
	Components     []ScaledComponent `json:"components"`
}

// ScaleQuantity returns q * (target / base) in float64. The operation order
// is fixed so repeated calls are bit-identical.
func ScaleQuantity(q float64, base, target int) float64 {
	return q * (float64(target) / float64(base))
}

// ScaleComponent scales every ingredient of c linearly to targetServings.
// No rounding or unit conversion happens here.
func ScaleComponent(c Component, targetServings int) (ScaledComponent, error) {
	if targetServings <= 0 {
		return ScaledComponent{}, fmt.Errorf("%w: got %d", ErrInvalidTargetServings, targetServings)
	}

	out := ScaledComponent{
		Component:      c.clone(),
		TargetServings: targetServings,
		Factor:         1,
	}

	if c.BaseServings == nil {
		return out, nil
	}

	base := *c.BaseServings
	if base <= 0 {
		return ScaledComponent{}, fmt.Errorf("%w: component %s has base servings %d", ErrInvalidBaseServings, c.ID, base)
	}

	out.Factor = float64(targetServings) / float64(base)
	out.Scaled = true
	for i := range out.Component.Ingredients {
		out.Component.Ingredients[i].Quantity = ScaleQuantity(out.Component.Ingredients[i].Quantity, base, targetServings)
	}

	return out, nil
}

// ScaleGraph applies one serving count uniformly to every component of g.
func ScaleGraph(g *Graph, targetServings int) (*ScaledGraph, error) {
	if targetServings <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTargetServings, targetServings)
	}

	scaled := &ScaledGraph{
		Recipe:         g,
		RecipeID:       g.id,
		RecipeName:     g.name,
		TargetServings: targetServings,
		Components:     make([]ScaledComponent, 0, len(g.components)),
	}

	for _, c := range g.components {
		sc, err := ScaleComponent(c, targetServings)
		if err != nil {
			return nil, err
		}
		scaled.Components = append(scaled.Components, sc)
	}

	return scaled, nil
}
