package components

// Position represents an entity's world position.
// Layout matches r2.Vec so the two convert directly.
type Position struct {
	X, Y float64
}
