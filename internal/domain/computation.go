package domain

// Computation is the engine-agnostic result shape returned by the external
// tax computation service.
type Computation struct {
	Refund    float64
	TaxOwed   float64
	Carryover float64
}
