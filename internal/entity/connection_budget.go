package entity

// ConnectionBudget is the number of store connections this run may hold,
// negotiated once at startup and never renegotiated.
type ConnectionBudget struct {
	Max      int // reported by the store
	Active   int // in use by other clients at negotiation time
	Capacity int // Max - Active
}
