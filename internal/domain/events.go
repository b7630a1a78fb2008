package domain

import "time"

// PurchaseCompletedEvent is published once per successful checkout.
type PurchaseCompletedEvent struct {
	Receipt   Receipt   `json:"receipt"`
	Timestamp time.Time `json:"timestamp"`
}

func (PurchaseCompletedEvent) EventType() string {
	return "purchase.completed"
}
