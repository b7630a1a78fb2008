package messaging

import "context"

const (
	TopicPurchaseCompleted = "purchase.completed"
	GroupReceiptWorker     = "receipt-worker"

	headerEventType = "event-type"
)

// Typed events carry their type in the event-type message header.
type Typed interface {
	EventType() string
}

// HandlerFunc processes one message payload. A returned error stops the
// consumer without committing the message.
type HandlerFunc func(ctx context.Context, payload []byte) error
