package kafka

// OrderEvent is the wire shape of one message on the order-events topic.
type OrderEvent struct {
	EventType string `json:"event_type"`
	OrderID   string `json:"order_id"`
}
