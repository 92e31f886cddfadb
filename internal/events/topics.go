package events

// Topic constants for domain events emitted by the POS.
const (
	TopicSaleCompleted = "sale.completed"
	TopicStockLow      = "stock.low"
)
