package messaging

// Event kinds. The topic for a kind is "<prefix>.<kind>".
const (
	KindBlocks       = "blocks"
	KindTransactions = "transactions"
)
