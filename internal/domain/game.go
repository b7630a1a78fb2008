package domain

// Game is a catalog entry. BasePrice is in whole Rupiah.
type Game struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	BasePrice int64  `json:"base_price"`
	Cover     string `json:"cover"`
}

// Snapshot is a game frozen at the price it had when it entered the cart.
// Two snapshots are the same cart entry iff all three fields are equal.
type Snapshot struct {
	Title string `json:"title"`
	Price int64  `json:"price"`
	Cover string `json:"cover"`
}

type OwnedGame struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Cover    string `json:"cover"`
}
