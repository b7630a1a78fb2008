package domain

import "time"

type ReceiptLine struct {
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
	Cover     string `json:"cover"`
}

type Receipt struct {
	ID             string        `json:"id"`
	Lines          []ReceiptLine `json:"lines"`
	Units          int           `json:"units"`
	Subtotal       int64         `json:"subtotal"`
	Discount       int64         `json:"discount"`
	Total          int64         `json:"total"`
	BalanceBefore  int64         `json:"balance_before"`
	BalanceAfter   int64         `json:"balance_after"`
	VoucherPercent int64         `json:"voucher_percent"`
	Recipient      string        `json:"recipient,omitempty"`
	PurchasedAt    time.Time     `json:"purchased_at"`
}
