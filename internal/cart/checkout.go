package cart

import "github.com/joao-fontenele/gamestore-otel-demo/internal/domain"

// Quote is a priced view of the cart at one version. It is only valid for
// Commit while the cart has not changed.
type Quote struct {
	Lines       []Line `json:"lines"`
	UniqueCount int    `json:"unique_count"`
	Units       int    `json:"units"`
	Subtotal    int64  `json:"subtotal"`
	Discount    int64  `json:"discount"`
	Total       int64  `json:"total"`
	Balance     int64  `json:"balance"`
	Version     uint64 `json:"version"`
}

// Quote validates a checkout against balance without changing any state.
func (e *Engine) Quote(balance int64) (Quote, error) {
	if e.cart.UniqueCount() == 0 {
		return Quote{}, ErrEmptyCart
	}

	subtotal := e.cart.Subtotal()
	total := e.cart.Total()
	if balance < total {
		return Quote{}, &InsufficientFundsError{Total: total, Balance: balance}
	}

	return Quote{
		Lines:       e.cart.Lines(),
		UniqueCount: e.cart.UniqueCount(),
		Units:       e.cart.TotalUnits(),
		Subtotal:    subtotal,
		Discount:    subtotal - total,
		Total:       total,
		Balance:     balance,
		Version:     e.cart.Version(),
	}, nil
}

// Commit charges the quote, clears the cart and the voucher, and returns the
// receipt. Either everything happens or nothing does.
func (e *Engine) Commit(q Quote) (domain.Receipt, error) {
	if e.cart.UniqueCount() == 0 {
		return domain.Receipt{}, ErrEmptyCart
	}
	if q.Version != e.cart.Version() {
		return domain.Receipt{}, ErrStaleQuote
	}
	if q.Balance < q.Total {
		return domain.Receipt{}, &InsufficientFundsError{Total: q.Total, Balance: q.Balance}
	}

	lines := make([]domain.ReceiptLine, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, domain.ReceiptLine{
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal,
			Cover:     l.Cover,
		})
	}

	receipt := domain.Receipt{
		ID:             e.newID(),
		Lines:          lines,
		Units:          q.Units,
		Subtotal:       q.Subtotal,
		Discount:       q.Discount,
		Total:          q.Total,
		BalanceBefore:  q.Balance,
		BalanceAfter:   q.Balance - q.Total,
		VoucherPercent: e.voucher,
		PurchasedAt:    e.now(),
	}

	e.cart.Clear()
	e.voucher = 0

	return receipt, nil
}

// Checkout is Quote followed immediately by Commit.
func (e *Engine) Checkout(balance int64) (domain.Receipt, error) {
	q, err := e.Quote(balance)
	if err != nil {
		return domain.Receipt{}, err
	}
	return e.Commit(q)
}
