package cart

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrStaleQuote        = errors.New("cart changed since quote")
	ErrUnknownGame       = errors.New("unknown game")
	ErrNegativePrice     = errors.New("price cannot be negative")
	ErrInvalidVoucher    = errors.New("voucher percent must be 0-100")
)

// InsufficientFundsError reports how far the balance is from covering the total.
type InsufficientFundsError struct {
	Total   int64
	Balance int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: total %d exceeds balance %d (short by %d)", e.Total, e.Balance, e.Shortfall())
}

func (e *InsufficientFundsError) Shortfall() int64 {
	return e.Total - e.Balance
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
