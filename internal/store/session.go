package store

import (
	"errors"
	"sync"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/cart"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/domain"
)

var (
	ErrNoDeal = errors.New("no daily deal drawn")
	ErrNoSpin = errors.New("no spin round available")
)

// Session is the single player's store state. The engine is not safe for
// concurrent use, so every method holds mu for its whole duration.
type Session struct {
	mu       sync.Mutex
	engine   *cart.Engine
	rng      cart.Rand
	balance  int64
	deal     cart.Deal
	hasDeal  bool
	spins    int
	stickers int
}

// NewSession draws today's deal from rng. The deal is not applied.
func NewSession(engine *cart.Engine, balance int64, rng cart.Rand) *Session {
	s := &Session{engine: engine, rng: rng, balance: balance}
	s.deal, s.hasDeal = cart.DrawDeal(rng, engine.Games())
	return s
}

type CartView struct {
	Lines       []cart.Line `json:"lines"`
	UniqueCount int         `json:"unique_count"`
	Units       int         `json:"units"`
	Subtotal    int64       `json:"subtotal"`
	Discount    int64       `json:"discount"`
	Total       int64       `json:"total"`
	Voucher     int64       `json:"voucher_percent"`
	Version     uint64      `json:"version"`
}

type Wallet struct {
	Balance        int64  `json:"balance"`
	Formatted      string `json:"formatted"`
	Stickers       int    `json:"stickers"`
	SpinsAvailable int    `json:"spins_available"`
}

func (s *Session) Catalog() []cart.CatalogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Catalog()
}

func (s *Session) SetPrice(key string, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ApplyDailyDeal(key, price)
}

func (s *Session) Deal() (cart.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasDeal {
		return cart.Deal{}, ErrNoDeal
	}
	return s.deal, nil
}

func (s *Session) ApplyDeal() (cart.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasDeal {
		return cart.Deal{}, ErrNoDeal
	}
	if err := s.deal.Apply(s.engine); err != nil {
		return cart.Deal{}, err
	}
	return s.deal, nil
}

func (s *Session) Cart() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartView()
}

func (s *Session) cartView() CartView {
	lines := s.engine.SummaryLines()
	if lines == nil {
		lines = []cart.Line{}
	}
	return CartView{
		Lines:       lines,
		UniqueCount: s.engine.UniqueCount(),
		Units:       s.engine.TotalUnitCount(),
		Subtotal:    s.engine.Subtotal(),
		Discount:    s.engine.Discount(),
		Total:       s.engine.CartTotal(),
		Voucher:     s.engine.Voucher(),
		Version:     s.engine.CartVersion(),
	}
}

func (s *Session) Add(key string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.AddToCart(key)
}

// Remove takes one unit of snap out of the cart and reports whether there
// was one to take.
func (s *Session) Remove(snap domain.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.engine.TotalUnitCount()
	s.engine.RemoveOneFromCart(snap)
	return s.engine.TotalUnitCount() < before
}

func (s *Session) SetVoucher(percent int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.SetVoucher(percent)
}

func (s *Session) ClearVoucher() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.ClearVoucher()
}

func (s *Session) Quote() (cart.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Quote(s.balance)
}

// Checkout commits the current cart. A non-zero version must match the
// version of the quote the client saw. On success the balance is charged
// and a spin round with one spin per unit bought is granted.
func (s *Session) Checkout(version uint64, recipient string) (domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.engine.Quote(s.balance)
	if err != nil {
		return domain.Receipt{}, err
	}
	if version != 0 && version != q.Version {
		return domain.Receipt{}, cart.ErrStaleQuote
	}

	receipt, err := s.engine.Commit(q)
	if err != nil {
		return domain.Receipt{}, err
	}
	receipt.Recipient = recipient

	s.balance = receipt.BalanceAfter
	s.spins = receipt.Units
	return receipt, nil
}

// Spin plays the pending round. Rewards land immediately: balance bonuses
// are credited and a voucher reward replaces the active voucher.
func (s *Session) Spin() (cart.SpinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spins == 0 {
		return cart.SpinResult{}, ErrNoSpin
	}

	res := cart.Spin(s.rng, s.spins)
	s.spins = 0
	s.balance += res.BalanceBonus
	s.stickers += res.Stickers
	if res.VoucherPercent > 0 {
		if err := s.engine.SetVoucher(res.VoucherPercent); err != nil {
			return cart.SpinResult{}, err
		}
	}
	return res, nil
}

func (s *Session) Wallet() Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Wallet{
		Balance:        s.balance,
		Formatted:      cart.FormatRupiah(s.balance),
		Stickers:       s.stickers,
		SpinsAvailable: s.spins,
	}
}
