// Package cart prices a single shopping session: active catalog prices, an
// optional voucher, the cart of frozen snapshots and the tiered checkout total.
//
// An Engine is not safe for concurrent use. Callers serialise access.
package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/domain"
)

// CatalogEntry is a catalog item as it should be displayed right now.
type CatalogEntry struct {
	Key            string `json:"key"`
	Title          string `json:"title"`
	BasePrice      int64  `json:"base_price"`
	ActivePrice    int64  `json:"active_price"`
	EffectivePrice int64  `json:"effective_price"`
	Cover          string `json:"cover"`
}

type Engine struct {
	games   []domain.Game
	index   map[string]int
	active  map[string]int64
	voucher int64
	cart    *Cart

	now   func() time.Time
	newID func() string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

func NewEngine(games []domain.Game, opts ...Option) *Engine {
	e := &Engine{
		games:  make([]domain.Game, 0, len(games)),
		index:  make(map[string]int, len(games)),
		active: make(map[string]int64, len(games)),
		cart:   NewCart(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}

	for _, g := range games {
		if _, dup := e.index[g.Key]; dup {
			continue
		}
		e.index[g.Key] = len(e.games)
		e.games = append(e.games, g)
		e.active[g.Key] = g.BasePrice
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) game(key string) (domain.Game, bool) {
	i, ok := e.index[key]
	if !ok {
		return domain.Game{}, false
	}
	return e.games[i], true
}

func (e *Engine) Games() []domain.Game {
	out := make([]domain.Game, len(e.games))
	copy(out, e.games)
	return out
}

func (e *Engine) Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(e.games))
	for _, g := range e.games {
		active := e.active[g.Key]
		entries = append(entries, CatalogEntry{
			Key:            g.Key,
			Title:          g.Title,
			BasePrice:      g.BasePrice,
			ActivePrice:    active,
			EffectivePrice: percentOff(active, e.voucher),
			Cover:          g.Cover,
		})
	}
	return entries
}

func (e *Engine) ActivePrice(key string) (int64, error) {
	if _, ok := e.game(key); !ok {
		return 0, ErrUnknownGame
	}
	return e.active[key], nil
}

// EffectivePrice is the active price with the current voucher taken off.
func (e *Engine) EffectivePrice(key string) (int64, error) {
	active, err := e.ActivePrice(key)
	if err != nil {
		return 0, err
	}
	return percentOff(active, e.voucher), nil
}

// ApplyDailyDeal changes the active price of a game. Snapshots already in
// the cart keep the price they were added with.
func (e *Engine) ApplyDailyDeal(key string, price int64) error {
	if _, ok := e.game(key); !ok {
		return ErrUnknownGame
	}
	if price < 0 {
		return ErrNegativePrice
	}
	e.active[key] = price
	return nil
}

func (e *Engine) SetVoucher(percent int64) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidVoucher
	}
	e.voucher = percent
	return nil
}

func (e *Engine) ClearVoucher() {
	e.voucher = 0
}

func (e *Engine) Voucher() int64 {
	return e.voucher
}

// AddToCart freezes the game's effective price into a snapshot and adds one
// unit of it to the cart.
func (e *Engine) AddToCart(key string) (domain.Snapshot, error) {
	g, ok := e.game(key)
	if !ok {
		return domain.Snapshot{}, ErrUnknownGame
	}
	s := domain.Snapshot{
		Title: g.Title,
		Price: percentOff(e.active[key], e.voucher),
		Cover: g.Cover,
	}
	e.cart.Add(s)
	return s, nil
}

func (e *Engine) RemoveOneFromCart(s domain.Snapshot) {
	e.cart.RemoveOne(s)
}

func (e *Engine) CartTotal() int64 {
	return e.cart.Total()
}

func (e *Engine) Subtotal() int64 {
	return e.cart.Subtotal()
}

func (e *Engine) Discount() int64 {
	return e.cart.Subtotal() - e.cart.Total()
}

func (e *Engine) UniqueCount() int {
	return e.cart.UniqueCount()
}

func (e *Engine) TotalUnitCount() int {
	return e.cart.TotalUnits()
}

func (e *Engine) SummaryLines() []Line {
	return e.cart.Lines()
}

func (e *Engine) QuantityByTitle(title string) int {
	return e.cart.QuantityByTitle(title)
}

func (e *Engine) Snapshots() []domain.Snapshot {
	return e.cart.Snapshots()
}

// CartVersion changes on every cart mutation. Quotes carry it so Commit can
// detect a cart that moved underneath them.
func (e *Engine) CartVersion() uint64 {
	return e.cart.Version()
}
