package cart

import (
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/domain"
)

// Rand is the subset of *math/rand/v2.Rand used for deals and spins.
type Rand interface {
	IntN(n int) int
}

// DealCuts are the fixed amounts a daily deal can take off a base price.
var DealCuts = []int64{50000, 100000, 150000}

// Deal is a proposed price cut for one game. It does nothing until applied.
type Deal struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	BasePrice int64  `json:"base_price"`
	Cut       int64  `json:"cut"`
	NewPrice  int64  `json:"new_price"`
	Percent   int64  `json:"percent"`
	Cover     string `json:"cover"`
}

// DrawDeal picks a random game and cut. It reports false for an empty catalog.
func DrawDeal(rng Rand, games []domain.Game) (Deal, bool) {
	if len(games) == 0 {
		return Deal{}, false
	}
	g := games[rng.IntN(len(games))]
	cut := DealCuts[rng.IntN(len(DealCuts))]
	return NewDeal(g, cut), true
}

func NewDeal(g domain.Game, cut int64) Deal {
	var percent int64
	if g.BasePrice > 0 {
		percent = decimal.NewFromInt(cut).
			Mul(hundred).
			Div(decimal.NewFromInt(g.BasePrice)).
			RoundBank(0).
			IntPart()
	}
	return Deal{
		Key:       g.Key,
		Title:     g.Title,
		BasePrice: g.BasePrice,
		Cut:       cut,
		NewPrice:  max(g.BasePrice-cut, 0),
		Percent:   percent,
		Cover:     g.Cover,
	}
}

// Apply sets the deal's price as the game's active price.
func (d Deal) Apply(e *Engine) error {
	return e.ApplyDailyDeal(d.Key, d.NewPrice)
}
