package store

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	OutcomeSuccess      = "success"
	OutcomeEmpty        = "empty_cart"
	OutcomeInsufficient = "insufficient_funds"
	OutcomeStale        = "stale_quote"
	OutcomeReplayed     = "replayed"
)

type Metrics struct {
	checkouts metric.Int64Counter
	revenue   metric.Int64Counter
	cartUnits metric.Int64UpDownCounter
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("github.com/joao-fontenele/gamestore-otel-demo/internal/store")

	checkouts, err := meter.Int64Counter("store.checkouts",
		metric.WithDescription("Checkout attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	revenue, err := meter.Int64Counter("store.revenue",
		metric.WithDescription("Amount charged at checkout"),
		metric.WithUnit("{rupiah}"),
	)
	if err != nil {
		return nil, err
	}

	cartUnits, err := meter.Int64UpDownCounter("store.cart.units",
		metric.WithDescription("Units currently in the cart"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{checkouts: checkouts, revenue: revenue, cartUnits: cartUnits}, nil
}

func (m *Metrics) checkout(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) charged(ctx context.Context, total int64, units int) {
	if m == nil {
		return
	}
	m.revenue.Add(ctx, total)
	m.cartUnits.Add(ctx, -int64(units))
}

func (m *Metrics) unitsChanged(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.cartUnits.Add(ctx, delta)
}
